package notify

import (
	"context"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/mailer"
)

const bookingConfirmedTemplate = "booking_confirmed.tmpl"

type MailNotifier struct {
	mailer  mailer.Mailer
	catalog domain.CatalogRepository
}

func NewMailNotifier(m mailer.Mailer, catalog domain.CatalogRepository) *MailNotifier {
	return &MailNotifier{
		mailer:  m,
		catalog: catalog,
	}
}

// BookingCommitted mails the booking summary to the contact address, if one was given.
func (n *MailNotifier) BookingCommitted(ctx context.Context, booking domain.Booking) error {
	if booking.Contact.Email == "" {
		return nil
	}

	details, err := describe(ctx, n.catalog, booking)
	if err != nil {
		return err
	}

	return n.mailer.Send(ctx, booking.Contact.Email, bookingConfirmedTemplate, details)
}
