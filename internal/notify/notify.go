// Package notify tells the outside world about committed bookings: an e-mail to the
// contact address and a booking.confirmed event on RabbitMQ.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
)

type Notifier interface {
	BookingCommitted(ctx context.Context, booking domain.Booking) error
}

// Multi fans a booking out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) BookingCommitted(ctx context.Context, booking domain.Booking) error {
	var errs []error

	for _, n := range m {
		if err := n.BookingCommitted(ctx, booking); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

type seatLine struct {
	SeatID     int    `json:"seatId"`
	Row        int    `json:"row"`
	Number     int    `json:"number"`
	TicketType string `json:"ticketType"`
	Price      string `json:"price"`
}

// bookingDetails is a booking joined with the catalog data people read.
type bookingDetails struct {
	Number        string
	Name          string
	Title         string
	StartsAt      time.Time
	Seats         []seatLine
	Total         string
	PaymentMethod domain.PaymentMethod
	Status        domain.BookingStatus
	Pending       bool
}

func describe(ctx context.Context, catalog domain.CatalogRepository, booking domain.Booking) (*bookingDetails, error) {
	screening, err := catalog.GetScreening(ctx, booking.ScreeningID)
	if err != nil {
		return nil, fmt.Errorf("loading screening %d: %w", booking.ScreeningID, err)
	}

	layout, err := catalog.GetHallLayout(ctx, screening.HallID)
	if err != nil {
		return nil, fmt.Errorf("loading hall %d: %w", screening.HallID, err)
	}

	ticketTypes, err := catalog.GetActiveTicketTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading ticket types: %w", err)
	}

	seats := make(map[int]domain.Seat, len(layout))
	for _, seat := range layout {
		seats[seat.ID] = seat
	}

	names := make(map[int]string, len(ticketTypes))
	for _, tt := range ticketTypes {
		names[tt.ID] = tt.Name
	}

	details := &bookingDetails{
		Number:        booking.Number,
		Name:          booking.Contact.Name,
		Title:         screening.Title,
		StartsAt:      screening.StartsAt,
		Seats:         make([]seatLine, 0, len(booking.Seats)),
		Total:         booking.TotalPrice.StringFixed(2),
		PaymentMethod: booking.PaymentMethod,
		Status:        booking.Status,
		Pending:       booking.Status == domain.BookingStatusPending,
	}

	for _, bs := range booking.Seats {
		seat := seats[bs.SeatID]

		details.Seats = append(details.Seats, seatLine{
			SeatID:     bs.SeatID,
			Row:        seat.Row,
			Number:     seat.Number,
			TicketType: names[bs.TicketTypeID],
			Price:      bs.Price.StringFixed(2),
		})
	}

	return details, nil
}
