package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

// Holding reports whether the booking still owns its seats.
func (s BookingStatus) Holding() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

type BookedSeatStatus string

const (
	BookedSeatReserved BookedSeatStatus = "RESERVED"
	BookedSeatOccupied BookedSeatStatus = "OCCUPIED"
)

type Contact struct {
	Name  string
	Email string
	Phone string
}

type Booking struct {
	ID               int64
	Number           string
	Owner            OwnerKey
	ScreeningID      int
	TotalPrice       decimal.Decimal
	Status           BookingStatus
	PaymentMethod    PaymentMethod
	PaymentReference string
	Contact          Contact
	Seats            []BookedSeat
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type BookedSeat struct {
	BookingID    int64
	ScreeningID  int
	SeatID       int
	TicketTypeID int
	Price        decimal.Decimal
	Status       BookedSeatStatus
}

type BookingSummary struct {
	Number      string
	ScreeningID int
	Title       string
	StartsAt    time.Time
	SeatCount   int
	TotalPrice  decimal.Decimal
	Status      BookingStatus
	CreatedAt   time.Time
}

type BookingRepository interface {
	// Commit persists the booking and its seats and releases the matching holds in
	// one transaction. It fails with ErrCheckoutAborted when any hold is no longer
	// live or owned by the booking's owner at commit time.
	Commit(ctx context.Context, booking *Booking, now time.Time) error
	SoldSeats(ctx context.Context, screeningID int) ([]BookedSeat, error)
	GetByNumber(ctx context.Context, number string) (*Booking, error)
	Cancel(ctx context.Context, number string, owner OwnerKey, now time.Time) (*Booking, error)
	ListByOwner(ctx context.Context, owner OwnerKey, pagination Pagination) ([]BookingSummary, *Metadata, error)
}
