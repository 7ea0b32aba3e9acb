package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Seat struct {
	ID     int
	HallID int
	Row    int
	Number int
	Class  string
}

type Screening struct {
	ID        int
	HallID    int
	Title     string
	StartsAt  time.Time
	BasePrice decimal.Decimal
	Active    bool
}

// OpenForSale reports whether holds may be placed on the screening.
func (s Screening) OpenForSale(now time.Time) bool {
	return s.Active && now.Before(s.StartsAt)
}

type TicketType struct {
	ID       int
	Code     string
	Name     string
	Modifier decimal.Decimal
}

// PriceFor returns the line price for a seat sold with this ticket type.
func (t TicketType) PriceFor(basePrice decimal.Decimal) decimal.Decimal {
	return basePrice.Mul(t.Modifier).Round(2)
}

type CatalogRepository interface {
	GetScreening(ctx context.Context, screeningID int) (*Screening, error)
	GetHallLayout(ctx context.Context, hallID int) ([]Seat, error)
	GetActiveTicketTypes(ctx context.Context) ([]TicketType, error)
}

type SeatStatus string

const (
	SeatStatusFree   SeatStatus = "FREE"
	SeatStatusBooked SeatStatus = "BOOKED"
	SeatStatusSold   SeatStatus = "SOLD"
)

type SeatState struct {
	Seat
	Status        SeatStatus
	SelectedByYou bool
	HoldExpiresAt *time.Time
}

type SeatMap struct {
	ScreeningID int
	HallID      int
	Title       string
	StartsAt    time.Time
	Seats       []SeatState
}
