package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Cart is scoped to one session and one screening. Only the seat and ticket type
// choices are persisted, prices and hold details are derived on every read.
type Cart struct {
	SessionID   string     `json:"sessionId"`
	ScreeningID int        `json:"screeningId"`
	Items       []CartItem `json:"items"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type CartItem struct {
	SeatID       int       `json:"seatId"`
	TicketTypeID int       `json:"ticketTypeId"`
	AddedAt      time.Time `json:"addedAt"`

	Seat          Seat            `json:"-"`
	TicketType    TicketType      `json:"-"`
	Price         decimal.Decimal `json:"-"`
	HoldExpiresAt time.Time       `json:"-"`
}

func NewCart(sessionID string, screeningID int, now time.Time) *Cart {
	return &Cart{
		SessionID:   sessionID,
		ScreeningID: screeningID,
		Items:       []CartItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero

	for _, item := range c.Items {
		total = total.Add(item.Price)
	}

	return total
}

func (c *Cart) Item(seatID int) (*CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].SeatID == seatID {
			return &c.Items[i], true
		}
	}

	return nil, false
}

func (c *Cart) Remove(seatID int) bool {
	for i := range c.Items {
		if c.Items[i].SeatID == seatID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return true
		}
	}

	return false
}

func (c *Cart) SeatIDs() []int {
	ids := make([]int, len(c.Items))
	for i, item := range c.Items {
		ids[i] = item.SeatID
	}

	return ids
}

// HoldExpiresAt is the earliest expiration among the cart's holds.
func (c *Cart) HoldExpiresAt() *time.Time {
	var earliest *time.Time

	for i := range c.Items {
		t := c.Items[i].HoldExpiresAt
		if t.IsZero() {
			continue
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = &t
		}
	}

	return earliest
}

type CartStore interface {
	Get(ctx context.Context, sessionID string, screeningID int) (*Cart, error)
	// Update applies fn to the current cart, or to a new empty one, and stores the
	// result only if no other write to the same cart happened in between. An error
	// from fn aborts the update and is returned unchanged.
	Update(ctx context.Context, sessionID string, screeningID int, fn func(cart *Cart) error) (*Cart, error)
	Delete(ctx context.Context, sessionID string, screeningID int) error
}
