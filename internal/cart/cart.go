// Package cart manages the per-session, per-screening selection of held seats and
// their ticket types. A cart item lives only as long as the hold behind it: every
// read drops items whose hold has gone.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
)

const DefaultMaxSeats = 8

// Locks is the part of the seat lock store the cart depends on.
type Locks interface {
	HoldsOf(ctx context.Context, screeningID int, owner domain.OwnerKey) (map[int]domain.SeatHold, error)
	Release(ctx context.Context, screeningID, seatID int, owner domain.OwnerKey) (*domain.SeatHold, error)
	ReleaseAll(ctx context.Context, screeningID int, owner domain.OwnerKey) ([]domain.SeatHold, error)
}

type Manager struct {
	carts    domain.CartStore
	locks    Locks
	catalog  domain.CatalogRepository
	logger   *slog.Logger
	now      func() time.Time
	maxSeats int
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMaxSeats(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxSeats = n
		}
	}
}

func NewManager(carts domain.CartStore, locks Locks, catalog domain.CatalogRepository, opts ...Option) *Manager {
	m := &Manager{
		carts:    carts,
		locks:    locks,
		catalog:  catalog,
		logger:   slog.Default(),
		now:      time.Now,
		maxSeats: DefaultMaxSeats,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// pricing is the catalog data needed to turn stored choices into priced items.
type pricing struct {
	screening   *domain.Screening
	seats       map[int]domain.Seat
	ticketTypes map[int]domain.TicketType
}

// Get returns the caller's cart for the screening with items whose hold is gone
// removed and every price recomputed. A missing cart is returned empty.
func (m *Manager) Get(ctx context.Context, screeningID int, owner domain.OwnerKey) (*domain.Cart, error) {
	cart, err := m.load(ctx, screeningID, owner)
	if err != nil {
		return nil, err
	}

	p, err := m.pricing(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	holds, err := m.locks.HoldsOf(ctx, screeningID, owner)
	if err != nil {
		return nil, err
	}

	if m.stale(cart, holds, p) {
		// a ticket type withdrawn from sale can no longer be priced; its hold stays so
		// the seat can be added again with another type
		cart, err = m.update(ctx, screeningID, owner, func(cart *domain.Cart) error {
			m.dropUnheld(cart, holds)
			m.dropUnpriced(cart, p)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	m.price(cart, holds, p)

	return cart, nil
}

// Load returns the stored cart without checking holds. Checkout uses it so that a
// lapsed hold aborts the attempt instead of silently shrinking the order.
func (m *Manager) Load(ctx context.Context, screeningID int, owner domain.OwnerKey) (*domain.Cart, error) {
	return m.load(ctx, screeningID, owner)
}

func (m *Manager) AddSeat(
	ctx context.Context,
	screeningID int,
	owner domain.OwnerKey,
	seatID,
	ticketTypeID int) (*domain.Cart, error) {

	p, err := m.pricing(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	if !p.screening.OpenForSale(m.now()) {
		return nil, domain.ErrScreeningInactive
	}

	holds, err := m.locks.HoldsOf(ctx, screeningID, owner)
	if err != nil {
		return nil, err
	}

	cart, err := m.update(ctx, screeningID, owner, func(cart *domain.Cart) error {
		m.dropUnheld(cart, holds)

		if _, exists := cart.Item(seatID); exists {
			return fmt.Errorf("%w: seat %d is already in the cart", domain.ErrValidationFailed, seatID)
		}

		if len(cart.Items) >= m.maxSeats {
			return domain.ErrCartFull
		}

		if _, held := holds[seatID]; !held {
			return domain.ErrSeatNotLocked
		}

		if _, ok := p.ticketTypes[ticketTypeID]; !ok {
			return domain.ErrInvalidTicketType
		}

		cart.Items = append(cart.Items, domain.CartItem{
			SeatID:       seatID,
			TicketTypeID: ticketTypeID,
			AddedAt:      m.now(),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.price(cart, holds, p)

	return cart, nil
}

// UpdateTicketType changes the ticket type of a seat already in the cart. It fails
// with ErrLockExpired when the seat's hold has gone since it was added.
func (m *Manager) UpdateTicketType(
	ctx context.Context,
	screeningID int,
	owner domain.OwnerKey,
	seatID,
	ticketTypeID int) (*domain.Cart, error) {

	p, err := m.pricing(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	holds, err := m.locks.HoldsOf(ctx, screeningID, owner)
	if err != nil {
		return nil, err
	}

	cart, err := m.update(ctx, screeningID, owner, func(cart *domain.Cart) error {
		if _, exists := cart.Item(seatID); !exists {
			return domain.ErrRecordNotFound
		}

		m.dropUnheld(cart, holds)

		item, exists := cart.Item(seatID)
		if !exists {
			return domain.ErrLockExpired
		}

		if _, ok := p.ticketTypes[ticketTypeID]; !ok {
			return domain.ErrInvalidTicketType
		}

		item.TicketTypeID = ticketTypeID

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.price(cart, holds, p)

	return cart, nil
}

// RemoveSeat drops the seat from the cart and releases its hold. A hold that has
// already lapsed or been taken over is not an error here.
func (m *Manager) RemoveSeat(ctx context.Context, screeningID int, owner domain.OwnerKey, seatID int) (*domain.Cart, error) {
	cart, err := m.load(ctx, screeningID, owner)
	if err != nil {
		return nil, err
	}

	if _, exists := cart.Item(seatID); !exists {
		return nil, domain.ErrRecordNotFound
	}

	_, err = m.locks.Release(ctx, screeningID, seatID, owner)
	if err != nil && !errors.Is(err, domain.ErrHoldNotFound) && !errors.Is(err, domain.ErrNotLockOwner) {
		return nil, err
	}

	_, err = m.update(ctx, screeningID, owner, func(cart *domain.Cart) error {
		cart.Remove(seatID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return m.Get(ctx, screeningID, owner)
}

// Abandon releases every hold the caller has for the screening and discards the cart.
func (m *Manager) Abandon(ctx context.Context, screeningID int, owner domain.OwnerKey) ([]domain.SeatHold, error) {
	released, err := m.locks.ReleaseAll(ctx, screeningID, owner)
	if err != nil {
		return nil, err
	}

	err = m.Discard(ctx, screeningID, owner)
	if err != nil {
		return nil, err
	}

	return released, nil
}

func (m *Manager) Discard(ctx context.Context, screeningID int, owner domain.OwnerKey) error {
	err := m.carts.Delete(ctx, owner.SessionID, screeningID)
	if err != nil {
		return fmt.Errorf("failed to discard cart: %w", err)
	}

	return nil
}

func (m *Manager) load(ctx context.Context, screeningID int, owner domain.OwnerKey) (*domain.Cart, error) {
	if owner.SessionID == "" {
		return nil, fmt.Errorf("%w: session is required", domain.ErrValidationFailed)
	}

	cart, err := m.carts.Get(ctx, owner.SessionID, screeningID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return domain.NewCart(owner.SessionID, screeningID, m.now()), nil
		}

		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	return cart, nil
}

// update applies mutate to the latest stored cart and saves the result atomically
// with respect to other updates of the same cart. An error from mutate leaves the
// stored cart untouched and is returned as is.
func (m *Manager) update(
	ctx context.Context,
	screeningID int,
	owner domain.OwnerKey,
	mutate func(cart *domain.Cart) error) (*domain.Cart, error) {

	if owner.SessionID == "" {
		return nil, fmt.Errorf("%w: session is required", domain.ErrValidationFailed)
	}

	var mutateErr error

	cart, err := m.carts.Update(ctx, owner.SessionID, screeningID, func(cart *domain.Cart) error {
		now := m.now()
		if cart.CreatedAt.IsZero() {
			cart.CreatedAt = now
		}

		mutateErr = mutate(cart)
		if mutateErr != nil {
			return mutateErr
		}

		cart.UpdatedAt = now

		return nil
	})
	if mutateErr != nil {
		return nil, mutateErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}

	return cart, nil
}

// stale reports whether the cart has items without a live hold or a sellable ticket type.
func (m *Manager) stale(cart *domain.Cart, holds map[int]domain.SeatHold, p *pricing) bool {
	for _, item := range cart.Items {
		if _, ok := holds[item.SeatID]; !ok {
			return true
		}
		if _, ok := p.ticketTypes[item.TicketTypeID]; !ok {
			return true
		}
	}

	return false
}

// dropUnheld removes items whose hold is no longer live and owned by the caller.
func (m *Manager) dropUnheld(cart *domain.Cart, holds map[int]domain.SeatHold) {
	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if _, ok := holds[item.SeatID]; ok {
			kept = append(kept, item)
			continue
		}

		m.logger.Info("dropping cart item without a live hold",
			"session_id", cart.SessionID,
			"screening_id", cart.ScreeningID,
			"seat_id", item.SeatID)
	}

	cart.Items = kept
}

func (m *Manager) dropUnpriced(cart *domain.Cart, p *pricing) {
	priced := cart.Items[:0]
	for _, item := range cart.Items {
		if _, ok := p.ticketTypes[item.TicketTypeID]; ok {
			priced = append(priced, item)
		}
	}

	cart.Items = priced
}

func (m *Manager) price(cart *domain.Cart, holds map[int]domain.SeatHold, p *pricing) {
	for i := range cart.Items {
		item := &cart.Items[i]

		item.Seat = p.seats[item.SeatID]
		item.TicketType = p.ticketTypes[item.TicketTypeID]
		item.Price = item.TicketType.PriceFor(p.screening.BasePrice)
		item.HoldExpiresAt = holds[item.SeatID].ExpiresAt
	}
}

func (m *Manager) pricing(ctx context.Context, screeningID int) (*pricing, error) {
	screening, err := m.catalog.GetScreening(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	layout, err := m.catalog.GetHallLayout(ctx, screening.HallID)
	if err != nil {
		return nil, err
	}

	ticketTypes, err := m.catalog.GetActiveTicketTypes(ctx)
	if err != nil {
		return nil, err
	}

	p := &pricing{
		screening:   screening,
		seats:       make(map[int]domain.Seat, len(layout)),
		ticketTypes: make(map[int]domain.TicketType, len(ticketTypes)),
	}

	for _, seat := range layout {
		p.seats[seat.ID] = seat
	}

	for _, tt := range ticketTypes {
		p.ticketTypes[tt.ID] = tt
	}

	return p, nil
}
