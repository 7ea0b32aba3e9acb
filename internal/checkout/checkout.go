// Package checkout turns a cart of held seats into a booking. Each attempt moves
// through Collecting, Validating and then either Committed or Aborted. An aborted
// attempt leaves holds and cart exactly as they were.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	DefaultTimeout       = 5 * time.Second
	defaultNotifyTimeout = 30 * time.Second
)

type State string

const (
	StateCollecting State = "COLLECTING"
	StateValidating State = "VALIDATING"
	StateCommitted  State = "COMMITTED"
	StateAborted    State = "ABORTED"
)

type Carts interface {
	Load(ctx context.Context, screeningID int, owner domain.OwnerKey) (*domain.Cart, error)
	Discard(ctx context.Context, screeningID int, owner domain.OwnerKey) error
}

type Locks interface {
	HoldsOf(ctx context.Context, screeningID int, owner domain.OwnerKey) (map[int]domain.SeatHold, error)
}

type Signer interface {
	Sign(booking *domain.Booking) (string, error)
}

// Notifier is told about committed bookings. It runs after the commit, so its
// failures never affect the booking.
type Notifier interface {
	BookingCommitted(ctx context.Context, booking domain.Booking) error
}

type Request struct {
	ScreeningID      int
	Owner            domain.OwnerKey
	PaymentMethod    domain.PaymentMethod
	PaymentReference string
	Contact          domain.Contact
}

type Result struct {
	State        State
	Booking      *domain.Booking
	Confirmation string
}

type Coordinator struct {
	carts    Carts
	locks    Locks
	bookings domain.BookingRepository
	catalog  domain.CatalogRepository
	signer   Signer
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	timeout  time.Duration

	notifications sync.WaitGroup
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(c *Coordinator) {
		c.notifier = notifier
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func NewCoordinator(
	carts Carts,
	locks Locks,
	bookings domain.BookingRepository,
	catalog domain.CatalogRepository,
	signer Signer,
	opts ...Option) *Coordinator {

	c := &Coordinator{
		carts:    carts,
		locks:    locks,
		bookings: bookings,
		catalog:  catalog,
		signer:   signer,
		logger:   slog.Default(),
		now:      time.Now,
		timeout:  DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Checkout validates the caller's cart against its live holds and commits a booking.
// The returned Result always carries the final state, also when err is non-nil.
func (c *Coordinator) Checkout(ctx context.Context, req Request) (*Result, error) {
	result := &Result{State: StateCollecting}

	logger := c.logger.With(
		"screening_id", req.ScreeningID,
		"session_id", req.Owner.SessionID)

	abort := func(err error) (*Result, error) {
		result.State = StateAborted
		logger.Info("checkout aborted", "error", err)

		return result, err
	}

	if req.Owner.IsZero() {
		return abort(fmt.Errorf("%w: owner key is required", domain.ErrValidationFailed))
	}

	if !req.PaymentMethod.Valid() {
		return abort(fmt.Errorf("%w: unsupported payment method %q", domain.ErrValidationFailed, req.PaymentMethod))
	}

	cart, err := c.carts.Load(ctx, req.ScreeningID, req.Owner)
	if err != nil {
		return abort(err)
	}

	if len(cart.Items) == 0 {
		return abort(domain.ErrCartEmpty)
	}

	result.State = StateValidating

	booking, err := c.validate(ctx, req, cart)
	if err != nil {
		return abort(err)
	}

	err = c.commit(ctx, booking)
	if err != nil {
		return abort(err)
	}

	result.State = StateCommitted
	result.Booking = booking

	logger.Info("booking committed",
		"booking_number", booking.Number,
		"seats", len(booking.Seats),
		"total", booking.TotalPrice.StringFixed(2),
		"status", booking.Status)

	result.Confirmation, err = c.signer.Sign(booking)
	if err != nil {
		logger.Error("failed to sign payment confirmation", "booking_number", booking.Number, "error", err)
	}

	err = c.carts.Discard(ctx, req.ScreeningID, req.Owner)
	if err != nil {
		logger.Error("failed to discard cart after checkout", "booking_number", booking.Number, "error", err)
	}

	c.notify(ctx, *booking)

	return result, nil
}

// Wait blocks until every pending notification has finished.
func (c *Coordinator) Wait() {
	c.notifications.Wait()
}

func (c *Coordinator) validate(ctx context.Context, req Request, cart *domain.Cart) (*domain.Booking, error) {
	screening, err := c.catalog.GetScreening(ctx, req.ScreeningID)
	if err != nil {
		return nil, err
	}

	if !screening.OpenForSale(c.now()) {
		return nil, domain.ErrScreeningInactive
	}

	ticketTypes, err := c.catalog.GetActiveTicketTypes(ctx)
	if err != nil {
		return nil, err
	}

	prices := make(map[int]decimal.Decimal, len(ticketTypes))
	for _, tt := range ticketTypes {
		prices[tt.ID] = tt.PriceFor(screening.BasePrice)
	}

	holds, err := c.locks.HoldsOf(ctx, req.ScreeningID, req.Owner)
	if err != nil {
		return nil, err
	}

	number, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate booking number: %w", err)
	}

	booking := &domain.Booking{
		Number:           number.String(),
		Owner:            req.Owner,
		ScreeningID:      req.ScreeningID,
		TotalPrice:       decimal.Zero,
		Status:           req.PaymentMethod.InitialBookingStatus(),
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		Contact:          req.Contact,
		Seats:            make([]domain.BookedSeat, 0, len(cart.Items)),
	}

	for _, item := range cart.Items {
		if _, held := holds[item.SeatID]; !held {
			return nil, fmt.Errorf("%w: hold on seat %d is no longer valid", domain.ErrCheckoutAborted, item.SeatID)
		}

		price, ok := prices[item.TicketTypeID]
		if !ok {
			return nil, fmt.Errorf("%w: seat %d", domain.ErrInvalidTicketType, item.SeatID)
		}

		booking.Seats = append(booking.Seats, domain.BookedSeat{
			ScreeningID:  req.ScreeningID,
			SeatID:       item.SeatID,
			TicketTypeID: item.TicketTypeID,
			Price:        price,
			Status:       domain.BookedSeatReserved,
		})

		booking.TotalPrice = booking.TotalPrice.Add(price)
	}

	return booking, nil
}

func (c *Coordinator) commit(ctx context.Context, booking *domain.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.bookings.Commit(ctx, booking, c.now())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", domain.ErrStoreTimeout, err)
		}

		return err
	}

	return nil
}

func (c *Coordinator) notify(ctx context.Context, booking domain.Booking) {
	if c.notifier == nil {
		return
	}

	c.notifications.Add(1)

	go func() {
		defer c.notifications.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultNotifyTimeout)
		defer cancel()

		err := c.notifier.BookingCommitted(ctx, booking)
		if err != nil {
			c.logger.Error("failed to send booking notification", "booking_number", booking.Number, "error", err)
		}
	}()
}
