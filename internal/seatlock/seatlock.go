// Package seatlock grants, releases and reports time-boxed seat holds. Exclusivity
// comes from the storage layer's conditional put on (screening, seat); the store here
// adds input checks, bounded timeouts and metrics around it.
package seatlock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultTTL     = 10 * time.Minute
	MaxTTL         = 30 * time.Minute
	DefaultTimeout = 2 * time.Second
)

type Config struct {
	DefaultTTL time.Duration
	MaxTTL     time.Duration
	Timeout    time.Duration
}

type Store struct {
	holds   domain.HoldRepository
	catalog domain.CatalogRepository
	logger  *slog.Logger
	now     func() time.Time
	cfg     Config

	acquires metric.Int64Counter
	releases metric.Int64Counter
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func New(holds domain.HoldRepository, catalog domain.CatalogRepository, cfg Config, opts ...Option) *Store {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = MaxTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Store{
		holds:   holds,
		catalog: catalog,
		logger:  slog.Default(),
		now:     time.Now,
		cfg:     cfg,
	}

	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter("github.com/metinatakli/cinex-booking/internal/seatlock")

	var err error
	s.acquires, err = meter.Int64Counter("seatlock.acquires",
		metric.WithDescription("Seat hold acquire attempts by outcome"))
	if err != nil {
		s.logger.Warn("failed to create acquire counter", "error", err)
	}

	s.releases, err = meter.Int64Counter("seatlock.releases",
		metric.WithDescription("Seat holds released by their owner"))
	if err != nil {
		s.logger.Warn("failed to create release counter", "error", err)
	}

	return s
}

// Acquire places a hold on the seat for owner. A zero ttl uses the configured default.
// It returns AcquireAlreadyHeld, without extending the hold, when owner already holds
// the seat, and ErrSeatNotAvailable when anyone else holds it or it is sold.
func (s *Store) Acquire(
	ctx context.Context,
	screeningID,
	seatID int,
	owner domain.OwnerKey,
	ttl time.Duration) (*domain.SeatHold, domain.AcquireOutcome, error) {

	if owner.IsZero() {
		return nil, 0, fmt.Errorf("%w: owner key is required", domain.ErrValidationFailed)
	}

	if ttl == 0 {
		ttl = s.cfg.DefaultTTL
	}

	if ttl < 0 || ttl > s.cfg.MaxTTL {
		return nil, 0, fmt.Errorf("%w: ttl must be between 0 and %s", domain.ErrValidationFailed, s.cfg.MaxTTL)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	now := s.now()

	err := s.checkSeat(ctx, screeningID, seatID, now)
	if err != nil {
		return nil, 0, err
	}

	hold, outcome, err := s.holds.Acquire(ctx, domain.AcquireRequest{
		ScreeningID: screeningID,
		SeatID:      seatID,
		Owner:       owner,
		Now:         now,
		ExpiresAt:   now.Add(ttl),
	})
	if err != nil {
		if errors.Is(err, domain.ErrSeatNotAvailable) {
			s.record(ctx, s.acquires, "conflict")
			return nil, 0, err
		}

		return nil, 0, timeoutOr(err)
	}

	s.record(ctx, s.acquires, outcome.String())

	s.logger.Debug("seat hold acquired",
		"screening_id", screeningID,
		"seat_id", seatID,
		"outcome", outcome.String(),
		"expires_at", hold.ExpiresAt)

	return hold, outcome, nil
}

// Release frees a hold owned by owner. It fails with ErrNotLockOwner when the seat is
// held by someone else and ErrHoldNotFound when nothing live holds the seat.
func (s *Store) Release(ctx context.Context, screeningID, seatID int, owner domain.OwnerKey) (*domain.SeatHold, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: owner key is required", domain.ErrValidationFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	hold, err := s.holds.Release(ctx, screeningID, seatID, owner, s.now())
	if err != nil {
		return nil, timeoutOr(err)
	}

	s.record(ctx, s.releases, "single")

	return hold, nil
}

// ReleaseAll frees every live hold owner has for the screening and returns them.
func (s *Store) ReleaseAll(ctx context.Context, screeningID int, owner domain.OwnerKey) ([]domain.SeatHold, error) {
	if owner.IsZero() {
		return nil, fmt.Errorf("%w: owner key is required", domain.ErrValidationFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	released, err := s.holds.ReleaseAll(ctx, screeningID, owner, s.now())
	if err != nil {
		return nil, timeoutOr(err)
	}

	if len(released) > 0 {
		s.record(ctx, s.releases, "bulk")
	}

	return released, nil
}

// CurrentHolds returns the holds of the screening that are ACTIVE and unexpired right now.
func (s *Store) CurrentHolds(ctx context.Context, screeningID int) ([]domain.SeatHold, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	now := s.now()

	holds, err := s.holds.ActiveHolds(ctx, screeningID, now)
	if err != nil {
		return nil, timeoutOr(err)
	}

	// repositories already filter on expiry, this keeps the guarantee for any backend
	return slices.DeleteFunc(holds, func(h domain.SeatHold) bool {
		return !h.LiveAt(now)
	}), nil
}

// HoldsOf returns the live holds of the screening that belong to owner, keyed by seat.
func (s *Store) HoldsOf(ctx context.Context, screeningID int, owner domain.OwnerKey) (map[int]domain.SeatHold, error) {
	holds, err := s.CurrentHolds(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	owned := make(map[int]domain.SeatHold)
	for _, hold := range holds {
		if hold.Owner.Matches(owner) {
			owned[hold.SeatID] = hold
		}
	}

	return owned, nil
}

func (s *Store) checkSeat(ctx context.Context, screeningID, seatID int, now time.Time) error {
	screening, err := s.catalog.GetScreening(ctx, screeningID)
	if err != nil {
		return timeoutOr(err)
	}

	if !screening.OpenForSale(now) {
		return domain.ErrScreeningInactive
	}

	seats, err := s.catalog.GetHallLayout(ctx, screening.HallID)
	if err != nil {
		return timeoutOr(err)
	}

	found := slices.ContainsFunc(seats, func(seat domain.Seat) bool {
		return seat.ID == seatID
	})
	if !found {
		return fmt.Errorf("%w: seat %d does not belong to hall %d", domain.ErrValidationFailed, seatID, screening.HallID)
	}

	return nil
}

func (s *Store) record(ctx context.Context, counter metric.Int64Counter, outcome string) {
	if counter == nil {
		return
	}

	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func timeoutOr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrStoreTimeout, err)
	}

	return err
}
