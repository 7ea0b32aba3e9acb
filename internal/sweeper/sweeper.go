package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultInterval  = 30 * time.Second
	DefaultBatchSize = 500
	DefaultTimeout   = 5 * time.Second
)

type Config struct {
	Interval  time.Duration
	BatchSize int
	// Timeout bounds every batch statement.
	Timeout time.Duration
}

// Sweeper flips elapsed ACTIVE holds to EXPIRED. Readers already ignore elapsed holds,
// so a failed or skipped pass only delays the audit status, never seat availability.
type Sweeper struct {
	holds  domain.HoldRepository
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	expired  metric.Int64Counter
	duration metric.Float64Histogram
}

type Option func(*Sweeper)

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func New(holds domain.HoldRepository, cfg Config, opts ...Option) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Sweeper{
		holds:  holds,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	meter := otel.Meter("github.com/metinatakli/cinex-booking/internal/sweeper")

	var err error
	s.expired, err = meter.Int64Counter("holds.expired",
		metric.WithDescription("Seat holds transitioned to EXPIRED by the sweeper"))
	if err != nil {
		s.logger.Warn("failed to create expired counter", "error", err)
	}

	s.duration, err = meter.Float64Histogram("sweeper.pass.duration",
		metric.WithDescription("Duration of one sweeper pass"),
		metric.WithUnit("s"))
	if err != nil {
		s.logger.Warn("failed to create pass duration histogram", "error", err)
	}

	return s
}

// Start runs a pass every interval until ctx is cancelled. Pass failures are logged
// and retried on the next tick.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", "interval", s.cfg.Interval, "batch_size", s.cfg.BatchSize)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return nil
		case <-ticker.C:
			_, err := s.Sweep(ctx)
			if err != nil && ctx.Err() == nil {
				s.logger.Error("expiry sweep failed", "error", err)
			}
		}
	}
}

// Sweep expires elapsed holds in batches until a short batch signals nothing is left.
// It returns the number of holds expired during the pass.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	total := 0

	defer func() {
		if s.duration != nil {
			s.duration.Record(ctx, time.Since(start).Seconds())
		}
		if s.expired != nil && total > 0 {
			s.expired.Add(ctx, int64(total))
		}
	}()

	for {
		expired, err := s.expireBatch(ctx)
		total += len(expired)

		if err != nil {
			return total, fmt.Errorf("expired %d holds before failing: %w", total, err)
		}

		if len(expired) < s.cfg.BatchSize {
			break
		}
	}

	s.logger.Info("expiry sweep completed", "expired", total, "duration", time.Since(start))

	return total, nil
}

func (s *Sweeper) expireBatch(ctx context.Context) ([]domain.SeatHold, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	return s.holds.ExpireElapsed(ctx, s.now(), s.cfg.BatchSize)
}
