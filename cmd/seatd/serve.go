package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/metinatakli/cinex-booking/internal/app"
	"github.com/metinatakli/cinex-booking/internal/cart"
	"github.com/metinatakli/cinex-booking/internal/checkout"
	"github.com/metinatakli/cinex-booking/internal/config"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/mailer"
	"github.com/metinatakli/cinex-booking/internal/notify"
	"github.com/metinatakli/cinex-booking/internal/payment"
	"github.com/metinatakli/cinex-booking/internal/repository"
	"github.com/metinatakli/cinex-booking/internal/seatlock"
	"github.com/metinatakli/cinex-booking/internal/seatmap"
	"github.com/metinatakli/cinex-booking/internal/sweeper"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the expiry sweeper",
	RunE:  runServe,
}

var (
	demoRows        int
	demoSeatsPerRow int
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&demoRows, "demo-rows", 10, "rows per hall in the in-memory demo catalog")
	serveCmd.Flags().IntVar(&demoSeatsPerRow, "demo-seats-per-row", 12, "seats per row in the in-memory demo catalog")
}

// backend is the set of stores one process runs against.
type backend struct {
	holds    domain.HoldRepository
	bookings domain.BookingRepository
	catalog  domain.CatalogRepository
	carts    domain.CartStore
	sold     seatmap.SoldSeats
	redis    *redis.Client

	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := app.NewLogger(*cfg, os.Stdout)

	shutdownTelemetry, err := app.InitTelemetry(ctx, *cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(context.Background())

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	signer, err := payment.NewConfirmationSigner(cfg.Checkout.SigningKey)
	if err != nil {
		return err
	}

	locks := seatlock.New(b.holds, b.catalog, seatlock.Config{
		DefaultTTL: cfg.Locks.TTL,
		MaxTTL:     cfg.Locks.MaxTTL,
		Timeout:    cfg.Locks.StoreTimeout,
	}, seatlock.WithLogger(logger))

	carts := cart.NewManager(b.carts, locks, b.catalog,
		cart.WithLogger(logger),
		cart.WithMaxSeats(cfg.Checkout.MaxSeats),
	)

	checkoutOpts := []checkout.Option{
		checkout.WithLogger(logger),
		checkout.WithTimeout(cfg.Checkout.Timeout),
	}
	if notifier := newNotifier(cfg, b.catalog, logger); notifier != nil {
		checkoutOpts = append(checkoutOpts, checkout.WithNotifier(notifier))
	}

	coordinator := checkout.NewCoordinator(carts, locks, b.bookings, b.catalog, signer, checkoutOpts...)

	application := app.New(*cfg, logger, app.NewSessionManager(b.redis, cfg.Session), app.Services{
		Locks:    locks,
		Carts:    carts,
		Checkout: coordinator,
		SeatMaps: seatmap.NewProjector(b.catalog, locks, b.sold),
		Bookings: b.bookings,
		Catalog:  b.catalog,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return application.Serve(gctx)
	})

	if cfg.Sweeper.Enabled {
		sw := newSweeper(cfg, b.holds, logger)

		g.Go(func() error {
			return sw.Start(gctx)
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("seatd stopped with an error", "error", err)
		return err
	}

	return nil
}

func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	b := &backend{}

	switch cfg.Store {
	case config.StoreMemory:
		catalog := repository.NewDemoCatalog(time.Now(), demoRows, demoSeatsPerRow)
		store := repository.NewMemoryStore(repository.WithScreenings(catalog))
		b.holds = store
		b.bookings = store
		b.carts = store
		b.sold = store
		b.catalog = catalog

		logger.Warn("using the in-memory store, holds and bookings are lost on restart")
	default:
		db, err := app.NewDatabasePool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		b.closers = append(b.closers, db.Close)

		logger.Info("database connection pool established")

		bookings := repository.NewPostgresBookingRepository(db, cfg.Locks.StoreTimeout)
		b.holds = repository.NewPostgresHoldRepository(db)
		b.bookings = bookings
		b.sold = bookings
		b.catalog = repository.NewPostgresCatalogRepository(db)
		b.carts = repository.NewMemoryStore()
	}

	if cfg.Redis.URL == "" {
		if cfg.Store == config.StorePostgres {
			logger.Warn("redis.url is not set, sessions and carts are kept in process memory")
		}
		return b, nil
	}

	rdb, err := app.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	b.closers = append(b.closers, func() { rdb.Close() })

	logger.Info("redis connection established")

	b.redis = rdb
	b.carts = repository.NewRedisCartStore(rdb, cfg.Session.IdleTimeout)

	return b, nil
}

func newNotifier(cfg *config.Config, catalog domain.CatalogRepository, logger *slog.Logger) notify.Notifier {
	var notifiers notify.Multi

	if cfg.SMTP.Host != "" {
		m := mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Sender)
		notifiers = append(notifiers, notify.NewMailNotifier(m, catalog))
	}

	if cfg.AMQP.URL != "" {
		notifiers = append(notifiers, notify.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, catalog))
	}

	if len(notifiers) == 0 {
		logger.Info("no booking notifiers configured")
		return nil
	}

	return notifiers
}

func newSweeper(cfg *config.Config, holds domain.HoldRepository, logger *slog.Logger) *sweeper.Sweeper {
	return sweeper.New(holds, sweeper.Config{
		Interval:  cfg.Sweeper.Interval,
		BatchSize: cfg.Sweeper.BatchSize,
		Timeout:   cfg.Locks.StoreTimeout,
	}, sweeper.WithLogger(logger))
}
