package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-booking/internal/cart"
	"github.com/metinatakli/cinex-booking/internal/checkout"
	"github.com/metinatakli/cinex-booking/internal/config"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/seatlock"
	"github.com/metinatakli/cinex-booking/internal/seatmap"
	appvalidator "github.com/metinatakli/cinex-booking/internal/validator"
	"github.com/metinatakli/cinex-booking/internal/vcs"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

var (
	version = vcs.Version()
)

const shutdownTimeout = 30 * time.Second

type Application struct {
	config         config.Config
	logger         *slog.Logger
	validator      *validator.Validate
	sessionManager *scs.SessionManager
	now            func() time.Time

	locks    *seatlock.Store
	carts    *cart.Manager
	checkout *checkout.Coordinator
	seatMaps *seatmap.Projector
	bookings domain.BookingRepository
	catalog  domain.CatalogRepository
}

// Services are the booking components the HTTP layer exposes.
type Services struct {
	Locks    *seatlock.Store
	Carts    *cart.Manager
	Checkout *checkout.Coordinator
	SeatMaps *seatmap.Projector
	Bookings domain.BookingRepository
	Catalog  domain.CatalogRepository
}

func New(cfg config.Config, logger *slog.Logger, sessionManager *scs.SessionManager, services Services) *Application {
	return &Application{
		config:         cfg,
		logger:         logger,
		validator:      appvalidator.NewValidator(),
		sessionManager: sessionManager,
		now:            time.Now,
		locks:          services.Locks,
		carts:          services.Carts,
		checkout:       services.Checkout,
		seatMaps:       services.SeatMaps,
		bookings:       services.Bookings,
		catalog:        services.Catalog,
	}
}

func Version() string {
	return version
}

// NewSessionManager keeps sessions in Redis when a client is given and in process
// memory otherwise.
func NewSessionManager(client *redis.Client, cfg config.SessionConfig) *scs.SessionManager {
	sessionManager := scs.New()

	if client != nil {
		sessionManager.Store = goredisstore.New(client)
	}
	sessionManager.IdleTimeout = cfg.IdleTimeout
	sessionManager.Cookie.Name = "session_id"
	sessionManager.Cookie.HttpOnly = true
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	return sessionManager
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.URL,
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxActiveConns:  cfg.MaxOpenConns,
		ConnMaxIdleTime: cfg.MaxIdleTime,
	})

	err := errors.Join(redisotel.InstrumentTracing(rdb), redisotel.InstrumentMetrics(rdb))
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to instrument redis client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = rdb.Ping(ctx).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func NewDatabasePool(ctx context.Context, cfg config.DBConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConnIdleTime = cfg.MaxIdleTime
	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err = db.Ping(pingCtx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down gracefully
// and waits for in-flight booking notifications.
func (app *Application) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.Port),
		Handler:      app.Routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	shutdownError := make(chan error, 1)

	go func() {
		<-ctx.Done()

		app.logger.Info("shutting down server", "addr", srv.Addr)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownError <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.Env, "version", version)

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.checkout.Wait()

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
