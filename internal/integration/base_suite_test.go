package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/metinatakli/cinex-booking/internal/app"
	"github.com/metinatakli/cinex-booking/internal/cart"
	"github.com/metinatakli/cinex-booking/internal/checkout"
	"github.com/metinatakli/cinex-booking/internal/config"
	"github.com/metinatakli/cinex-booking/internal/payment"
	"github.com/metinatakli/cinex-booking/internal/repository"
	"github.com/metinatakli/cinex-booking/internal/seatlock"
	"github.com/metinatakli/cinex-booking/internal/seatmap"
	"github.com/metinatakli/cinex-booking/internal/sweeper"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
)

const (
	dbName         = "cinex_booking"
	dbUser         = "test_user"
	dbPassword     = "test_password"
	dbImageName    = "postgres:17-alpine"
	cacheImageName = "redis:7"
	signingKey     = "integration-signing-key-0123456789"
)

// TestApp is the booking stack wired the way seatd serve wires it for the postgres store.
type TestApp struct {
	App     *app.Application
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Sweeper *sweeper.Sweeper
	Signer  *payment.ConfirmationSigner
}

func newTestApp(ctx context.Context, cfg config.Config) (*TestApp, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := app.NewDatabasePool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}

	rdb, err := app.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}

	holds := repository.NewPostgresHoldRepository(db)
	bookings := repository.NewPostgresBookingRepository(db, cfg.Locks.StoreTimeout)
	catalog := repository.NewPostgresCatalogRepository(db)
	carts := repository.NewRedisCartStore(rdb, cfg.Session.IdleTimeout)

	signer, err := payment.NewConfirmationSigner(cfg.Checkout.SigningKey)
	if err != nil {
		return nil, err
	}

	locks := seatlock.New(holds, catalog, seatlock.Config{
		DefaultTTL: cfg.Locks.TTL,
		MaxTTL:     cfg.Locks.MaxTTL,
		Timeout:    cfg.Locks.StoreTimeout,
	}, seatlock.WithLogger(logger))

	cartManager := cart.NewManager(carts, locks, catalog, cart.WithLogger(logger), cart.WithMaxSeats(cfg.Checkout.MaxSeats))

	coordinator := checkout.NewCoordinator(cartManager, locks, bookings, catalog, signer,
		checkout.WithLogger(logger),
		checkout.WithTimeout(cfg.Checkout.Timeout),
	)

	application := app.New(cfg, logger, app.NewSessionManager(rdb, cfg.Session), app.Services{
		Locks:    locks,
		Carts:    cartManager,
		Checkout: coordinator,
		SeatMaps: seatmap.NewProjector(catalog, locks, bookings),
		Bookings: bookings,
		Catalog:  catalog,
	})

	sw := sweeper.New(holds, sweeper.Config{
		Interval:  cfg.Sweeper.Interval,
		BatchSize: cfg.Sweeper.BatchSize,
		Timeout:   cfg.Locks.StoreTimeout,
	}, sweeper.WithLogger(logger))

	return &TestApp{
		App:     application,
		DB:      db,
		Redis:   rdb,
		Sweeper: sw,
		Signer:  signer,
	}, nil
}

type BaseSuite struct {
	suite.Suite
	app            *TestApp
	dbContainer    *PostgresContainer
	cacheContainer *RedisContainer
	server         *httptest.Server
}

func (s *BaseSuite) SetupSuite() {
	if testing.Short() {
		s.T().Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := getDbContainer(ctx)
	s.Require().NoError(err)
	s.dbContainer = postgresContainer

	redisContainer, err := getCacheContainer(ctx)
	s.Require().NoError(err)
	s.cacheContainer = redisContainer

	cfg := config.Config{
		Port:  3000,
		Env:   "test",
		Store: config.StorePostgres,
		DB: config.DBConfig{
			DSN:          postgresContainer.ConnectionString,
			MaxOpenConns: 25,
			MaxIdleTime:  2 * time.Minute,
		},
		Redis: config.RedisConfig{
			URL:          redisContainer.ConnectionString,
			MaxOpenConns: 10,
			MaxIdleConns: 10,
			MaxIdleTime:  2 * time.Minute,
		},
		Session: config.SessionConfig{IdleTimeout: 20 * time.Minute},
		Locks: config.LocksConfig{
			TTL:          10 * time.Minute,
			MaxTTL:       30 * time.Minute,
			StoreTimeout: 2 * time.Second,
		},
		Sweeper: config.SweeperConfig{Interval: time.Second, BatchSize: 2},
		Checkout: config.CheckoutConfig{
			Timeout:    5 * time.Second,
			SigningKey: signingKey,
			MaxSeats:   8,
		},
	}
	s.Require().NoError(cfg.Validate())

	testApp, err := newTestApp(ctx, cfg)
	s.Require().NoError(err)

	s.app = testApp
	s.server = httptest.NewServer(testApp.App.Routes())

	s.seedCatalog(ctx)
}

// SetupTest clears everything a scenario can write. The catalog stays.
func (s *BaseSuite) SetupTest() {
	ctx := context.Background()

	_, err := s.app.DB.Exec(ctx, `TRUNCATE booked_seats, bookings, seat_hold_keys, seat_holds`)
	s.Require().NoError(err)

	s.Require().NoError(s.app.Redis.FlushAll(ctx).Err())
}

func (s *BaseSuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.app != nil {
		s.app.DB.Close()
		s.app.Redis.Close()
	}
	if s.dbContainer != nil {
		if err := testcontainers.TerminateContainer(s.dbContainer.Container.Container); err != nil {
			s.T().Logf("failed to terminate container: %s", err)
		}
	}
	if s.cacheContainer != nil {
		if err := testcontainers.TerminateContainer(s.cacheContainer.Container); err != nil {
			s.T().Logf("failed to terminate container: %s", err)
		}
	}
}

// seedCatalog creates hall 1 with two rows of four seats (row 2 is VIP), an active
// screening 1, an inactive screening 2 and the three ticket types.
func (s *BaseSuite) seedCatalog(ctx context.Context) {
	statements := []string{
		`INSERT INTO halls (id, name) VALUES (1, 'Hall 1')`,
		`INSERT INTO seats (id, hall_id, seat_row, seat_number, seat_class)
		 SELECT (r - 1) * 4 + n, 1, r, n, CASE WHEN r = 2 THEN 'VIP' ELSE 'STANDARD' END
		 FROM generate_series(1, 2) AS r, generate_series(1, 4) AS n`,
		`INSERT INTO screenings (id, hall_id, title, starts_at, base_price, active) VALUES
		 (1, 1, 'Evening Show', NOW() + INTERVAL '2 days', 12.50, TRUE),
		 (2, 1, 'Cancelled Show', NOW() + INTERVAL '3 days', 12.50, FALSE)`,
		`INSERT INTO ticket_types (id, code, name, price_modifier) VALUES
		 (1, 'ADULT', 'Adult', 1.00),
		 (2, 'CHILD', 'Child', 0.50),
		 (3, 'STUDENT', 'Student', 0.80)`,
	}

	for _, stmt := range statements {
		_, err := s.app.DB.Exec(ctx, stmt)
		s.Require().NoError(err)
	}
}

// newClient returns a browser-like client with its own cookie jar, so every client
// is a separate guest session.
func (s *BaseSuite) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)

	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

type Scenario struct {
	Name             string
	Client           *http.Client
	Method           string
	URL              string
	Body             string
	Headers          map[string]string
	ExpectedStatus   int
	ExpectedResponse string
	BeforeTestFunc   func(t testing.TB, app *TestApp)
	AfterTestFunc    func(t testing.TB, app *TestApp, res *http.Response)
}

func (s Scenario) Run(t *testing.T, testApp *TestApp, baseURL string) {
	t.Run(s.Name, func(t *testing.T) {
		if s.BeforeTestFunc != nil {
			s.BeforeTestFunc(t, testApp)
		}

		res := doRequest(t, s.Client, s.Method, baseURL+s.URL, s.Body, s.Headers)
		defer res.Body.Close()

		assert.Equal(t, s.ExpectedStatus, res.StatusCode)

		if s.ExpectedResponse != "" {
			compareResponse(t, res.Body, s.ExpectedResponse)
		}

		if s.AfterTestFunc != nil {
			s.AfterTestFunc(t, testApp, res)
		}
	})
}

func doRequest(t testing.TB, client *http.Client, method, url, body string, headers map[string]string) *http.Response {
	req, err := prepareRequest(method, url, body, headers)
	require.NoError(t, err)

	res, err := client.Do(req)
	require.NoError(t, err)

	return res
}
