package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/cart"
	"github.com/metinatakli/cinex-booking/internal/checkout"
	"github.com/metinatakli/cinex-booking/internal/config"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/payment"
	"github.com/metinatakli/cinex-booking/internal/repository"
	"github.com/metinatakli/cinex-booking/internal/seatlock"
	"github.com/metinatakli/cinex-booking/internal/seatmap"
)

const (
	testSigningKey  = "test-signing-key-0123456789abcdef"
	testScreeningID = 1
	adultTicket     = 1
	childTicket     = 2
)

var testStart = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// testDeps are the collaborators behind a test application. Options may swap any
// repository for a mock before the services are built.
type testDeps struct {
	clock    *testClock
	store    *repository.MemoryStore
	catalog  *repository.MemoryCatalog
	holds    domain.HoldRepository
	bookings domain.BookingRepository
	carts    domain.CartStore
}

func newTestApplication(opts ...func(*testDeps)) (*Application, *testDeps) {
	clock := &testClock{now: testStart}
	catalog := repository.NewDemoCatalog(testStart, 3, 4)
	store := repository.NewMemoryStore(repository.WithScreenings(catalog))

	deps := &testDeps{
		clock:    clock,
		store:    store,
		catalog:  catalog,
		holds:    store,
		bookings: store,
		carts:    store,
	}

	for _, opt := range opts {
		opt(deps)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	signer, err := payment.NewConfirmationSigner(testSigningKey)
	if err != nil {
		panic(err)
	}

	locks := seatlock.New(deps.holds, deps.catalog, seatlock.Config{
		DefaultTTL: seatlock.DefaultTTL,
		MaxTTL:     seatlock.MaxTTL,
		Timeout:    seatlock.DefaultTimeout,
	}, seatlock.WithClock(clock.Now), seatlock.WithLogger(logger))

	carts := cart.NewManager(deps.carts, locks, deps.catalog, cart.WithClock(clock.Now), cart.WithLogger(logger))

	coordinator := checkout.NewCoordinator(carts, locks, deps.bookings, deps.catalog, signer,
		checkout.WithClock(clock.Now),
		checkout.WithLogger(logger))

	cfg := config.Config{Env: "test"}

	app := New(cfg, logger, NewSessionManager(nil, config.SessionConfig{IdleTimeout: 20 * time.Minute}), Services{
		Locks:    locks,
		Carts:    carts,
		Checkout: coordinator,
		SeatMaps: seatmap.NewProjector(deps.catalog, locks, deps.bookings),
		Bookings: deps.bookings,
		Catalog:  deps.catalog,
	})
	app.now = clock.Now

	return app, deps
}

// testClient plays one browser: it keeps the session cookie between requests.
type testClient struct {
	t       *testing.T
	handler http.Handler
	cookies []*http.Cookie
}

func newTestClient(t *testing.T, handler http.Handler) *testClient {
	return &testClient{t: t, handler: handler}
}

func (c *testClient) do(method, url string, body any) *httptest.ResponseRecorder {
	w, r := executeRequest(c.t, method, url, body)
	for _, cookie := range c.cookies {
		r.AddCookie(cookie)
	}

	c.handler.ServeHTTP(w, r)

	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}

	return w
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	var reader io.Reader = http.NoBody

	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func decodeResponse[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var resp T
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	return resp
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		if len(validationResp.ValidationErrors) == 0 {
			if tt.wantErrMessage != "" && validationResp.Message != tt.wantErrMessage {
				t.Errorf("Error message = %v, want %v", validationResp.Message, tt.wantErrMessage)
			}
			return
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", tt.wantErrMessage)
		}

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
