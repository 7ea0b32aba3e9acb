package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/metinatakli/cinex-booking/internal/cart"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/mocks"
	"github.com/metinatakli/cinex-booking/internal/payment"
	"github.com/metinatakli/cinex-booking/internal/repository"
	"github.com/metinatakli/cinex-booking/internal/seatlock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	screeningID = 10
	standard    = 1
	child       = 2
)

var (
	sessionA = domain.OwnerKey{SessionID: "session-a"}
	sessionB = domain.OwnerKey{SessionID: "session-b"}
)

// commitHook runs a callback right before delegating the commit, which lets a test
// move the clock between validation and commit.
type commitHook struct {
	domain.BookingRepository
	before func()
}

func (h *commitHook) Commit(ctx context.Context, booking *domain.Booking, now time.Time) error {
	if h.before != nil {
		h.before()
	}

	return h.BookingRepository.Commit(ctx, booking, now)
}

type recordingNotifier struct {
	mu       sync.Mutex
	bookings []domain.Booking
	err      error
}

func (n *recordingNotifier) BookingCommitted(ctx context.Context, booking domain.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.bookings = append(n.bookings, booking)

	return n.err
}

type CheckoutTestSuite struct {
	suite.Suite
	now         time.Time
	memory      *repository.MemoryStore
	catalog     *repository.MemoryCatalog
	locks       *seatlock.Store
	carts       *cart.Manager
	hook        *commitHook
	notifier    *recordingNotifier
	signer      *payment.ConfirmationSigner
	coordinator *Coordinator
}

func (s *CheckoutTestSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	s.memory = repository.NewMemoryStore()
	s.catalog = repository.NewMemoryCatalog()

	seats := make([]domain.Seat, 0, 10)
	for i := 1; i <= 10; i++ {
		seats = append(seats, domain.Seat{ID: i, HallID: 3, Row: 1, Number: i, Class: "STANDARD"})
	}
	s.catalog.AddHall(3, seats)
	s.catalog.AddScreening(domain.Screening{
		ID:        screeningID,
		HallID:    3,
		Title:     "Matinee",
		StartsAt:  s.now.Add(48 * time.Hour),
		BasePrice: decimal.NewFromInt(20),
		Active:    true,
	})
	s.catalog.SetTicketTypes([]domain.TicketType{
		{ID: standard, Code: "STANDARD", Name: "Standard", Modifier: decimal.RequireFromString("1.0")},
		{ID: child, Code: "CHILD", Name: "Child", Modifier: decimal.RequireFromString("0.5")},
	})

	clock := func() time.Time { return s.now }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.locks = seatlock.New(s.memory, s.catalog, seatlock.Config{},
		seatlock.WithClock(clock), seatlock.WithLogger(logger))
	s.carts = cart.NewManager(s.memory, s.locks, s.catalog,
		cart.WithClock(clock), cart.WithLogger(logger))

	var err error
	s.signer, err = payment.NewConfirmationSigner("0123456789abcdef0123456789abcdef")
	s.Require().NoError(err)

	s.hook = &commitHook{BookingRepository: s.memory}
	s.notifier = &recordingNotifier{}

	s.coordinator = NewCoordinator(s.carts, s.locks, s.hook, s.catalog, s.signer,
		WithClock(clock), WithLogger(logger), WithNotifier(s.notifier))
}

func TestCheckoutSuite(t *testing.T) {
	suite.Run(t, new(CheckoutTestSuite))
}

func (s *CheckoutTestSuite) TestCheckout_CommitsBooking() {
	held := map[int]*domain.SeatHold{
		5: s.holdAndAdd(5, standard),
		6: s.holdAndAdd(6, child),
	}

	result, err := s.coordinator.Checkout(context.Background(), s.request(domain.PaymentMethodCard))
	s.Require().NoError(err)
	s.coordinator.Wait()

	s.Equal(StateCommitted, result.State)
	s.True(decimal.NewFromInt(30).Equal(result.Booking.TotalPrice))
	s.Equal(domain.BookingStatusConfirmed, result.Booking.Status)
	s.Len(result.Booking.Seats, 2)
	s.NotEmpty(result.Booking.Number)

	claims, err := s.signer.Verify(result.Confirmation)
	s.Require().NoError(err)
	s.Equal(result.Booking.Number, claims.BookingNumber)
	s.Equal("30.00", claims.Amount)

	for _, hold := range held {
		stored, ok := s.memory.Hold(hold.ID)
		s.Require().True(ok)
		s.Equal(domain.HoldStatusReleased, stored.Status)
	}

	sold, err := s.memory.SoldSeats(context.Background(), screeningID)
	s.Require().NoError(err)
	s.Len(sold, 2)

	remaining, err := s.carts.Get(context.Background(), screeningID, sessionA)
	s.Require().NoError(err)
	s.Empty(remaining.Items)

	s.Require().Len(s.notifier.bookings, 1)
	s.Equal(result.Booking.Number, s.notifier.bookings[0].Number)

	_, _, err = s.locks.Acquire(context.Background(), screeningID, 5, sessionB, 0)
	s.ErrorIs(err, domain.ErrSeatNotAvailable)
}

func (s *CheckoutTestSuite) TestCheckout_DeferredPaymentIsPending() {
	for _, method := range []domain.PaymentMethod{domain.PaymentMethodCash, domain.PaymentMethodBankTransfer} {
		s.Run(string(method), func() {
			s.SetupTest()
			s.holdAndAdd(5, standard)

			result, err := s.coordinator.Checkout(context.Background(), s.request(method))
			s.Require().NoError(err)
			s.Equal(domain.BookingStatusPending, result.Booking.Status)
		})
	}
}

func (s *CheckoutTestSuite) TestCheckout_AbortsWhenHoldLapsesBeforeCommit() {
	fiveHold := s.holdAndAdd(5, standard)
	s.holdAndAdd(6, child)

	// seat 5's hold elapses one second before the commit runs
	s.hook.before = func() {
		s.now = fiveHold.ExpiresAt.Add(time.Second)
	}

	result, err := s.coordinator.Checkout(context.Background(), s.request(domain.PaymentMethodCard))
	s.Require().ErrorIs(err, domain.ErrCheckoutAborted)
	s.Equal(StateAborted, result.State)
	s.Nil(result.Booking)

	sold, err := s.memory.SoldSeats(context.Background(), screeningID)
	s.Require().NoError(err)
	s.Empty(sold)

	stored, ok := s.memory.Hold(fiveHold.ID)
	s.Require().True(ok)
	s.Equal(domain.HoldStatusActive, stored.Status, "abort must not flip hold statuses")

	holds, err := s.locks.CurrentHolds(context.Background(), screeningID)
	s.Require().NoError(err)
	for _, hold := range holds {
		s.NotEqual(5, hold.SeatID, "seat 5 should read as free")
	}

	_, outcome, err := s.locks.Acquire(context.Background(), screeningID, 5, sessionB, 0)
	s.Require().NoError(err)
	s.Equal(domain.AcquireGranted, outcome)

	s.coordinator.Wait()
	s.Empty(s.notifier.bookings)
}

func (s *CheckoutTestSuite) TestCheckout_AbortLeavesHoldsAndCartUntouched() {
	s.holdAndAdd(5, standard)
	s.holdAndAdd(6, child)

	s.hook.before = func() {
		_, err := s.locks.Release(context.Background(), screeningID, 6, sessionA)
		s.Require().NoError(err)
	}

	_, err := s.coordinator.Checkout(context.Background(), s.request(domain.PaymentMethodCard))
	s.Require().ErrorIs(err, domain.ErrCheckoutAborted)

	holds, err := s.locks.HoldsOf(context.Background(), screeningID, sessionA)
	s.Require().NoError(err)
	s.Contains(holds, 5)

	stored, err := s.memory.Get(context.Background(), sessionA.SessionID, screeningID)
	s.Require().NoError(err)
	s.Len(stored.Items, 2)
}

func (s *CheckoutTestSuite) TestCheckout_Validation() {
	tests := []struct {
		name    string
		setup   func()
		req     func() Request
		wantErr error
	}{
		{
			name: "should reject an empty cart",
			req: func() Request {
				return s.request(domain.PaymentMethodCard)
			},
			wantErr: domain.ErrCartEmpty,
		},
		{
			name: "should reject an unknown payment method",
			setup: func() {
				s.holdAndAdd(5, standard)
			},
			req: func() Request {
				return s.request("CRYPTO")
			},
			wantErr: domain.ErrValidationFailed,
		},
		{
			name: "should abort when a hold expired before validation",
			setup: func() {
				s.holdAndAdd(5, standard)
				s.now = s.now.Add(seatlock.DefaultTTL)
			},
			req: func() Request {
				return s.request(domain.PaymentMethodCard)
			},
			wantErr: domain.ErrCheckoutAborted,
		},
		{
			name: "should reject when the ticket type was withdrawn",
			setup: func() {
				s.holdAndAdd(5, child)
				s.catalog.SetTicketTypes([]domain.TicketType{
					{ID: standard, Code: "STANDARD", Name: "Standard", Modifier: decimal.RequireFromString("1.0")},
				})
			},
			req: func() Request {
				return s.request(domain.PaymentMethodCard)
			},
			wantErr: domain.ErrInvalidTicketType,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			if tt.setup != nil {
				tt.setup()
			}

			result, err := s.coordinator.Checkout(context.Background(), tt.req())
			s.Require().ErrorIs(err, tt.wantErr)
			s.Equal(StateAborted, result.State)
		})
	}
}

func (s *CheckoutTestSuite) TestCheckout_NotifierFailureKeepsBooking() {
	s.notifier.err = errors.New("smtp unavailable")
	s.holdAndAdd(5, standard)

	result, err := s.coordinator.Checkout(context.Background(), s.request(domain.PaymentMethodCard))
	s.Require().NoError(err)
	s.coordinator.Wait()

	booking, err := s.memory.GetByNumber(context.Background(), result.Booking.Number)
	s.Require().NoError(err)
	s.Equal(domain.BookingStatusConfirmed, booking.Status)
}

func (s *CheckoutTestSuite) TestCheckout_StoreTimeoutIsRetryable() {
	bookings := new(mocks.MockBookingRepo)
	bookings.On("Commit", mock.Anything, mock.Anything, mock.Anything).Return(context.DeadlineExceeded)
	defer bookings.AssertExpectations(s.T())

	coordinator := NewCoordinator(s.carts, s.locks, bookings, s.catalog, s.signer,
		WithClock(func() time.Time { return s.now }))

	s.holdAndAdd(5, standard)

	result, err := coordinator.Checkout(context.Background(), s.request(domain.PaymentMethodCard))
	s.Require().ErrorIs(err, domain.ErrStoreTimeout)
	s.Equal(StateAborted, result.State)
}

func (s *CheckoutTestSuite) request(method domain.PaymentMethod) Request {
	return Request{
		ScreeningID:      screeningID,
		Owner:            sessionA,
		PaymentMethod:    method,
		PaymentReference: "ref-1",
		Contact: domain.Contact{
			Name:  "Jane Doe",
			Email: "jane@example.com",
		},
	}
}

func (s *CheckoutTestSuite) holdAndAdd(seatID, ticketTypeID int) *domain.SeatHold {
	hold, _, err := s.locks.Acquire(context.Background(), screeningID, seatID, sessionA, 0)
	s.Require().NoError(err)

	_, err = s.carts.AddSeat(context.Background(), screeningID, sessionA, seatID, ticketTypeID)
	s.Require().NoError(err)

	return hold
}
