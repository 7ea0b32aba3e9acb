package seatmap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/mocks"
	"github.com/metinatakli/cinex-booking/internal/repository"
	"github.com/metinatakli/cinex-booking/internal/seatlock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const screeningID = 10

var (
	sessionA = domain.OwnerKey{SessionID: "session-a"}
	sessionB = domain.OwnerKey{SessionID: "session-b"}
)

type SeatMapTestSuite struct {
	suite.Suite
	now       time.Time
	memory    *repository.MemoryStore
	catalog   *repository.MemoryCatalog
	locks     *seatlock.Store
	projector *Projector
}

func (s *SeatMapTestSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	s.memory = repository.NewMemoryStore()
	s.catalog = repository.NewMemoryCatalog()

	s.catalog.AddHall(3, []domain.Seat{
		{ID: 4, HallID: 3, Row: 1, Number: 4},
		{ID: 5, HallID: 3, Row: 1, Number: 5},
		{ID: 6, HallID: 3, Row: 1, Number: 6},
		{ID: 7, HallID: 3, Row: 2, Number: 1},
	})
	s.catalog.AddScreening(domain.Screening{
		ID:        screeningID,
		HallID:    3,
		Title:     "Matinee",
		StartsAt:  s.now.Add(48 * time.Hour),
		BasePrice: decimal.NewFromInt(20),
		Active:    true,
	})

	s.locks = seatlock.New(s.memory, s.catalog, seatlock.Config{},
		seatlock.WithClock(func() time.Time { return s.now }),
		seatlock.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.projector = NewProjector(s.catalog, s.locks, s.memory)
}

func TestSeatMapSuite(t *testing.T) {
	suite.Run(t, new(SeatMapTestSuite))
}

func (s *SeatMapTestSuite) TestProject() {
	s.hold(4, sessionA)
	s.hold(5, sessionB)
	s.sell(6, sessionB)

	seatMap, err := s.projector.Project(context.Background(), screeningID, sessionA)
	s.Require().NoError(err)

	expiresAt := s.now.Add(seatlock.DefaultTTL)

	want := []domain.SeatState{
		{Seat: domain.Seat{ID: 4, HallID: 3, Row: 1, Number: 4}, Status: domain.SeatStatusBooked, SelectedByYou: true, HoldExpiresAt: &expiresAt},
		{Seat: domain.Seat{ID: 5, HallID: 3, Row: 1, Number: 5}, Status: domain.SeatStatusBooked},
		{Seat: domain.Seat{ID: 6, HallID: 3, Row: 1, Number: 6}, Status: domain.SeatStatusSold},
		{Seat: domain.Seat{ID: 7, HallID: 3, Row: 2, Number: 1}, Status: domain.SeatStatusFree},
	}

	if diff := cmp.Diff(want, seatMap.Seats); diff != "" {
		s.T().Errorf("seat map mismatch (-want +got):\n%s", diff)
	}

	s.Equal("Matinee", seatMap.Title)
}

func (s *SeatMapTestSuite) TestProject_ElapsedHoldShowsFree() {
	s.hold(5, sessionA)
	s.now = s.now.Add(11 * time.Minute)

	seatMap, err := s.projector.Project(context.Background(), screeningID, sessionA)
	s.Require().NoError(err)

	s.Equal(domain.SeatStatusFree, s.statusOf(seatMap, 5))
	s.False(seatMap.Seats[1].SelectedByYou)
}

func (s *SeatMapTestSuite) TestProject_ReleaseAllFreesSeats() {
	s.hold(4, sessionA)
	s.hold(5, sessionA)
	s.hold(6, sessionB)

	_, err := s.locks.ReleaseAll(context.Background(), screeningID, sessionA)
	s.Require().NoError(err)

	seatMap, err := s.projector.Project(context.Background(), screeningID, sessionA)
	s.Require().NoError(err)

	s.Equal(domain.SeatStatusFree, s.statusOf(seatMap, 4))
	s.Equal(domain.SeatStatusFree, s.statusOf(seatMap, 5))
	s.Equal(domain.SeatStatusBooked, s.statusOf(seatMap, 6))
}

func (s *SeatMapTestSuite) TestProject_CancelledBookingFreesSeat() {
	number := s.sell(6, sessionB)

	_, err := s.memory.Cancel(context.Background(), number, sessionB, s.now)
	s.Require().NoError(err)

	seatMap, err := s.projector.Project(context.Background(), screeningID, sessionA)
	s.Require().NoError(err)

	s.Equal(domain.SeatStatusFree, s.statusOf(seatMap, 6))
}

func (s *SeatMapTestSuite) TestProject_Errors() {
	tests := []struct {
		name       string
		setupMocks func(catalog *mocks.MockCatalogRepo, holds *mocks.MockHoldRepo, bookings *mocks.MockBookingRepo)
		wantErr    error
	}{
		{
			name: "should fail for an unknown screening",
			setupMocks: func(catalog *mocks.MockCatalogRepo, holds *mocks.MockHoldRepo, bookings *mocks.MockBookingRepo) {
				catalog.On("GetScreening", mock.Anything, screeningID).Return(nil, domain.ErrRecordNotFound)
			},
			wantErr: domain.ErrRecordNotFound,
		},
		{
			name: "should fail when sold seats cannot be read",
			setupMocks: func(catalog *mocks.MockCatalogRepo, holds *mocks.MockHoldRepo, bookings *mocks.MockBookingRepo) {
				catalog.On("GetScreening", mock.Anything, screeningID).Return(&domain.Screening{ID: screeningID, HallID: 3}, nil)
				catalog.On("GetHallLayout", mock.Anything, 3).Return([]domain.Seat{{ID: 1}}, nil)
				holds.On("ActiveHolds", mock.Anything, screeningID, mock.Anything).Return([]domain.SeatHold{}, nil)
				bookings.On("SoldSeats", mock.Anything, screeningID).Return(nil, errDatabase)
			},
			wantErr: errDatabase,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			catalog := new(mocks.MockCatalogRepo)
			holds := new(mocks.MockHoldRepo)
			bookings := new(mocks.MockBookingRepo)
			tt.setupMocks(catalog, holds, bookings)

			locks := seatlock.New(holds, catalog, seatlock.Config{})
			projector := NewProjector(catalog, locks, bookings)

			_, err := projector.Project(context.Background(), screeningID, sessionA)
			s.ErrorIs(err, tt.wantErr)

			catalog.AssertExpectations(s.T())
			holds.AssertExpectations(s.T())
			bookings.AssertExpectations(s.T())
		})
	}
}

var errDatabase = errors.New("database error")

func (s *SeatMapTestSuite) hold(seatID int, owner domain.OwnerKey) {
	_, _, err := s.locks.Acquire(context.Background(), screeningID, seatID, owner, 0)
	s.Require().NoError(err)
}

func (s *SeatMapTestSuite) sell(seatID int, owner domain.OwnerKey) string {
	s.hold(seatID, owner)

	number := "booking-" + owner.SessionID
	err := s.memory.Commit(context.Background(), &domain.Booking{
		Number:        number,
		Owner:         owner,
		ScreeningID:   screeningID,
		TotalPrice:    decimal.NewFromInt(20),
		Status:        domain.BookingStatusPending,
		PaymentMethod: domain.PaymentMethodCash,
		Seats: []domain.BookedSeat{
			{SeatID: seatID, TicketTypeID: 1, Price: decimal.NewFromInt(20), Status: domain.BookedSeatReserved},
		},
	}, s.now)
	s.Require().NoError(err)

	return number
}

func (s *SeatMapTestSuite) statusOf(seatMap *domain.SeatMap, seatID int) domain.SeatStatus {
	for _, seat := range seatMap.Seats {
		if seat.ID == seatID {
			return seat.Status
		}
	}

	s.Failf("seat missing from map", "seat %d", seatID)
	return ""
}
