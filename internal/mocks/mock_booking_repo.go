package mocks

import (
	"context"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepo struct {
	mock.Mock
	domain.BookingRepository
}

func (m *MockBookingRepo) Commit(ctx context.Context, booking *domain.Booking, now time.Time) error {
	args := m.Called(ctx, booking, now)
	return args.Error(0)
}

func (m *MockBookingRepo) SoldSeats(ctx context.Context, screeningID int) ([]domain.BookedSeat, error) {
	args := m.Called(ctx, screeningID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BookedSeat), args.Error(1)
}

func (m *MockBookingRepo) GetByNumber(ctx context.Context, number string) (*domain.Booking, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) Cancel(
	ctx context.Context,
	number string,
	owner domain.OwnerKey,
	now time.Time) (*domain.Booking, error) {

	args := m.Called(ctx, number, owner, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepo) ListByOwner(
	ctx context.Context,
	owner domain.OwnerKey,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	args := m.Called(ctx, owner, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.BookingSummary), args.Get(1).(*domain.Metadata), args.Error(2)
}
