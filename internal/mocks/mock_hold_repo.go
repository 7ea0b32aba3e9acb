package mocks

import (
	"context"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockHoldRepo struct {
	mock.Mock
	domain.HoldRepository
}

func (m *MockHoldRepo) Acquire(
	ctx context.Context,
	req domain.AcquireRequest) (*domain.SeatHold, domain.AcquireOutcome, error) {

	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*domain.SeatHold), args.Get(1).(domain.AcquireOutcome), args.Error(2)
}

func (m *MockHoldRepo) Release(
	ctx context.Context,
	screeningID,
	seatID int,
	owner domain.OwnerKey,
	now time.Time) (*domain.SeatHold, error) {

	args := m.Called(ctx, screeningID, seatID, owner, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SeatHold), args.Error(1)
}

func (m *MockHoldRepo) ReleaseAll(
	ctx context.Context,
	screeningID int,
	owner domain.OwnerKey,
	now time.Time) ([]domain.SeatHold, error) {

	args := m.Called(ctx, screeningID, owner, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatHold), args.Error(1)
}

func (m *MockHoldRepo) ActiveHolds(ctx context.Context, screeningID int, now time.Time) ([]domain.SeatHold, error) {
	args := m.Called(ctx, screeningID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatHold), args.Error(1)
}

func (m *MockHoldRepo) ExpireElapsed(ctx context.Context, now time.Time, limit int) ([]domain.SeatHold, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SeatHold), args.Error(1)
}
