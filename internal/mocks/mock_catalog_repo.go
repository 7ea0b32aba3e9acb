package mocks

import (
	"context"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockCatalogRepo struct {
	mock.Mock
	domain.CatalogRepository
}

func (m *MockCatalogRepo) GetScreening(ctx context.Context, screeningID int) (*domain.Screening, error) {
	args := m.Called(ctx, screeningID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Screening), args.Error(1)
}

func (m *MockCatalogRepo) GetHallLayout(ctx context.Context, hallID int) ([]domain.Seat, error) {
	args := m.Called(ctx, hallID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}

func (m *MockCatalogRepo) GetActiveTicketTypes(ctx context.Context) ([]domain.TicketType, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TicketType), args.Error(1)
}
