package mocks

import (
	"context"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockCartStore struct {
	mock.Mock
	domain.CartStore
}

func (m *MockCartStore) Get(ctx context.Context, sessionID string, screeningID int) (*domain.Cart, error) {
	args := m.Called(ctx, sessionID, screeningID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartStore) Update(
	ctx context.Context,
	sessionID string,
	screeningID int,
	fn func(cart *domain.Cart) error) (*domain.Cart, error) {

	args := m.Called(ctx, sessionID, screeningID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *MockCartStore) Delete(ctx context.Context, sessionID string, screeningID int) error {
	args := m.Called(ctx, sessionID, screeningID)
	return args.Error(0)
}
