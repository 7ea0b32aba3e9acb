package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/metinatakli/cinex-booking/internal/mocks"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const cartTTL = 20 * time.Minute

func TestRedisCartStore_Get(t *testing.T) {
	stored := domain.NewCart("sess", 1, start)
	stored.Items = append(stored.Items, domain.CartItem{SeatID: 5, TicketTypeID: 1, AddedAt: start})
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	tests := []struct {
		name      string
		cmd       *redis.StringCmd
		wantErr   error
		wantItems int
	}{
		{
			name:      "should decode a stored cart",
			cmd:       redis.NewStringResult(string(payload), nil),
			wantItems: 1,
		},
		{
			name:    "should map a missing key to not found",
			cmd:     redis.NewStringResult("", redis.Nil),
			wantErr: domain.ErrRecordNotFound,
		},
		{
			name:    "should map a deadline to a store timeout",
			cmd:     redis.NewStringResult("", context.DeadlineExceeded),
			wantErr: domain.ErrStoreTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mocks.MockRedisClient)
			client.On("Get", mock.Anything, "cart:sess:1").Return(tt.cmd)

			cart, err := NewRedisCartStore(client, cartTTL).Get(context.Background(), "sess", 1)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "sess", cart.SessionID)
			assert.Len(t, cart.Items, tt.wantItems)
			client.AssertExpectations(t)
		})
	}
}

func TestRedisCartStore_UpdateGivesUpAfterRepeatedConflicts(t *testing.T) {
	client := new(mocks.MockRedisClient)
	client.On("Watch", mock.Anything, []string{"cart:sess:2"}).Return(redis.TxFailedErr)

	called := false
	_, err := NewRedisCartStore(client, cartTTL).Update(context.Background(), "sess", 2, func(cart *domain.Cart) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, domain.ErrStoreTimeout)
	assert.False(t, called)
	client.AssertNumberOfCalls(t, "Watch", maxCartUpdateAttempts)
}

func TestRedisCartStore_UpdateReturnsWatchErrors(t *testing.T) {
	client := new(mocks.MockRedisClient)
	client.On("Watch", mock.Anything, []string{"cart:sess:2"}).Return(context.DeadlineExceeded)

	_, err := NewRedisCartStore(client, cartTTL).Update(context.Background(), "sess", 2, func(cart *domain.Cart) error {
		return nil
	})

	assert.ErrorIs(t, err, domain.ErrStoreTimeout)
	client.AssertNumberOfCalls(t, "Watch", 1)
}

func TestRedisCartStore_Delete(t *testing.T) {
	client := new(mocks.MockRedisClient)
	client.On("Del", mock.Anything, []string{"cart:sess:3"}).Return(redis.NewIntResult(1, nil))

	require.NoError(t, NewRedisCartStore(client, cartTTL).Delete(context.Background(), "sess", 3))
	client.AssertExpectations(t)
}
