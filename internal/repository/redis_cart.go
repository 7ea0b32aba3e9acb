package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/metinatakli/cinex-booking/internal/domain"
	"github.com/redis/go-redis/v9"
)

const maxCartUpdateAttempts = 10

// cartReader is satisfied by both the client and a WATCH transaction.
type cartReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisCartStore keeps one cart per (session, screening) under a sliding TTL that
// matches the session idle timeout, so a cart never outlives its session.
type RedisCartStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCartStore(client redis.UniversalClient, ttl time.Duration) *RedisCartStore {
	return &RedisCartStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisCartStore) Get(ctx context.Context, sessionID string, screeningID int) (*domain.Cart, error) {
	return s.get(ctx, s.client, sessionID, screeningID)
}

// Update runs fn inside an optimistic WATCH transaction on the cart key. When another
// writer changes the key before EXEC, the transaction is retried on fresh data.
func (s *RedisCartStore) Update(
	ctx context.Context,
	sessionID string,
	screeningID int,
	fn func(cart *domain.Cart) error) (*domain.Cart, error) {

	key := cartKey(sessionID, screeningID)

	var updated *domain.Cart

	txf := func(tx *redis.Tx) error {
		cart, err := s.get(ctx, tx, sessionID, screeningID)
		if errors.Is(err, domain.ErrRecordNotFound) {
			cart, err = domain.NewCart(sessionID, screeningID, time.Time{}), nil
		}
		if err != nil {
			return err
		}

		err = fn(cart)
		if err != nil {
			return err
		}

		cartBytes, err := json.Marshal(cart)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, cartBytes, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		updated = cart

		return nil
	}

	for range maxCartUpdateAttempts {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, translateError(err)
		}

		return updated, nil
	}

	return nil, fmt.Errorf("%w: cart %s kept changing during update", domain.ErrStoreTimeout, key)
}

func (s *RedisCartStore) get(ctx context.Context, c cartReader, sessionID string, screeningID int) (*domain.Cart, error) {
	cartBytes, err := c.Get(ctx, cartKey(sessionID, screeningID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, translateError(err)
	}

	var cart domain.Cart
	err = json.Unmarshal(cartBytes, &cart)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart for session %s: %w", sessionID, err)
	}

	return &cart, nil
}

func (s *RedisCartStore) Delete(ctx context.Context, sessionID string, screeningID int) error {
	return translateError(s.client.Del(ctx, cartKey(sessionID, screeningID)).Err())
}

func cartKey(sessionID string, screeningID int) string {
	return fmt.Sprintf("cart:%s:%d", sessionID, screeningID)
}
