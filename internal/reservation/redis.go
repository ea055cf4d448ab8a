package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger backs the soft locks with Redis so multiple hosts share one
// reservation view. TTL expiry is Redis's own; no sweep needed.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLedger connects and pings; ttl <= 0 selects DefaultHold.
func NewRedisLedger(addr, password string, db int, ttl time.Duration) (*RedisLedger, error) {
	if ttl <= 0 {
		ttl = DefaultHold
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ledger: %w", err)
	}
	return &RedisLedger{client: client, ttl: ttl}, nil
}

// NewRedisLedgerWithClient wraps an existing client, for tests.
func NewRedisLedgerWithClient(client *redis.Client, ttl time.Duration) *RedisLedger {
	if ttl <= 0 {
		ttl = DefaultHold
	}
	return &RedisLedger{client: client, ttl: ttl}
}

// Reserve takes the lock via SETNX; the same holder renews instead.
func (l *RedisLedger) Reserve(ctx context.Context, practitionerID string, at time.Time, _ int, userID string) (bool, error) {
	key := SlotKey(practitionerID, at)

	ok, err := l.client.SetNX(ctx, key, userID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", key, err)
	}
	if ok {
		return true, nil
	}

	holder, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Hold expired between SETNX and GET; try again once.
		ok, err = l.client.SetNX(ctx, key, userID, l.ttl).Result()
		if err != nil {
			return false, fmt.Errorf("reserve %s: %w", key, err)
		}
		return ok, nil
	}
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", key, err)
	}

	if holder != userID {
		return false, nil
	}
	// Renewal: refresh the TTL.
	if err := l.client.Set(ctx, key, userID, l.ttl).Err(); err != nil {
		return false, fmt.Errorf("renew %s: %w", key, err)
	}
	return true, nil
}

// Release deletes the key only when the caller is the holder.
func (l *RedisLedger) Release(ctx context.Context, practitionerID string, at time.Time, userID string) error {
	key := SlotKey(practitionerID, at)

	holder, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	if holder != userID {
		return nil
	}
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying client.
func (l *RedisLedger) Close() error {
	return l.client.Close()
}
