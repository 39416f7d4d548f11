// Package lock provides the Redis implementation of the per-PO lock.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	corelock "procura/internal/core/lock"
)

const (
	defaultTTL  = 30 * time.Second
	defaultWait = 5 * time.Second
	retryEvery  = 50 * time.Millisecond
)

// RedisLocker obtains locks through redislock. A lock that outlives TTL expires
// on its own, so TTL must exceed the longest transaction it guards.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

// Option configures RedisLocker.
type Option func(*RedisLocker)

// WithTTL sets the lock lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithWait sets how long Obtain retries before giving up.
func WithWait(wait time.Duration) Option {
	return func(l *RedisLocker) {
		if wait > 0 {
			l.wait = wait
		}
	}
}

// NewRedisLocker creates a locker on rdb.
func NewRedisLocker(rdb redis.UniversalClient, opts ...Option) *RedisLocker {
	l := &RedisLocker{client: redislock.New(rdb), ttl: defaultTTL, wait: defaultWait}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Obtain implements corelock.Locker.
func (l *RedisLocker) Obtain(ctx context.Context, key string) (corelock.Lock, error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	held, err := l.client.Obtain(waitCtx, key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(retryEvery),
	})
	switch {
	case err == nil:
		return held, nil
	case errors.Is(err, redislock.ErrNotObtained),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return nil, fmt.Errorf("%w: %s", corelock.ErrNotObtained, key)
	default:
		return nil, fmt.Errorf("obtain %s: %w", key, err)
	}
}

var _ corelock.Locker = (*RedisLocker)(nil)
