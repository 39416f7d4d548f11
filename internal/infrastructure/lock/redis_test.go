package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corelock "procura/internal/core/lock"
)

func newLocker(t *testing.T, opts ...Option) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb, opts...), mr
}

func TestRedisLocker_ObtainAndRelease(t *testing.T) {
	locker, mr := newLocker(t, WithWait(150*time.Millisecond))
	ctx := context.Background()

	held, err := locker.Obtain(ctx, "lock:purchase_order:1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:purchase_order:1"))

	_, err = locker.Obtain(ctx, "lock:purchase_order:1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, corelock.ErrNotObtained))

	other, err := locker.Obtain(ctx, "lock:purchase_order:2")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, held.Release(ctx))
	assert.False(t, mr.Exists("lock:purchase_order:1"))

	again, err := locker.Obtain(ctx, "lock:purchase_order:1")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestRedisLocker_ExpiresAfterTTL(t *testing.T) {
	locker, mr := newLocker(t, WithTTL(time.Second), WithWait(100*time.Millisecond))
	ctx := context.Background()

	_, err := locker.Obtain(ctx, "k")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	held, err := locker.Obtain(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, held.Release(ctx))
}

func TestRedisLocker_SerializesWithLock(t *testing.T) {
	locker, _ := newLocker(t, WithWait(5*time.Second))
	var inside, overlaps int32
	var wg sync.WaitGroup

	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := corelock.WithLock(context.Background(), locker, "po", func(context.Context) error {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.AddInt32(&overlaps, 1)
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps))
}

func TestRedisLocker_ServerDown(t *testing.T) {
	locker, mr := newLocker(t, WithWait(100*time.Millisecond))
	mr.Close()

	_, err := locker.Obtain(context.Background(), "k")
	require.Error(t, err)
}
