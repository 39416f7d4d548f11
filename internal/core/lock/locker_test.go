package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLock(context.Background(), m, "po-1", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Empty(t, m.held)
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	a, err := m.Obtain(ctx, "a")
	require.NoError(t, err)
	b, err := m.Obtain(ctx, "b")
	require.NoError(t, err)

	require.NoError(t, a.Release(ctx))
	require.NoError(t, b.Release(ctx))
}

func TestKeyedMutex_TimeoutWhileHeld(t *testing.T) {
	m := NewKeyedMutex()
	held, err := m.Obtain(context.Background(), "po-1")
	require.NoError(t, err)
	defer held.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = m.Obtain(ctx, "po-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotObtained))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestKeyedLock_DoubleReleaseIsSafe(t *testing.T) {
	m := NewKeyedMutex()
	l, err := m.Obtain(context.Background(), "k")
	require.NoError(t, err)

	require.NoError(t, l.Release(context.Background()))
	require.NoError(t, l.Release(context.Background()))
}
