// Package lock provides per-key mutual exclusion for purchase order operations.
// Every mutation of a PO (status transition, receipt, payment) runs while holding
// the lock for that PO id. The Redis implementation lives in infrastructure/lock.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotObtained is returned when the lock could not be taken before ctx expired.
var ErrNotObtained = errors.New("lock not obtained")

// Lock is a held lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker obtains locks by key.
type Locker interface {
	Obtain(ctx context.Context, key string) (Lock, error)
}

// PurchaseOrderKey is the lock key for one purchase order.
func PurchaseOrderKey(poID fmt.Stringer) string {
	return "lock:purchase_order:" + poID.String()
}

// KeyedMutex is an in-process Locker. Waiters block until release or ctx cancellation.
type KeyedMutex struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{held: make(map[string]chan struct{})}
}

// Obtain implements Locker.
func (m *KeyedMutex) Obtain(ctx context.Context, key string) (Lock, error) {
	for {
		m.mu.Lock()
		waitCh, busy := m.held[key]
		if !busy {
			ch := make(chan struct{})
			m.held[key] = ch
			m.mu.Unlock()
			return &keyedLock{owner: m, key: key, ch: ch}, nil
		}
		m.mu.Unlock()

		select {
		case <-waitCh:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrNotObtained, key, ctx.Err())
		}
	}
}

type keyedLock struct {
	owner *KeyedMutex
	key   string
	ch    chan struct{}
	once  sync.Once
}

func (l *keyedLock) Release(context.Context) error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		if l.owner.held[l.key] == l.ch {
			delete(l.owner.held, l.key)
		}
		l.owner.mu.Unlock()
		close(l.ch)
	})
	return nil
}

// WithLock runs fn while holding key.
func WithLock(ctx context.Context, locker Locker, key string, fn func(ctx context.Context) error) error {
	l, err := locker.Obtain(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = l.Release(context.WithoutCancel(ctx)) }()
	return fn(ctx)
}
