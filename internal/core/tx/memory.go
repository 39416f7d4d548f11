package tx

import (
	"context"
	"sync"
)

// Snapshotter is an in-memory store that can roll back to an earlier state.
type Snapshotter interface {
	Snapshot() any
	Restore(state any)
}

type memoryTxKey struct{}

// Memory is a Manager for in-memory stores. Transactions are serialised; on
// error every registered store is restored to its state at BEGIN.
type Memory struct {
	mu     sync.Mutex
	stores []Snapshotter
}

// NewMemory creates a Memory manager over stores.
func NewMemory(stores ...Snapshotter) *Memory {
	return &Memory{stores: stores}
}

// RunInTransaction implements Manager.
func (m *Memory) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(memoryTxKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	states := make([]any, len(m.stores))
	for i, s := range m.stores {
		states[i] = s.Snapshot()
	}
	rollback := func() {
		for i, s := range m.stores {
			s.Restore(states[i])
		}
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, memoryTxKey{}, true)); err != nil {
		rollback()
	}
	return err
}
