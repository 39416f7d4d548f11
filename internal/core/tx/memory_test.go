package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type counter struct{ n int }

func (c *counter) Snapshot() any { return c.n }
func (c *counter) Restore(state any) { c.n = state.(int) }

func TestMemory_CommitAndRollback(t *testing.T) {
	c := &counter{}
	m := NewMemory(c)
	ctx := context.Background()

	assert.NoError(t, m.RunInTransaction(ctx, func(context.Context) error {
		c.n = 5
		return nil
	}))
	assert.Equal(t, 5, c.n)

	boom := errors.New("boom")
	err := m.RunInTransaction(ctx, func(ctx context.Context) error {
		c.n = 9
		return m.RunInTransaction(ctx, func(context.Context) error {
			c.n = 10
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 5, c.n)
}

func TestMemory_RollbackOnPanic(t *testing.T) {
	c := &counter{n: 1}
	m := NewMemory(c)

	assert.Panics(t, func() {
		_ = m.RunInTransaction(context.Background(), func(context.Context) error {
			c.n = 2
			panic("boom")
		})
	})
	assert.Equal(t, 1, c.n)
}

func TestPassthrough(t *testing.T) {
	called := false
	err := Passthrough{}.RunInTransaction(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
