package numerator

import (
	"context"
	"sync"
	"time"
)

// MockGenerator is an in-memory Generator for unit tests.
type MockGenerator struct {
	mu   sync.Mutex
	next map[string]int64

	// Err, when set, is returned by every call.
	Err error
}

// GetNextNumber implements Generator.
func (m *MockGenerator) GetNextNumber(_ context.Context, cfg Config, period time.Time) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next == nil {
		m.next = make(map[string]int64)
	}
	key := Format(cfg, period, 0)
	m.next[key]++
	return Format(cfg, period, m.next[key]), nil
}

var _ Generator = (*MockGenerator)(nil)
