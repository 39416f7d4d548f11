package stock

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"procura/internal/core/entity"
	"procura/internal/core/id"
)

// MemoryRepository is an in-memory Repository that tx.Memory can roll back.
type MemoryRepository struct {
	mu        sync.RWMutex
	movements []entity.StockMovement
	balances  map[BalanceKey]entity.StockBalance
	// Now stamps LastMovementAt. Defaults to time.Now.
	Now func() time.Time
}

// NewMemoryRepository creates an empty ledger.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{balances: make(map[BalanceKey]entity.StockBalance), Now: time.Now}
}

func (r *MemoryRepository) CreateMovements(_ context.Context, movements []entity.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *MemoryRepository) GetMovementsByRecorder(_ context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.StockMovement
	for _, m := range r.movements {
		if m.RecorderID == recorderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MemoryRepository) ApplyBalanceDeltas(_ context.Context, deltas []BalanceDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range deltas {
		b := r.balances[d.BalanceKey]
		b.WarehouseID, b.ProductID, b.BatchNo = d.WarehouseID, d.ProductID, d.BatchNo
		b.Quantity += d.Quantity
		b.LastMovementAt = r.Now()
		r.balances[d.BalanceKey] = b
	}
	return nil
}

func (r *MemoryRepository) GetBalances(_ context.Context, filter BalanceFilter) ([]entity.StockBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []entity.StockBalance
	for _, b := range r.balances {
		if filter.WarehouseID != nil && b.WarehouseID != *filter.WarehouseID {
			continue
		}
		if len(filter.ProductIDs) > 0 && !slices.Contains(filter.ProductIDs, b.ProductID) {
			continue
		}
		if filter.ExcludeZero && b.Quantity.IsZero() {
			continue
		}
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b entity.StockBalance) int {
		if c := slices.Compare(a.ProductID[:], b.ProductID[:]); c != 0 {
			return c
		}
		return strings.Compare(a.BatchNo, b.BatchNo)
	})
	return out, nil
}

type memorySnapshot struct {
	movements int
	balances  map[BalanceKey]entity.StockBalance
}

// Snapshot implements tx.Snapshotter.
func (r *MemoryRepository) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := memorySnapshot{movements: len(r.movements), balances: make(map[BalanceKey]entity.StockBalance, len(r.balances))}
	for k, v := range r.balances {
		s.balances[k] = v
	}
	return s
}

// Restore implements tx.Snapshotter.
func (r *MemoryRepository) Restore(state any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := state.(memorySnapshot)
	r.movements = r.movements[:s.movements]
	r.balances = s.balances
}

var _ Repository = (*MemoryRepository)(nil)
