package purchase_order

import (
	"context"
	"slices"
	"sync"

	"procura/internal/core/apperror"
	"procura/internal/core/id"
	"procura/internal/domain"
)

// MemoryRepository is an in-memory Repository. It implements tx.Snapshotter
// so tx.Memory can roll it back.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[id.ID]PurchaseOrder
	lines  map[id.ID][]LineItem
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders: make(map[id.ID]PurchaseOrder),
		lines:  make(map[id.ID][]LineItem),
	}
}

func (r *MemoryRepository) Create(_ context.Context, po *PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.orders[po.ID]; exists {
		return apperror.NewConflict("purchase order already exists")
	}
	row := *po
	row.Items = nil
	r.orders[po.ID] = row
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, poID id.ID) (*PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.orders[poID]
	if !ok {
		return nil, apperror.NewNotFound(entityName, poID)
	}
	return &row, nil
}

func (r *MemoryRepository) GetForUpdate(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	return r.GetByID(ctx, poID)
}

func (r *MemoryRepository) Update(_ context.Context, po *PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.orders[po.ID]
	if !ok {
		return apperror.NewNotFound(entityName, po.ID)
	}
	if current.Version != po.Version {
		return apperror.NewConcurrentModification(entityName, po.ID)
	}
	po.Version++
	row := *po
	row.Items = nil
	r.orders[po.ID] = row
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, poID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.orders[poID]
	if !ok {
		return apperror.NewNotFound(entityName, poID)
	}
	row.DeletionMark = true
	row.Version++
	r.orders[poID] = row
	return nil
}

func (r *MemoryRepository) GetLines(_ context.Context, poID id.ID) ([]LineItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.lines[poID]), nil
}

func (r *MemoryRepository) SaveLines(_ context.Context, poID id.ID, lines []LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[poID] = slices.Clone(lines)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, filter ListFilter) (domain.ListResult[*PurchaseOrder], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*PurchaseOrder
	for _, row := range r.orders {
		if row.DeletionMark && !filter.IncludeDeleted {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, row.Status) {
			continue
		}
		if filter.VendorID != nil && row.VendorID != *filter.VendorID {
			continue
		}
		po := row
		items = append(items, &po)
	}
	slices.SortFunc(items, func(a, b *PurchaseOrder) int { return b.Date.Compare(a.Date) })

	total := int64(len(items))
	start := min(filter.Offset, len(items))
	end := min(start+filter.Limit, len(items))
	return domain.ListResult[*PurchaseOrder]{
		Items:      items[start:end],
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

type memorySnapshot struct {
	orders map[id.ID]PurchaseOrder
	lines  map[id.ID][]LineItem
}

// Snapshot implements tx.Snapshotter.
func (r *MemoryRepository) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := memorySnapshot{
		orders: make(map[id.ID]PurchaseOrder, len(r.orders)),
		lines:  make(map[id.ID][]LineItem, len(r.lines)),
	}
	for k, v := range r.orders {
		s.orders[k] = v
	}
	for k, v := range r.lines {
		s.lines[k] = slices.Clone(v)
	}
	return s
}

// Restore implements tx.Snapshotter.
func (r *MemoryRepository) Restore(state any) {
	s := state.(memorySnapshot)
	r.mu.Lock()
	r.orders = s.orders
	r.lines = s.lines
	r.mu.Unlock()
}

var _ Repository = (*MemoryRepository)(nil)
