package goods_receipt

import (
	"context"
	"slices"
	"sync"

	"procura/internal/core/apperror"
	"procura/internal/core/id"
	"procura/internal/domain"
)

// MemoryRepository is an in-memory Repository that tx.Memory can roll back.
type MemoryRepository struct {
	mu       sync.RWMutex
	receipts map[id.ID]GoodsReceipt
	lines    map[id.ID][]Line
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		receipts: make(map[id.ID]GoodsReceipt),
		lines:    make(map[id.ID][]Line),
	}
}

func (r *MemoryRepository) Create(_ context.Context, doc *GoodsReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.receipts[doc.ID]; exists {
		return apperror.NewConflict("goods receipt already exists")
	}
	row := *doc
	row.Lines = nil
	r.receipts[doc.ID] = row
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, docID id.ID) (*GoodsReceipt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, ok := r.receipts[docID]
	if !ok {
		return nil, apperror.NewNotFound("goods receipt", docID)
	}
	return &row, nil
}

func (r *MemoryRepository) GetLines(_ context.Context, docID id.ID) ([]Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.lines[docID]), nil
}

func (r *MemoryRepository) SaveLines(_ context.Context, docID id.ID, lines []Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[docID] = slices.Clone(lines)
	return nil
}

func (r *MemoryRepository) List(_ context.Context, filter ListFilter) (domain.ListResult[*GoodsReceipt], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*GoodsReceipt
	for _, row := range r.receipts {
		if filter.PurchaseOrderID != nil && row.PurchaseOrderID != *filter.PurchaseOrderID {
			continue
		}
		if filter.WarehouseID != nil && row.WarehouseID != *filter.WarehouseID {
			continue
		}
		if filter.DateFrom != nil && row.Date.Before(*filter.DateFrom) {
			continue
		}
		if filter.DateTo != nil && row.Date.After(*filter.DateTo) {
			continue
		}
		grn := row
		items = append(items, &grn)
	}
	slices.SortFunc(items, func(a, b *GoodsReceipt) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})

	total := int64(len(items))
	start := min(filter.Offset, len(items))
	end := min(start+filter.Limit, len(items))
	return domain.ListResult[*GoodsReceipt]{
		Items:      items[start:end],
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

type memorySnapshot struct {
	receipts map[id.ID]GoodsReceipt
	lines    map[id.ID][]Line
}

// Snapshot implements tx.Snapshotter.
func (r *MemoryRepository) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := memorySnapshot{
		receipts: make(map[id.ID]GoodsReceipt, len(r.receipts)),
		lines:    make(map[id.ID][]Line, len(r.lines)),
	}
	for k, v := range r.receipts {
		s.receipts[k] = v
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
	r.receipts = s.receipts
	r.lines = s.lines
	r.mu.Unlock()
}

var _ Repository = (*MemoryRepository)(nil)
