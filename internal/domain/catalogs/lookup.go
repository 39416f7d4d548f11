// Package catalogs declares the master-data lookups purchase orders depend on.
// Values are copied onto documents for display only and never enter a calculation.
package catalogs

import (
	"context"
	"sync"

	"procura/internal/core/apperror"
	"procura/internal/core/id"
)

// Vendor is a supplier.
type Vendor struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// Warehouse receives goods.
type Warehouse struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

// Product is an orderable item.
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`
	Unit string `db:"unit" json:"unit"`
}

// Lookup resolves master data by id. Missing rows return apperror NOT_FOUND.
type Lookup interface {
	GetVendor(ctx context.Context, vendorID id.ID) (*Vendor, error)
	GetWarehouse(ctx context.Context, warehouseID id.ID) (*Warehouse, error)
	GetProducts(ctx context.Context, productIDs []id.ID) (map[id.ID]*Product, error)
}

// Static is an in-memory Lookup.
type Static struct {
	mu         sync.RWMutex
	vendors    map[id.ID]*Vendor
	warehouses map[id.ID]*Warehouse
	products   map[id.ID]*Product
}

// NewStatic creates an empty Static lookup.
func NewStatic() *Static {
	return &Static{
		vendors:    make(map[id.ID]*Vendor),
		warehouses: make(map[id.ID]*Warehouse),
		products:   make(map[id.ID]*Product),
	}
}

func (s *Static) AddVendor(v Vendor) *Static {
	s.mu.Lock()
	s.vendors[v.ID] = &v
	s.mu.Unlock()
	return s
}

func (s *Static) AddWarehouse(w Warehouse) *Static {
	s.mu.Lock()
	s.warehouses[w.ID] = &w
	s.mu.Unlock()
	return s
}

func (s *Static) AddProduct(p Product) *Static {
	s.mu.Lock()
	s.products[p.ID] = &p
	s.mu.Unlock()
	return s
}

func (s *Static) GetVendor(_ context.Context, vendorID id.ID) (*Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.vendors[vendorID]; ok {
		return v, nil
	}
	return nil, apperror.NewNotFound("vendor", vendorID)
}

func (s *Static) GetWarehouse(_ context.Context, warehouseID id.ID) (*Warehouse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if w, ok := s.warehouses[warehouseID]; ok {
		return w, nil
	}
	return nil, apperror.NewNotFound("warehouse", warehouseID)
}

// GetProducts returns only the products it knows; callers compare lengths.
func (s *Static) GetProducts(_ context.Context, productIDs []id.ID) (map[id.ID]*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[id.ID]*Product, len(productIDs))
	for _, pid := range productIDs {
		if p, ok := s.products[pid]; ok {
			out[pid] = p
		}
	}
	return out, nil
}

var _ Lookup = (*Static)(nil)
