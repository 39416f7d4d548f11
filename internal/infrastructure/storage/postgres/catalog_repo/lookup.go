package catalog_repo

import (
	"context"

	"procura/internal/core/id"
	"procura/internal/domain/catalogs"
	"procura/internal/infrastructure/storage/postgres"
)

const (
	vendorsTable    = "cat_vendors"
	warehousesTable = "cat_warehouses"
	productsTable   = "cat_products"
)

// Lookup implements catalogs.Lookup over the catalog tables.
type Lookup struct {
	vendors    *BaseCatalogRepo[catalogs.Vendor]
	warehouses *BaseCatalogRepo[catalogs.Warehouse]
	products   *BaseCatalogRepo[catalogs.Product]
}

// NewLookup creates a catalog lookup.
func NewLookup(txManager *postgres.TxManager) *Lookup {
	return &Lookup{
		vendors:    NewBaseCatalogRepo[catalogs.Vendor](txManager, vendorsTable, "vendor"),
		warehouses: NewBaseCatalogRepo[catalogs.Warehouse](txManager, warehousesTable, "warehouse"),
		products:   NewBaseCatalogRepo[catalogs.Product](txManager, productsTable, "product"),
	}
}

func (l *Lookup) GetVendor(ctx context.Context, vendorID id.ID) (*catalogs.Vendor, error) {
	return l.vendors.GetByID(ctx, vendorID)
}

func (l *Lookup) GetWarehouse(ctx context.Context, warehouseID id.ID) (*catalogs.Warehouse, error) {
	return l.warehouses.GetByID(ctx, warehouseID)
}

// GetProducts returns the known products keyed by id.
func (l *Lookup) GetProducts(ctx context.Context, productIDs []id.ID) (map[id.ID]*catalogs.Product, error) {
	items, err := l.products.GetByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[id.ID]*catalogs.Product, len(items))
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

var _ catalogs.Lookup = (*Lookup)(nil)
