package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura/internal/core/id"
	"procura/internal/domain/catalogs"
)

func TestBaseSelect(t *testing.T) {
	repo := NewBaseCatalogRepo[catalogs.Product](nil, productsTable, "product")
	productID := id.New()

	sql, args, err := repo.baseSelect().Where("id = ?", productID).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, sku, name, unit FROM cat_products WHERE deletion_mark = $1 AND id = $2", sql)
	assert.Equal(t, []any{false, productID}, args)
}

func TestSelectColumnsFollowTags(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		want []string
	}{
		{name: "vendor", cols: NewBaseCatalogRepo[catalogs.Vendor](nil, vendorsTable, "vendor").selectCols, want: []string{"id", "code", "name"}},
		{name: "warehouse", cols: NewBaseCatalogRepo[catalogs.Warehouse](nil, warehousesTable, "warehouse").selectCols, want: []string{"id", "code", "name"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cols)
		})
	}
}
