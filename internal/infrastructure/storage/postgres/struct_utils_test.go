package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"procura/internal/core/entity"
	"procura/internal/core/id"
	"procura/internal/core/types"
)

type testDocument struct {
	entity.Document
	VendorID id.ID       `db:"vendor_id"`
	Total    types.Money `db:"total_amount"`
	Lines    []string    `db:"-"`
	internal string
}

func TestExtractDBColumns_IncludesEmbedded(t *testing.T) {
	cols := ExtractDBColumns[testDocument]()

	assert.Equal(t, []string{
		"id", "deletion_mark", "version",
		"created_at", "updated_at", "created_by", "updated_by",
		"number", "date", "comment",
		"vendor_id", "total_amount",
	}, cols)
}

func TestStructToMap(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := testDocument{
		Document: entity.NewDocument(now),
		VendorID: id.New(),
		Total:    types.MustMoney("12.50"),
		Lines:    []string{"x"},
		internal: "y",
	}
	doc.Number = "PO-2026-00007"

	m := StructToMap(&doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, 1, m["version"])
	assert.Equal(t, "PO-2026-00007", m["number"])
	assert.Equal(t, now, m["date"])
	assert.Equal(t, doc.VendorID, m["vendor_id"])
	assert.NotContains(t, m, "lines")
	assert.Len(t, m, 12)
}

func TestStructValues_MatchesColumns(t *testing.T) {
	m := entity.NewReceiptMovement(id.New(), "goods_receipt", time.Now(), time.Now())
	m.Quantity = types.NewQuantity(3)

	cols := ExtractDBColumns[entity.StockMovement]()
	vals := StructValues(m)

	assert.Len(t, vals, len(cols))
	for i, c := range cols {
		if c == "quantity" {
			assert.Equal(t, types.NewQuantity(3), vals[i])
		}
	}
}
