package stock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura/internal/core/apperror"
	"procura/internal/core/entity"
	"procura/internal/core/id"
	"procura/internal/core/types"
)

var now = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func movement(recorder, warehouse, product id.ID, batch string, qty int64) entity.StockMovement {
	m := entity.NewReceiptMovement(recorder, "goods_receipt", now, now)
	m.WarehouseID = warehouse
	m.ProductID = product
	m.BatchNo = batch
	m.Quantity = types.NewQuantity(qty)
	m.UnitPrice = types.MustMoney("10")
	return m
}

func TestService_RecordReceipt(t *testing.T) {
	repo := NewMemoryRepository()
	repo.Now = func() time.Time { return now }
	svc := NewService(repo)
	ctx := context.Background()

	grn, wh, p1, p2 := id.New(), id.New(), id.New(), id.New()
	err := svc.RecordReceipt(ctx, []entity.StockMovement{
		movement(grn, wh, p1, "B1", 5),
		movement(grn, wh, p1, "B1", 3),
		movement(grn, wh, p1, "B2", 2),
		movement(grn, wh, p2, "", 7),
	})
	require.NoError(t, err)

	moves, err := svc.MovementsOf(ctx, grn)
	require.NoError(t, err)
	assert.Len(t, moves, 4)

	avail, err := svc.GetProductAvailability(ctx, p1)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(10), avail)

	stock, err := svc.GetWarehouseStock(ctx, wh)
	require.NoError(t, err)
	assert.Len(t, stock, 3)
	for _, b := range stock {
		assert.Equal(t, now, b.LastMovementAt)
	}
}

func TestService_RecordReceipt_Rejects(t *testing.T) {
	grn, wh, p := id.New(), id.New(), id.New()
	expense := movement(grn, wh, p, "", 1)
	expense.RecordType = entity.RecordTypeExpense

	tests := []struct {
		name string
		m    entity.StockMovement
	}{
		{"zero quantity", movement(grn, wh, p, "", 0)},
		{"missing warehouse", movement(grn, id.ID{}, p, "", 1)},
		{"missing recorder", movement(id.ID{}, wh, p, "", 1)},
		{"expense", expense},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMemoryRepository()
			svc := NewService(repo)

			err := svc.RecordReceipt(context.Background(), []entity.StockMovement{tt.m})

			assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
			moves, _ := repo.GetMovementsByRecorder(context.Background(), grn)
			assert.Empty(t, moves)
		})
	}
}

func TestDeltas(t *testing.T) {
	wh, p := id.New(), id.New()
	grn := id.New()

	deltas := Deltas([]entity.StockMovement{
		movement(grn, wh, p, " B1 ", 2),
		movement(grn, wh, p, "B1", 3),
		movement(grn, wh, p, "B9", 1),
	})

	require.Len(t, deltas, 2)
	assert.Equal(t, "B1", deltas[0].BatchNo)
	assert.Equal(t, types.NewQuantity(5), deltas[0].Quantity)
	assert.Equal(t, types.NewQuantity(1), deltas[1].Quantity)
}

func TestMemoryRepository_Restore(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	wh, p := id.New(), id.New()

	require.NoError(t, svc.RecordReceipt(ctx, []entity.StockMovement{movement(id.New(), wh, p, "", 4)}))
	state := repo.Snapshot()
	require.NoError(t, svc.RecordReceipt(ctx, []entity.StockMovement{movement(id.New(), wh, p, "", 6)}))

	repo.Restore(state)

	avail, err := svc.GetProductAvailability(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(4), avail)
}
