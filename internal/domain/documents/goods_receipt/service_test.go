package goods_receipt

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura/internal/core/apperror"
	appctx "procura/internal/core/context"
	"procura/internal/core/entity"
	"procura/internal/core/id"
	"procura/internal/core/numerator"
	"procura/internal/core/tx"
	"procura/internal/core/types"
	"procura/internal/domain/documents/purchase_order"
	"procura/internal/domain/events"
	"procura/internal/domain/registers/stock"
)

type failingLedger struct{ err error }

func (l failingLedger) RecordReceipt(context.Context, []entity.StockMovement) error { return l.err }

type fixture struct {
	orders    *purchase_order.Service
	svc       *Service
	poRepo    *purchase_order.MemoryRepository
	grnRepo   *MemoryRepository
	stockRepo *stock.MemoryRepository
	events    *events.Collector
	warehouse id.ID
}

func newFixture(t *testing.T, ledger StockLedger) *fixture {
	t.Helper()
	f := &fixture{
		poRepo:    purchase_order.NewMemoryRepository(),
		grnRepo:   NewMemoryRepository(),
		stockRepo: stock.NewMemoryRepository(),
		events:    &events.Collector{},
	}
	if ledger == nil {
		ledger = stock.NewService(f.stockRepo)
	}
	txm := tx.NewMemory(f.poRepo, f.grnRepo, f.stockRepo, f.events)
	gen := &numerator.MockGenerator{}

	f.orders = purchase_order.NewService(purchase_order.Config{
		Repo:      f.poRepo,
		Numerator: gen,
		TxManager: txm,
		Events:    f.events,
		Clock:     func() time.Time { return testNow },
	})
	f.svc = NewService(Config{
		Orders:    f.orders,
		Repo:      f.grnRepo,
		Ledger:    ledger,
		Numerator: gen,
		Events:    f.events,
	})
	return f
}

func (f *fixture) sentPO(t *testing.T, lines ...purchase_order.LineItem) *purchase_order.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	po := purchase_order.NewPurchaseOrder(testNow)
	po.VendorID = id.New()
	po.WarehouseID = id.New()
	f.warehouse = po.WarehouseID
	po.Items = lines
	require.NoError(t, f.orders.Create(ctx, po))
	for _, step := range []func(context.Context, id.ID) (*purchase_order.PurchaseOrder, error){
		f.orders.Submit,
		func(ctx context.Context, poID id.ID) (*purchase_order.PurchaseOrder, error) { return f.orders.Approve(ctx, poID, "") },
		f.orders.Send,
	} {
		var err error
		po, err = step(ctx, po.ID)
		require.NoError(t, err)
	}
	return po
}

func (f *fixture) balance(t *testing.T) types.Quantity {
	t.Helper()
	balances, err := f.stockRepo.GetBalances(context.Background(), stock.BalanceFilter{WarehouseID: &f.warehouse})
	require.NoError(t, err)
	var total types.Quantity
	for _, b := range balances {
		total += b.Quantity
	}
	return total
}

func TestService_ConvertToGRN_PartialThenComplete(t *testing.T) {
	f := newFixture(t, nil)
	po := f.sentPO(t, orderLine(10, "100"))
	lineID := po.Items[0].ID
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "storekeeper-7"})

	conv, err := f.svc.ConvertToGRN(ctx, po.ID, request(receive(lineID, 6)))

	require.NoError(t, err)
	assert.Equal(t, "GRN-2026-00001", conv.Receipt.Number)
	assert.Equal(t, "storekeeper-7", conv.Receipt.ReceivedByID)
	assert.Equal(t, "708.00", types.FormatMoney(conv.Receipt.TotalAmount))
	assert.Equal(t, purchase_order.StatusPartiallyReceived, conv.PurchaseOrder.Status)
	assert.Equal(t, types.NewQuantity(6), f.balance(t))

	stored, err := f.orders.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusPartiallyReceived, stored.Status)
	assert.Equal(t, types.NewQuantity(4), stored.Items[0].PendingQuantity)

	conv, err = f.svc.ConvertToGRN(ctx, po.ID, request(receive(lineID, 4)))

	require.NoError(t, err)
	assert.Equal(t, "GRN-2026-00002", conv.Receipt.Number)
	assert.Equal(t, purchase_order.StatusFullyReceived, conv.PurchaseOrder.Status)
	assert.True(t, conv.PurchaseOrder.Items[0].PendingQuantity.IsZero())
	assert.Equal(t, types.NewQuantity(10), f.balance(t))

	list, err := f.svc.List(ctx, ListFilter{PurchaseOrderID: &po.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.TotalCount)

	grn, err := f.svc.Get(ctx, conv.Receipt.ID)
	require.NoError(t, err)
	require.Len(t, grn.Lines, 1)
	assert.Equal(t, lineID, grn.Lines[0].POLineItemID)

	assert.Len(t, f.events.OfType(events.GoodsReceived), 2)

	// edit and delete are closed once goods were received
	_, err = f.orders.Update(ctx, po.ID, purchase_order.UpdateInput{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidTransition))
}

func TestService_ConvertToGRN_OverReceiptLeavesNoTrace(t *testing.T) {
	f := newFixture(t, nil)
	po := f.sentPO(t, orderLine(10, "100"))
	lineID := po.Items[0].ID
	ctx := context.Background()
	_, err := f.svc.ConvertToGRN(ctx, po.ID, request(receive(lineID, 6)))
	require.NoError(t, err)
	eventsBefore := len(f.events.Events())

	_, err = f.svc.ConvertToGRN(ctx, po.ID, request(receive(lineID, 12)))

	assert.True(t, apperror.HasCode(err, apperror.CodeOverReceipt))
	stored, err := f.orders.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantity(6), stored.Items[0].ReceivedQuantity)
	assert.Equal(t, types.NewQuantity(6), f.balance(t))
	assert.Len(t, f.events.Events(), eventsBefore)

	list, err := f.svc.List(ctx, ListFilter{PurchaseOrderID: &po.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.TotalCount)
}

func TestService_ConvertToGRN_LedgerFailureRollsBack(t *testing.T) {
	boom := errors.New("ledger unavailable")
	f := newFixture(t, failingLedger{err: boom})
	po := f.sentPO(t, orderLine(10, "100"))
	ctx := context.Background()

	_, err := f.svc.ConvertToGRN(ctx, po.ID, request(receive(po.Items[0].ID, 10)))

	require.ErrorIs(t, err, boom)
	stored, err := f.orders.Get(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, purchase_order.StatusSent, stored.Status)
	assert.True(t, stored.Items[0].ReceivedQuantity.IsZero())

	list, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.TotalCount)
	assert.Empty(t, f.events.OfType(events.GoodsReceived))
}

func TestService_ConvertToGRN_WithoutStockEntries(t *testing.T) {
	f := newFixture(t, failingLedger{err: errors.New("must not be called")})
	po := f.sentPO(t, orderLine(10, "100"))
	req := request(receive(po.Items[0].ID, 10))
	req.CreateStockEntries = false

	conv, err := f.svc.ConvertToGRN(context.Background(), po.ID, req)

	require.NoError(t, err)
	assert.False(t, conv.Receipt.StockEntriesCreated)
	assert.Equal(t, purchase_order.StatusFullyReceived, conv.PurchaseOrder.Status)
}

func TestService_ConvertToGRN_RecordsVarianceInEvent(t *testing.T) {
	f := newFixture(t, nil)
	po := f.sentPO(t, orderLine(10, "100"))
	r := receive(po.Items[0].ID, 2)
	r.UnitPrice = types.MustMoney("95")

	_, err := f.svc.ConvertToGRN(context.Background(), po.ID, request(r))

	require.NoError(t, err)
	received := f.events.OfType(events.GoodsReceived)
	require.Len(t, received, 1)
	payload, ok := received[0].Payload.(GoodsReceivedPayload)
	require.True(t, ok)
	assert.Equal(t, purchase_order.StatusPartiallyReceived, payload.PurchaseOrderStatus)
	require.Len(t, payload.Variances, 1)
	assert.Equal(t, "-10.00", types.FormatMoney(payload.Variances[0].Amount))
}

func TestService_ConvertToGRN_ConcurrentReceiptsNeverOverReceive(t *testing.T) {
	f := newFixture(t, nil)
	po := f.sentPO(t, orderLine(10, "100"))
	lineID := po.Items[0].ID

	const workers = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ConvertToGRN(context.Background(), po.ID, request(receive(lineID, 3)))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
				return
			}
			assert.True(t, apperror.HasCode(err, apperror.CodeOverReceipt), err.Error())
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	stored, err := f.orders.Get(context.Background(), po.ID)
	require.NoError(t, err)
	li := stored.Items[0]
	assert.Equal(t, types.NewQuantity(9), li.ReceivedQuantity)
	assert.Equal(t, li.Quantity, li.ReceivedQuantity+li.PendingQuantity)
	assert.Equal(t, types.NewQuantity(9), f.balance(t))
}

func TestService_ConvertToGRN_NotReceivable(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	po := purchase_order.NewPurchaseOrder(testNow)
	po.VendorID = id.New()
	po.WarehouseID = id.New()
	po.Items = []purchase_order.LineItem{orderLine(1, "1")}
	require.NoError(t, f.orders.Create(ctx, po))

	_, err := f.svc.ConvertToGRN(ctx, po.ID, request(receive(po.Items[0].ID, 1)))

	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeInvalidTransition, appErr.Code)
	assert.Equal(t, "receive_partial", appErr.Details["action"])
}
