package goods_receipt

import (
	"context"
	"time"

	"procura/internal/core/entity"
	"procura/internal/core/id"
	"procura/internal/domain"
)

// Repository stores goods receipts. There is no update or delete: receipts are append-only.
type Repository interface {
	Create(ctx context.Context, doc *GoodsReceipt) error
	GetByID(ctx context.Context, docID id.ID) (*GoodsReceipt, error)
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*GoodsReceipt], error)
}

// ListFilter for filtering goods receipts.
type ListFilter struct {
	domain.ListFilter

	PurchaseOrderID *id.ID
	WarehouseID     *id.ID
	DateFrom        *time.Time
	DateTo          *time.Time
}

// StockLedger accepts the movements of accepted lines inside the caller's transaction.
type StockLedger interface {
	RecordReceipt(ctx context.Context, movements []entity.StockMovement) error
}
