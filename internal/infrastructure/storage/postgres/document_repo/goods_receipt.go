package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"procura/internal/core/id"
	"procura/internal/domain"
	"procura/internal/domain/documents/goods_receipt"
	"procura/internal/infrastructure/storage/postgres"
)

const (
	goodsReceiptsTable     = "doc_goods_receipts"
	goodsReceiptLinesTable = "doc_goods_receipt_lines"
)

// GoodsReceiptRepo implements goods_receipt.Repository. Receipts are insert-only.
type GoodsReceiptRepo struct {
	*BaseDocumentRepo[*goods_receipt.GoodsReceipt]
	batch    *postgres.BatchInserter
	lineCols []string
}

// NewGoodsReceiptRepo creates a new goods receipt repository.
func NewGoodsReceiptRepo(txManager *postgres.TxManager) *GoodsReceiptRepo {
	return &GoodsReceiptRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			goodsReceiptsTable,
			"goods receipt",
			postgres.ExtractDBColumns[goods_receipt.GoodsReceipt](),
			func() *goods_receipt.GoodsReceipt { return &goods_receipt.GoodsReceipt{} },
		),
		batch:    postgres.NewBatchInserter(txManager),
		lineCols: postgres.ExtractDBColumns[goods_receipt.Line](),
	}
}

// GetLines retrieves lines for a goods receipt.
func (r *GoodsReceiptRepo) GetLines(ctx context.Context, docID id.ID) ([]goods_receipt.Line, error) {
	sql, args, err := r.Builder().
		Select(r.lineCols...).
		From(goodsReceiptLinesTable).
		Where(squirrel.Eq{"goods_receipt_id": docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []goods_receipt.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

// SaveLines copies the lines of a new receipt.
func (r *GoodsReceiptRepo) SaveLines(ctx context.Context, docID id.ID, lines []goods_receipt.Line) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([][]any, len(lines))
	for i := range lines {
		line := lines[i]
		line.GoodsReceiptID = docID
		rows[i] = postgres.StructValues(&line)
	}
	if _, err := r.batch.CopyFromSlice(ctx, goodsReceiptLinesTable, r.lineCols, rows); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}
	return nil
}

// List retrieves goods receipt headers.
func (r *GoodsReceiptRepo) List(ctx context.Context, filter goods_receipt.ListFilter) (domain.ListResult[*goods_receipt.GoodsReceipt], error) {
	q := r.baseSelect()
	if filter.PurchaseOrderID != nil {
		q = q.Where(squirrel.Eq{"purchase_order_id": *filter.PurchaseOrderID})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}
	return r.list(ctx, q, filter.ListFilter)
}

var _ goods_receipt.Repository = (*GoodsReceiptRepo)(nil)
