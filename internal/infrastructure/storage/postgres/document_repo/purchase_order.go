package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"procura/internal/core/id"
	"procura/internal/domain"
	"procura/internal/domain/documents/purchase_order"
	"procura/internal/infrastructure/storage/postgres"
)

const (
	purchaseOrdersTable     = "doc_purchase_orders"
	purchaseOrderLinesTable = "doc_purchase_order_lines"
)

// PurchaseOrderRepo implements purchase_order.Repository.
type PurchaseOrderRepo struct {
	*BaseDocumentRepo[*purchase_order.PurchaseOrder]
	batch    *postgres.BatchInserter
	lineCols []string
}

// NewPurchaseOrderRepo creates a new purchase order repository.
func NewPurchaseOrderRepo(txManager *postgres.TxManager) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			purchaseOrdersTable,
			"purchase order",
			postgres.ExtractDBColumns[purchase_order.PurchaseOrder](),
			func() *purchase_order.PurchaseOrder { return &purchase_order.PurchaseOrder{} },
		),
		batch:    postgres.NewBatchInserter(txManager),
		lineCols: postgres.ExtractDBColumns[purchase_order.LineItem](),
	}
}

// Update writes the header with a version check and stores the bumped version on po.
func (r *PurchaseOrderRepo) Update(ctx context.Context, po *purchase_order.PurchaseOrder) error {
	next, err := r.BaseDocumentRepo.Update(ctx, po)
	if err != nil {
		return err
	}
	po.Version = next
	return nil
}

// GetLines retrieves lines in line order.
func (r *PurchaseOrderRepo) GetLines(ctx context.Context, poID id.ID) ([]purchase_order.LineItem, error) {
	sql, args, err := r.Builder().
		Select(r.lineCols...).
		From(purchaseOrderLinesTable).
		Where(squirrel.Eq{"purchase_order_id": poID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []purchase_order.LineItem
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

// SaveLines upserts lines by id and removes the ones no longer present, in one round trip.
func (r *PurchaseOrderRepo) SaveLines(ctx context.Context, poID id.ID, lines []purchase_order.LineItem) error {
	keep := make([]id.ID, 0, len(lines))
	for _, l := range lines {
		keep = append(keep, l.ID)
	}

	queries := []postgres.BatchQuery{{
		SQL:  "DELETE FROM " + purchaseOrderLinesTable + " WHERE purchase_order_id = $1 AND NOT (id = ANY($2))",
		Args: []any{poID, keep},
	}}

	if len(lines) > 0 {
		q := r.Builder().Insert(purchaseOrderLinesTable).Columns(r.lineCols...)
		for i := range lines {
			line := lines[i]
			line.PurchaseOrderID = poID
			q = q.Values(postgres.StructValues(&line)...)
		}
		sql, args, err := q.Suffix(upsertSuffix(r.lineCols, "id", "purchase_order_id")).ToSql()
		if err != nil {
			return fmt.Errorf("build upsert lines: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}

	if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("save lines: %w", err)
	}
	return nil
}

// List retrieves purchase order headers.
func (r *PurchaseOrderRepo) List(ctx context.Context, filter purchase_order.ListFilter) (domain.ListResult[*purchase_order.PurchaseOrder], error) {
	q := r.baseSelect()
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where(squirrel.Eq{"status": statuses})
	}
	if filter.VendorID != nil {
		q = q.Where(squirrel.Eq{"vendor_id": *filter.VendorID})
	}
	return r.list(ctx, q, filter.ListFilter)
}

var _ purchase_order.Repository = (*PurchaseOrderRepo)(nil)
