// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"procura/internal/core/entity"
	"procura/internal/core/id"
	"procura/internal/domain/registers/stock"
	"procura/internal/infrastructure/storage/postgres"
)

const (
	stockMovementsTable = "reg_stock_movements"
	stockBalancesTable  = "reg_stock_balances"
)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager    *postgres.TxManager
	batch        *postgres.BatchInserter
	builder      squirrel.StatementBuilderType
	movementCols []string
}

// NewStockRepo creates a new stock register repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager:    txManager,
		batch:        postgres.NewBatchInserter(txManager),
		builder:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		movementCols: postgres.ExtractDBColumns[entity.StockMovement](),
	}
}

// CreateMovements copies movements into the ledger. Requires a transaction.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	rows := make([][]any, len(movements))
	for i := range movements {
		rows[i] = postgres.StructValues(&movements[i])
	}
	if _, err := r.batch.CopyFromSlice(ctx, stockMovementsTable, r.movementCols, rows); err != nil {
		return fmt.Errorf("copy movements: %w", err)
	}
	return nil
}

// GetMovementsByRecorder retrieves all movements written by a document.
func (r *StockRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	sql, args, err := r.builder.
		Select(r.movementCols...).
		From(stockMovementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		OrderBy("created_at", "line_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("get movements: %w", err)
	}
	return movements, nil
}

// ApplyBalanceDeltas upserts balance rows, one statement per key, in a single batch.
func (r *StockRepo) ApplyBalanceDeltas(ctx context.Context, deltas []stock.BalanceDelta) error {
	queries := make([]postgres.BatchQuery, 0, len(deltas))
	for _, d := range deltas {
		sql, args, err := r.builder.
			Insert(stockBalancesTable).
			Columns("warehouse_id", "product_id", "batch_no", "quantity", "last_movement_at").
			Values(d.WarehouseID, d.ProductID, d.BatchNo, d.Quantity, squirrel.Expr("NOW()")).
			Suffix(`ON CONFLICT (warehouse_id, product_id, batch_no) DO UPDATE
				SET quantity = ` + stockBalancesTable + `.quantity + EXCLUDED.quantity,
				    last_movement_at = EXCLUDED.last_movement_at`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build balance upsert: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}
	if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("apply balance deltas: %w", err)
	}
	return nil
}

// GetBalances returns balances matching filter.
func (r *StockRepo) GetBalances(ctx context.Context, filter stock.BalanceFilter) ([]entity.StockBalance, error) {
	q := r.builder.
		Select("warehouse_id", "product_id", "batch_no", "quantity", "last_movement_at").
		From(stockBalancesTable).
		OrderBy("warehouse_id", "product_id", "batch_no")

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if len(filter.ProductIDs) > 0 {
		q = q.Where(squirrel.Eq{"product_id": filter.ProductIDs})
	}
	if filter.ExcludeZero {
		q = q.Where(squirrel.NotEq{"quantity": 0})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var balances []entity.StockBalance
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &balances, sql, args...); err != nil {
		return nil, fmt.Errorf("get balances: %w", err)
	}
	return balances, nil
}

var _ stock.Repository = (*StockRepo)(nil)
