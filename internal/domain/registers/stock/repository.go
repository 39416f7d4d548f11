// Package stock provides the stock ledger that goods receipts post into.
package stock

import (
	"context"

	"procura/internal/core/entity"
	"procura/internal/core/id"
	"procura/internal/core/types"
)

// Repository defines persistence for the stock ledger.
type Repository interface {
	// CreateMovements batch inserts movements. Movements are never updated.
	CreateMovements(ctx context.Context, movements []entity.StockMovement) error

	// GetMovementsByRecorder retrieves all movements written by a document.
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error)

	// ApplyBalanceDeltas adds each delta to its balance row, creating rows as needed.
	ApplyBalanceDeltas(ctx context.Context, deltas []BalanceDelta) error

	// GetBalances returns balances matching filter.
	GetBalances(ctx context.Context, filter BalanceFilter) ([]entity.StockBalance, error)
}

// BalanceKey identifies one balance row.
type BalanceKey struct {
	WarehouseID id.ID
	ProductID   id.ID
	BatchNo     string
}

// BalanceDelta is a change to one balance row.
type BalanceDelta struct {
	BalanceKey
	Quantity types.Quantity
}

// BalanceFilter for filtering balance queries.
type BalanceFilter struct {
	WarehouseID *id.ID
	ProductIDs  []id.ID
	ExcludeZero bool
}
