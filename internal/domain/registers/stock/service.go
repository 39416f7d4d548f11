package stock

import (
	"context"
	"fmt"
	"strings"

	"procura/internal/core/apperror"
	"procura/internal/core/entity"
	"procura/internal/core/id"
	"procura/internal/core/types"
	"procura/pkg/logger"
)

// Service records movements and keeps balances in step with them.
// It runs inside the caller's transaction.
type Service struct {
	repo Repository
}

// NewService creates a new stock ledger service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RecordReceipt writes receipt movements and raises the matching balances.
func (s *Service) RecordReceipt(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	for i, m := range movements {
		if m.RecordType != entity.RecordTypeReceipt {
			return apperror.NewValidation(fmt.Sprintf("movement %d: record_type must be receipt", i))
		}
		if !m.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("movement %d: quantity must be positive", i))
		}
		if id.IsNil(m.RecorderID) || id.IsNil(m.WarehouseID) || id.IsNil(m.ProductID) {
			return apperror.NewValidation(fmt.Sprintf("movement %d: recorder, warehouse and product are required", i))
		}
	}

	if err := s.repo.CreateMovements(ctx, movements); err != nil {
		return fmt.Errorf("create movements: %w", err)
	}
	if err := s.repo.ApplyBalanceDeltas(ctx, Deltas(movements)); err != nil {
		return fmt.Errorf("apply balances: %w", err)
	}

	logger.Info(ctx, "recorded stock movements",
		"count", len(movements),
		"recorder_id", movements[0].RecorderID,
	)
	return nil
}

// Deltas sums signed movement quantities per balance key, in first-seen order.
func Deltas(movements []entity.StockMovement) []BalanceDelta {
	index := make(map[BalanceKey]int, len(movements))
	var out []BalanceDelta
	for i := range movements {
		m := &movements[i]
		key := BalanceKey{WarehouseID: m.WarehouseID, ProductID: m.ProductID, BatchNo: strings.TrimSpace(m.BatchNo)}
		if j, ok := index[key]; ok {
			out[j].Quantity += m.SignedQuantity()
			continue
		}
		index[key] = len(out)
		out = append(out, BalanceDelta{BalanceKey: key, Quantity: m.SignedQuantity()})
	}
	return out
}

// MovementsOf returns the ledger entries written by a document.
func (s *Service) MovementsOf(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	return s.repo.GetMovementsByRecorder(ctx, recorderID)
}

// GetWarehouseStock returns all products with stock in a warehouse.
func (s *Service) GetWarehouseStock(ctx context.Context, warehouseID id.ID) ([]entity.StockBalance, error) {
	return s.repo.GetBalances(ctx, BalanceFilter{WarehouseID: &warehouseID, ExcludeZero: true})
}

// GetProductAvailability returns the quantity on hand across warehouses and batches.
func (s *Service) GetProductAvailability(ctx context.Context, productID id.ID) (types.Quantity, error) {
	balances, err := s.repo.GetBalances(ctx, BalanceFilter{ProductIDs: []id.ID{productID}})
	if err != nil {
		return 0, fmt.Errorf("get balances: %w", err)
	}
	var total types.Quantity
	for _, b := range balances {
		total += b.Quantity
	}
	return total, nil
}
