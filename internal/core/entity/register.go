package entity

import (
	"time"

	"procura/internal/core/id"
	"procura/internal/core/types"
)

// RecordType defines movement direction for the stock ledger.
type RecordType string

const (
	// RecordTypeReceipt increases balance
	RecordTypeReceipt RecordType = "receipt"
	// RecordTypeExpense decreases balance
	RecordTypeExpense RecordType = "expense"
)

// MovementBase contains common fields for ledger movements.
// Movements are append-only.
type MovementBase struct {
	// LineID is unique identifier for this movement line (UUIDv7)
	LineID id.ID `db:"line_id" json:"line_id"`

	// RecorderID is the document that created this movement
	RecorderID id.ID `db:"recorder_id" json:"recorder_id"`

	// RecorderType is the document type (e.g. "goods_receipt")
	RecorderType string `db:"recorder_type" json:"recorder_type"`

	// Period is the business date for the movement
	Period time.Time `db:"period" json:"period"`

	RecordType RecordType `db:"record_type" json:"record_type"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StockMovement is one stock-ledger entry. A goods receipt emits one per accepted line.
type StockMovement struct {
	MovementBase

	// Dimensions
	WarehouseID id.ID  `db:"warehouse_id" json:"warehouse_id"`
	ProductID   id.ID  `db:"product_id" json:"product_id"`
	BatchNo     string `db:"batch_no" json:"batch_no,omitempty"`

	MfgDate    *time.Time `db:"mfg_date" json:"mfg_date,omitempty"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`

	// Resources
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
	UnitPrice types.Money    `db:"unit_price" json:"unit_price"`
}

// NewReceiptMovement creates a receipt-type movement recorded by doc.
func NewReceiptMovement(recorderID id.ID, recorderType string, period, now time.Time) StockMovement {
	return StockMovement{
		MovementBase: MovementBase{
			LineID:       id.New(),
			RecorderID:   recorderID,
			RecorderType: recorderType,
			Period:       period,
			RecordType:   RecordTypeReceipt,
			CreatedAt:    now,
		},
	}
}

// SignedQuantity returns quantity with sign based on record type.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.RecordType == RecordTypeExpense {
		return -m.Quantity
	}
	return m.Quantity
}

// StockBalance is the running balance per warehouse, product and batch.
type StockBalance struct {
	WarehouseID id.ID  `db:"warehouse_id" json:"warehouse_id"`
	ProductID   id.ID  `db:"product_id" json:"product_id"`
	BatchNo     string `db:"batch_no" json:"batch_no"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	LastMovementAt time.Time `db:"last_movement_at" json:"last_movement_at"`
}
