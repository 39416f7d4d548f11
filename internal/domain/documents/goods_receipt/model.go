// Package goods_receipt provides the goods receipt note (GRN): the record of
// one delivery against a purchase order, and the engine that reconciles it.
package goods_receipt

import (
	"fmt"
	"time"

	"procura/internal/core/apperror"
	"procura/internal/core/entity"
	"procura/internal/core/id"
	"procura/internal/core/types"
	"procura/internal/domain/pricing"
)

// DocumentType is the recorder type written on ledger movements.
const DocumentType = "goods_receipt"

// GoodsReceipt is immutable once stored. Corrections are new receipts.
type GoodsReceipt struct {
	entity.Document

	PurchaseOrderID     id.ID  `db:"purchase_order_id" json:"purchase_order_id"`
	PurchaseOrderNumber string `db:"purchase_order_number" json:"purchase_order_number"`
	VendorID            id.ID  `db:"vendor_id" json:"vendor_id"`
	WarehouseID         id.ID  `db:"warehouse_id" json:"warehouse_id"`

	VendorInvoiceNo   string     `db:"vendor_invoice_no" json:"vendor_invoice_no"`
	VendorInvoiceDate *time.Time `db:"vendor_invoice_date" json:"vendor_invoice_date,omitempty"`

	Subtotal     types.Money `db:"subtotal" json:"subtotal"`
	TaxAmount    types.Money `db:"tax_amount" json:"tax_amount"`
	ShippingCost types.Money `db:"shipping_cost" json:"shipping_cost"`
	TotalAmount  types.Money `db:"total_amount" json:"total_amount"`

	ReceivedByID        string `db:"received_by_id" json:"received_by_id"`
	StockEntriesCreated bool   `db:"stock_entries_created" json:"stock_entries_created"`

	Lines []Line `db:"-" json:"items"`
}

// Line is one received product.
type Line struct {
	ID             id.ID  `db:"id" json:"id"`
	GoodsReceiptID id.ID  `db:"goods_receipt_id" json:"-"`
	LineNo         int    `db:"line_no" json:"line_no"`
	POLineItemID   id.ID  `db:"po_line_item_id" json:"po_line_item_id"`
	ProductID      id.ID  `db:"product_id" json:"product_id"`
	ProductName    string `db:"product_name" json:"product_name,omitempty"`

	ReceivedQuantity types.Quantity `db:"received_quantity" json:"received_quantity"`
	RejectedQuantity types.Quantity `db:"rejected_quantity" json:"rejected_quantity"`
	AcceptedQuantity types.Quantity `db:"accepted_quantity" json:"accepted_quantity"`

	UnitPrice        types.Money          `db:"unit_price" json:"unit_price"`
	OrderedUnitPrice types.Money          `db:"ordered_unit_price" json:"ordered_unit_price"`
	TaxPercentage    types.Money          `db:"tax_percentage" json:"tax_percentage"`
	Discount         types.Money          `db:"discount" json:"discount"`
	DiscountType     pricing.DiscountType `db:"discount_type" json:"discount_type"`

	NetSubtotal   types.Money `db:"net_subtotal" json:"net_subtotal"`
	DiscountValue types.Money `db:"discount_value" json:"discount_value"`
	TaxValue      types.Money `db:"tax_value" json:"tax_value"`
	LineTotal     types.Money `db:"line_total" json:"line_total"`

	BatchNo    string     `db:"batch_no" json:"batch_no,omitempty"`
	MfgDate    *time.Time `db:"mfg_date" json:"mfg_date,omitempty"`
	ExpiryDate *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
}

// PriceVariance flags a line received at a different price than ordered.
type PriceVariance struct {
	LineID            id.ID          `json:"line_id"`
	POLineItemID      id.ID          `json:"po_line_item_id"`
	ProductID         id.ID          `json:"product_id"`
	Quantity          types.Quantity `json:"quantity"`
	OrderedUnitPrice  types.Money    `json:"ordered_unit_price"`
	ReceivedUnitPrice types.Money    `json:"received_unit_price"`
	// Amount is (received - ordered) * quantity, rounded.
	Amount types.Money `json:"amount"`
}

// Variances lists lines whose receipt price differs from the PO price.
func (g *GoodsReceipt) Variances() []PriceVariance {
	var out []PriceVariance
	for _, l := range g.Lines {
		if l.UnitPrice.Equal(l.OrderedUnitPrice) {
			continue
		}
		diff := l.UnitPrice.Sub(l.OrderedUnitPrice)
		out = append(out, PriceVariance{
			LineID:            l.ID,
			POLineItemID:      l.POLineItemID,
			ProductID:         l.ProductID,
			Quantity:          l.ReceivedQuantity,
			OrderedUnitPrice:  l.OrderedUnitPrice,
			ReceivedUnitPrice: l.UnitPrice,
			Amount:            types.RoundMoney(diff.Mul(l.ReceivedQuantity.Decimal())),
		})
	}
	return out
}

// CheckInvariants verifies acceptance conservation and header totals.
func (g *GoodsReceipt) CheckInvariants() error {
	results := make([]pricing.LineResult, len(g.Lines))
	for i, l := range g.Lines {
		if l.RejectedQuantity < 0 || l.RejectedQuantity > l.ReceivedQuantity {
			return apperror.NewConsistencyViolation(fmt.Sprintf(
				"receipt line %d: rejected %s outside [0, %s]", l.LineNo, l.RejectedQuantity, l.ReceivedQuantity,
			))
		}
		if l.AcceptedQuantity+l.RejectedQuantity != l.ReceivedQuantity {
			return apperror.NewConsistencyViolation(fmt.Sprintf(
				"receipt line %d: accepted + rejected != received", l.LineNo,
			))
		}
		results[i] = pricing.LineResult{NetSubtotal: l.NetSubtotal, TaxValue: l.TaxValue, LineTotal: l.LineTotal}
	}

	agg := pricing.Aggregate(results)
	if !agg.Subtotal.Equal(g.Subtotal) || !agg.TaxAmount.Equal(g.TaxAmount) {
		return apperror.NewConsistencyViolation("receipt subtotal or tax_amount does not match its lines")
	}
	return pricing.ReceiptTotals{
		Subtotal:     g.Subtotal,
		TaxAmount:    g.TaxAmount,
		ShippingCost: g.ShippingCost,
		TotalAmount:  g.TotalAmount,
	}.Verify()
}

// AcceptedLines returns the lines that put stock on hand.
func (g *GoodsReceipt) AcceptedLines() []Line {
	var out []Line
	for _, l := range g.Lines {
		if l.AcceptedQuantity.IsPositive() {
			out = append(out, l)
		}
	}
	return out
}
