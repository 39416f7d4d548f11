package goods_receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"procura/internal/core/apperror"
	"procura/internal/core/entity"
	"procura/internal/core/id"
	"procura/internal/core/types"
	"procura/internal/domain/documents/purchase_order"
	"procura/internal/domain/pricing"
)

var hundred = decimal.NewFromInt(100)

// LineRequest is the receipt of one PO line.
type LineRequest struct {
	POLineItemID     id.ID
	ReceivedQuantity types.Quantity
	RejectedQuantity types.Quantity

	UnitPrice types.Money
	// TaxPercentage is required for received lines; nil means absent.
	TaxPercentage *types.Money
	Discount      types.Money
	DiscountType  pricing.DiscountType

	BatchNo    string
	MfgDate    *time.Time
	ExpiryDate *time.Time
}

// Request is one receipt event against a purchase order.
type Request struct {
	// Date defaults to the reconciliation time.
	Date              time.Time
	VendorInvoiceNo   string
	VendorInvoiceDate *time.Time
	ShippingCost      types.Money
	Notes             string

	// CreateStockEntries controls whether ledger movements are emitted.
	CreateStockEntries bool

	Items []LineRequest
}

// Validate checks the request against po and returns every violation found.
// Lines with received_quantity == 0 are ignored except for the rejected check.
func (r *Request) Validate(po *purchase_order.PurchaseOrder) []apperror.Violation {
	var v []apperror.Violation
	add := func(field, code, msg string) {
		v = append(v, apperror.Violation{Field: field, Code: code, Message: msg})
	}

	if strings.TrimSpace(r.VendorInvoiceNo) == "" {
		add("vendor_invoice_no", "required", "vendor_invoice_no is required")
	}
	if r.ShippingCost.IsNegative() {
		add("shipping_cost", "gte", "shipping_cost must not be negative")
	}

	seen := make(map[id.ID]int, len(r.Items))
	receiving := 0
	for i, item := range r.Items {
		field := fmt.Sprintf("items[%d]", i)

		if item.ReceivedQuantity.IsNegative() {
			add(field+".received_quantity", "gte", "received_quantity must not be negative")
		}
		if item.RejectedQuantity.IsNegative() {
			add(field+".rejected_quantity", "gte", "rejected_quantity must not be negative")
		} else if item.RejectedQuantity > max(item.ReceivedQuantity, 0) {
			add(field+".rejected_quantity", "ltefield", "rejected_quantity must not exceed received_quantity")
		}
		if !item.ReceivedQuantity.IsPositive() {
			continue
		}
		receiving++

		if prev, dup := seen[item.POLineItemID]; dup {
			add(field+".po_line_item_id", "unique", fmt.Sprintf("line already received in items[%d]", prev))
			continue
		}
		seen[item.POLineItemID] = i

		poLine, ok := po.FindItem(item.POLineItemID)
		if !ok {
			add(field+".po_line_item_id", "exists", "line item does not belong to the purchase order")
			continue
		}

		if !item.UnitPrice.IsPositive() {
			add(field+".unit_price", "gt", "unit_price must be greater than 0")
		}
		switch {
		case item.TaxPercentage == nil:
			add(field+".tax_percentage", "required", "tax_percentage is required")
		case item.TaxPercentage.IsNegative():
			add(field+".tax_percentage", "gte", "tax_percentage must not be negative")
		}
		if item.Discount.IsNegative() {
			add(field+".discount", "gte", "discount must not be negative")
		}
		if !item.DiscountType.Valid() {
			add(field+".discount_type", "oneof", "discount_type must be percentage or amount")
		} else if item.DiscountType == pricing.DiscountPercentage && item.Discount.GreaterThan(hundred) {
			add(field+".discount", "lte", "percentage discount must not exceed 100")
		}
		if item.ExpiryDate == nil {
			add(field+".expiry_date", "required", "expiry_date is required")
		} else if item.MfgDate != nil && item.ExpiryDate.Before(*item.MfgDate) {
			add(field+".expiry_date", "gtefield", "expiry_date must not precede mfg_date")
		}
		if item.ReceivedQuantity > poLine.PendingQuantity {
			v = append(v, apperror.Violation{
				Field:   field + ".received_quantity",
				Code:    apperror.CodeOverReceipt,
				Message: fmt.Sprintf("received %s exceeds pending %s", item.ReceivedQuantity, poLine.PendingQuantity),
			})
		}
	}

	if receiving == 0 {
		add("items", apperror.CodeEmptyReceipt, "at least one line must have received_quantity > 0")
	}
	return v
}

// Result is the outcome of a reconciliation. Nothing in it is persisted yet.
type Result struct {
	Receipt   *GoodsReceipt
	Order     *purchase_order.PurchaseOrder
	Action    purchase_order.Action
	Movements []entity.StockMovement
	Variances []PriceVariance
}

// Reconcile applies req to a copy of po. po itself is never modified, so a
// failure at any step leaves the caller's state untouched.
func Reconcile(po *purchase_order.PurchaseOrder, req Request, now time.Time) (*Result, error) {
	if err := purchase_order.CheckReceivable(po.Status); err != nil {
		return nil, err
	}
	if v := req.Validate(po); len(v) > 0 {
		return nil, apperror.NewReceiptValidation(v).
			WithDetail("purchase_order_id", po.ID.String())
	}

	order := po.Clone()
	grn := &GoodsReceipt{
		Document:            entity.NewDocument(now),
		PurchaseOrderID:     order.ID,
		PurchaseOrderNumber: order.Number,
		VendorID:            order.VendorID,
		WarehouseID:         order.WarehouseID,
		VendorInvoiceNo:     strings.TrimSpace(req.VendorInvoiceNo),
		VendorInvoiceDate:   req.VendorInvoiceDate,
		StockEntriesCreated: req.CreateStockEntries,
	}
	grn.Comment = req.Notes
	if !req.Date.IsZero() {
		grn.Date = req.Date
	}

	var results []pricing.LineResult
	for _, item := range req.Items {
		if !item.ReceivedQuantity.IsPositive() {
			continue
		}
		poLine, _ := order.FindItem(item.POLineItemID)
		if err := poLine.Receive(item.ReceivedQuantity); err != nil {
			return nil, err
		}

		res := pricing.CalculateLine(pricing.LineInput{
			Quantity:      item.ReceivedQuantity,
			UnitPrice:     item.UnitPrice,
			TaxPercentage: *item.TaxPercentage,
			Discount:      item.Discount,
			DiscountType:  item.DiscountType,
		})
		results = append(results, res)

		grn.Lines = append(grn.Lines, Line{
			ID:               id.New(),
			GoodsReceiptID:   grn.ID,
			LineNo:           len(grn.Lines) + 1,
			POLineItemID:     poLine.ID,
			ProductID:        poLine.ProductID,
			ProductName:      poLine.ProductName,
			ReceivedQuantity: item.ReceivedQuantity,
			RejectedQuantity: item.RejectedQuantity,
			AcceptedQuantity: item.ReceivedQuantity - item.RejectedQuantity,
			UnitPrice:        item.UnitPrice,
			OrderedUnitPrice: poLine.UnitPrice,
			TaxPercentage:    *item.TaxPercentage,
			Discount:         item.Discount,
			DiscountType:     item.DiscountType,
			NetSubtotal:      res.NetSubtotal,
			DiscountValue:    res.DiscountValue,
			TaxValue:         res.TaxValue,
			LineTotal:        res.LineTotal,
			BatchNo:          strings.TrimSpace(item.BatchNo),
			MfgDate:          item.MfgDate,
			ExpiryDate:       item.ExpiryDate,
		})
	}

	totals, err := pricing.SummarizeReceipt(results, req.ShippingCost)
	if err != nil {
		return nil, err
	}
	grn.Subtotal = totals.Subtotal
	grn.TaxAmount = totals.TaxAmount
	grn.ShippingCost = totals.ShippingCost
	grn.TotalAmount = totals.TotalAmount

	tc := order.TransitionContext()
	action := purchase_order.ActionReceivePartial
	if tc.FullyReceived {
		action = purchase_order.ActionReceiveComplete
	}
	if _, err := order.Apply(action, tc, ""); err != nil {
		return nil, err
	}

	if err := order.CheckInvariants(); err != nil {
		return nil, err
	}
	if err := grn.CheckInvariants(); err != nil {
		return nil, err
	}

	result := &Result{
		Receipt:   grn,
		Order:     order,
		Action:    action,
		Variances: grn.Variances(),
	}
	if req.CreateStockEntries {
		result.Movements = Movements(grn, now)
	}
	return result, nil
}

// Movements builds one receipt movement per accepted line.
func Movements(grn *GoodsReceipt, now time.Time) []entity.StockMovement {
	accepted := grn.AcceptedLines()
	out := make([]entity.StockMovement, 0, len(accepted))
	for _, l := range accepted {
		m := entity.NewReceiptMovement(grn.ID, DocumentType, grn.Date, now)
		m.WarehouseID = grn.WarehouseID
		m.ProductID = l.ProductID
		m.BatchNo = l.BatchNo
		m.MfgDate = l.MfgDate
		m.ExpiryDate = l.ExpiryDate
		m.Quantity = l.AcceptedQuantity
		m.UnitPrice = l.UnitPrice
		out = append(out, m)
	}
	return out
}
