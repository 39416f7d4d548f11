// Package purchase_order provides the PurchaseOrder document: its workflow,
// pricing and persistence contract.
package purchase_order

import (
	"fmt"
	"strings"
	"time"

	"procura/internal/core/apperror"
	"procura/internal/core/entity"
	"procura/internal/core/id"
	"procura/internal/core/types"
	"procura/internal/domain/pricing"
)

// PurchaseOrder is a commitment to buy goods from a vendor.
// Status changes only through Apply.
type PurchaseOrder struct {
	entity.Document

	VendorID    id.ID  `db:"vendor_id" json:"vendor_id"`
	VendorName  string `db:"vendor_name" json:"vendor_name,omitempty"`
	WarehouseID id.ID  `db:"warehouse_id" json:"warehouse_id"`

	Status Status `db:"status" json:"status"`

	PaymentTerms         string     `db:"payment_terms" json:"payment_terms,omitempty"`
	ExpectedDeliveryDate *time.Time `db:"expected_delivery_date" json:"expected_delivery_date,omitempty"`

	ShippingCost      types.Money `db:"shipping_cost" json:"shipping_cost"`
	Subtotal          types.Money `db:"subtotal" json:"subtotal"`
	TaxAmount         types.Money `db:"tax_amount" json:"tax_amount"`
	DiscountAmount    types.Money `db:"discount_amount" json:"discount_amount"`
	TotalAmount       types.Money `db:"total_amount" json:"total_amount"`
	PaidAmount        types.Money `db:"paid_amount" json:"paid_amount"`
	OutstandingAmount types.Money `db:"outstanding_amount" json:"outstanding_amount"`

	// Last workflow note (approval comment, rejection or cancellation reason).
	StatusNote string `db:"status_note" json:"status_note,omitempty"`

	Items []LineItem `db:"-" json:"items"`
}

// LineItem is one ordered product. Owned by exactly one PurchaseOrder.
type LineItem struct {
	ID              id.ID  `db:"id" json:"id"`
	PurchaseOrderID id.ID  `db:"purchase_order_id" json:"-"`
	LineNo          int    `db:"line_no" json:"line_no"`
	ProductID       id.ID  `db:"product_id" json:"product_id"`
	ProductName     string `db:"product_name" json:"product_name,omitempty"`

	Quantity         types.Quantity `db:"quantity" json:"quantity"`
	ReceivedQuantity types.Quantity `db:"received_quantity" json:"received_quantity"`
	PendingQuantity  types.Quantity `db:"pending_quantity" json:"pending_quantity"`

	UnitPrice     types.Money          `db:"unit_price" json:"unit_price"`
	TaxPercentage types.Money          `db:"tax_percentage" json:"tax_percentage"`
	Discount      types.Money          `db:"discount" json:"discount"`
	DiscountType  pricing.DiscountType `db:"discount_type" json:"discount_type"`

	NetSubtotal   types.Money `db:"net_subtotal" json:"net_subtotal"`
	DiscountValue types.Money `db:"discount_value" json:"discount_value"`
	TaxValue      types.Money `db:"tax_value" json:"tax_value"`
	LineTotal     types.Money `db:"line_total" json:"line_total"`
}

// NewPurchaseOrder creates an empty draft.
func NewPurchaseOrder(now time.Time) *PurchaseOrder {
	return &PurchaseOrder{
		Document:          entity.NewDocument(now),
		Status:            StatusDraft,
		ShippingCost:      types.Zero(),
		Subtotal:          types.Zero(),
		TaxAmount:         types.Zero(),
		DiscountAmount:    types.Zero(),
		TotalAmount:       types.Zero(),
		PaidAmount:        types.Zero(),
		OutstandingAmount: types.Zero(),
	}
}

// AddItem appends a line with a fresh id and zero received quantity.
func (po *PurchaseOrder) AddItem(item LineItem) {
	if id.IsNil(item.ID) {
		item.ID = id.New()
	}
	item.PurchaseOrderID = po.ID
	item.LineNo = len(po.Items) + 1
	item.ReceivedQuantity = 0
	item.PendingQuantity = item.Quantity
	po.Items = append(po.Items, item)
}

// PricingInput returns the calculator input for the ordered values.
func (li *LineItem) PricingInput() pricing.LineInput {
	return pricing.LineInput{
		Quantity:      li.Quantity,
		UnitPrice:     li.UnitPrice,
		TaxPercentage: li.TaxPercentage,
		Discount:      li.Discount,
		DiscountType:  li.DiscountType,
	}
}

// Receive adds qty to the cumulative received quantity.
func (li *LineItem) Receive(qty types.Quantity) error {
	if qty.IsNegative() {
		return apperror.NewConsistencyViolation("negative receipt quantity")
	}
	if qty > li.PendingQuantity {
		return apperror.NewConsistencyViolation(fmt.Sprintf(
			"line %d: receipt %s exceeds pending %s", li.LineNo, qty, li.PendingQuantity,
		))
	}
	li.ReceivedQuantity += qty
	li.PendingQuantity = li.Quantity - li.ReceivedQuantity
	return nil
}

// Validate checks header and every line, reporting all problems together.
func (po *PurchaseOrder) Validate() error {
	var violations []apperror.Violation
	if id.IsNil(po.VendorID) {
		violations = append(violations, apperror.Violation{Field: "vendor_id", Code: "required", Message: "vendor_id is required"})
	}
	if id.IsNil(po.WarehouseID) {
		violations = append(violations, apperror.Violation{Field: "warehouse_id", Code: "required", Message: "warehouse_id is required"})
	}
	if po.Date.IsZero() {
		violations = append(violations, apperror.Violation{Field: "po_date", Code: "required", Message: "po_date is required"})
	}
	if po.ShippingCost.IsNegative() {
		violations = append(violations, apperror.Violation{Field: "shipping_cost", Code: "gte", Message: "shipping_cost must not be negative"})
	}
	if po.ExpectedDeliveryDate != nil && !po.Date.IsZero() && po.ExpectedDeliveryDate.Before(truncateDay(po.Date)) {
		violations = append(violations, apperror.Violation{Field: "expected_delivery_date", Code: "gtefield", Message: "expected_delivery_date must not precede po_date"})
	}

	for i := range po.Items {
		field := fmt.Sprintf("items[%d]", i)
		if id.IsNil(po.Items[i].ProductID) {
			violations = append(violations, apperror.Violation{Field: field + ".product_id", Code: "required", Message: "product_id is required"})
		}
		violations = append(violations, po.Items[i].PricingInput().Validate(field)...)
	}

	if len(violations) > 0 {
		return apperror.NewValidationList("Purchase order failed validation", violations)
	}
	return nil
}

// Recalculate prices every line and refreshes header totals and outstanding.
func (po *PurchaseOrder) Recalculate() error {
	results := make([]pricing.LineResult, len(po.Items))
	for i := range po.Items {
		li := &po.Items[i]
		res := pricing.CalculateLine(li.PricingInput())
		li.NetSubtotal = res.NetSubtotal
		li.DiscountValue = res.DiscountValue
		li.TaxValue = res.TaxValue
		li.LineTotal = res.LineTotal
		results[i] = res
	}

	totals := pricing.Aggregate(results)
	po.Subtotal = totals.Subtotal
	po.TaxAmount = totals.TaxAmount
	po.DiscountAmount = totals.DiscountAmount
	po.TotalAmount = totals.TotalAmount
	po.ShippingCost = types.RoundMoney(po.ShippingCost)

	return po.refreshOutstanding()
}

// AddPayment increases paid_amount. Paying more than the total is an invariant breach.
func (po *PurchaseOrder) AddPayment(amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewValidationList("Payment failed validation", []apperror.Violation{{
			Field: "amount", Code: "gt", Message: "amount must be greater than 0",
		}})
	}
	po.PaidAmount = types.RoundMoney(po.PaidAmount.Add(amount))
	return po.refreshOutstanding()
}

func (po *PurchaseOrder) refreshOutstanding() error {
	out, err := pricing.Outstanding(po.TotalAmount, po.PaidAmount)
	if err != nil {
		return err
	}
	po.OutstandingAmount = out
	return nil
}

// TransitionContext gathers the facts the workflow guard needs.
func (po *PurchaseOrder) TransitionContext() TransitionContext {
	tc := TransitionContext{Lines: len(po.Items), FullyReceived: len(po.Items) > 0}
	for _, li := range po.Items {
		if id.IsNil(li.ProductID) || !li.Quantity.IsPositive() || !li.UnitPrice.IsPositive() {
			tc.IncompleteLines++
		}
		if li.PendingQuantity != 0 {
			tc.FullyReceived = false
		}
	}
	return tc
}

// Apply runs action through the workflow guard and stores the resulting status.
// note is kept as StatusNote when non-empty.
func (po *PurchaseOrder) Apply(action Action, tc TransitionContext, note string) (Status, error) {
	next, err := Transition(po.Status, action, tc)
	if err != nil {
		return po.Status, err
	}
	prev := po.Status
	po.Status = next
	if strings.TrimSpace(note) != "" {
		po.StatusNote = strings.TrimSpace(note)
	}
	return prev, nil
}

// HasReceipts reports whether any goods were received, i.e. a GRN references the PO.
func (po *PurchaseOrder) HasReceipts() bool {
	for _, li := range po.Items {
		if li.ReceivedQuantity > 0 {
			return true
		}
	}
	return false
}

// FindItem returns the line with the given id.
func (po *PurchaseOrder) FindItem(lineID id.ID) (*LineItem, bool) {
	for i := range po.Items {
		if po.Items[i].ID == lineID {
			return &po.Items[i], true
		}
	}
	return nil, false
}

// CheckInvariants verifies quantity conservation, total reconciliation and
// outstanding non-negativity. Any failure is fatal.
func (po *PurchaseOrder) CheckInvariants() error {
	lineTotals := make([]types.Money, len(po.Items))
	for i, li := range po.Items {
		if li.ReceivedQuantity < 0 || li.ReceivedQuantity > li.Quantity {
			return apperror.NewConsistencyViolation(fmt.Sprintf(
				"line %d: received %s outside [0, %s]", li.LineNo, li.ReceivedQuantity, li.Quantity,
			)).WithDetail("purchase_order_id", po.ID.String())
		}
		if li.ReceivedQuantity+li.PendingQuantity != li.Quantity {
			return apperror.NewConsistencyViolation(fmt.Sprintf(
				"line %d: received + pending != quantity", li.LineNo,
			)).WithDetail("purchase_order_id", po.ID.String())
		}
		lineTotals[i] = li.LineTotal
	}

	if err := pricing.VerifyTotals(lineTotals, pricing.Totals{
		Subtotal:    po.Subtotal,
		TaxAmount:   po.TaxAmount,
		TotalAmount: po.TotalAmount,
	}); err != nil {
		return err
	}

	out, err := pricing.Outstanding(po.TotalAmount, po.PaidAmount)
	if err != nil {
		return err
	}
	if !out.Equal(po.OutstandingAmount) {
		return apperror.NewConsistencyViolation("outstanding_amount does not equal total_amount - paid_amount").
			WithDetail("purchase_order_id", po.ID.String())
	}
	return nil
}

// Clone returns a deep copy so a receipt can be reconciled without touching the original.
func (po *PurchaseOrder) Clone() *PurchaseOrder {
	c := *po
	c.Items = append([]LineItem(nil), po.Items...)
	if po.ExpectedDeliveryDate != nil {
		d := *po.ExpectedDeliveryDate
		c.ExpectedDeliveryDate = &d
	}
	return &c
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
