package dto

import (
	"slices"
	"time"

	"procura/internal/core/id"
	"procura/internal/core/types"
	"procura/internal/domain/documents/purchase_order"
	"procura/internal/domain/pricing"
)

// PurchaseOrderRequest is the body of create and update.
type PurchaseOrderRequest struct {
	VendorID             string            `json:"vendor_id" binding:"required,uuid"`
	WarehouseID          string            `json:"warehouse_id" binding:"required,uuid"`
	PODate               *time.Time        `json:"po_date"`
	ExpectedDeliveryDate *time.Time        `json:"expected_delivery_date"`
	PaymentTerms         string            `json:"payment_terms" binding:"max=255"`
	ShippingCost         types.Money       `json:"shipping_cost"`
	Notes                string            `json:"notes" binding:"max=2000"`
	Items                []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	Status               *string           `json:"status" binding:"isdefault"`
	Version              int               `json:"version" binding:"omitempty,min=1"`
}

// LineItemRequest is one ordered line.
type LineItemRequest struct {
	ID            string               `json:"id" binding:"omitempty,uuid"`
	ProductID     string               `json:"product_id" binding:"required,uuid"`
	Quantity      types.Quantity       `json:"quantity"`
	UnitPrice     types.Money          `json:"unit_price"`
	TaxPercentage types.Money          `json:"tax_percentage"`
	Discount      types.Money          `json:"discount"`
	DiscountType  pricing.DiscountType `json:"discount_type" binding:"omitempty,oneof=percentage amount"`
}

func (r *PurchaseOrderRequest) items() []purchase_order.LineItem {
	out := make([]purchase_order.LineItem, len(r.Items))
	for i, it := range r.Items {
		lineID, _ := id.Parse(it.ID)
		out[i] = purchase_order.LineItem{
			ID:            lineID,
			ProductID:     id.MustParse(it.ProductID),
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			TaxPercentage: it.TaxPercentage,
			Discount:      it.Discount,
			DiscountType:  it.DiscountType,
		}
	}
	return out
}

// ToEntity converts a validated create request into a draft.
func (r *PurchaseOrderRequest) ToEntity() *purchase_order.PurchaseOrder {
	po := &purchase_order.PurchaseOrder{
		VendorID:             id.MustParse(r.VendorID),
		WarehouseID:          id.MustParse(r.WarehouseID),
		PaymentTerms:         r.PaymentTerms,
		ExpectedDeliveryDate: r.ExpectedDeliveryDate,
		ShippingCost:         r.ShippingCost,
		Items:                r.items(),
	}
	po.Comment = r.Notes
	if r.PODate != nil {
		po.Date = *r.PODate
	}
	return po
}

// ToUpdateInput converts a validated update request.
func (r *PurchaseOrderRequest) ToUpdateInput() purchase_order.UpdateInput {
	in := purchase_order.UpdateInput{
		Version:              r.Version,
		VendorID:             id.MustParse(r.VendorID),
		WarehouseID:          id.MustParse(r.WarehouseID),
		PaymentTerms:         r.PaymentTerms,
		ExpectedDeliveryDate: r.ExpectedDeliveryDate,
		ShippingCost:         r.ShippingCost,
		Comment:              r.Notes,
		Items:                r.items(),
	}
	if r.PODate != nil {
		in.Date = *r.PODate
	}
	return in
}

// TransitionRequest is the optional body of a workflow action.
type TransitionRequest struct {
	Comments       string `json:"comments" binding:"max=2000"`
	Reason         string `json:"reason" binding:"max=2000"`
	Administrative bool   `json:"administrative"`
}

// ToInput converts the request.
func (r TransitionRequest) ToInput() purchase_order.TransitionInput {
	return purchase_order.TransitionInput{
		Comments:       r.Comments,
		Reason:         r.Reason,
		Administrative: r.Administrative,
	}
}

// PaymentRequest records money paid to the vendor.
type PaymentRequest struct {
	Amount *types.Money `json:"amount" binding:"required"`
}

// PurchaseOrderResponse is the PO view.
type PurchaseOrderResponse struct {
	DocumentResponse
	PONumber             string             `json:"po_number"`
	PODate               time.Time          `json:"po_date"`
	CreatedByID          string             `json:"created_by_id,omitempty"`
	VendorID             string             `json:"vendor_id"`
	VendorName           string             `json:"vendor_name,omitempty"`
	WarehouseID          string             `json:"warehouse_id"`
	Status               string             `json:"status"`
	AllowedActions       []string           `json:"allowed_actions"`
	PaymentTerms         string             `json:"payment_terms,omitempty"`
	ExpectedDeliveryDate *time.Time         `json:"expected_delivery_date,omitempty"`
	Notes                string             `json:"notes,omitempty"`
	StatusNote           string             `json:"status_note,omitempty"`
	Subtotal             string             `json:"subtotal"`
	DiscountAmount       string             `json:"discount_amount"`
	TaxAmount            string             `json:"tax_amount"`
	ShippingCost         string             `json:"shipping_cost"`
	TotalAmount          string             `json:"total_amount"`
	PaidAmount           string             `json:"paid_amount"`
	OutstandingAmount    string             `json:"outstanding_amount"`
	Items                []LineItemResponse `json:"items,omitempty"`
}

// LineItemResponse is one PO line.
type LineItemResponse struct {
	ID               string `json:"id"`
	LineNo           int    `json:"line_no"`
	ProductID        string `json:"product_id"`
	ProductName      string `json:"product_name,omitempty"`
	Quantity         string `json:"quantity"`
	ReceivedQuantity string `json:"received_quantity"`
	PendingQuantity  string `json:"pending_quantity"`
	UnitPrice        string `json:"unit_price"`
	TaxPercentage    string `json:"tax_percentage"`
	Discount         string `json:"discount"`
	DiscountType     string `json:"discount_type"`
	NetSubtotal      string `json:"net_subtotal"`
	DiscountValue    string `json:"discount_value"`
	TaxValue         string `json:"tax_value"`
	LineTotal        string `json:"line_total"`
}

// FromPurchaseOrder builds the PO view.
func FromPurchaseOrder(po *purchase_order.PurchaseOrder) PurchaseOrderResponse {
	actions := purchase_order.AllowedActions(po.Status)
	allowed := make([]string, 0, len(actions))
	for _, a := range actions {
		allowed = append(allowed, string(a))
	}
	slices.Sort(allowed)

	resp := PurchaseOrderResponse{
		DocumentResponse:     FromDocument(po.Document),
		PONumber:             po.Number,
		PODate:               po.Date,
		CreatedByID:          po.CreatedBy,
		VendorID:             po.VendorID.String(),
		VendorName:           po.VendorName,
		WarehouseID:          po.WarehouseID.String(),
		Status:               string(po.Status),
		AllowedActions:       allowed,
		PaymentTerms:         po.PaymentTerms,
		ExpectedDeliveryDate: po.ExpectedDeliveryDate,
		Notes:                po.Comment,
		StatusNote:           po.StatusNote,
		Subtotal:             types.FormatMoney(po.Subtotal),
		DiscountAmount:       types.FormatMoney(po.DiscountAmount),
		TaxAmount:            types.FormatMoney(po.TaxAmount),
		ShippingCost:         types.FormatMoney(po.ShippingCost),
		TotalAmount:          types.FormatMoney(po.TotalAmount),
		PaidAmount:           types.FormatMoney(po.PaidAmount),
		OutstandingAmount:    types.FormatMoney(po.OutstandingAmount),
	}
	for _, li := range po.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			ID:               li.ID.String(),
			LineNo:           li.LineNo,
			ProductID:        li.ProductID.String(),
			ProductName:      li.ProductName,
			Quantity:         li.Quantity.String(),
			ReceivedQuantity: li.ReceivedQuantity.String(),
			PendingQuantity:  li.PendingQuantity.String(),
			UnitPrice:        types.FormatMoney(li.UnitPrice),
			TaxPercentage:    li.TaxPercentage.String(),
			Discount:         li.Discount.String(),
			DiscountType:     string(li.DiscountType),
			NetSubtotal:      types.FormatMoney(li.NetSubtotal),
			DiscountValue:    types.FormatMoney(li.DiscountValue),
			TaxValue:         types.FormatMoney(li.TaxValue),
			LineTotal:        types.FormatMoney(li.LineTotal),
		})
	}
	return resp
}

// PurchaseOrderListQuery filters the PO list.
type PurchaseOrderListQuery struct {
	ListQuery
	Status   []string `form:"status" binding:"omitempty,dive,oneof=draft pending_approval approved rejected sent confirmed partially_received fully_received cancelled closed"`
	VendorID string   `form:"vendor_id" binding:"omitempty,uuid"`
}

// ToFilter converts the query.
func (q PurchaseOrderListQuery) ToFilter() purchase_order.ListFilter {
	f := purchase_order.ListFilter{ListFilter: q.ListQuery.ToFilter()}
	for _, s := range q.Status {
		f.Statuses = append(f.Statuses, purchase_order.Status(s))
	}
	if q.VendorID != "" {
		vendorID := id.MustParse(q.VendorID)
		f.VendorID = &vendorID
	}
	return f
}
