package dto

import (
	"time"

	"procura/internal/core/id"
	"procura/internal/core/types"
	"procura/internal/domain/documents/goods_receipt"
	"procura/internal/domain/pricing"
)

// ConvertToGRNRequest is the body of convert-to-grn. Quantity and price rules
// are checked by the reconciliation engine so that all violations come back together.
type ConvertToGRNRequest struct {
	GRNDate            *time.Time               `json:"grn_date"`
	VendorInvoiceNo    string                   `json:"vendor_invoice_no" binding:"max=100"`
	VendorInvoiceDate  *time.Time               `json:"vendor_invoice_date"`
	ShippingCost       types.Money              `json:"shipping_cost"`
	Notes              string                   `json:"notes" binding:"max=2000"`
	CreateStockEntries *bool                    `json:"create_stock_entries"`
	Items              []ReceiptLineItemRequest `json:"items" binding:"dive"`
}

// ReceiptLineItemRequest is the receipt of one PO line.
type ReceiptLineItemRequest struct {
	POLineItemID     string               `json:"po_line_item_id" binding:"required,uuid"`
	ReceivedQuantity types.Quantity       `json:"received_quantity"`
	RejectedQuantity types.Quantity       `json:"rejected_quantity"`
	UnitPrice        types.Money          `json:"unit_price"`
	TaxPercentage    *types.Money         `json:"tax_percentage"`
	Discount         types.Money          `json:"discount"`
	DiscountType     pricing.DiscountType `json:"discount_type"`
	BatchNo          string               `json:"batch_no" binding:"max=100"`
	MfgDate          *time.Time           `json:"mfg_date"`
	ExpiryDate       *time.Time           `json:"expiry_date"`
}

// ToRequest converts the body. Stock entries default to on.
func (r *ConvertToGRNRequest) ToRequest() goods_receipt.Request {
	req := goods_receipt.Request{
		VendorInvoiceNo:    r.VendorInvoiceNo,
		VendorInvoiceDate:  r.VendorInvoiceDate,
		ShippingCost:       r.ShippingCost,
		Notes:              r.Notes,
		CreateStockEntries: r.CreateStockEntries == nil || *r.CreateStockEntries,
		Items:              make([]goods_receipt.LineRequest, len(r.Items)),
	}
	if r.GRNDate != nil {
		req.Date = *r.GRNDate
	}
	for i, it := range r.Items {
		req.Items[i] = goods_receipt.LineRequest{
			POLineItemID:     id.MustParse(it.POLineItemID),
			ReceivedQuantity: it.ReceivedQuantity,
			RejectedQuantity: it.RejectedQuantity,
			UnitPrice:        it.UnitPrice,
			TaxPercentage:    it.TaxPercentage,
			Discount:         it.Discount,
			DiscountType:     it.DiscountType,
			BatchNo:          it.BatchNo,
			MfgDate:          it.MfgDate,
			ExpiryDate:       it.ExpiryDate,
		}
	}
	return req
}

// GoodsReceiptResponse is the GRN view.
type GoodsReceiptResponse struct {
	DocumentResponse
	GRNNumber           string                    `json:"grn_number"`
	GRNDate             time.Time                 `json:"grn_date"`
	PurchaseOrderID     string                    `json:"purchase_order_id"`
	PurchaseOrderNumber string                    `json:"purchase_order_number"`
	VendorID            string                    `json:"vendor_id"`
	WarehouseID         string                    `json:"warehouse_id"`
	VendorInvoiceNo     string                    `json:"vendor_invoice_no"`
	VendorInvoiceDate   *time.Time                `json:"vendor_invoice_date,omitempty"`
	Notes               string                    `json:"notes,omitempty"`
	Subtotal            string                    `json:"subtotal"`
	TaxAmount           string                    `json:"tax_amount"`
	ShippingCost        string                    `json:"shipping_cost"`
	TotalAmount         string                    `json:"total_amount"`
	ReceivedByID        string                    `json:"received_by_id"`
	StockEntriesCreated bool                      `json:"stock_entries_created"`
	Items               []ReceiptLineItemResponse `json:"items,omitempty"`
}

// ReceiptLineItemResponse is one GRN line.
type ReceiptLineItemResponse struct {
	ID               string     `json:"id"`
	LineNo           int        `json:"line_no"`
	POLineItemID     string     `json:"po_line_item_id"`
	ProductID        string     `json:"product_id"`
	ProductName      string     `json:"product_name,omitempty"`
	ReceivedQuantity string     `json:"received_quantity"`
	RejectedQuantity string     `json:"rejected_quantity"`
	AcceptedQuantity string     `json:"accepted_quantity"`
	UnitPrice        string     `json:"unit_price"`
	OrderedUnitPrice string     `json:"ordered_unit_price"`
	TaxPercentage    string     `json:"tax_percentage"`
	DiscountValue    string     `json:"discount_value"`
	TaxValue         string     `json:"tax_value"`
	LineTotal        string     `json:"line_total"`
	BatchNo          string     `json:"batch_no,omitempty"`
	MfgDate          *time.Time `json:"mfg_date,omitempty"`
	ExpiryDate       *time.Time `json:"expiry_date,omitempty"`
}

// FromGoodsReceipt builds the GRN view.
func FromGoodsReceipt(grn *goods_receipt.GoodsReceipt) GoodsReceiptResponse {
	resp := GoodsReceiptResponse{
		DocumentResponse:    FromDocument(grn.Document),
		GRNNumber:           grn.Number,
		GRNDate:             grn.Date,
		PurchaseOrderID:     grn.PurchaseOrderID.String(),
		PurchaseOrderNumber: grn.PurchaseOrderNumber,
		VendorID:            grn.VendorID.String(),
		WarehouseID:         grn.WarehouseID.String(),
		VendorInvoiceNo:     grn.VendorInvoiceNo,
		VendorInvoiceDate:   grn.VendorInvoiceDate,
		Notes:               grn.Comment,
		Subtotal:            types.FormatMoney(grn.Subtotal),
		TaxAmount:           types.FormatMoney(grn.TaxAmount),
		ShippingCost:        types.FormatMoney(grn.ShippingCost),
		TotalAmount:         types.FormatMoney(grn.TotalAmount),
		ReceivedByID:        grn.ReceivedByID,
		StockEntriesCreated: grn.StockEntriesCreated,
	}
	for _, l := range grn.Lines {
		resp.Items = append(resp.Items, ReceiptLineItemResponse{
			ID:               l.ID.String(),
			LineNo:           l.LineNo,
			POLineItemID:     l.POLineItemID.String(),
			ProductID:        l.ProductID.String(),
			ProductName:      l.ProductName,
			ReceivedQuantity: l.ReceivedQuantity.String(),
			RejectedQuantity: l.RejectedQuantity.String(),
			AcceptedQuantity: l.AcceptedQuantity.String(),
			UnitPrice:        types.FormatMoney(l.UnitPrice),
			OrderedUnitPrice: types.FormatMoney(l.OrderedUnitPrice),
			TaxPercentage:    l.TaxPercentage.String(),
			DiscountValue:    types.FormatMoney(l.DiscountValue),
			TaxValue:         types.FormatMoney(l.TaxValue),
			LineTotal:        types.FormatMoney(l.LineTotal),
			BatchNo:          l.BatchNo,
			MfgDate:          l.MfgDate,
			ExpiryDate:       l.ExpiryDate,
		})
	}
	return resp
}

// ConvertToGRNResponse returns both documents.
type ConvertToGRNResponse struct {
	GRN           GoodsReceiptResponse  `json:"grn"`
	PurchaseOrder PurchaseOrderResponse `json:"purchase_order"`
}

// GoodsReceiptListQuery filters the GRN list.
type GoodsReceiptListQuery struct {
	ListQuery
	PurchaseOrderID string     `form:"purchase_order_id" binding:"omitempty,uuid"`
	WarehouseID     string     `form:"warehouse_id" binding:"omitempty,uuid"`
	DateFrom        *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo          *time.Time `form:"date_to" time_format:"2006-01-02"`
}

// ToFilter converts the query.
func (q GoodsReceiptListQuery) ToFilter() goods_receipt.ListFilter {
	f := goods_receipt.ListFilter{
		ListFilter: q.ListQuery.ToFilter(),
		DateFrom:   q.DateFrom,
		DateTo:     q.DateTo,
	}
	if q.PurchaseOrderID != "" {
		poID := id.MustParse(q.PurchaseOrderID)
		f.PurchaseOrderID = &poID
	}
	if q.WarehouseID != "" {
		warehouseID := id.MustParse(q.WarehouseID)
		f.WarehouseID = &warehouseID
	}
	return f
}
