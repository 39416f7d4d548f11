package handlers

import (
	"github.com/gin-gonic/gin"

	"procura/internal/domain/documents/goods_receipt"
	"procura/internal/infrastructure/http/v1/dto"
)

// GoodsReceiptHandler handles receipts against purchase orders.
type GoodsReceiptHandler struct {
	*BaseHandler
	service *goods_receipt.Service
}

// NewGoodsReceiptHandler creates a new goods receipt handler.
func NewGoodsReceiptHandler(base *BaseHandler, service *goods_receipt.Service) *GoodsReceiptHandler {
	return &GoodsReceiptHandler{BaseHandler: base, service: service}
}

// Convert handles POST /purchase_orders/:id/convert-to-grn.
func (h *GoodsReceiptHandler) Convert(c *gin.Context) {
	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ConvertToGRNRequest
	if !h.BindJSON(c, &req) {
		return
	}

	conv, err := h.service.ConvertToGRN(c.Request.Context(), poID, req.ToRequest())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.ConvertToGRNResponse{
		GRN:           dto.FromGoodsReceipt(conv.Receipt),
		PurchaseOrder: dto.FromPurchaseOrder(conv.PurchaseOrder),
	})
}

// List handles GET /purchase_order_receipts.
func (h *GoodsReceiptHandler) List(c *gin.Context) {
	var q dto.GoodsReceiptListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, dto.FromGoodsReceipt))
}

// Get handles GET /purchase_order_receipts/:id.
func (h *GoodsReceiptHandler) Get(c *gin.Context) {
	grnID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	grn, err := h.service.Get(c.Request.Context(), grnID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromGoodsReceipt(grn))
}
