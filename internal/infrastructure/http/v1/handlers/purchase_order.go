package handlers

import (
	"github.com/gin-gonic/gin"

	"procura/internal/domain/documents/purchase_order"
	"procura/internal/infrastructure/http/v1/dto"
)

// PurchaseOrderHandler handles HTTP requests for purchase orders.
type PurchaseOrderHandler struct {
	*BaseHandler
	service *purchase_order.Service
}

// NewPurchaseOrderHandler creates a new purchase order handler.
func NewPurchaseOrderHandler(base *BaseHandler, service *purchase_order.Service) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{BaseHandler: base, service: service}
}

// List handles GET /purchase_orders.
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var q dto.PurchaseOrderListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	result, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(result, dto.FromPurchaseOrder))
}

// Create handles POST /purchase_orders.
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req dto.PurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	po := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), po); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromPurchaseOrder(po))
}

// Get handles GET /purchase_orders/:id.
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	po, err := h.service.Get(c.Request.Context(), poID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPurchaseOrder(po))
}

// Update handles PUT /purchase_orders/:id.
func (h *PurchaseOrderHandler) Update(c *gin.Context) {
	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.PurchaseOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	po, err := h.service.Update(c.Request.Context(), poID, req.ToUpdateInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPurchaseOrder(po))
}

// Delete handles DELETE /purchase_orders/:id. Only editable POs without
// receipts can be deleted; others must be archived.
func (h *PurchaseOrderHandler) Delete(c *gin.Context) {
	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), poID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Archive handles POST /purchase_orders/:id/archive.
func (h *PurchaseOrderHandler) Archive(c *gin.Context) {
	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Archive(c.Request.Context(), poID); err != nil {
		h.Error(c, err)
		return
	}

	h.NoContent(c)
}

// Transition returns the handler of PATCH /purchase_orders/:id/<action>.
func (h *PurchaseOrderHandler) Transition(action purchase_order.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		poID, ok := h.ParseID(c, "id")
		if !ok {
			return
		}

		var req dto.TransitionRequest
		if !h.BindOptionalJSON(c, &req) {
			return
		}

		po, err := h.service.Transition(c.Request.Context(), poID, action, req.ToInput())
		if err != nil {
			h.Error(c, err)
			return
		}

		h.OK(c, dto.FromPurchaseOrder(po))
	}
}

// RecordPayment handles POST /purchase_orders/:id/payments.
func (h *PurchaseOrderHandler) RecordPayment(c *gin.Context) {
	poID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	po, err := h.service.RecordPayment(c.Request.Context(), poID, *req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPurchaseOrder(po))
}
