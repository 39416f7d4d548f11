// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"procura/internal/domain/documents/purchase_order"
	"procura/internal/infrastructure/http/v1/handlers"
	"procura/internal/infrastructure/http/v1/middleware"
)

// transitionRoutes are the workflow actions a client may request directly.
// Receipt actions are applied by convert-to-grn.
var transitionRoutes = []purchase_order.Action{
	purchase_order.ActionSubmit,
	purchase_order.ActionApprove,
	purchase_order.ActionReject,
	purchase_order.ActionSend,
	purchase_order.ActionConfirm,
	purchase_order.ActionCancel,
	purchase_order.ActionClose,
}

// RegisterPurchaseOrderRoutes registers CRUD, workflow, payment and receipt routes
// of purchase orders. A non-empty approverRoles restricts approve and reject.
func RegisterPurchaseOrderRoutes(group *gin.RouterGroup, orders *handlers.PurchaseOrderHandler, receipts *handlers.GoodsReceiptHandler, approverRoles []string) {
	group.GET("", orders.List)
	group.POST("", orders.Create)
	group.GET("/:id", orders.Get)
	group.PUT("/:id", orders.Update)
	group.DELETE("/:id", orders.Delete)
	group.POST("/:id/archive", orders.Archive)

	for _, action := range transitionRoutes {
		chain := []gin.HandlerFunc{orders.Transition(action)}
		if len(approverRoles) > 0 && (action == purchase_order.ActionApprove || action == purchase_order.ActionReject) {
			chain = append([]gin.HandlerFunc{middleware.RequireRole(approverRoles...)}, chain...)
		}
		group.PATCH("/:id/"+string(action), chain...)
	}

	group.POST("/:id/payments", orders.RecordPayment)
	group.POST("/:id/convert-to-grn", receipts.Convert)
}

// RegisterReceiptRoutes registers the read-only receipt routes.
func RegisterReceiptRoutes(group *gin.RouterGroup, receipts *handlers.GoodsReceiptHandler) {
	group.GET("", receipts.List)
	group.GET("/:id", receipts.Get)
}
