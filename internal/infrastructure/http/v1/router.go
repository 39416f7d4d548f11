package v1

import (
	"github.com/gin-gonic/gin"

	"procura/internal/domain/documents/goods_receipt"
	"procura/internal/domain/documents/purchase_order"
	"procura/internal/infrastructure/http/v1/handlers"
	"procura/internal/infrastructure/http/v1/middleware"
	"procura/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Idempotency stores responses of mutating requests. Nil disables the middleware.
	Idempotency middleware.IdempotencyStore

	// ApproverRoles restricts approve/reject. Empty allows any authenticated user.
	ApproverRoles []string

	Orders   *purchase_order.Service
	Receipts *goods_receipt.Service

	// HealthChecks are pinged by /health/ready.
	HealthChecks map[string]handlers.Pinger
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator)) // 1. Validate JWT
		protected.Use(middleware.UserContext())          // 2. Add user to context for domain layer

		// 3. Idempotency keys are scoped per user, so this runs after auth.
		if cfg.Idempotency != nil {
			protected.Use(middleware.Idempotency(cfg.Idempotency))
		}

		base := handlers.NewBaseHandler()
		orders := handlers.NewPurchaseOrderHandler(base, cfg.Orders)
		receipts := handlers.NewGoodsReceiptHandler(base, cfg.Receipts)

		RegisterPurchaseOrderRoutes(protected.Group("/purchase_orders"), orders, receipts, cfg.ApproverRoles)
		RegisterReceiptRoutes(protected.Group("/purchase_order_receipts"), receipts)
	}

	return router
}
