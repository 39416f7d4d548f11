package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"procura/internal/core/types"
	"procura/internal/domain/documents/goods_receipt"
	"procura/pkg/logger"
)

// Handlers processes procurement tasks.
type Handlers struct {
	log *logger.Logger
}

// NewHandlers creates task handlers logging through log.
func NewHandlers(log *logger.Logger) *Handlers {
	return &Handlers{log: log.WithComponent("jobs")}
}

// Register mounts every handler on mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskGoodsReceived, h.HandleGoodsReceived)
	mux.HandleFunc(TaskPOStatusChanged, h.HandleStatusChanged)
	mux.HandleFunc(TaskPOPaymentRecorded, h.HandleAudit)
	mux.HandleFunc(TaskPurchaseOrderAdded, h.HandleAudit)
}

// HandleGoodsReceived flags receipts whose prices differ from the order.
// Payables are not adjusted here.
func (h *Handlers) HandleGoodsReceived(ctx context.Context, t *asynq.Task) error {
	var payload goods_receipt.GoodsReceivedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}

	log := h.log.With(
		"goods_receipt", payload.GoodsReceiptNumber,
		"purchase_order", payload.PurchaseOrderNumber,
	)
	log.Infow("goods received",
		"po_status", payload.PurchaseOrderStatus,
		"lines", len(payload.Lines),
		"total_amount", types.FormatMoney(payload.TotalAmount))

	variance := types.Zero()
	for _, v := range payload.Variances {
		variance = variance.Add(v.Amount)
		log.Warnw("price variance",
			"product_id", v.ProductID,
			"ordered_unit_price", types.FormatMoney(v.OrderedUnitPrice),
			"received_unit_price", types.FormatMoney(v.ReceivedUnitPrice),
			"quantity", v.Quantity.String(),
			"amount", types.FormatMoney(v.Amount))
	}
	if len(payload.Variances) > 0 {
		log.Warnw("receipt price variance total", "amount", types.FormatMoney(variance))
	}
	return nil
}

type statusChange struct {
	Number string `json:"number"`
	From   string `json:"from"`
	To     string `json:"to"`
	Note   string `json:"note"`
}

// HandleStatusChanged logs a purchase order transition.
func (h *Handlers) HandleStatusChanged(ctx context.Context, t *asynq.Task) error {
	var change statusChange
	if err := json.Unmarshal(t.Payload(), &change); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	h.log.Infow("purchase order transition",
		"number", change.Number, "from", change.From, "to", change.To, "note", change.Note)
	return nil
}

// HandleAudit records that the event reached the worker.
func (h *Handlers) HandleAudit(ctx context.Context, t *asynq.Task) error {
	if !json.Valid(t.Payload()) {
		return fmt.Errorf("decode %s: invalid json: %w", t.Type(), asynq.SkipRetry)
	}
	h.log.Debugw("procurement event", "task", t.Type(), "bytes", len(t.Payload()))
	return nil
}
