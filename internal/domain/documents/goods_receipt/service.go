package goods_receipt

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"procura/internal/core/apperror"
	"procura/internal/core/id"
	"procura/internal/core/numerator"
	"procura/internal/core/types"
	"procura/internal/domain"
	"procura/internal/domain/audit"
	"procura/internal/domain/documents/purchase_order"
	"procura/internal/domain/events"
	"procura/pkg/logger"
)

var tracer = otel.Tracer("procura/goods_receipt")

// Config wires the collaborators of Service.
type Config struct {
	Orders    *purchase_order.Service
	Repo      Repository
	Ledger    StockLedger
	Numerator numerator.Generator
	Audit     audit.Recorder
	Events    events.Publisher
}

// Service converts purchase orders into goods receipts.
type Service struct {
	orders    *purchase_order.Service
	repo      Repository
	ledger    StockLedger
	numerator numerator.Generator
	audit     audit.Recorder
	events    events.Publisher
	hooks     *domain.HookRegistry[*GoodsReceipt]
}

// NewService creates a new goods receipt service.
func NewService(cfg Config) *Service {
	s := &Service{
		orders:    cfg.Orders,
		repo:      cfg.Repo,
		ledger:    cfg.Ledger,
		numerator: cfg.Numerator,
		audit:     cfg.Audit,
		events:    cfg.Events,
		hooks:     domain.NewHookRegistry[*GoodsReceipt](),
	}
	if s.audit == nil {
		s.audit = audit.Discard{}
	}
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*GoodsReceipt] {
	return s.hooks
}

// Conversion is the outcome of ConvertToGRN.
type Conversion struct {
	Receipt       *GoodsReceipt
	PurchaseOrder *purchase_order.PurchaseOrder
}

// ConvertToGRN records a receipt against a purchase order. The PO update, the
// GRN, its ledger movements, audit entry and outbox event commit together or
// not at all.
func (s *Service) ConvertToGRN(ctx context.Context, poID id.ID, req Request) (*Conversion, error) {
	ctx, span := tracer.Start(ctx, "goods_receipt.convert")
	span.SetAttributes(attribute.String("purchase_order.id", poID.String()))
	defer span.End()

	var grn *GoodsReceipt
	po, err := s.orders.Mutate(ctx, poID, func(ctx context.Context, po *purchase_order.PurchaseOrder) error {
		now := s.orders.Now()
		res, err := Reconcile(po, req, now)
		if err != nil {
			return err
		}
		grn = res.Receipt
		audit.StampCreated(ctx, &grn.BaseDocument)
		grn.ReceivedByID = audit.Actor(ctx)

		if err := s.hooks.Run(ctx, domain.BeforeCreate, grn); err != nil {
			return err
		}

		number, err := s.numerator.GetNextNumber(ctx, numerator.GoodsReceipt, grn.Date)
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		grn.Number = number

		if err := s.repo.Create(ctx, grn); err != nil {
			return fmt.Errorf("create goods receipt: %w", err)
		}
		if err := s.repo.SaveLines(ctx, grn.ID, grn.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		if len(res.Movements) > 0 {
			if s.ledger == nil {
				return apperror.NewInternal(fmt.Errorf("stock ledger is not configured"))
			}
			if err := s.ledger.RecordReceipt(ctx, res.Movements); err != nil {
				return fmt.Errorf("record stock movements: %w", err)
			}
		}

		if err := s.audit.Record(ctx, audit.Entry{
			EntityType: events.AggregateGoodsReceipt,
			EntityID:   grn.ID,
			Action:     audit.ActionReceive,
			Changes:    receiptSnapshot(grn),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}

		if err := s.publish(ctx, grn, res); err != nil {
			return err
		}

		*po = *res.Order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, grn); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "goods received",
		"grn_id", grn.ID,
		"grn_number", grn.Number,
		"purchase_order_id", po.ID,
		"po_status", po.Status,
		"total_amount", types.FormatMoney(grn.TotalAmount))

	return &Conversion{Receipt: grn, PurchaseOrder: po}, nil
}

// Get retrieves a goods receipt with lines.
func (s *Service) Get(ctx context.Context, grnID id.ID) (*GoodsReceipt, error) {
	grn, err := s.repo.GetByID(ctx, grnID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, grnID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	grn.Lines = lines
	return grn, nil
}

// List retrieves goods receipt headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*GoodsReceipt], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// GoodsReceivedPayload is the body of the GoodsReceived event.
type GoodsReceivedPayload struct {
	GoodsReceiptID      id.ID                 `json:"goods_receipt_id"`
	GoodsReceiptNumber  string                `json:"goods_receipt_number"`
	PurchaseOrderID     id.ID                 `json:"purchase_order_id"`
	PurchaseOrderNumber string                `json:"purchase_order_number"`
	PurchaseOrderStatus purchase_order.Status `json:"purchase_order_status"`
	WarehouseID         id.ID                 `json:"warehouse_id"`
	TotalAmount         types.Money           `json:"total_amount"`
	ReceivedAt          time.Time             `json:"received_at"`
	Lines               []AcceptedLine        `json:"lines"`
	Variances           []PriceVariance       `json:"variances,omitempty"`
}

// AcceptedLine is the event view of a received line.
type AcceptedLine struct {
	ProductID        id.ID          `json:"product_id"`
	BatchNo          string         `json:"batch_no,omitempty"`
	AcceptedQuantity types.Quantity `json:"accepted_quantity"`
	RejectedQuantity types.Quantity `json:"rejected_quantity"`
	UnitPrice        types.Money    `json:"unit_price"`
}

func (s *Service) publish(ctx context.Context, grn *GoodsReceipt, res *Result) error {
	if s.events == nil {
		return nil
	}
	payload := GoodsReceivedPayload{
		GoodsReceiptID:      grn.ID,
		GoodsReceiptNumber:  grn.Number,
		PurchaseOrderID:     res.Order.ID,
		PurchaseOrderNumber: res.Order.Number,
		PurchaseOrderStatus: res.Order.Status,
		WarehouseID:         grn.WarehouseID,
		TotalAmount:         grn.TotalAmount,
		ReceivedAt:          grn.CreatedAt,
		Variances:           res.Variances,
	}
	for _, l := range grn.Lines {
		payload.Lines = append(payload.Lines, AcceptedLine{
			ProductID:        l.ProductID,
			BatchNo:          l.BatchNo,
			AcceptedQuantity: l.AcceptedQuantity,
			RejectedQuantity: l.RejectedQuantity,
			UnitPrice:        l.UnitPrice,
		})
	}

	if err := s.events.Publish(ctx, events.Event{
		AggregateType: events.AggregateGoodsReceipt,
		AggregateID:   grn.ID,
		EventType:     events.GoodsReceived,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", events.GoodsReceived, err)
	}
	return nil
}

func receiptSnapshot(grn *GoodsReceipt) map[string]any {
	lines := make([]map[string]any, len(grn.Lines))
	for i, l := range grn.Lines {
		lines[i] = map[string]any{
			"po_line_item_id":   l.POLineItemID,
			"received_quantity": l.ReceivedQuantity.String(),
			"rejected_quantity": l.RejectedQuantity.String(),
			"unit_price":        types.FormatMoney(l.UnitPrice),
			"line_total":        types.FormatMoney(l.LineTotal),
			"batch_no":          l.BatchNo,
		}
	}
	return map[string]any{
		"number":            grn.Number,
		"purchase_order_id": grn.PurchaseOrderID,
		"vendor_invoice_no": grn.VendorInvoiceNo,
		"total_amount":      types.FormatMoney(grn.TotalAmount),
		"items":             lines,
	}
}
