package purchase_order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"procura/internal/core/apperror"
	"procura/internal/core/id"
	"procura/internal/core/lock"
	"procura/internal/core/numerator"
	"procura/internal/core/tx"
	"procura/internal/core/types"
	"procura/internal/domain"
	"procura/internal/domain/audit"
	"procura/internal/domain/catalogs"
	"procura/internal/domain/events"
	"procura/pkg/logger"
)

const entityName = "purchase order"

var tracer = otel.Tracer("procura/purchase_order")

// Config wires the collaborators of Service. Clock defaults to time.Now in UTC.
type Config struct {
	Repo      Repository
	Catalogs  catalogs.Lookup
	Numerator numerator.Generator
	TxManager tx.Manager
	Locker    lock.Locker
	Audit     audit.Recorder
	Events    events.Publisher
	Clock     func() time.Time
}

// Service provides business operations for purchase orders.
type Service struct {
	repo      Repository
	catalogs  catalogs.Lookup
	numerator numerator.Generator
	txManager tx.Manager
	locker    lock.Locker
	audit     audit.Recorder
	events    events.Publisher
	clock     func() time.Time
	hooks     *domain.HookRegistry[*PurchaseOrder]
}

// NewService creates a new purchase order service.
func NewService(cfg Config) *Service {
	s := &Service{
		repo:      cfg.Repo,
		catalogs:  cfg.Catalogs,
		numerator: cfg.Numerator,
		txManager: cfg.TxManager,
		locker:    cfg.Locker,
		audit:     cfg.Audit,
		events:    cfg.Events,
		clock:     cfg.Clock,
		hooks:     domain.NewHookRegistry[*PurchaseOrder](),
	}
	if s.clock == nil {
		s.clock = func() time.Time { return time.Now().UTC() }
	}
	if s.locker == nil {
		s.locker = lock.NewKeyedMutex()
	}
	if s.audit == nil {
		s.audit = audit.Discard{}
	}
	if s.txManager == nil {
		s.txManager = tx.Passthrough{}
	}
	return s
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*PurchaseOrder] {
	return s.hooks
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.clock()
}

// Create stores a new draft. Status on the input is ignored; every PO starts as draft.
func (s *Service) Create(ctx context.Context, po *PurchaseOrder) error {
	now := s.clock()
	if id.IsNil(po.ID) {
		po.ID = id.New()
		po.Version = 1
	}
	po.Status = StatusDraft
	po.PaidAmount = types.Zero()
	po.CreatedAt, po.UpdatedAt = now, now
	if po.Date.IsZero() {
		po.Date = now
	}
	for i := range po.Items {
		po.Items[i].PurchaseOrderID = po.ID
		po.Items[i].LineNo = i + 1
		po.Items[i].ReceivedQuantity = 0
		po.Items[i].PendingQuantity = po.Items[i].Quantity
		if id.IsNil(po.Items[i].ID) {
			po.Items[i].ID = id.New()
		}
	}

	if err := s.hooks.Run(ctx, domain.BeforeCreate, po); err != nil {
		return err
	}
	if err := po.Validate(); err != nil {
		return err
	}
	if err := s.resolveReferences(ctx, po); err != nil {
		return err
	}
	if err := po.Recalculate(); err != nil {
		return err
	}
	audit.StampCreated(ctx, &po.BaseDocument)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Numbered inside the transaction so a rollback does not burn a number.
		if po.Number == "" {
			number, err := s.numerator.GetNextNumber(ctx, numerator.PurchaseOrder, po.Date)
			if err != nil {
				return fmt.Errorf("generate number: %w", err)
			}
			po.Number = number
		}
		if err := s.repo.Create(ctx, po); err != nil {
			return fmt.Errorf("create purchase order: %w", err)
		}
		if err := s.repo.SaveLines(ctx, po.ID, po.Items); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		if err := s.audit.Record(ctx, audit.Entry{
			EntityType: events.AggregatePurchaseOrder,
			EntityID:   po.ID,
			Action:     audit.ActionCreate,
			Changes:    snapshot(po),
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		return s.publish(ctx, po.ID, events.PurchaseOrderCreated, map[string]any{
			"number":       po.Number,
			"vendor_id":    po.VendorID,
			"total_amount": types.FormatMoney(po.TotalAmount),
		})
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, po); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "purchase order created",
		"id", po.ID,
		"number", po.Number,
		"total_amount", types.FormatMoney(po.TotalAmount))

	return nil
}

// Get retrieves a purchase order with lines.
func (s *Service) Get(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	po, err := s.repo.GetByID(ctx, poID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, poID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	po.Items = lines
	return po, nil
}

// List returns purchase order headers.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseOrder], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// UpdateInput carries the editable fields of a purchase order.
type UpdateInput struct {
	Version              int
	Date                 time.Time
	VendorID             id.ID
	WarehouseID          id.ID
	PaymentTerms         string
	ExpectedDeliveryDate *time.Time
	ShippingCost         types.Money
	Comment              string
	Items                []LineItem
}

// Update replaces header and lines. Allowed only in draft or rejected and only
// before any goods were received. A rejected PO returns to draft.
func (s *Service) Update(ctx context.Context, poID id.ID, in UpdateInput) (*PurchaseOrder, error) {
	return s.Mutate(ctx, poID, func(ctx context.Context, po *PurchaseOrder) error {
		if in.Version != 0 && in.Version != po.Version {
			return apperror.NewConcurrentModification(entityName, poID).
				WithDetail("expected_version", in.Version).
				WithDetail("actual_version", po.Version)
		}
		if err := s.ensureEditable(po, "edit"); err != nil {
			return err
		}

		if !in.Date.IsZero() {
			po.Date = in.Date
		}
		po.VendorID = in.VendorID
		po.WarehouseID = in.WarehouseID
		po.PaymentTerms = in.PaymentTerms
		po.ExpectedDeliveryDate = in.ExpectedDeliveryDate
		po.ShippingCost = in.ShippingCost
		po.Comment = in.Comment
		po.Items = po.Items[:0]
		for _, item := range in.Items {
			po.AddItem(item)
		}

		if err := s.hooks.Run(ctx, domain.BeforeUpdate, po); err != nil {
			return err
		}
		if err := po.Validate(); err != nil {
			return err
		}
		if err := s.resolveReferences(ctx, po); err != nil {
			return err
		}
		if err := po.Recalculate(); err != nil {
			return err
		}

		if po.Status == StatusRejected {
			if _, err := po.Apply(ActionRevise, po.TransitionContext(), ""); err != nil {
				return err
			}
		}

		return s.audit.Record(ctx, audit.Entry{
			EntityType: events.AggregatePurchaseOrder,
			EntityID:   po.ID,
			Action:     audit.ActionUpdate,
			Changes:    snapshot(po),
		})
	})
}

// Delete archives a draft or rejected PO that has no receipts.
func (s *Service) Delete(ctx context.Context, poID id.ID) error {
	return s.archive(ctx, poID, audit.ActionDelete, func(po *PurchaseOrder) error {
		return s.ensureEditable(po, "delete")
	})
}

// Archive marks a cancelled or closed PO as deleted. Terminal POs are never removed.
func (s *Service) Archive(ctx context.Context, poID id.ID) error {
	return s.archive(ctx, poID, audit.ActionArchive, func(po *PurchaseOrder) error {
		if !po.Status.IsTerminal() {
			return apperror.NewBusinessRule("PO_NOT_TERMINAL", "Only cancelled or closed purchase orders can be archived").
				WithDetail("status", string(po.Status))
		}
		return nil
	})
}

func (s *Service) archive(ctx context.Context, poID id.ID, action audit.Action, check func(*PurchaseOrder) error) error {
	return s.locked(ctx, poID, func(ctx context.Context) error {
		return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			po, err := s.load(ctx, poID)
			if err != nil {
				return err
			}
			if err := check(po); err != nil {
				return err
			}
			if err := s.repo.Delete(ctx, poID); err != nil {
				return fmt.Errorf("delete purchase order: %w", err)
			}
			return s.audit.Record(ctx, audit.Entry{
				EntityType: events.AggregatePurchaseOrder,
				EntityID:   poID,
				Action:     action,
				Changes:    map[string]any{"status": po.Status},
			})
		})
	})
}

// TransitionInput carries the optional note of a workflow action.
type TransitionInput struct {
	Comments       string
	Reason         string
	Administrative bool
}

// Submit moves a draft to pending_approval.
func (s *Service) Submit(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	return s.Transition(ctx, poID, ActionSubmit, TransitionInput{})
}

// Approve approves a pending PO.
func (s *Service) Approve(ctx context.Context, poID id.ID, comments string) (*PurchaseOrder, error) {
	return s.Transition(ctx, poID, ActionApprove, TransitionInput{Comments: comments})
}

// Reject rejects a pending or approved PO. reason is required.
func (s *Service) Reject(ctx context.Context, poID id.ID, reason string) (*PurchaseOrder, error) {
	return s.Transition(ctx, poID, ActionReject, TransitionInput{Reason: reason})
}

// Send marks an approved PO as sent to the vendor.
func (s *Service) Send(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	return s.Transition(ctx, poID, ActionSend, TransitionInput{})
}

// Confirm records the vendor's acknowledgement.
func (s *Service) Confirm(ctx context.Context, poID id.ID, comments string) (*PurchaseOrder, error) {
	return s.Transition(ctx, poID, ActionConfirm, TransitionInput{Comments: comments})
}

// Cancel cancels a PO that is not yet fully received or terminal.
func (s *Service) Cancel(ctx context.Context, poID id.ID, reason string) (*PurchaseOrder, error) {
	return s.Transition(ctx, poID, ActionCancel, TransitionInput{Reason: reason})
}

// Close closes a fully received PO, or any open PO when administrative is set.
func (s *Service) Close(ctx context.Context, poID id.ID, administrative bool) (*PurchaseOrder, error) {
	return s.Transition(ctx, poID, ActionClose, TransitionInput{Administrative: administrative})
}

// Transition applies a user-initiated workflow action. Receipt actions are
// reserved for the goods receipt engine.
func (s *Service) Transition(ctx context.Context, poID id.ID, action Action, in TransitionInput) (*PurchaseOrder, error) {
	if action == ActionReceivePartial || action == ActionReceiveComplete || action == ActionRevise {
		return nil, apperror.NewBusinessRule("ACTION_NOT_DIRECT", "Action is applied by the system, not requested directly").
			WithDetail("action", string(action))
	}

	return s.Mutate(ctx, poID, func(ctx context.Context, po *PurchaseOrder) error {
		tc := po.TransitionContext()
		tc.Reason = in.Reason
		tc.Administrative = in.Administrative

		note := in.Reason
		if note == "" {
			note = in.Comments
		}
		_, err := po.Apply(action, tc, note)
		return err
	})
}

// RecordPayment adds a vendor payment. Overpayment is rejected as NEGATIVE_OUTSTANDING.
func (s *Service) RecordPayment(ctx context.Context, poID id.ID, amount types.Money) (*PurchaseOrder, error) {
	return s.Mutate(ctx, poID, func(ctx context.Context, po *PurchaseOrder) error {
		switch po.Status {
		case StatusDraft, StatusPendingApproval, StatusRejected, StatusCancelled:
			return apperror.NewBusinessRule("PAYMENT_NOT_ALLOWED", "Payments are accepted only for approved purchase orders").
				WithDetail("status", string(po.Status))
		}
		if err := po.AddPayment(amount); err != nil {
			return err
		}
		if err := s.audit.Record(ctx, audit.Entry{
			EntityType: events.AggregatePurchaseOrder,
			EntityID:   po.ID,
			Action:     audit.ActionPayment,
			Changes: map[string]any{
				"amount":             types.FormatMoney(amount),
				"paid_amount":        types.FormatMoney(po.PaidAmount),
				"outstanding_amount": types.FormatMoney(po.OutstandingAmount),
			},
		}); err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		return s.publish(ctx, po.ID, events.PurchaseOrderPaymentMade, map[string]any{
			"amount":             types.FormatMoney(amount),
			"outstanding_amount": types.FormatMoney(po.OutstandingAmount),
		})
	})
}

// MutateFunc changes a locked, freshly loaded purchase order.
type MutateFunc func(ctx context.Context, po *PurchaseOrder) error

// Mutate serialises work on one PO: it takes the per-PO lock, opens a
// transaction, re-reads the PO FOR UPDATE, runs fn, verifies invariants and
// writes header and lines back with an optimistic version check. A status
// change made by fn is audited and published. Any error rolls everything back.
func (s *Service) Mutate(ctx context.Context, poID id.ID, fn MutateFunc) (*PurchaseOrder, error) {
	ctx, span := tracer.Start(ctx, "purchase_order.mutate")
	span.SetAttributes(attribute.String("purchase_order.id", poID.String()))
	defer span.End()

	var result *PurchaseOrder
	err := s.locked(ctx, poID, func(ctx context.Context) error {
		return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			po, err := s.load(ctx, poID)
			if err != nil {
				return err
			}
			before := po.Status

			if err := fn(ctx, po); err != nil {
				return err
			}

			if err := po.CheckInvariants(); err != nil {
				logger.Error(ctx, "purchase order invariant violated, aborting",
					"purchase_order_id", poID, "error", err)
				return err
			}

			audit.StampUpdated(ctx, &po.BaseDocument, s.clock())
			if err := s.repo.Update(ctx, po); err != nil {
				return err
			}
			if err := s.repo.SaveLines(ctx, po.ID, po.Items); err != nil {
				return fmt.Errorf("save lines: %w", err)
			}

			if po.Status != before {
				if err := s.recordTransition(ctx, po, before); err != nil {
					return err
				}
			}

			result = po
			return nil
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

func (s *Service) recordTransition(ctx context.Context, po *PurchaseOrder, from Status) error {
	change := map[string]any{
		"from":   from,
		"to":     po.Status,
		"note":   po.StatusNote,
		"number": po.Number,
	}
	if err := s.audit.Record(ctx, audit.Entry{
		EntityType: events.AggregatePurchaseOrder,
		EntityID:   po.ID,
		Action:     audit.ActionTransition,
		Changes:    change,
	}); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if err := s.publish(ctx, po.ID, events.PurchaseOrderStatusChanged, change); err != nil {
		return err
	}

	logger.Info(ctx, "purchase order status changed",
		"id", po.ID,
		"number", po.Number,
		"from", from,
		"to", po.Status)
	return nil
}

func (s *Service) load(ctx context.Context, poID id.ID) (*PurchaseOrder, error) {
	po, err := s.repo.GetForUpdate(ctx, poID)
	if err != nil {
		return nil, err
	}
	if po.DeletionMark {
		return nil, apperror.NewNotFound(entityName, poID)
	}
	lines, err := s.repo.GetLines(ctx, poID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	po.Items = lines
	return po, nil
}

func (s *Service) locked(ctx context.Context, poID id.ID, fn func(ctx context.Context) error) error {
	err := lock.WithLock(ctx, s.locker, lock.PurchaseOrderKey(poID), fn)
	if errors.Is(err, lock.ErrNotObtained) {
		return apperror.NewConcurrentModification(entityName, poID).WithCause(err)
	}
	return err
}

func (s *Service) ensureEditable(po *PurchaseOrder, op string) error {
	if !CanEdit(po.Status) {
		return invalidTransition(po.Status, Action(op)).
			WithDetail("editable_statuses", []string{string(StatusDraft), string(StatusRejected)})
	}
	if po.HasReceipts() {
		return apperror.NewBusinessRule("PO_ARCHIVE_ONLY", "Purchase order has goods receipts and can only be archived").
			WithDetail("purchase_order_id", po.ID.String())
	}
	return nil
}

// resolveReferences checks vendor, warehouse and products exist and copies display names.
func (s *Service) resolveReferences(ctx context.Context, po *PurchaseOrder) error {
	if s.catalogs == nil {
		return nil
	}

	var violations []apperror.Violation
	vendor, err := s.catalogs.GetVendor(ctx, po.VendorID)
	switch {
	case apperror.IsNotFound(err):
		violations = append(violations, apperror.Violation{Field: "vendor_id", Code: "exists", Message: "vendor not found"})
	case err != nil:
		return fmt.Errorf("lookup vendor: %w", err)
	default:
		po.VendorName = vendor.Name
	}

	if _, err := s.catalogs.GetWarehouse(ctx, po.WarehouseID); apperror.IsNotFound(err) {
		violations = append(violations, apperror.Violation{Field: "warehouse_id", Code: "exists", Message: "warehouse not found"})
	} else if err != nil {
		return fmt.Errorf("lookup warehouse: %w", err)
	}

	productIDs := make([]id.ID, 0, len(po.Items))
	for _, li := range po.Items {
		productIDs = append(productIDs, li.ProductID)
	}
	products, err := s.catalogs.GetProducts(ctx, productIDs)
	if err != nil {
		return fmt.Errorf("lookup products: %w", err)
	}
	for i := range po.Items {
		p, ok := products[po.Items[i].ProductID]
		if !ok {
			violations = append(violations, apperror.Violation{
				Field: fmt.Sprintf("items[%d].product_id", i), Code: "exists", Message: "product not found",
			})
			continue
		}
		po.Items[i].ProductName = p.Name
	}

	if len(violations) > 0 {
		return apperror.NewValidationList("Purchase order references unknown master data", violations)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, poID id.ID, eventType string, payload any) error {
	if s.events == nil {
		return nil
	}
	if err := s.events.Publish(ctx, events.Event{
		AggregateType: events.AggregatePurchaseOrder,
		AggregateID:   poID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func snapshot(po *PurchaseOrder) map[string]any {
	items := make([]map[string]any, len(po.Items))
	for i, li := range po.Items {
		items[i] = map[string]any{
			"product_id":     li.ProductID,
			"quantity":       li.Quantity.String(),
			"unit_price":     types.FormatMoney(li.UnitPrice),
			"tax_percentage": li.TaxPercentage.String(),
			"discount":       li.Discount.String(),
			"discount_type":  li.DiscountType,
			"line_total":     types.FormatMoney(li.LineTotal),
		}
	}
	return map[string]any{
		"number":       po.Number,
		"status":       po.Status,
		"vendor_id":    po.VendorID,
		"warehouse_id": po.WarehouseID,
		"total_amount": types.FormatMoney(po.TotalAmount),
		"items":        items,
	}
}
