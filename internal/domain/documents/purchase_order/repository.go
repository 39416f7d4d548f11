package purchase_order

import (
	"context"

	"procura/internal/core/id"
	"procura/internal/domain"
)

// Repository defines persistence for purchase orders.
type Repository interface {
	Create(ctx context.Context, po *PurchaseOrder) error
	GetByID(ctx context.Context, poID id.ID) (*PurchaseOrder, error)

	// Update writes the header with an optimistic version check and bumps Version.
	Update(ctx context.Context, po *PurchaseOrder) error

	// Delete sets the deletion mark.
	Delete(ctx context.Context, poID id.ID) error

	GetLines(ctx context.Context, poID id.ID) ([]LineItem, error)

	// SaveLines upserts the given lines and removes lines not in the set.
	SaveLines(ctx context.Context, poID id.ID, lines []LineItem) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseOrder], error)

	// GetForUpdate reads the header with a row lock (SELECT ... FOR UPDATE).
	GetForUpdate(ctx context.Context, poID id.ID) (*PurchaseOrder, error)
}

// ListFilter for filtering purchase orders.
type ListFilter struct {
	domain.ListFilter

	Statuses []Status
	VendorID *id.ID
}
