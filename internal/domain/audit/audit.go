// Package audit records who changed a purchase order or created a receipt.
package audit

import (
	"context"
	"time"

	appctx "procura/internal/core/context"
	"procura/internal/core/entity"
	"procura/internal/core/id"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionArchive    Action = "archive"
	ActionTransition Action = "transition"
	ActionReceive    Action = "receive"
	ActionPayment    Action = "payment"
)

// Entry is one audit record. Changes holds a snapshot or diff of the entity.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Changes    map[string]any
}

// Recorder persists audit entries inside the caller's transaction.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Discard drops every entry.
type Discard struct{}

func (Discard) Record(context.Context, Entry) error { return nil }

// Actor returns the authenticated user id, or "system" outside a request.
func Actor(ctx context.Context) string {
	if userID := appctx.GetUserID(ctx); userID != "" {
		return userID
	}
	return "system"
}

// StampCreated sets CreatedBy/UpdatedBy from ctx.
func StampCreated(ctx context.Context, doc *entity.BaseDocument) {
	actor := Actor(ctx)
	doc.CreatedBy = actor
	doc.UpdatedBy = actor
}

// StampUpdated sets UpdatedBy and UpdatedAt.
func StampUpdated(ctx context.Context, doc *entity.BaseDocument, now time.Time) {
	doc.Touch(now, Actor(ctx))
}
