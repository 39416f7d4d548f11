// Package entity provides the base structs shared by documents and ledger rows.
package entity

import (
	"time"

	"procura/internal/core/id"
)

// BaseEntity contains the identity and optimistic-lock fields of every aggregate.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// DeletionMark indicates an archived (soft-deleted) entity
	DeletionMark bool `db:"deletion_mark" json:"deletion_mark"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:      id.New(),
		Version: 1,
	}
}

// MarkDeleted sets the deletion mark.
func (b *BaseEntity) MarkDeleted() {
	b.DeletionMark = true
}

// BaseDocument extends BaseEntity with audit fields.
type BaseDocument struct {
	BaseEntity

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	CreatedBy string    `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updated_by,omitempty"`
}

// NewBaseDocument creates a new BaseDocument stamped with now.
func NewBaseDocument(now time.Time) BaseDocument {
	return BaseDocument{
		BaseEntity: NewBaseEntity(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch records a modification. The repository bumps Version on a successful write.
func (b *BaseDocument) Touch(now time.Time, by string) {
	b.UpdatedAt = now
	if by != "" {
		b.UpdatedBy = by
	}
}
