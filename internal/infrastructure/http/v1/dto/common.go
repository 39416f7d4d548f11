// Package dto provides the request and response bodies of the HTTP API.
package dto

import (
	"time"

	"procura/internal/core/apperror"
	"procura/internal/core/entity"
	"procura/internal/domain"
)

// ListQuery holds the common list parameters.
type ListQuery struct {
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset         int    `form:"offset" binding:"omitempty,min=0"`
	OrderBy        string `form:"order_by"`
	IncludeDeleted bool   `form:"include_deleted"`
}

// ToFilter converts the query into a domain filter.
func (q ListQuery) ToFilter() domain.ListFilter {
	f := domain.DefaultListFilter()
	if q.Limit > 0 {
		f.Limit = q.Limit
	}
	f.Offset = q.Offset
	if q.OrderBy != "" {
		f.OrderBy = q.OrderBy
	}
	f.IncludeDeleted = q.IncludeDeleted
	return f
}

// ListResponse wraps list results with pagination.
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// NewListResponse maps a domain page with fn.
func NewListResponse[E, T any](result domain.ListResult[E], fn func(E) T) ListResponse[T] {
	items := make([]T, len(result.Items))
	for i, e := range result.Items {
		items[i] = fn(e)
	}
	return ListResponse[T]{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
}

// DocumentResponse contains the fields every document carries. The document
// number is exposed by each view under its own name (po_number, grn_number).
type DocumentResponse struct {
	ID           string    `json:"id"`
	DeletionMark bool      `json:"deletion_mark"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	CreatedBy    string    `json:"created_by,omitempty"`
	UpdatedBy    string    `json:"updated_by,omitempty"`
}

// FromDocument creates DocumentResponse from entity.Document.
func FromDocument(d entity.Document) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID.String(),
		DeletionMark: d.DeletionMark,
		Version:      d.Version,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		CreatedBy:    d.CreatedBy,
		UpdatedBy:    d.UpdatedBy,
	}
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Code       string               `json:"code"`
	Message    string               `json:"message"`
	Details    map[string]any       `json:"details,omitempty"`
	Violations []apperror.Violation `json:"violations,omitempty"`
}

// FromAppError builds the error body.
func FromAppError(err *apperror.AppError) ErrorResponse {
	return ErrorResponse{
		Code:       err.Code,
		Message:    err.Message,
		Details:    err.Details,
		Violations: err.Violations,
	}
}
