// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Invariant breaches (5xx, fatal)
	CodeNegativeOutstanding  = "NEGATIVE_OUTSTANDING"
	CodeConsistencyViolation = "CONSISTENCY_VIOLATION"

	// Validation errors (400/422)
	CodeValidation   = "VALIDATION_ERROR"
	CodeInvalidInput = "INVALID_INPUT"

	// Business rule violations (422)
	CodeBusinessRule      = "BUSINESS_RULE_VIOLATION"
	CodeOverReceipt       = "OVER_RECEIPT"
	CodeEmptyReceipt      = "EMPTY_RECEIPT"
	CodeReceiptValidation = "RECEIPT_VALIDATION"

	// Workflow / concurrency (409)
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"

	// Authorization errors (401, 403)
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict            = "CONFLICT"
	CodeIdempotency         = "IDEMPOTENCY_CONFLICT"
	CodeIdempotencyMismatch = "IDEMPOTENCY_MISMATCH"
)

// Violation is a single field-level problem. Validation errors carry the full list.
type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AppError is the standard error type for the service.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (state, action, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// Violations lists every problem found when more than one check failed.
	Violations []Violation `json:"violations,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Fatal marks invariant breaches. They abort the transaction and are never persisted.
	Fatal bool `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if n := len(e.Violations); n > 0 {
		msg = fmt.Sprintf("%s (%d violations)", msg, n)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (caused by: %v)", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// IsFatal reports whether the error is an invariant breach.
func (e *AppError) IsFatal() bool {
	return e.Fatal
}

// HasViolation reports whether any violation carries the given code.
func (e *AppError) HasViolation(code string) bool {
	for _, v := range e.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// --- Factory functions ---

// NewValidation creates a malformed-input error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewValidationList creates a 422 carrying every violation found.
func NewValidationList(message string, violations []Violation) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		Violations: violations,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewReceiptValidation creates a 422 for a receipt that failed one or more checks.
// A single OverReceipt or EmptyReceipt is promoted to its own code.
func NewReceiptValidation(violations []Violation) *AppError {
	code := CodeReceiptValidation
	if len(violations) == 1 && (violations[0].Code == CodeOverReceipt || violations[0].Code == CodeEmptyReceipt) {
		code = violations[0].Code
	}
	return &AppError{
		Code:       code,
		Message:    "Receipt failed validation",
		Violations: violations,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInvalidTransition creates a workflow error (409) naming the allowed actions.
func NewInvalidTransition(current, action string, allowed []string) *AppError {
	sorted := append([]string(nil), allowed...)
	sort.Strings(sorted)
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("Action %q is not allowed in status %q", action, current),
		HTTPStatus: http.StatusConflict,
		Details: map[string]any{
			"current": current,
			"action":  action,
			"allowed": sorted,
		},
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewNegativeOutstanding is raised when paid exceeds total.
func NewNegativeOutstanding(total, paid string) *AppError {
	return &AppError{
		Code:       CodeNegativeOutstanding,
		Message:    "Outstanding amount would become negative",
		HTTPStatus: http.StatusInternalServerError,
		Fatal:      true,
		Details:    map[string]any{"total_amount": total, "paid_amount": paid},
	}
}

// NewConsistencyViolation reports a broken invariant.
func NewConsistencyViolation(message string) *AppError {
	return &AppError{
		Code:       CodeConsistencyViolation,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Fatal:      true,
	}
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified by another request. Please refresh and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewUnauthorized creates an authentication error (401)
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// NewForbidden creates an authorization error (403)
func NewForbidden(message string) *AppError {
	return &AppError{
		Code:       CodeForbidden,
		Message:    message,
		HTTPStatus: http.StatusForbidden,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different user/operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotencyMismatch,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode checks the code of the first AppError in the chain.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConcurrentModification checks if error is CodeConcurrentModification
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}

// IsFatal reports whether err wraps an invariant breach.
func IsFatal(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Fatal
	}
	return false
}
