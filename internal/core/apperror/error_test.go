package apperror

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInvalidTransition_SortsAllowed(t *testing.T) {
	err := NewInvalidTransition("draft", "approve", []string{"submit", "cancel"})

	assert.Equal(t, CodeInvalidTransition, err.Code)
	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
	assert.Equal(t, []string{"cancel", "submit"}, err.Details["allowed"])
	assert.Equal(t, "draft", err.Details["current"])
	assert.Equal(t, "approve", err.Details["action"])
}

func TestNewReceiptValidation_Code(t *testing.T) {
	single := NewReceiptValidation([]Violation{{Field: "items[0].received_quantity", Code: CodeOverReceipt}})
	assert.Equal(t, CodeOverReceipt, single.Code)

	many := NewReceiptValidation([]Violation{
		{Field: "items[0].received_quantity", Code: CodeOverReceipt},
		{Field: "vendor_invoice_no", Code: CodeValidation},
	})
	assert.Equal(t, CodeReceiptValidation, many.Code)
	assert.True(t, many.HasViolation(CodeOverReceipt))
	assert.Contains(t, many.Error(), "2 violations")
}

func TestFatalThroughWrap(t *testing.T) {
	wrapped := fmt.Errorf("save: %w", NewNegativeOutstanding("10.00", "12.00"))

	assert.True(t, IsFatal(wrapped))
	assert.True(t, HasCode(wrapped, CodeNegativeOutstanding))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(wrapped))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.True(t, appErr.IsFatal())
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(fmt.Errorf("boom")))
	assert.False(t, IsNotFound(fmt.Errorf("boom")))
	assert.True(t, IsNotFound(NewNotFound("purchase order", "x")))
}
