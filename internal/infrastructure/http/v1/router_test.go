package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procura/internal/core/apperror"
	appctx "procura/internal/core/context"
	"procura/internal/core/id"
	"procura/internal/core/numerator"
	"procura/internal/core/tx"
	"procura/internal/domain/documents/goods_receipt"
	"procura/internal/domain/documents/purchase_order"
	"procura/internal/domain/events"
	"procura/internal/domain/registers/stock"
	"procura/internal/infrastructure/http/v1/dto"
	"procura/internal/infrastructure/storage/postgres"
	"procura/pkg/logger"
)

var testNow = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

type staticTokens map[string]*appctx.UserContext

func (s staticTokens) ValidateToken(token string) (*appctx.UserContext, error) {
	if u, ok := s[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

type idemEntry struct {
	hash   string
	done   bool
	replay postgres.IdempotencyReplay
}

type memoryIdempotency struct {
	mu      sync.Mutex
	entries map[string]*idemEntry
}

func (m *memoryIdempotency) AcquireKey(_ context.Context, key, _, _, requestHash string) (*postgres.IdempotencyReplay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]*idemEntry)
	}
	e, ok := m.entries[key]
	switch {
	case !ok:
		m.entries[key] = &idemEntry{hash: requestHash}
		return nil, nil
	case e.hash != requestHash:
		return nil, apperror.NewIdempotencyMismatch(key)
	case !e.done:
		return nil, apperror.NewIdempotencyConflict(key)
	}
	r := e.replay
	return &r, nil
}

func (m *memoryIdempotency) CompleteKey(_ context.Context, key string, status int, contentType string, body []byte) error {
	return m.finish(key, status, contentType, body)
}

func (m *memoryIdempotency) FailKey(_ context.Context, key string, status int, contentType string, body []byte) error {
	return m.finish(key, status, contentType, body)
}

func (m *memoryIdempotency) ReleaseKey(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *memoryIdempotency) finish(key string, status int, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[key]
	e.done = true
	e.replay = postgres.IdempotencyReplay{StatusCode: status, ContentType: contentType, Body: body}
	return nil
}

type testAPI struct {
	router    *gin.Engine
	stockRepo *stock.MemoryRepository
	events    *events.Collector
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	poRepo := purchase_order.NewMemoryRepository()
	grnRepo := goods_receipt.NewMemoryRepository()
	stockRepo := stock.NewMemoryRepository()
	collector := &events.Collector{}
	txm := tx.NewMemory(poRepo, grnRepo, stockRepo, collector)
	gen := &numerator.MockGenerator{}
	clock := func() time.Time { return testNow }

	orders := purchase_order.NewService(purchase_order.Config{
		Repo:      poRepo,
		Numerator: gen,
		TxManager: txm,
		Events:    collector,
		Clock:     clock,
	})
	receipts := goods_receipt.NewService(goods_receipt.Config{
		Orders:    orders,
		Repo:      grnRepo,
		Ledger:    stock.NewService(stockRepo),
		Numerator: gen,
		Events:    collector,
	})

	router := NewRouter(RouterConfig{
		Logger: logger.NewNop(),
		JWTValidator: staticTokens{
			"buyer":    {UserID: "buyer-1", Roles: []string{"buyer"}},
			"approver": {UserID: "approver-1", Roles: []string{"approver"}},
		},
		Idempotency:   &memoryIdempotency{},
		ApproverRoles: []string{"approver"},
		Orders:        orders,
		Receipts:      receipts,
	})
	return &testAPI{router: router, stockRepo: stockRepo, events: collector}
}

type call struct {
	method string
	path   string
	token  string
	body   any
	raw    string
	key    string
}

func (a *testAPI) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body []byte
	switch {
	case c.raw != "":
		body = []byte(c.raw)
	case c.body != nil:
		var err error
		body, err = json.Marshal(c.body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(c.method, c.path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.key != "" {
		req.Header.Set("Idempotency-Key", c.key)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func poBody() map[string]any {
	return map[string]any{
		"vendor_id":     id.New().String(),
		"warehouse_id":  id.New().String(),
		"payment_terms": "Net 30",
		"items": []map[string]any{{
			"product_id":     id.New().String(),
			"quantity":       10,
			"unit_price":     "100",
			"tax_percentage": "10",
		}},
	}
}

// sentPO creates a PO and moves it to sent.
func (a *testAPI) sentPO(t *testing.T) dto.PurchaseOrderResponse {
	t.Helper()
	w := a.do(t, call{method: http.MethodPost, path: "/api/v1/purchase_orders", token: "buyer", body: poBody()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	po := decode[dto.PurchaseOrderResponse](t, w)

	for _, step := range []struct{ action, token string }{
		{"submit", "buyer"},
		{"approve", "approver"},
		{"send", "buyer"},
	} {
		w = a.do(t, call{method: http.MethodPatch, path: "/api/v1/purchase_orders/" + po.ID + "/" + step.action, token: step.token})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	return decode[dto.PurchaseOrderResponse](t, w)
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, call{method: http.MethodGet, path: "/health/live"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_CreateAndGetPurchaseOrder(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, call{method: http.MethodPost, path: "/api/v1/purchase_orders", token: "buyer", body: poBody()})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.PurchaseOrderResponse](t, w)

	assert.Equal(t, "draft", created.Status)
	assert.Equal(t, "PO-2026-00001", created.PONumber)
	assert.Equal(t, "1000.00", created.Subtotal)
	assert.Equal(t, "100.00", created.TaxAmount)
	assert.Equal(t, "1100.00", created.TotalAmount)
	assert.Equal(t, "1100.00", created.OutstandingAmount)
	assert.Equal(t, "buyer-1", created.CreatedBy)
	assert.Contains(t, created.AllowedActions, "submit")

	w = api.do(t, call{method: http.MethodGet, path: "/api/v1/purchase_orders/" + created.ID, token: "buyer"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[dto.PurchaseOrderResponse](t, w)
	assert.Equal(t, created.ID, got.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "10.0000", got.Items[0].PendingQuantity)

	w = api.do(t, call{method: http.MethodGet, path: "/api/v1/purchase_orders?status=draft", token: "buyer"})
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[dto.ListResponse[dto.PurchaseOrderResponse]](t, w)
	assert.EqualValues(t, 1, list.TotalCount)
}

func TestRouter_Errors(t *testing.T) {
	api := newTestAPI(t)
	noItems := poBody()
	delete(noItems, "items")
	withStatus := poBody()
	withStatus["status"] = "approved"
	tooPrecise := poBody()
	tooPrecise["items"].([]map[string]any)[0]["quantity"] = "1.00001"
	tooLarge := poBody()
	tooLarge["items"].([]map[string]any)[0]["quantity"] = 2000000000000000

	tests := []struct {
		name      string
		call      call
		wantCode  int
		wantError string
		wantField string
	}{
		{
			name:      "missing token",
			call:      call{method: http.MethodGet, path: "/api/v1/purchase_orders"},
			wantCode:  http.StatusUnauthorized,
			wantError: apperror.CodeUnauthorized,
		},
		{
			name:      "unknown token",
			call:      call{method: http.MethodGet, path: "/api/v1/purchase_orders", token: "stranger"},
			wantCode:  http.StatusUnauthorized,
			wantError: apperror.CodeUnauthorized,
		},
		{
			name:      "malformed json",
			call:      call{method: http.MethodPost, path: "/api/v1/purchase_orders", token: "buyer", raw: "{"},
			wantCode:  http.StatusBadRequest,
			wantError: apperror.CodeValidation,
		},
		{
			name:      "missing items",
			call:      call{method: http.MethodPost, path: "/api/v1/purchase_orders", token: "buyer", body: noItems},
			wantCode:  http.StatusUnprocessableEntity,
			wantError: apperror.CodeValidation,
			wantField: "items",
		},
		{
			name:      "status in body",
			call:      call{method: http.MethodPost, path: "/api/v1/purchase_orders", token: "buyer", body: withStatus},
			wantCode:  http.StatusUnprocessableEntity,
			wantError: apperror.CodeValidation,
			wantField: "status",
		},
		{
			name:      "quantity with five decimals",
			call:      call{method: http.MethodPost, path: "/api/v1/purchase_orders", token: "buyer", body: tooPrecise},
			wantCode:  http.StatusBadRequest,
			wantError: apperror.CodeValidation,
		},
		{
			name:      "quantity out of range",
			call:      call{method: http.MethodPost, path: "/api/v1/purchase_orders", token: "buyer", body: tooLarge},
			wantCode:  http.StatusBadRequest,
			wantError: apperror.CodeValidation,
		},
		{
			name:      "bad id",
			call:      call{method: http.MethodGet, path: "/api/v1/purchase_orders/nope", token: "buyer"},
			wantCode:  http.StatusBadRequest,
			wantError: apperror.CodeValidation,
		},
		{
			name:      "not found",
			call:      call{method: http.MethodGet, path: "/api/v1/purchase_orders/" + id.New().String(), token: "buyer"},
			wantCode:  http.StatusNotFound,
			wantError: apperror.CodeNotFound,
		},
		{
			name:      "bad list filter",
			call:      call{method: http.MethodGet, path: "/api/v1/purchase_orders?status=lost", token: "buyer"},
			wantCode:  http.StatusUnprocessableEntity,
			wantError: apperror.CodeValidation,
			wantField: "status[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, tt.call)

			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			resp := decode[dto.ErrorResponse](t, w)
			assert.Equal(t, tt.wantError, resp.Code)
			if tt.wantField != "" {
				fields := make([]string, 0, len(resp.Violations))
				for _, v := range resp.Violations {
					fields = append(fields, v.Field)
				}
				assert.Contains(t, fields, tt.wantField)
			}
		})
	}
}

func TestRouter_Workflow(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, call{method: http.MethodPost, path: "/api/v1/purchase_orders", token: "buyer", body: poBody()})
	require.Equal(t, http.StatusCreated, w.Code)
	po := decode[dto.PurchaseOrderResponse](t, w)
	base := "/api/v1/purchase_orders/" + po.ID

	w = api.do(t, call{method: http.MethodPatch, path: base + "/send", token: "buyer"})
	require.Equal(t, http.StatusConflict, w.Code)
	resp := decode[dto.ErrorResponse](t, w)
	assert.Equal(t, apperror.CodeInvalidTransition, resp.Code)
	assert.Equal(t, "draft", resp.Details["current"])

	w = api.do(t, call{method: http.MethodPatch, path: base + "/submit", token: "buyer"})
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, call{method: http.MethodPatch, path: base + "/approve", token: "buyer"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, call{method: http.MethodPatch, path: base + "/reject", token: "approver", body: map[string]any{}})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	w = api.do(t, call{method: http.MethodPatch, path: base + "/reject", token: "approver", body: map[string]any{"reason": "price too high"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rejected := decode[dto.PurchaseOrderResponse](t, w)
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, "price too high", rejected.StatusNote)

	w = api.do(t, call{method: http.MethodDelete, path: base, token: "buyer"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, call{method: http.MethodGet, path: base, token: "buyer"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.PurchaseOrderResponse](t, w).DeletionMark)

	w = api.do(t, call{method: http.MethodGet, path: "/api/v1/purchase_orders", token: "buyer"})
	assert.EqualValues(t, 0, decode[dto.ListResponse[dto.PurchaseOrderResponse]](t, w).TotalCount)
}

func TestRouter_ConvertToGRN(t *testing.T) {
	api := newTestAPI(t)
	po := api.sentPO(t)
	require.Equal(t, "sent", po.Status)
	convertPath := "/api/v1/purchase_orders/" + po.ID + "/convert-to-grn"

	body := map[string]any{
		"vendor_invoice_no": "INV-77",
		"items": []map[string]any{{
			"po_line_item_id":   po.Items[0].ID,
			"received_quantity": 4,
			"rejected_quantity": 1,
			"unit_price":        "110",
			"tax_percentage":    "10",
			"batch_no":          "B-1",
			"mfg_date":          "2026-03-01T00:00:00Z",
			"expiry_date":       "2027-03-01T00:00:00Z",
		}},
	}

	w := api.do(t, call{method: http.MethodPost, path: convertPath, token: "buyer", body: body, key: "grn-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	conv := decode[dto.ConvertToGRNResponse](t, w)
	first := w.Body.String()

	assert.Equal(t, "GRN-2026-00001", conv.GRN.GRNNumber)
	assert.Equal(t, "partially_received", conv.PurchaseOrder.Status)
	assert.Equal(t, "buyer-1", conv.GRN.ReceivedByID)
	assert.True(t, conv.GRN.StockEntriesCreated)
	require.Len(t, conv.GRN.Items, 1)
	assert.Equal(t, "3.0000", conv.GRN.Items[0].AcceptedQuantity)
	require.NotNil(t, conv.GRN.Items[0].ExpiryDate)
	assert.Equal(t, "440.00", conv.GRN.Subtotal)
	assert.Equal(t, "6.0000", conv.PurchaseOrder.Items[0].PendingQuantity)

	t.Run("response keys", func(t *testing.T) {
		raw := decode[map[string]map[string]any](t, w)

		require.Contains(t, raw, "grn")
		require.Contains(t, raw, "purchase_order")
		assert.NotContains(t, raw, "goods_receipt")
		assert.Equal(t, "GRN-2026-00001", raw["grn"]["grn_number"])
		assert.Equal(t, po.PONumber, raw["purchase_order"]["po_number"])
		assert.NotContains(t, raw["grn"], "number")
		assert.NotContains(t, raw["purchase_order"], "number")
	})

	t.Run("retry replays the stored response", func(t *testing.T) {
		w := api.do(t, call{method: http.MethodPost, path: convertPath, token: "buyer", body: body, key: "grn-1"})

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
		assert.JSONEq(t, first, w.Body.String())

		list := api.do(t, call{method: http.MethodGet, path: "/api/v1/purchase_order_receipts?purchase_order_id=" + po.ID, token: "buyer"})
		require.Equal(t, http.StatusOK, list.Code)
		assert.EqualValues(t, 1, decode[dto.ListResponse[dto.GoodsReceiptResponse]](t, list).TotalCount)
	})

	t.Run("same key with another body", func(t *testing.T) {
		other := map[string]any{"vendor_invoice_no": "INV-78", "items": body["items"]}
		w := api.do(t, call{method: http.MethodPost, path: convertPath, token: "buyer", body: other, key: "grn-1"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, apperror.CodeIdempotencyMismatch, decode[dto.ErrorResponse](t, w).Code)
	})

	t.Run("invalid receipts list every violation", func(t *testing.T) {
		tests := []struct {
			name  string
			body  map[string]any
			wants []apperror.Violation
		}{
			{
				name: "over receipt and blank invoice",
				body: map[string]any{
					"vendor_invoice_no": " ",
					"items": []map[string]any{{
						"po_line_item_id":   po.Items[0].ID,
						"received_quantity": 7,
						"unit_price":        "100",
						"tax_percentage":    "10",
						"expiry_date":       "2027-03-01T00:00:00Z",
					}},
				},
				wants: []apperror.Violation{
					{Field: "vendor_invoice_no", Code: "required"},
					{Field: "items[0].received_quantity", Code: apperror.CodeOverReceipt},
				},
			},
			{
				name: "missing expiry and duplicate line",
				body: map[string]any{
					"vendor_invoice_no": "INV-79",
					"items": []map[string]any{{
						"po_line_item_id":   po.Items[0].ID,
						"received_quantity": 1,
						"unit_price":        "100",
						"tax_percentage":    "10",
					}, {
						"po_line_item_id":   po.Items[0].ID,
						"received_quantity": 1,
						"unit_price":        "100",
						"tax_percentage":    "10",
						"expiry_date":       "2027-03-01T00:00:00Z",
					}},
				},
				wants: []apperror.Violation{
					{Field: "items[0].expiry_date", Code: "required"},
					{Field: "items[1].po_line_item_id", Code: "unique"},
				},
			},
			{
				name: "expiry before manufacture",
				body: map[string]any{
					"vendor_invoice_no": "INV-80",
					"items": []map[string]any{{
						"po_line_item_id":   po.Items[0].ID,
						"received_quantity": 1,
						"unit_price":        "100",
						"tax_percentage":    "10",
						"mfg_date":          "2026-03-01T00:00:00Z",
						"expiry_date":       "2026-02-01T00:00:00Z",
					}},
				},
				wants: []apperror.Violation{
					{Field: "items[0].expiry_date", Code: "gtefield"},
				},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := api.do(t, call{method: http.MethodPost, path: convertPath, token: "buyer", body: tt.body})

				require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
				resp := decode[dto.ErrorResponse](t, w)
				assert.Equal(t, apperror.CodeReceiptValidation, resp.Code)
				got := make([]apperror.Violation, 0, len(resp.Violations))
				for _, v := range resp.Violations {
					got = append(got, apperror.Violation{Field: v.Field, Code: v.Code})
				}
				assert.ElementsMatch(t, tt.wants, got)
			})
		}

		w := api.do(t, call{method: http.MethodGet, path: "/api/v1/purchase_orders/" + po.ID, token: "buyer"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "6.0000", decode[dto.PurchaseOrderResponse](t, w).Items[0].PendingQuantity)
	})

	t.Run("receipt is readable", func(t *testing.T) {
		w := api.do(t, call{method: http.MethodGet, path: "/api/v1/purchase_order_receipts/" + conv.GRN.ID, token: "buyer"})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "INV-77", decode[dto.GoodsReceiptResponse](t, w).VendorInvoiceNo)
	})

	t.Run("payments", func(t *testing.T) {
		path := "/api/v1/purchase_orders/" + po.ID + "/payments"

		w := api.do(t, call{method: http.MethodPost, path: path, token: "buyer", body: map[string]any{"amount": "100"}})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "1000.00", decode[dto.PurchaseOrderResponse](t, w).OutstandingAmount)

		w = api.do(t, call{method: http.MethodPost, path: path, token: "buyer", body: map[string]any{"amount": "5000"}})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, apperror.CodeNegativeOutstanding, decode[dto.ErrorResponse](t, w).Code)
	})
}
