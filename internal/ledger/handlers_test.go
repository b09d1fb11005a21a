package ledger

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/native-market/pos-api/internal/store"
)

func newLedgerRouter(t *testing.T, queries *fakeQuerier) chi.Router {
	t.Helper()
	svc := newTestService(t, queries, nil, nil)
	h := NewHandler(HandlerConfig{Service: svc})
	r := chi.NewRouter()
	r.Post("/api/v1/sales", h.RecordSale)
	r.Post("/api/v1/sales/preview", h.PreviewSale)
	r.Post("/api/v1/expenses", h.RecordExpense)
	r.Post("/api/v1/drawer/float", h.RecordFloat)
	r.Post("/api/v1/drawer/withdraw", h.RecordWithdraw)
	r.Get("/api/v1/transactions", h.Transactions)
	r.Get("/api/v1/summary", h.Summary)
	return r
}

func TestSalesEndpoint(t *testing.T) {
	tea := inventoryItem("Iced Tea", 25, 10, `{"type":"bulk","threshold":3,"price":60}`)
	queries := &fakeQuerier{inventory: []store.InventoryItem{tea}}
	router := newLedgerRouter(t, queries)

	body := `{"items":[{"itemId":"` + tea.ID.String() + `","quantity":3}],"paymentMethod":"cash"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"promotionApplied":true`)
	assert.Contains(t, rec.Body.String(), `"total":60`)
}

func TestSalesEndpointValidation(t *testing.T) {
	router := newLedgerRouter(t, &fakeQuerier{})

	cases := []struct {
		name string
		body string
		want int
	}{
		{"empty items", `{"items":[],"paymentMethod":"cash"}`, http.StatusBadRequest},
		{"missing payment method", `{"items":[{"itemId":"` + uuid.NewString() + `","quantity":1}]}`, http.StatusBadRequest},
		{"bad payment method", `{"items":[{"itemId":"` + uuid.NewString() + `","quantity":1}],"paymentMethod":"iou"}`, http.StatusBadRequest},
		{"zero quantity", `{"items":[{"itemId":"` + uuid.NewString() + `","quantity":0}],"paymentMethod":"cash"}`, http.StatusBadRequest},
		{"bad uuid", `{"items":[{"itemId":"nope","quantity":1}],"paymentMethod":"cash"}`, http.StatusBadRequest},
		{"not json", `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(tc.body)))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestSalesEndpointConflictOnStock(t *testing.T) {
	tea := inventoryItem("Iced Tea", 25, 1, "")
	queries := &fakeQuerier{inventory: []store.InventoryItem{tea}}
	router := newLedgerRouter(t, queries)

	body := `{"items":[{"itemId":"` + tea.ID.String() + `","quantity":3}],"paymentMethod":"cash"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sales", strings.NewReader(body)))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "INSUFFICIENT_STOCK")
}

func TestPreviewEndpoint(t *testing.T) {
	corn := inventoryItem("Grilled Corn", 15, 20, `{"type":"buy_x_get_y","buy":2,"free":1}`)
	queries := &fakeQuerier{inventory: []store.InventoryItem{corn}}
	router := newLedgerRouter(t, queries)

	body := `{"items":[{"itemId":"` + corn.ID.String() + `","quantity":3}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sales/preview", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"freeQty":1`)
	assert.Empty(t, queries.recorded)
}

func TestExpenseEndpoint(t *testing.T) {
	router := newLedgerRouter(t, &fakeQuerier{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/expenses",
		strings.NewReader(`{"amount":35.5,"note":"block of ice"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"expense"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/expenses",
		strings.NewReader(`{"amount":35.5}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDrawerEndpoints(t *testing.T) {
	router := newLedgerRouter(t, &fakeQuerier{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/drawer/float",
		strings.NewReader(`{"amount":500,"note":"opening float"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"float"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/drawer/withdraw",
		strings.NewReader(`{"amount":0}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionsEndpoint(t *testing.T) {
	pm := "cash"
	queries := &fakeQuerier{transactions: []store.Transaction{
		{ID: uuid.New(), Type: store.TxnSale, Amount: 115, PaymentMethod: &pm, Items: []byte(`[{"name":"Iced Tea"}]`)},
		{ID: uuid.New(), Type: store.TxnExpense, Amount: 35.5},
	}}
	router := newLedgerRouter(t, queries)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 12, queries.gotRecentLimit)
	assert.Contains(t, rec.Body.String(), "Iced Tea")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transactions?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, queries.gotRecentLimit)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transactions?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryEndpoint(t *testing.T) {
	queries := &fakeQuerier{
		activeCount:  4,
		transactions: []store.Transaction{{Type: store.TxnSale, Amount: 115}},
	}
	router := newLedgerRouter(t, queries)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/summary", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"salesToday":115`)
	assert.Contains(t, rec.Body.String(), `"cashInDrawer":115`)
	assert.Contains(t, rec.Body.String(), `"activeItems":4`)
}
