package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ecetin/order-fulfillment/internal/adapter/storage"
	"github.com/ecetin/order-fulfillment/internal/core/domain"
	"github.com/ecetin/order-fulfillment/internal/core/service"
)

type testEnv struct {
	mux   *http.ServeMux
	store *storage.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pool, err := storage.NewPool(ctx, filepath.Join(t.TempDir(), "test.db"), 5,
		5*time.Second, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	store := storage.NewStore(storage.NewExecutor(pool))
	if err := store.InitSchema(ctx); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}

	svc := service.NewOrderService(store, nil, 4, zap.NewNop())
	mux := http.NewServeMux()
	NewHTTPHandler(svc).Register(mux)

	return &testEnv{mux: mux, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return out
}

// seedOrder sets up one product, one customer and a placed order.
func (e *testEnv) seedOrder(t *testing.T, stock int, price, budget float64, qty int) (productID, customerID, orderID int64) {
	t.Helper()
	ctx := context.Background()

	productID, err := e.store.AddProduct(ctx, "Widget", stock, price)
	if err != nil {
		t.Fatalf("failed to add product: %v", err)
	}
	if err := e.store.AddUser(ctx, "alice", domain.HashPassword("1234"), domain.RoleCustomer); err != nil {
		t.Fatalf("failed to add user: %v", err)
	}
	customerID, err = e.store.AddCustomer(ctx, "Alice", budget, domain.CustomerPremium, "alice")
	if err != nil {
		t.Fatalf("failed to add customer: %v", err)
	}
	orderID, err = e.store.PlaceOrder(ctx, customerID, productID, qty)
	if err != nil {
		t.Fatalf("failed to place order: %v", err)
	}
	return productID, customerID, orderID
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "admin", Password: "admin123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[LoginResponse](t, rec)
	if !resp.Success || resp.Role != domain.RoleAdmin {
		t.Errorf("unexpected login response: %+v", resp)
	}

	rec = env.do(t, http.MethodPost, "/api/login", LoginRequest{Username: "admin", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestPlaceOrderEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	productID, err := env.store.AddProduct(ctx, "Widget", 10, 5)
	if err != nil {
		t.Fatalf("failed to add product: %v", err)
	}
	if err := env.store.AddUser(ctx, "bob", domain.HashPassword("1234"), domain.RoleCustomer); err != nil {
		t.Fatalf("failed to add user: %v", err)
	}
	customerID, err := env.store.AddCustomer(ctx, "Bob", 100, domain.CustomerStandard, "bob")
	if err != nil {
		t.Fatalf("failed to add customer: %v", err)
	}

	rec := env.do(t, http.MethodPost, "/api/orders", PlaceOrderRequest{
		CustomerID: customerID, ProductID: productID, Quantity: 2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[PlaceOrderResponse](t, rec)
	if !resp.Success || resp.OrderID == 0 {
		t.Errorf("unexpected place response: %+v", resp)
	}
}

func TestPlaceOrderEndpoint_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/orders", PlaceOrderRequest{CustomerID: 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/orders", PlaceOrderRequest{
		CustomerID: 99, ProductID: 99, Quantity: 1,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown product, got %d", rec.Code)
	}
}

func TestProcessOrderEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, _, orderID := env.seedOrder(t, 10, 5, 100, 2)

	rec := env.do(t, http.MethodPost, "/api/orders/process", ProcessOrderRequest{OrderID: orderID})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Processing the same order again conflicts.
	rec = env.do(t, http.MethodPost, "/api/orders/process", ProcessOrderRequest{OrderID: orderID})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 on re-process, got %d", rec.Code)
	}
}

func TestProcessOrderEndpoint_UnknownOrder(t *testing.T) {
	env := newTestEnv(t)

	// A missing order is indistinguishable from a terminal one.
	rec := env.do(t, http.MethodPost, "/api/orders/process", ProcessOrderRequest{OrderID: 42})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestProcessAllEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, 10, 5, 100, 2)

	rec := env.do(t, http.MethodPost, "/api/orders/process-all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[ProcessAllResponse](t, rec)
	if resp.Dispatched != 1 || resp.Succeeded != 1 {
		t.Errorf("unexpected batch result: %+v", resp)
	}

	// Nothing left pending.
	rec = env.do(t, http.MethodGet, "/api/orders/pending", nil)
	pending := decodeBody[[]PendingOrderResponse](t, rec)
	if len(pending) != 0 {
		t.Errorf("expected empty pending list, got %d", len(pending))
	}
}

func TestCustomerOrdersEndpoint(t *testing.T) {
	env := newTestEnv(t)
	_, customerID, _ := env.seedOrder(t, 10, 5, 100, 2)

	rec := env.do(t, http.MethodGet, "/api/customers/"+itoa(customerID)+"/orders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	orders := decodeBody[[]CustomerOrderResponse](t, rec)
	if len(orders) != 1 {
		t.Errorf("expected 1 order, got %d", len(orders))
	}

	rec = env.do(t, http.MethodGet, "/api/customers/abc/orders", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestRecentLogsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, 10, 5, 100, 2)

	rec := env.do(t, http.MethodGet, "/api/logs?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	logs := decodeBody[[]LogEntryResponse](t, rec)
	if len(logs) == 0 {
		t.Error("expected at least the placement log entry")
	}

	rec = env.do(t, http.MethodGet, "/api/logs?limit=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestListEndpoints_WireFieldNames(t *testing.T) {
	env := newTestEnv(t)
	env.seedOrder(t, 10, 5, 100, 2)

	cases := []struct {
		path   string
		fields []string
	}{
		{"/api/products", []string{`"product_id"`, `"product_name"`, `"stock"`, `"price"`, `"version"`}},
		{"/api/customers", []string{`"customer_id"`, `"customer_name"`, `"budget"`, `"customer_type"`, `"total_spent"`}},
		{"/api/orders/pending", []string{`"order_id"`, `"product_name"`, `"quantity"`, `"wait_seconds"`}},
		{"/api/logs", []string{`"log_id"`, `"log_type"`, `"message"`, `"timestamp"`}},
	}
	for _, tc := range cases {
		rec := env.do(t, http.MethodGet, tc.path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", tc.path, rec.Code)
		}
		body := rec.Body.String()
		for _, field := range tc.fields {
			if !strings.Contains(body, field) {
				t.Errorf("GET %s: response missing field %s: %s", tc.path, field, body)
			}
		}
	}
}
