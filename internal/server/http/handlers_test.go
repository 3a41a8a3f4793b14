package http_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/maryoneshop/orderflow/internal/domain"
	httpserver "github.com/maryoneshop/orderflow/internal/server/http"
	"github.com/maryoneshop/orderflow/internal/service/ledger"
	"github.com/maryoneshop/orderflow/internal/service/lifecycle"
	"github.com/maryoneshop/orderflow/internal/service/reconcile"
	"github.com/maryoneshop/orderflow/internal/service/verification"
	"github.com/maryoneshop/orderflow/internal/storage/memory"
)

type apiFixture struct {
	router   *gin.Engine
	products *memory.ProductStore
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	orders := memory.NewOrderRepository()
	products := memory.NewProductStore()
	stock := ledger.NewWithoutMetrics(memory.NewLedgerRepository(), products, nil)
	reconciler := reconcile.NewEngine(stock, nil, nil)

	orderService := lifecycle.NewWithoutMetrics(
		orders,
		memory.NewTimelineRepository(),
		memory.NewOutboxRepository(),
		stock,
		reconciler,
		nil,
	)
	verificationService := verification.New(orders, memory.NewVerificationRepository(), nil, nil)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		Orders:      httpserver.NewOrderHandler(orderService, verificationService, nil),
		Stock:       httpserver.NewStockHandler(orderService, nil),
		Idempotency: memory.NewIdempotencyRepository(),
	})

	return &apiFixture{router: router, products: products}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	return recorder
}

func (f *apiFixture) createOrder(t *testing.T) map[string]any {
	t.Helper()

	resp := f.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"customerId":    "customer-1",
		"paymentMethod": "cod",
		"shippingMinor": 100,
		"items": []map[string]any{
			{"productId": "p1", "qty": 2, "priceMinor": 500},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var order map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &order))
	return order
}

func TestAPI_CreateOrder(t *testing.T) {
	f := newAPIFixture(t)
	f.products.Seed(domain.SKU{ProductID: "p1"}, 10, false)

	order := f.createOrder(t)

	require.Equal(t, "pending", order["status"])
	require.Equal(t, float64(1100), order["totalMinor"])
	require.NotEmpty(t, order["id"])
}

func TestAPI_CreateOrder_InsufficientStock(t *testing.T) {
	f := newAPIFixture(t)
	f.products.Seed(domain.SKU{ProductID: "p1"}, 1, false)

	resp := f.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"paymentMethod": "cod",
		"items": []map[string]any{
			{"productId": "p1", "qty": 5, "priceMinor": 100},
		},
	}, nil)

	require.Equal(t, http.StatusConflict, resp.Code)
	require.Contains(t, resp.Body.String(), "insufficient_stock")
}

func TestAPI_CreateOrder_BadRequest(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/v1/orders", map[string]any{
		"items": []map[string]any{},
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAPI_GetOrder(t *testing.T) {
	f := newAPIFixture(t)
	f.products.Seed(domain.SKU{ProductID: "p1"}, 10, false)
	order := f.createOrder(t)

	resp := f.do(t, http.MethodGet, "/api/v1/orders/"+order["id"].(string), nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var details map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &details))
	require.Equal(t, order["id"], details["id"])
	require.NotEmpty(t, details["timeline"])
}

func TestAPI_GetOrder_NotFound(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodGet, "/api/v1/orders/ghost", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
	require.Contains(t, resp.Body.String(), "not_found")
}

func TestAPI_EditItems(t *testing.T) {
	f := newAPIFixture(t)
	f.products.Seed(domain.SKU{ProductID: "p1"}, 10, false)
	order := f.createOrder(t)

	resp := f.do(t, http.MethodPut, fmt.Sprintf("/api/v1/orders/%s/items", order["id"]), map[string]any{
		"items": []map[string]any{
			{"productId": "p1", "qty": 5, "priceMinor": 500},
		},
	}, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var updated map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &updated))
	require.Equal(t, float64(2600), updated["totalMinor"])
}

func TestAPI_StatusTransitions(t *testing.T) {
	f := newAPIFixture(t)
	f.products.Seed(domain.SKU{ProductID: "p1"}, 10, false)
	order := f.createOrder(t)
	statusPath := fmt.Sprintf("/api/v1/orders/%s/status", order["id"])

	resp := f.do(t, http.MethodPost, statusPath, map[string]any{"status": "processing"}, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	// Отгрузка без курьера — ошибка валидации.
	resp = f.do(t, http.MethodPost, statusPath, map[string]any{"status": "shipped"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodPost, statusPath, map[string]any{"status": "shipped", "courier": "pathao"}, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var shipped map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &shipped))
	require.Contains(t, shipped["trackingNumber"], "PTH-")

	// Запрещённый переход — конфликт.
	resp = f.do(t, http.MethodPost, statusPath, map[string]any{"status": "cancelled"}, nil)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Contains(t, resp.Body.String(), "invalid_transition")
}

func TestAPI_ReturnFlow(t *testing.T) {
	f := newAPIFixture(t)
	f.products.Seed(domain.SKU{ProductID: "p1"}, 10, false)
	order := f.createOrder(t)
	orderID := order["id"].(string)

	resp := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/status", orderID), map[string]any{"status": "cancelled"}, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/return", orderID), map[string]any{"action": "returned"}, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var resolved map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &resolved))
	require.Equal(t, "returned", resolved["returnStatus"])
	require.Equal(t, float64(100), resolved["lossMinor"])

	// Повторное решение — конфликт.
	resp = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/return", orderID), map[string]any{"action": "lost"}, nil)
	require.Equal(t, http.StatusConflict, resp.Code)
	require.Contains(t, resp.Body.String(), "return_already_resolved")
}

func TestAPI_Verification(t *testing.T) {
	f := newAPIFixture(t)
	f.products.Seed(domain.SKU{ProductID: "p1"}, 10, false)
	order := f.createOrder(t)
	path := fmt.Sprintf("/api/v1/orders/%s/verification", order["id"])

	resp := f.do(t, http.MethodPost, path, map[string]any{"action": "call", "outcome": "confirmed"}, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = f.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var list map[string][]map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list["entries"], 1)
	require.Equal(t, "confirmed", list["entries"][0]["outcome"])

	// Статус заказа догоняет исход.
	resp = f.do(t, http.MethodGet, "/api/v1/orders/"+order["id"].(string), nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var details map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &details))
	require.Equal(t, "verified", details["verificationStatus"])
}

func TestAPI_StockEndpoints(t *testing.T) {
	f := newAPIFixture(t)
	f.products.Seed(domain.SKU{ProductID: "p1"}, 10, false)

	resp := f.do(t, http.MethodPost, "/api/v1/stock/adjust", map[string]any{
		"productId": "p1",
		"change":    -3,
		"reason":    "damage",
		"note":      "dropped box",
	}, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = f.do(t, http.MethodGet, "/api/v1/stock/p1", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var level map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &level))
	require.Equal(t, float64(7), level["level"])

	resp = f.do(t, http.MethodPost, "/api/v1/stock/receive", map[string]any{
		"poNumber": "PO-5",
		"lines": []map[string]any{
			{"productId": "p1", "qty": 13},
		},
	}, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = f.do(t, http.MethodGet, "/api/v1/stock/p1/ledger", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var ledgerBody map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &ledgerBody))
	entries := ledgerBody["entries"].([]any)
	require.Len(t, entries, 2)
}

func TestAPI_ListAndStats(t *testing.T) {
	f := newAPIFixture(t)
	f.products.Seed(domain.SKU{ProductID: "p1"}, 10, false)
	f.createOrder(t)
	f.createOrder(t)

	resp := f.do(t, http.MethodGet, "/api/v1/orders?customerId=customer-1", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var list map[string][]map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list["orders"], 2)

	resp = f.do(t, http.MethodGet, "/api/v1/orders/stats", nil, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stats))
	require.Equal(t, float64(2), stats["count"])

	resp = f.do(t, http.MethodGet, "/api/v1/orders?status=teleported", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAPI_IdempotentCreate(t *testing.T) {
	f := newAPIFixture(t)
	f.products.Seed(domain.SKU{ProductID: "p1"}, 10, false)

	body := map[string]any{
		"paymentMethod": "cod",
		"items": []map[string]any{
			{"productId": "p1", "qty": 2, "priceMinor": 500},
		},
	}
	headers := map[string]string{"Idempotency-Key": "create-1"}

	first := f.do(t, http.MethodPost, "/api/v1/orders", body, headers)
	require.Equal(t, http.StatusCreated, first.Code)

	// Повтор с тем же ключом возвращает сохранённый ответ и не создаёт заказ.
	second := f.do(t, http.MethodPost, "/api/v1/orders", body, headers)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get("X-Idempotency-Replay"))
	require.JSONEq(t, first.Body.String(), second.Body.String())

	resp := f.do(t, http.MethodGet, "/api/v1/orders", nil, nil)
	var list map[string][]map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &list))
	require.Len(t, list["orders"], 1)

	// Тот же ключ с другим телом — конфликт.
	other := body
	other["items"] = []map[string]any{{"productId": "p1", "qty": 1, "priceMinor": 500}}
	third := f.do(t, http.MethodPost, "/api/v1/orders", other, headers)
	require.Equal(t, http.StatusConflict, third.Code)
	require.Contains(t, third.Body.String(), "idempotency_key_reused")
}
