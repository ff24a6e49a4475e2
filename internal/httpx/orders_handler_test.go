package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mojcaostir/calda-challenge/internal/identity"
	kafkax "github.com/mojcaostir/calda-challenge/internal/kafka"
	"github.com/mojcaostir/calda-challenge/internal/orders"
	"github.com/mojcaostir/calda-challenge/internal/redisx"
)

type stubResolver struct{ users map[string]string }

func (s *stubResolver) Resolve(ctx context.Context, token string) (string, error) {
	if uid, ok := s.users[token]; ok {
		return uid, nil
	}
	return "", identity.ErrInvalidToken
}

type stubPlacer struct {
	res *orders.PlacedOrder
	err error
}

func (s *stubPlacer) PlaceOrder(ctx context.Context, userID string, in orders.CreateOrderInput) (*orders.PlacedOrder, error) {
	return s.res, s.err
}

type fakeCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newFakeCache() *fakeCache { return &fakeCache{m: map[string]string{}} }

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[key], nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.m[key] = string(v)
	case string:
		c.m[key] = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		c.m[key] = string(b)
	}
	return nil
}

type stubReader struct {
	order *orders.Order
	err   error
	calls int
}

func (s *stubReader) GetUserOrder(ctx context.Context, userID, orderID string) (*orders.Order, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.order, nil
}

func (s *stubReader) ListVariants(ctx context.Context) ([]orders.Variant, error) {
	return nil, nil
}

func newTestHandler(placer OrderPlacer) *OrdersHandler {
	log := zap.NewNop()
	return &OrdersHandler{
		Service: placer,
		Repo:    &stubReader{},
		Auth:    &stubResolver{users: map[string]string{"good-token": "u1"}},
		// Unstarted producers just buffer; no broker needed.
		Orders:    kafkax.NewProducer([]string{"127.0.0.1:9092"}, orders.TopicOrderPlaced, 16, log),
		Movements: kafkax.NewProducer([]string{"127.0.0.1:9092"}, orders.TopicMovements, 16, log),
		Cache:     newFakeCache(),
		Log:       log,
		Name:      "test",
	}
}

func doCreate(t *testing.T, h *OrdersHandler, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	r := NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doGet(t *testing.T, h *OrdersHandler, token, orderID string) *httptest.ResponseRecorder {
	t.Helper()
	r := NewRouter()
	h.Register(r)

	req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func placedResult() *orders.PlacedOrder {
	return &orders.PlacedOrder{
		Order: &orders.Order{
			ID:         "o1",
			UserID:     "u1",
			Number:     "ORD-TEST",
			Status:     orders.StatusPlaced,
			Currency:   "EUR",
			TotalCents: 500,
		},
		Lines: []orders.OrderLine{
			{OrderID: "o1", VariantID: "v1", Quantity: 2, UnitPriceCents: 100},
		},
		Movements: []orders.Movement{
			{ID: "m1", VariantID: "v1", Delta: -2, Reason: "reserve", OrderID: "o1", UserID: "u1"},
		},
		OtherTotalsCents: 1234,
	}
}

func TestCreateOrder_MissingToken(t *testing.T) {
	h := newTestHandler(&stubPlacer{})
	w := doCreate(t, h, "", []byte(`{}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["error"] != orders.Reason(orders.ErrUnauthorized) {
		t.Errorf("reason = %q, want %q", body["error"], orders.Reason(orders.ErrUnauthorized))
	}
}

func TestCreateOrder_BadToken(t *testing.T) {
	h := newTestHandler(&stubPlacer{})
	w := doCreate(t, h, "bad-token", []byte(`{}`))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["error"] != "unauthorized" {
		t.Errorf("reason = %q, want unauthorized", body["error"])
	}
}

func TestCreateOrder_InvalidJSON(t *testing.T) {
	h := newTestHandler(&stubPlacer{})
	w := doCreate(t, h, "good-token", []byte(`{not json`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"validation", &orders.ValidationError{Msg: "items must not be empty"}, 400, "invalid_payload"},
		{"foreign address", fmt.Errorf("shipping address: %w", orders.ErrAddressNotFound), 403, "address_not_found"},
		{"invalid variant", fmt.Errorf("%w: 1 of 2 found", orders.ErrInvalidVariant), 400, "invalid_variant"},
		{"currency mismatch", orders.ErrCurrencyMismatch, 400, "currency_mismatch"},
		{"insufficient stock", &orders.StockError{VariantID: "v1", Requested: 2, Available: 1}, 409, "insufficient_stock"},
		{"cas conflict", fmt.Errorf("apply inventory: %w", orders.ErrLevelConflict), 409, "stock_conflict"},
		{"internal", errors.New("db down"), 500, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&stubPlacer{err: tc.err})
			w := doCreate(t, h, "good-token", []byte(`{}`))
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("bad body: %v", err)
			}
			if body["error"] != tc.wantReason {
				t.Errorf("reason = %q, want %q", body["error"], tc.wantReason)
			}
		})
	}
}

func TestCreateOrder_Success(t *testing.T) {
	h := newTestHandler(&stubPlacer{res: placedResult()})
	w := doCreate(t, h, "good-token", []byte(`{"shipping_address_id":"addr-1","items":[{"variant_id":"v1","quantity":2}]}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	var resp CreateOrderResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.OrderID != "o1" || resp.Number != "ORD-TEST" || resp.TotalCents != 500 {
		t.Errorf("response wrong: %+v", resp)
	}
	if resp.OtherTotalsCents == nil || *resp.OtherTotalsCents != 1234 {
		t.Errorf("aggregate missing: %+v", resp.OtherTotalsCents)
	}
	if s, _ := h.Cache.Get(context.Background(), fmt.Sprintf(redisx.KeyOrder, "u1", "o1")); s == "" {
		t.Error("order not cached after creation")
	}
}

func TestCreateOrder_AggregateFailure(t *testing.T) {
	h := newTestHandler(&stubPlacer{
		res: placedResult(),
		err: &orders.AggregateError{Err: errors.New("reporting down")},
	})
	w := doCreate(t, h, "good-token", []byte(`{"shipping_address_id":"addr-1","items":[{"variant_id":"v1","quantity":2}]}`))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	var resp CreateOrderResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.OtherTotalsCents != nil {
		t.Error("aggregate must be absent when its computation failed")
	}
	if resp.Warning != "aggregate_failed" {
		t.Errorf("warning = %q", resp.Warning)
	}
}

func TestGetOrder_CacheHit(t *testing.T) {
	h := newTestHandler(&stubPlacer{})
	reader := &stubReader{err: errors.New("db must not be hit")}
	h.Repo = reader

	cached, _ := json.Marshal(toOrderResp(&orders.Order{
		ID:         "o1",
		UserID:     "u1",
		Number:     "ORD-CACHED",
		Status:     orders.StatusPlaced,
		Currency:   "EUR",
		TotalCents: 500,
	}))
	key := fmt.Sprintf(redisx.KeyOrder, "u1", "o1")
	if err := h.Cache.Set(context.Background(), key, cached, redisx.TTLOrderCache); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	w := doGet(t, h, "good-token", "o1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp orderResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.Number != "ORD-CACHED" || resp.TotalCents != 500 {
		t.Errorf("response wrong: %+v", resp)
	}
	if reader.calls != 0 {
		t.Errorf("repo called %d times on a cache hit", reader.calls)
	}
}

func TestGetOrder_CacheMissFallsBack(t *testing.T) {
	h := newTestHandler(&stubPlacer{})
	reader := &stubReader{order: &orders.Order{
		ID:         "o1",
		UserID:     "u1",
		Number:     "ORD-TEST",
		Status:     orders.StatusPlaced,
		Currency:   "EUR",
		TotalCents: 500,
	}}
	h.Repo = reader

	w := doGet(t, h, "good-token", "o1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp orderResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.Number != "ORD-TEST" {
		t.Errorf("response wrong: %+v", resp)
	}
	if reader.calls != 1 {
		t.Errorf("repo calls = %d, want 1", reader.calls)
	}
	if s, _ := h.Cache.Get(context.Background(), fmt.Sprintf(redisx.KeyOrder, "u1", "o1")); s == "" {
		t.Error("order not cached after miss")
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	h := newTestHandler(&stubPlacer{})
	h.Repo = &stubReader{err: orders.ErrOrderNotFound}

	w := doGet(t, h, "good-token", "missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
