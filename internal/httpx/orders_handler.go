package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/mojcaostir/calda-challenge/internal/kafka"
	"github.com/mojcaostir/calda-challenge/internal/orders"
	"github.com/mojcaostir/calda-challenge/internal/redisx"
)

// OrderPlacer is the slice of the order service the handler needs.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, userID string, in orders.CreateOrderInput) (*orders.PlacedOrder, error)
}

// OrderReader serves the read endpoints; satisfied by *orders.Repo.
type OrderReader interface {
	GetUserOrder(ctx context.Context, userID, orderID string) (*orders.Order, error)
	ListVariants(ctx context.Context) ([]orders.Variant, error)
}

// OrderCache is the get/set slice of Redis the handler caches through;
// satisfied by *redisx.Cache.
type OrderCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type OrdersHandler struct {
	Service   OrderPlacer
	Repo      OrderReader
	Auth      TokenResolver
	Orders    *kafkax.Producer // orders.placed
	Movements *kafkax.Producer // inventory.movements
	Cache     OrderCache
	Log       *zap.Logger
	Name      string // producer name stamped on events
}

type CreateOrderResp struct {
	OrderID          string `json:"order_id"`
	Number           string `json:"number"`
	Status           string `json:"status"`
	Currency         string `json:"currency"`
	TotalCents       int64  `json:"total_cents"`
	OtherTotalsCents *int64 `json:"other_orders_total_cents"`
	Warning          string `json:"warning,omitempty"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(h.Auth))
		r.Post("/orders", h.createOrder)
		r.Get("/orders/{id}", h.getOrder)
	})
	r.Get("/variants", h.listVariants)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, reason, message string) {
	writeJSON(w, code, map[string]string{"error": reason, "message": message})
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var in orders.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "invalid json body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userID := UserID(ctx)
	res, err := h.Service.PlaceOrder(ctx, userID, in)

	var aggErr *orders.AggregateError
	if err != nil && !errors.As(err, &aggErr) {
		writeError(w, statusFor(err), orders.Reason(err), err.Error())
		return
	}
	if res == nil || res.Order == nil {
		writeError(w, http.StatusInternalServerError, "internal", "order result missing")
		return
	}

	h.cacheOrder(ctx, res.Order)
	h.publishPlaced(r, res, userID)

	resp := CreateOrderResp{
		OrderID:    res.Order.ID,
		Number:     res.Order.Number,
		Status:     string(res.Order.Status),
		Currency:   res.Order.Currency,
		TotalCents: res.Order.TotalCents,
	}
	if aggErr != nil {
		// The order committed; only the read-side statistic is missing.
		resp.Warning = orders.Reason(aggErr)
	} else {
		resp.OtherTotalsCents = &res.OtherTotalsCents
	}
	writeJSON(w, http.StatusCreated, resp)
}

func statusFor(err error) int {
	var verr *orders.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, orders.ErrInvalidVariant),
		errors.Is(err, orders.ErrCurrencyMismatch),
		errors.Is(err, orders.ErrNegativeTotal):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, orders.ErrAddressNotFound):
		return http.StatusForbidden
	case errors.Is(err, orders.ErrInsufficientStock),
		errors.Is(err, orders.ErrLevelConflict),
		errors.Is(err, orders.ErrLevelMissing):
		return http.StatusConflict
	case orders.IsClientDBError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// cacheOrder stores the GET representation so reads can serve it without
// touching the database.
func (h *OrdersHandler) cacheOrder(ctx context.Context, o *orders.Order) {
	key := fmt.Sprintf(redisx.KeyOrder, o.UserID, o.ID)
	body, _ := json.Marshal(toOrderResp(o))
	if err := h.Cache.Set(ctx, key, body, redisx.TTLOrderCache); err != nil {
		h.Log.Warn("order cache set failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (h *OrdersHandler) publishPlaced(r *http.Request, res *orders.PlacedOrder, userID string) {
	traceID := r.Header.Get("X-Request-Id")

	items := make([]orders.ItemLine, 0, len(res.Lines))
	for _, ln := range res.Lines {
		items = append(items, orders.ItemLine{
			VariantID:      ln.VariantID,
			Quantity:       ln.Quantity,
			UnitPriceCents: ln.UnitPriceCents,
		})
	}
	h.publish(h.Orders, orders.EventOrderPlaced, res.Order.ID, traceID,
		orders.OrderPlacedPayload{
			OrderID:    res.Order.ID,
			Number:     res.Order.Number,
			UserID:     userID,
			Status:     string(res.Order.Status),
			Currency:   res.Order.Currency,
			TotalCents: res.Order.TotalCents,
			Items:      items,
		})

	for _, m := range res.Movements {
		h.publish(h.Movements, orders.EventMovementRecorded, res.Order.ID, traceID,
			orders.MovementRecordedPayload{
				MovementID: m.ID,
				VariantID:  m.VariantID,
				Delta:      m.Delta,
				Reason:     m.Reason,
				OrderID:    m.OrderID,
				UserID:     m.UserID,
				Metadata:   m.Metadata,
			})
	}
}

func (h *OrdersHandler) publish(p *kafkax.Producer, eventType, orderID, traceID string, payload any) {
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Name,
		TraceID:       traceID,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

type orderResp struct {
	OrderID       string `json:"order_id"`
	Number        string `json:"number"`
	Status        string `json:"status"`
	Currency      string `json:"currency"`
	SubtotalCents int64  `json:"subtotal_cents"`
	ShippingCents int64  `json:"shipping_cents"`
	TaxCents      int64  `json:"tax_cents"`
	DiscountCents int64  `json:"discount_cents"`
	TotalCents    int64  `json:"total_cents"`
}

func toOrderResp(o *orders.Order) orderResp {
	return orderResp{
		OrderID:       o.ID,
		Number:        o.Number,
		Status:        string(o.Status),
		Currency:      o.Currency,
		SubtotalCents: o.SubtotalCents,
		ShippingCents: o.ShippingCents,
		TaxCents:      o.TaxCents,
		DiscountCents: o.DiscountCents,
		TotalCents:    o.TotalCents,
	}
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "invalid_payload", "missing order id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	userID := UserID(ctx)

	// Cache first; the key is owner-scoped so a hit is already authorized.
	key := fmt.Sprintf(redisx.KeyOrder, userID, orderID)
	if s, err := h.Cache.Get(ctx, key); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	o, err := h.Repo.GetUserOrder(ctx, userID, orderID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "order_not_found", "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

type variantResp struct {
	ID             string `json:"id"`
	SKU            string `json:"sku"`
	Title          string `json:"title"`
	PriceCents     int64  `json:"price_cents"`
	Currency       string `json:"currency"`
	TrackInventory bool   `json:"track_inventory"`
}

func (h *OrdersHandler) listVariants(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	vs, err := h.Repo.ListVariants(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	out := make([]variantResp, 0, len(vs))
	for _, v := range vs {
		out = append(out, variantResp{
			ID:             v.ID,
			SKU:            v.SKU,
			Title:          v.ProductTitle,
			PriceCents:     v.PriceCents,
			Currency:       v.Currency,
			TrackInventory: v.TrackInventory,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
