package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AddressStore interface {
	// GetUserAddress returns the address only if it belongs to the user;
	// otherwise ErrAddressNotFound.
	GetUserAddress(ctx context.Context, userID, addressID string) (*Address, error)
}

type VariantStore interface {
	ListByIDs(ctx context.Context, ids []string) ([]Variant, error)
}

type OrderStore interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertLines(ctx context.Context, lines []OrderLine) error
	SoftDelete(ctx context.Context, orderID string) error
	// SumOtherTotals sums total_cents over every active order except the
	// given one.
	SumOtherTotals(ctx context.Context, excludeOrderID string) (int64, error)
}

// Service sequences one order-creation request end to end and owns its
// failure compensation. Stateless across requests.
type Service struct {
	Addresses AddressStore
	Variants  VariantStore
	Orders    OrderStore
	Ledger    *Ledger
	Log       *zap.Logger

	// Overridable in tests; defaults applied when nil.
	NewNumber func() string
	Now       func() time.Time
}

// PlacedOrder is the result of a committed order. OtherTotalsCents is the
// sum of all other active orders' totals. When the aggregate computation
// fails, PlaceOrder returns the result together with an *AggregateError:
// the order is real, only the statistic is missing.
type PlacedOrder struct {
	Order            *Order
	Lines            []OrderLine
	Movements        []Movement
	OtherTotalsCents int64
}

func (s *Service) PlaceOrder(ctx context.Context, userID string, in CreateOrderInput) (*PlacedOrder, error) {
	req, err := Normalize(in)
	if err != nil {
		return nil, err
	}

	shipping, err := s.Addresses.GetUserAddress(ctx, userID, req.ShippingAddressID)
	if err != nil {
		return nil, fmt.Errorf("shipping address: %w", err)
	}
	billing := shipping
	if req.BillingAddressID != req.ShippingAddressID {
		billing, err = s.Addresses.GetUserAddress(ctx, userID, req.BillingAddressID)
		if err != nil {
			return nil, fmt.Errorf("billing address: %w", err)
		}
	}

	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.VariantID)
	}
	variants, err := s.Variants.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	if len(variants) != len(ids) {
		return nil, fmt.Errorf("%w: %d of %d found", ErrInvalidVariant, len(variants), len(ids))
	}
	byID := make(map[string]Variant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	priced, totals, err := Price(req, byID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &Order{
		ID:                uuid.NewString(),
		UserID:            userID,
		Number:            s.number(),
		Status:            req.Status,
		Currency:          req.Currency,
		SubtotalCents:     totals.SubtotalCents,
		ShippingCents:     totals.ShippingCents,
		TaxCents:          totals.TaxCents,
		DiscountCents:     totals.DiscountCents,
		TotalCents:        totals.TotalCents,
		ShippingAddressID: shipping.ID,
		BillingAddressID:  billing.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	// Nothing exists yet: a failure here needs no compensation.
	if err := s.Orders.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	lines := make([]OrderLine, 0, len(priced))
	for _, pl := range priced {
		lines = append(lines, OrderLine{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			VariantID:      pl.VariantID,
			Quantity:       pl.Quantity,
			UnitPriceCents: pl.UnitPriceCents,
			SubtotalCents:  pl.SubtotalCents,
			TotalCents:     pl.TotalCents,
			TitleSnapshot:  pl.TitleSnapshot,
			SKUSnapshot:    pl.SKUSnapshot,
		})
	}
	if err := s.Orders.InsertLines(ctx, lines); err != nil {
		s.softDelete(ctx, order.ID)
		return nil, fmt.Errorf("insert lines: %w", err)
	}

	mode := ModeForStatus(order.Status)
	tracked := make([]ItemInput, 0, len(priced))
	for _, pl := range priced {
		if pl.Tracked {
			tracked = append(tracked, ItemInput{VariantID: pl.VariantID, Quantity: pl.Quantity})
		}
	}
	applied, err := s.Ledger.Apply(ctx, mode, tracked)
	if err != nil {
		// Undo exactly what was written, not the full batch.
		s.Ledger.Rollback(ctx, mode, applied)
		s.softDelete(ctx, order.ID)
		return nil, fmt.Errorf("apply inventory: %w", err)
	}

	movements, err := s.Ledger.RecordMovements(ctx, mode, applied, order.ID, order.Number, userID)
	if err != nil {
		// The audit trail is part of the atomic unit: no movements, no order.
		s.Ledger.Rollback(ctx, mode, applied)
		s.softDelete(ctx, order.ID)
		return nil, fmt.Errorf("record movements: %w", err)
	}

	res := &PlacedOrder{Order: order, Lines: lines, Movements: movements}
	other, err := s.Orders.SumOtherTotals(ctx, order.ID)
	if err != nil {
		s.Log.Warn("aggregate totals failed",
			zap.String("order_id", order.ID), zap.Error(err))
		return res, &AggregateError{Err: err}
	}
	res.OtherTotalsCents = other
	return res, nil
}

// softDelete is compensation: best-effort, logged, never returned as the
// primary error.
func (s *Service) softDelete(ctx context.Context, orderID string) {
	if err := s.Orders.SoftDelete(ctx, orderID); err != nil {
		s.Log.Error("soft delete failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

func (s *Service) number() string {
	if s.NewNumber != nil {
		return s.NewNumber()
	}
	// Random suffix makes collisions practically impossible; a unique
	// violation on insert is treated as a fatal persistence error.
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return "ORD-" + suffix
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
