package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryStore is the ledger's view of inventory persistence. UpdateLevel
// is a conditional write: it succeeds only if the row still holds expected,
// and returns ErrLevelConflict otherwise.
type InventoryStore interface {
	GetLevels(ctx context.Context, variantIDs []string) (map[string]Level, error)
	UpdateLevel(ctx context.Context, variantID string, expected, next Level) error
	InsertMovements(ctx context.Context, movements []Movement) error
}

// Adjustment records one variant's applied counter change, kept for rollback.
type Adjustment struct {
	VariantID string
	Quantity  int
	Prev      Level
	Next      Level
}

// Ledger moves inventory counters on behalf of a single order request.
// It holds no state between calls; all coordination happens through the
// store's conditional writes.
type Ledger struct {
	store InventoryStore
	log   *zap.Logger
}

func NewLedger(store InventoryStore, log *zap.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

// Apply adjusts counters for every item per the mode. On failure it returns
// the adjustments already written so the caller can roll back exactly those.
func (l *Ledger) Apply(ctx context.Context, mode Mode, items []ItemInput) ([]Adjustment, error) {
	if mode == ModeNone || len(items) == 0 {
		return nil, nil
	}

	// Aggregate per variant, preserving the supplied order. The normalizer
	// already rejects duplicates on the create path.
	ids := make([]string, 0, len(items))
	qty := make(map[string]int, len(items))
	for _, it := range items {
		if _, ok := qty[it.VariantID]; !ok {
			ids = append(ids, it.VariantID)
		}
		qty[it.VariantID] += it.Quantity
	}

	levels, err := l.store.GetLevels(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("read levels: %w", err)
	}

	var applied []Adjustment
	for _, id := range ids {
		cur, ok := levels[id]
		if !ok {
			return applied, fmt.Errorf("%w: variant %s", ErrLevelMissing, id)
		}
		n := qty[id]
		if cur.Available() < n {
			return applied, &StockError{VariantID: id, Requested: n, Available: cur.Available()}
		}

		next := cur
		switch mode {
		case ModeReserve:
			next.Reserved += n
		case ModePurchase:
			next.OnHand -= n
		}

		if err := l.store.UpdateLevel(ctx, id, cur, next); err != nil {
			return applied, fmt.Errorf("variant %s: %w", id, err)
		}
		applied = append(applied, Adjustment{VariantID: id, Quantity: n, Prev: cur, Next: next})
	}
	return applied, nil
}

// Rollback reverses previously applied adjustments. It is best-effort: the
// caller has already decided to abort, so individual failures are logged
// and never propagated.
func (l *Ledger) Rollback(ctx context.Context, mode Mode, applied []Adjustment) {
	for _, adj := range applied {
		levels, err := l.store.GetLevels(ctx, []string{adj.VariantID})
		if err != nil {
			l.log.Error("rollback: read level failed",
				zap.String("variant_id", adj.VariantID), zap.Error(err))
			continue
		}
		cur, ok := levels[adj.VariantID]
		if !ok {
			l.log.Error("rollback: level row gone", zap.String("variant_id", adj.VariantID))
			continue
		}

		next := cur
		switch mode {
		case ModePurchase:
			next.OnHand += adj.Quantity
		case ModeReserve:
			next.Reserved -= adj.Quantity
			if next.Reserved < 0 {
				// Floored to tolerate concurrent legitimate decrements.
				l.log.Warn("rollback: reserved floored at zero",
					zap.String("variant_id", adj.VariantID),
					zap.Int("reserved", cur.Reserved),
					zap.Int("quantity", adj.Quantity))
				next.Reserved = 0
			}
		}

		if err := l.store.UpdateLevel(ctx, adj.VariantID, cur, next); err != nil {
			l.log.Error("rollback: write failed",
				zap.String("variant_id", adj.VariantID), zap.Error(err))
		}
	}
}

// RecordMovements inserts one audit row per applied adjustment. The delta is
// negative: stock leaving availability. Treated by the orchestrator as part
// of the same atomic unit as the counter change.
func (l *Ledger) RecordMovements(ctx context.Context, mode Mode, applied []Adjustment, orderID, orderNumber, userID string) ([]Movement, error) {
	reason, ok := MovementReason(mode)
	if !ok || len(applied) == 0 {
		return nil, nil
	}

	movements := make([]Movement, 0, len(applied))
	for _, adj := range applied {
		movements = append(movements, Movement{
			ID:        uuid.NewString(),
			VariantID: adj.VariantID,
			Delta:     -adj.Quantity,
			Reason:    reason,
			OrderID:   orderID,
			UserID:    userID,
			Metadata: map[string]string{
				"source":       "order_api",
				"order_number": orderNumber,
			},
		})
	}
	if err := l.store.InsertMovements(ctx, movements); err != nil {
		return nil, fmt.Errorf("insert movements: %w", err)
	}
	return movements, nil
}
