package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InventoryRepo is the Postgres InventoryStore. Concurrency safety comes
// from UpdateLevel's conditional write; no transaction spans the ledger's
// read and write.
type InventoryRepo struct{ DB *pgxpool.Pool }

func (r *InventoryRepo) GetLevels(ctx context.Context, variantIDs []string) (map[string]Level, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT variant_id, on_hand, reserved
		FROM inventory_levels WHERE variant_id = ANY($1)`, variantIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Level, len(variantIDs))
	for rows.Next() {
		var id string
		var l Level
		if err := rows.Scan(&id, &l.OnHand, &l.Reserved); err != nil {
			return nil, err
		}
		out[id] = l
	}
	return out, rows.Err()
}

// UpdateLevel writes next only if the row still holds expected. Zero rows
// affected means another request changed the counters in between: the
// caller gets ErrLevelConflict and must abort.
func (r *InventoryRepo) UpdateLevel(ctx context.Context, variantID string, expected, next Level) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE inventory_levels
		SET on_hand=$2, reserved=$3, updated_at=now()
		WHERE variant_id=$1 AND on_hand=$4 AND reserved=$5`,
		variantID, next.OnHand, next.Reserved, expected.OnHand, expected.Reserved)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrLevelConflict
	}
	return nil
}

func (r *InventoryRepo) InsertMovements(ctx context.Context, movements []Movement) error {
	for _, m := range movements {
		meta, err := json.Marshal(m.Metadata)
		if err != nil {
			return fmt.Errorf("movement %s: %w", m.VariantID, err)
		}
		_, err = r.DB.Exec(ctx, `
			INSERT INTO inventory_movements(id, variant_id, delta, reason, order_id, user_id, metadata)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			m.ID, m.VariantID, m.Delta, m.Reason, m.OrderID, m.UserID, meta)
		if err != nil {
			return fmt.Errorf("movement %s: %w", m.VariantID, err)
		}
	}
	return nil
}
