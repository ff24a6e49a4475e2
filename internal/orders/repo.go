package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres store for addresses, variants and orders.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) GetUserAddress(ctx context.Context, userID, addressID string) (*Address, error) {
	var a Address
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, line1, COALESCE(line2,''), city, post_code, country, created_at
		FROM addresses WHERE id=$1 AND user_id=$2`, addressID, userID,
	).Scan(&a.ID, &a.UserID, &a.Line1, &a.Line2, &a.City, &a.PostCode, &a.Country, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repo) ListByIDs(ctx context.Context, ids []string) ([]Variant, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT v.id, v.product_id, v.sku, p.title, v.price_cents, v.currency,
		       v.track_inventory, v.created_at, v.updated_at
		FROM variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.ProductTitle, &v.PriceCents,
			&v.Currency, &v.TrackInventory, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repo) ListVariants(ctx context.Context) ([]Variant, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT v.id, v.product_id, v.sku, p.title, v.price_cents, v.currency,
		       v.track_inventory, v.created_at, v.updated_at
		FROM variants v
		JOIN products p ON p.id = v.product_id
		ORDER BY v.sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.ProductTitle, &v.PriceCents,
			&v.Currency, &v.TrackInventory, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *Repo) InsertOrder(ctx context.Context, o *Order) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO orders(id, user_id, number, status, currency,
			subtotal_cents, shipping_cents, tax_cents, discount_cents, total_cents,
			shipping_address_id, billing_address_id, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.UserID, o.Number, o.Status, o.Currency,
		o.SubtotalCents, o.ShippingCents, o.TaxCents, o.DiscountCents, o.TotalCents,
		o.ShippingAddressID, o.BillingAddressID, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *Repo) InsertLines(ctx context.Context, lines []OrderLine) error {
	for _, ln := range lines {
		_, err := r.DB.Exec(ctx, `
			INSERT INTO order_lines(id, order_id, variant_id, quantity,
				unit_price_cents, subtotal_cents, total_cents, title_snapshot, sku_snapshot)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			ln.ID, ln.OrderID, ln.VariantID, ln.Quantity,
			ln.UnitPriceCents, ln.SubtotalCents, ln.TotalCents, ln.TitleSnapshot, ln.SKUSnapshot)
		if err != nil {
			return fmt.Errorf("line %s: %w", ln.VariantID, err)
		}
	}
	return nil
}

// SoftDelete marks the order invisible to normal reads. Never hard-delete:
// the number stays claimed and the audit trail stays intact.
func (r *Repo) SoftDelete(ctx context.Context, orderID string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE orders SET deleted_at = now(), updated_at = now()
		WHERE id=$1 AND deleted_at IS NULL`, orderID)
	return err
}

func (r *Repo) SumOtherTotals(ctx context.Context, excludeOrderID string) (int64, error) {
	var sum int64
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_cents), 0) FROM orders
		WHERE deleted_at IS NULL AND id <> $1`, excludeOrderID).Scan(&sum)
	return sum, err
}

// GetUserOrder returns an active order owned by the user.
func (r *Repo) GetUserOrder(ctx context.Context, userID, orderID string) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, number, status, currency,
		       subtotal_cents, shipping_cents, tax_cents, discount_cents, total_cents,
		       shipping_address_id, billing_address_id, created_at, updated_at
		FROM orders
		WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL`, orderID, userID,
	).Scan(&o.ID, &o.UserID, &o.Number, &o.Status, &o.Currency,
		&o.SubtotalCents, &o.ShippingCents, &o.TaxCents, &o.DiscountCents, &o.TotalCents,
		&o.ShippingAddressID, &o.BillingAddressID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
