package orders

import "fmt"

// PricedLine is an order line before persistence, with the variant's price
// and title captured as an immutable snapshot.
type PricedLine struct {
	VariantID      string
	Quantity       int
	UnitPriceCents int64
	SubtotalCents  int64
	TotalCents     int64
	TitleSnapshot  string
	SKUSnapshot    string
	Tracked        bool
}

type Totals struct {
	SubtotalCents int64
	ShippingCents int64
	TaxCents      int64
	DiscountCents int64
	TotalCents    int64
}

// Price computes line and order totals from the authoritative variants.
// Every requested variant must be present in the map; the orchestrator
// checks that before calling.
func Price(req *OrderRequest, variants map[string]Variant) ([]PricedLine, Totals, error) {
	lines := make([]PricedLine, 0, len(req.Items))
	var subtotal int64
	for _, it := range req.Items {
		v, ok := variants[it.VariantID]
		if !ok {
			return nil, Totals{}, fmt.Errorf("%w: %s", ErrInvalidVariant, it.VariantID)
		}
		if v.Currency != req.Currency {
			return nil, Totals{}, fmt.Errorf("%w: variant %s is %s, order is %s",
				ErrCurrencyMismatch, v.ID, v.Currency, req.Currency)
		}
		lineSubtotal := int64(it.Quantity) * v.PriceCents
		lines = append(lines, PricedLine{
			VariantID:      v.ID,
			Quantity:       it.Quantity,
			UnitPriceCents: v.PriceCents,
			SubtotalCents:  lineSubtotal,
			TotalCents:     lineSubtotal, // no per-line tax/discount
			TitleSnapshot:  v.ProductTitle,
			SKUSnapshot:    v.SKU,
			Tracked:        v.TrackInventory,
		})
		subtotal += lineSubtotal
	}

	totals := Totals{
		SubtotalCents: subtotal,
		ShippingCents: req.ShippingCents,
		TaxCents:      req.TaxCents,
		DiscountCents: req.DiscountCents,
		TotalCents:    subtotal + req.ShippingCents + req.TaxCents - req.DiscountCents,
	}
	if totals.TotalCents < 0 {
		return nil, Totals{}, fmt.Errorf("%w: %d", ErrNegativeTotal, totals.TotalCents)
	}
	return lines, totals, nil
}
