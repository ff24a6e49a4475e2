package orders

import "strings"

const defaultCurrency = "EUR"

// CreateOrderInput is the untyped wire form of an order request.
type CreateOrderInput struct {
	ShippingAddressID string      `json:"shipping_address_id"`
	BillingAddressID  string      `json:"billing_address_id"`
	Currency          string      `json:"currency"`
	ShippingCents     int64       `json:"shipping_cents"`
	TaxCents          int64       `json:"tax_cents"`
	DiscountCents     int64       `json:"discount_cents"`
	Status            string      `json:"status"`
	Items             []ItemInput `json:"items"`
}

type ItemInput struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

// OrderRequest is the canonical form produced by Normalize.
type OrderRequest struct {
	ShippingAddressID string
	BillingAddressID  string
	Currency          string
	ShippingCents     int64
	TaxCents          int64
	DiscountCents     int64
	Status            Status
	Items             []ItemInput
}

// Normalize validates and canonicalizes a raw order request. Fields are
// checked in a fixed order and the first violation wins.
func Normalize(in CreateOrderInput) (*OrderRequest, error) {
	shipping := strings.TrimSpace(in.ShippingAddressID)
	if shipping == "" {
		return nil, validationf("shipping_address_id is required")
	}

	billing := strings.TrimSpace(in.BillingAddressID)
	if billing == "" {
		billing = shipping
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency != "" && currency == "" {
		return nil, validationf("currency must not be blank")
	}
	if currency == "" {
		currency = defaultCurrency
	}

	if in.ShippingCents < 0 {
		return nil, validationf("shipping_cents must not be negative")
	}
	if in.TaxCents < 0 {
		return nil, validationf("tax_cents must not be negative")
	}
	if in.DiscountCents < 0 {
		return nil, validationf("discount_cents must not be negative")
	}

	status := StatusPlaced
	if strings.TrimSpace(in.Status) != "" {
		st, ok := ParseStatus(in.Status)
		if !ok {
			return nil, validationf("unknown status %q", in.Status)
		}
		status = st
	}

	if len(in.Items) == 0 {
		return nil, validationf("items must not be empty")
	}
	seen := make(map[string]bool, len(in.Items))
	items := make([]ItemInput, 0, len(in.Items))
	for i, it := range in.Items {
		id := strings.TrimSpace(it.VariantID)
		if id == "" {
			return nil, validationf("items[%d].variant_id is required", i)
		}
		if it.Quantity <= 0 {
			return nil, validationf("items[%d].quantity must be positive", i)
		}
		// Callers must pre-aggregate quantities per variant.
		if seen[id] {
			return nil, validationf("duplicate variant %s in items", id)
		}
		seen[id] = true
		items = append(items, ItemInput{VariantID: id, Quantity: it.Quantity})
	}

	return &OrderRequest{
		ShippingAddressID: shipping,
		BillingAddressID:  billing,
		Currency:          currency,
		ShippingCents:     in.ShippingCents,
		TaxCents:          in.TaxCents,
		DiscountCents:     in.DiscountCents,
		Status:            status,
		Items:             items,
	}, nil
}
