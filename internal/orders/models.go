package orders

import "time"

type Variant struct {
	ID             string
	ProductID      string
	SKU            string
	ProductTitle   string
	PriceCents     int64
	Currency       string
	TrackInventory bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Address struct {
	ID        string
	UserID    string
	Line1     string
	Line2     string
	City      string
	PostCode  string
	Country   string
	CreatedAt time.Time
}

type Order struct {
	ID                string
	UserID            string
	Number            string
	Status            Status
	Currency          string
	SubtotalCents     int64
	ShippingCents     int64
	TaxCents          int64
	DiscountCents     int64
	TotalCents        int64
	ShippingAddressID string
	BillingAddressID  string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DeletedAt         *time.Time // nil = active
}

type OrderLine struct {
	ID             string
	OrderID        string
	VariantID      string
	Quantity       int
	UnitPriceCents int64
	SubtotalCents  int64
	TotalCents     int64
	TitleSnapshot  string
	SKUSnapshot    string
}

// Level is one variant's inventory counters. Invariant: 0 <= Reserved <= OnHand.
type Level struct {
	OnHand   int
	Reserved int
}

func (l Level) Available() int { return l.OnHand - l.Reserved }

// Movement is an append-only audit fact; never updated or deleted.
type Movement struct {
	ID        string
	VariantID string
	Delta     int
	Reason    string
	OrderID   string
	UserID    string
	Metadata  map[string]string
	CreatedAt time.Time
}
