package orders

import (
	"context"
	"sync"
)

// fakeInventory implements InventoryStore with the same conditional-write
// semantics as the Postgres adapter, guarded by a mutex.
type fakeInventory struct {
	mu            sync.Mutex
	levels        map[string]Level
	movements     []Movement
	failMovements error
	failUpdate    error
	updateCalls   int
	readIDs       []string
}

func newFakeInventory(levels map[string]Level) *fakeInventory {
	cp := make(map[string]Level, len(levels))
	for k, v := range levels {
		cp[k] = v
	}
	return &fakeInventory{levels: cp}
}

func (f *fakeInventory) GetLevels(ctx context.Context, variantIDs []string) (map[string]Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readIDs = append(f.readIDs, variantIDs...)
	out := make(map[string]Level, len(variantIDs))
	for _, id := range variantIDs {
		if l, ok := f.levels[id]; ok {
			out[id] = l
		}
	}
	return out, nil
}

func (f *fakeInventory) UpdateLevel(ctx context.Context, variantID string, expected, next Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdate != nil {
		return f.failUpdate
	}
	cur, ok := f.levels[variantID]
	if !ok || cur != expected {
		return ErrLevelConflict
	}
	f.levels[variantID] = next
	return nil
}

func (f *fakeInventory) InsertMovements(ctx context.Context, movements []Movement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMovements != nil {
		return f.failMovements
	}
	f.movements = append(f.movements, movements...)
	return nil
}

func (f *fakeInventory) level(id string) Level {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.levels[id]
}

// fakeRepo implements AddressStore, VariantStore and OrderStore in memory.
type fakeRepo struct {
	mu        sync.Mutex
	addresses map[string]Address
	variants  map[string]Variant
	orders    map[string]*Order
	lines     map[string][]OrderLine

	failInsertOrder error
	failInsertLines error
	failSum         error
	otherTotals     int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		addresses: make(map[string]Address),
		variants:  make(map[string]Variant),
		orders:    make(map[string]*Order),
		lines:     make(map[string][]OrderLine),
	}
}

func (f *fakeRepo) GetUserAddress(ctx context.Context, userID, addressID string) (*Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.addresses[addressID]
	if !ok || a.UserID != userID {
		return nil, ErrAddressNotFound
	}
	return &a, nil
}

func (f *fakeRepo) ListByIDs(ctx context.Context, ids []string) ([]Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Variant
	for _, id := range ids {
		if v, ok := f.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertOrder(ctx context.Context, o *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertOrder != nil {
		return f.failInsertOrder
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeRepo) InsertLines(ctx context.Context, lines []OrderLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsertLines != nil {
		return f.failInsertLines
	}
	if len(lines) > 0 {
		f.lines[lines[0].OrderID] = append([]OrderLine(nil), lines...)
	}
	return nil
}

func (f *fakeRepo) SoftDelete(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok && o.DeletedAt == nil {
		now := o.UpdatedAt
		o.DeletedAt = &now
	}
	return nil
}

func (f *fakeRepo) SumOtherTotals(ctx context.Context, excludeOrderID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSum != nil {
		return 0, f.failSum
	}
	return f.otherTotals, nil
}

func (f *fakeRepo) order(id string) *Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id]
}

func (f *fakeRepo) activeOrders() []*Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Order
	for _, o := range f.orders {
		if o.DeletedAt == nil {
			out = append(out, o)
		}
	}
	return out
}
