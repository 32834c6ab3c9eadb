package cart

import (
	"encoding/json"
	"sync"

	"pasarku-client/internal/logger"
	"pasarku-client/internal/storage"

	"go.uber.org/zap"
)

// Fixed key the serialized cart lives under in the local store.
const cartKey = "cart.items"

// Aggregate holds the selected items in insertion order and enforces the
// single-seller rule: a non-empty cart only accepts items from its current
// seller. Every mutation re-persists the full cart; persistence is
// best-effort and never fails the mutation.
type Aggregate struct {
	mu    sync.Mutex
	store storage.Store
	items []Item
}

func NewAggregate(store storage.Store) *Aggregate {
	a := &Aggregate{store: store}
	a.items = load(store)
	return a
}

// load tolerates a missing or corrupt persisted cart: either reads as empty.
func load(store storage.Store) []Item {
	raw, err := store.Get(cartKey)
	if err != nil {
		return nil
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.L().Warn("discarding corrupt persisted cart", zap.Error(err))
		return nil
	}

	// Drop entries a buggy writer may have left behind.
	kept := items[:0]
	for _, it := range items {
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	return kept
}

// Add puts quantity units of item into the cart, merging with an existing
// entry for the same product. Returns ErrSellerConflict, leaving the cart
// untouched, when the item belongs to a different seller.
func (a *Aggregate) Add(item Item, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.items) > 0 && a.items[0].SellerID != item.SellerID {
		return ErrSellerConflict
	}

	for i := range a.items {
		if a.items[i].ProductID == item.ProductID {
			a.items[i].Quantity += quantity
			a.persist()
			return nil
		}
	}

	item.Quantity = quantity
	a.items = append(a.items, item)
	a.persist()
	return nil
}

// UpdateQuantity sets the quantity of a product; zero or below removes it.
// A non-positive quantity is never stored.
func (a *Aggregate) UpdateQuantity(productID int64, quantity int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if quantity <= 0 {
		a.removeLocked(productID)
		return
	}

	for i := range a.items {
		if a.items[i].ProductID == productID {
			a.items[i].Quantity = quantity
			a.persist()
			return
		}
	}
}

func (a *Aggregate) Remove(productID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.removeLocked(productID)
}

func (a *Aggregate) removeLocked(productID int64) {
	for i := range a.items {
		if a.items[i].ProductID == productID {
			a.items = append(a.items[:i], a.items[i+1:]...)
			a.persist()
			return
		}
	}
}

// Clear empties the cart and erases the persisted copy.
func (a *Aggregate) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.items = nil
	if err := a.store.Delete(cartKey); err != nil {
		logger.L().Warn("failed to erase persisted cart", zap.Error(err))
	}
}

// Items returns a copy in insertion order.
func (a *Aggregate) Items() []Item {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Item, len(a.items))
	copy(out, a.items)
	return out
}

func (a *Aggregate) IsEmpty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items) == 0
}

// SellerID of the cart's current seller; false when the cart is empty.
func (a *Aggregate) SellerID() (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.items) == 0 {
		return 0, false
	}
	return a.items[0].SellerID, true
}

// Total in minor units, from the display snapshots. Not authoritative: the
// server re-prices at order time.
func (a *Aggregate) Total() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	var total int64
	for _, it := range a.items {
		total += it.Subtotal()
	}
	return total
}

func (a *Aggregate) persist() {
	raw, err := json.Marshal(a.items)
	if err != nil {
		logger.L().Warn("failed to encode cart", zap.Error(err))
		return
	}
	if err := a.store.Set(cartKey, raw); err != nil {
		logger.L().Warn("failed to persist cart", zap.Error(err))
	}
}
