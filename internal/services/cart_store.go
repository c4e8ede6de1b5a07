package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"bakeshop/internal/models"
	"bakeshop/internal/storage"

	"github.com/shopspring/decimal"
)

// CartChange describes what a cart mutation did to the store.
type CartChange string

const (
	CartLineCreated CartChange = "line_created"
	CartLineMerged  CartChange = "line_merged"
	CartLineUpdated CartChange = "line_updated"
	CartLineRemoved CartChange = "line_removed"
	CartCleared     CartChange = "cleared"
	CartUnchanged   CartChange = "unchanged"
	CartRejected    CartChange = "rejected"
)

// CartOutcome is the result value every cart command returns. Rejections
// carry a reason; they never surface as errors because a rejected mutation
// leaves the cart in a perfectly valid state.
type CartOutcome struct {
	Change CartChange       `json:"change"`
	Line   *models.CartLine `json:"line,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// CartStore keeps a buyer's cart as one line per distinct product, keyed by
// product ID so merge and removal stay O(1). Every mutation writes the
// current snapshot through the injected KeyValueStore; a failed write is
// logged and ignored since the in-memory state stays authoritative for the
// session.
type CartStore struct {
	key   string
	lines map[string]models.CartLine
	kv    storage.KeyValueStore
	mu    sync.RWMutex
}

// NewCartStore creates an empty CartStore persisting under the given key.
func NewCartStore(key string, kv storage.KeyValueStore) *CartStore {
	return &CartStore{
		key:   key,
		lines: make(map[string]models.CartLine),
		kv:    kv,
	}
}

// Add merges quantity onto an existing line for the product, or creates a
// new line capturing the product's current unit price as the snapshot.
// Merging never touches the snapshot: the first-seen price wins.
func (c *CartStore) Add(product models.Product, quantity int) CartOutcome {
	if quantity <= 0 {
		return CartOutcome{Change: CartRejected, Reason: fmt.Sprintf("quantity must be positive, got %d", quantity)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line, exists := c.lines[product.ID]
	if exists {
		line.Quantity += quantity
		c.lines[product.ID] = line
		c.persistLocked()
		return CartOutcome{Change: CartLineMerged, Line: &line}
	}

	line = models.CartLine{
		ProductID:         product.ID,
		Name:              product.Name,
		Quantity:          quantity,
		UnitPriceSnapshot: product.UnitPrice,
		CategoryLabel:     product.CategoryLabel,
	}
	c.lines[product.ID] = line
	c.persistLocked()
	return CartOutcome{Change: CartLineCreated, Line: &line}
}

// SetQuantity replaces a line's quantity exactly. A quantity of zero or
// less removes the line; the store never holds a line with quantity below 1.
func (c *CartStore) SetQuantity(productID string, quantity int) CartOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, exists := c.lines[productID]
	if !exists {
		return CartOutcome{Change: CartUnchanged, Reason: fmt.Sprintf("no cart line for product %s", productID)}
	}

	if quantity <= 0 {
		delete(c.lines, productID)
		c.persistLocked()
		return CartOutcome{Change: CartLineRemoved, Line: &line}
	}

	line.Quantity = quantity
	c.lines[productID] = line
	c.persistLocked()
	return CartOutcome{Change: CartLineUpdated, Line: &line}
}

// Remove deletes the line for a product. Removing an absent product is a
// no-op, not an error.
func (c *CartStore) Remove(productID string) CartOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	line, exists := c.lines[productID]
	if !exists {
		return CartOutcome{Change: CartUnchanged}
	}

	delete(c.lines, productID)
	c.persistLocked()
	return CartOutcome{Change: CartLineRemoved, Line: &line}
}

// Clear empties the cart.
func (c *CartStore) Clear() CartOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = make(map[string]models.CartLine)
	c.persistLocked()
	return CartOutcome{Change: CartCleared}
}

// Line returns the cart line for a product, if present.
func (c *CartStore) Line(productID string) (models.CartLine, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	line, ok := c.lines[productID]
	return line, ok
}

// Lines returns a copy of all cart lines, ordered by product ID so callers
// see a stable listing.
func (c *CartStore) Lines() []models.CartLine {
	c.mu.RLock()
	defer c.mu.RUnlock()

	lineList := make([]models.CartLine, 0, len(c.lines))
	for _, line := range c.lines {
		lineList = append(lineList, line)
	}
	sort.Slice(lineList, func(i, j int) bool {
		return lineList[i].ProductID < lineList[j].ProductID
	})
	return lineList
}

// TotalItems returns the sum of quantities across all lines.
func (c *CartStore) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := 0
	for _, line := range c.lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice returns the sum of snapshot price times quantity across all lines.
func (c *CartStore) TotalPrice() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// Snapshot serializes the current lines for durability.
func (c *CartStore) Snapshot() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Restore replaces the cart contents from a serialized snapshot. Malformed
// or missing input yields an empty cart; persistence corruption must never
// crash the store.
func (c *CartStore) Restore(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = make(map[string]models.CartLine)
	if len(raw) == 0 {
		return
	}

	var saved []models.CartLine
	if err := json.Unmarshal(raw, &saved); err != nil {
		log.Printf("Discarding malformed cart snapshot for %s: %v", c.key, err)
		return
	}

	for _, line := range saved {
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		c.lines[line.ProductID] = line
	}
}

// RestoreFromStore loads the persisted snapshot for this cart's key. A
// missing or unreadable snapshot initializes an empty cart.
func (c *CartStore) RestoreFromStore() {
	raw, err := c.kv.Get(c.key)
	if err != nil {
		if err != storage.ErrKeyNotFound {
			log.Printf("Failed to load cart snapshot for %s: %v", c.key, err)
		}
		c.Restore(nil)
		return
	}
	c.Restore(raw)
}

func (c *CartStore) snapshotLocked() []byte {
	lineList := make([]models.CartLine, 0, len(c.lines))
	for _, line := range c.lines {
		lineList = append(lineList, line)
	}
	sort.Slice(lineList, func(i, j int) bool {
		return lineList[i].ProductID < lineList[j].ProductID
	})

	raw, err := json.Marshal(lineList)
	if err != nil {
		log.Printf("Failed to marshal cart snapshot for %s: %v", c.key, err)
		return nil
	}
	return raw
}

// persistLocked writes the current snapshot through the key-value store.
// Fire-and-forget: a write failure is logged, never propagated.
func (c *CartStore) persistLocked() {
	if c.kv == nil {
		return
	}
	raw := c.snapshotLocked()
	if raw == nil {
		return
	}
	if err := c.kv.Set(c.key, raw); err != nil {
		log.Printf("Failed to persist cart snapshot for %s: %v", c.key, err)
	}
}
