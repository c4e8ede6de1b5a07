package services_test

import (
	"testing"

	"bakeshop/internal/models"
	"bakeshop/internal/services"
	"bakeshop/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testProduct(id, name, price string) models.Product {
	return models.Product{
		ID:            id,
		Name:          name,
		UnitPrice:     dec(price),
		CategoryLabel: "Tortas",
	}
}

func TestCartStore_AddMergesQuantity(t *testing.T) {
	cart := services.NewCartStore("cart:test", storage.NewMemoryStore())
	cake := testProduct("p1", "Torta de Chocolate", "15.00")

	outcome := cart.Add(cake, 2)
	assert.Equal(t, services.CartLineCreated, outcome.Change)

	outcome = cart.Add(cake, 3)
	assert.Equal(t, services.CartLineMerged, outcome.Change)
	assert.Equal(t, 5, outcome.Line.Quantity)

	assert.Len(t, cart.Lines(), 1)
	assert.Equal(t, 5, cart.TotalItems())
	assert.True(t, cart.TotalPrice().Equal(dec("75.00")))
}

func TestCartStore_MergeKeepsFirstSeenPrice(t *testing.T) {
	cart := services.NewCartStore("cart:test", storage.NewMemoryStore())

	cart.Add(testProduct("p1", "Torta", "15.00"), 1)
	// A catalog price change between adds must not reprice the line.
	cart.Add(testProduct("p1", "Torta", "18.00"), 1)

	line, ok := cart.Line("p1")
	assert.True(t, ok)
	assert.True(t, line.UnitPriceSnapshot.Equal(dec("15.00")))
	assert.True(t, cart.TotalPrice().Equal(dec("30.00")))
}

func TestCartStore_AddRejectsNonPositiveQuantity(t *testing.T) {
	cart := services.NewCartStore("cart:test", storage.NewMemoryStore())

	outcome := cart.Add(testProduct("p1", "Torta", "15.00"), 0)
	assert.Equal(t, services.CartRejected, outcome.Change)
	assert.NotEmpty(t, outcome.Reason)

	outcome = cart.Add(testProduct("p1", "Torta", "15.00"), -2)
	assert.Equal(t, services.CartRejected, outcome.Change)
	assert.Equal(t, 0, cart.TotalItems())
}

func TestCartStore_SetQuantityZeroRemovesLine(t *testing.T) {
	cart := services.NewCartStore("cart:test", storage.NewMemoryStore())
	cart.Add(testProduct("p1", "Torta", "15.00"), 2)
	cart.Add(testProduct("p2", "Cupcake", "2.50"), 4)

	outcome := cart.SetQuantity("p1", 0)
	assert.Equal(t, services.CartLineRemoved, outcome.Change)

	_, ok := cart.Line("p1")
	assert.False(t, ok)
	assert.Equal(t, 4, cart.TotalItems())
}

func TestCartStore_SetQuantityReplacesExactly(t *testing.T) {
	cart := services.NewCartStore("cart:test", storage.NewMemoryStore())
	cart.Add(testProduct("p1", "Torta", "15.00"), 2)

	outcome := cart.SetQuantity("p1", 7)
	assert.Equal(t, services.CartLineUpdated, outcome.Change)
	assert.Equal(t, 7, outcome.Line.Quantity)
	assert.Equal(t, 7, cart.TotalItems())

	// Unknown products leave the cart untouched.
	outcome = cart.SetQuantity("missing", 3)
	assert.Equal(t, services.CartUnchanged, outcome.Change)
	assert.Equal(t, 7, cart.TotalItems())
}

func TestCartStore_RemoveAbsentIsNoOp(t *testing.T) {
	cart := services.NewCartStore("cart:test", storage.NewMemoryStore())
	cart.Add(testProduct("p1", "Torta", "15.00"), 1)

	outcome := cart.Remove("missing")
	assert.Equal(t, services.CartUnchanged, outcome.Change)

	outcome = cart.Remove("p1")
	assert.Equal(t, services.CartLineRemoved, outcome.Change)
	assert.Equal(t, 0, cart.TotalItems())
}

func TestCartStore_Clear(t *testing.T) {
	cart := services.NewCartStore("cart:test", storage.NewMemoryStore())
	cart.Add(testProduct("p1", "Torta", "15.00"), 2)
	cart.Add(testProduct("p2", "Cupcake", "2.50"), 1)

	outcome := cart.Clear()
	assert.Equal(t, services.CartCleared, outcome.Change)
	assert.Empty(t, cart.Lines())
	assert.True(t, cart.TotalPrice().IsZero())
}

func TestCartStore_SnapshotRoundTrip(t *testing.T) {
	cart := services.NewCartStore("cart:test", storage.NewMemoryStore())
	cart.Add(testProduct("p1", "Torta", "15.00"), 2)
	cart.Add(testProduct("p2", "Cupcake", "2.50"), 3)

	restored := services.NewCartStore("cart:other", storage.NewMemoryStore())
	restored.Restore(cart.Snapshot())

	assert.Equal(t, cart.TotalItems(), restored.TotalItems())
	assert.True(t, cart.TotalPrice().Equal(restored.TotalPrice()))
	assert.Equal(t, cart.Lines(), restored.Lines())
}

func TestCartStore_RestoreMalformedYieldsEmptyCart(t *testing.T) {
	cart := services.NewCartStore("cart:test", storage.NewMemoryStore())
	cart.Add(testProduct("p1", "Torta", "15.00"), 2)

	cart.Restore([]byte("{not json"))
	assert.Empty(t, cart.Lines())
	assert.Equal(t, 0, cart.TotalItems())

	// Lines with broken invariants in a snapshot are dropped, not restored.
	cart.Restore([]byte(`[{"id":"p1","quantity":0},{"id":"","quantity":2},{"id":"p2","name":"Cupcake","quantity":2,"unitPriceSnapshot":"2.50"}]`))
	assert.Len(t, cart.Lines(), 1)
	assert.Equal(t, 2, cart.TotalItems())
}

func TestCartStore_PersistsEveryMutation(t *testing.T) {
	kv := storage.NewMemoryStore()
	cart := services.NewCartStore("cart:buyer-1", kv)
	cart.Add(testProduct("p1", "Torta", "15.00"), 2)
	cart.SetQuantity("p1", 5)

	reloaded := services.NewCartStore("cart:buyer-1", kv)
	reloaded.RestoreFromStore()
	assert.Equal(t, 5, reloaded.TotalItems())
	assert.True(t, reloaded.TotalPrice().Equal(dec("75.00")))

	cart.Clear()
	reloaded = services.NewCartStore("cart:buyer-1", kv)
	reloaded.RestoreFromStore()
	assert.Equal(t, 0, reloaded.TotalItems())
}

func TestCartStore_RestoreFromStoreMissingSnapshot(t *testing.T) {
	cart := services.NewCartStore("cart:new-buyer", storage.NewMemoryStore())
	cart.RestoreFromStore()
	assert.Empty(t, cart.Lines())
}
