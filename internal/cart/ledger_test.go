package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"storefront/internal/catalog"
)

func testCatalog(ids ...string) catalog.Catalog {
	products := make([]catalog.Product, 0, len(ids))
	for i, id := range ids {
		products = append(products, catalog.Product{
			ID:    catalog.ProductID(id),
			Title: "product " + id,
			Price: decimal.NewFromInt(int64(10 * (i + 1))),
		})
	}
	return catalog.New(products)
}

func TestAddToCart(t *testing.T) {
	cat := testCatalog("1", "2")

	c, err := Cart{}.AddToCart(cat, "1")
	require.NoError(t, err)
	assert.Equal(t, []Line{{ProductID: "1", Count: 1}}, c.Lines())

	again, err := c.AddToCart(cat, "1")
	require.NoError(t, err)
	assert.True(t, again.Equal(c), "adding an existing product must not change its count")
}

func TestAddToCart_UnknownProduct(t *testing.T) {
	c, err := Cart{}.AddToCart(catalog.Catalog{}, "5")
	require.ErrorIs(t, err, ErrUnknownProduct)
	assert.True(t, c.IsEmpty())
}

func TestIncrementCounter(t *testing.T) {
	cat := testCatalog("1")

	c, err := Cart{}.IncrementCounter(cat, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Count("1"))

	c, err = c.IncrementCounter(cat, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.Count("1"))

	_, err = c.IncrementCounter(cat, "9")
	require.ErrorIs(t, err, ErrUnknownProduct)
}

func TestDecrementCounter(t *testing.T) {
	cat := testCatalog("1")

	c, _ := Cart{}.AddToCart(cat, "1")
	c = c.DecrementCounter("1")
	assert.True(t, c.IsEmpty(), "decrement from 1 removes the line")

	c, _ = Cart{}.AddToCart(cat, "1")
	c, _ = c.IncrementCounter(cat, "1")
	c, _ = c.IncrementCounter(cat, "1")
	c = c.DecrementCounter("1")
	assert.Equal(t, 2, c.Count("1"))

	assert.True(t, Cart{}.DecrementCounter("1").IsEmpty())
}

func TestDeleteAndClear(t *testing.T) {
	cat := testCatalog("1", "2")

	c, _ := Cart{}.AddToCart(cat, "1")
	c, _ = c.AddToCart(cat, "2")
	c, _ = c.IncrementCounter(cat, "2")

	deleted := c.DeleteCart("2")
	assert.Equal(t, []Line{{ProductID: "1", Count: 1}}, deleted.Lines())
	assert.True(t, deleted.DeleteCart("2").Equal(deleted))

	assert.True(t, c.ClearCart().IsEmpty())
}

func TestLinesKeepInsertionOrder(t *testing.T) {
	cat := testCatalog("1", "2", "3")

	c, _ := Cart{}.AddToCart(cat, "3")
	c, _ = c.AddToCart(cat, "1")
	c, _ = c.IncrementCounter(cat, "2")
	c, _ = c.IncrementCounter(cat, "3")

	assert.Equal(t, []Line{
		{ProductID: "3", Count: 2},
		{ProductID: "1", Count: 1},
		{ProductID: "2", Count: 1},
	}, c.Lines())
}

func TestMutationsLeaveReceiverUntouched(t *testing.T) {
	cat := testCatalog("1", "2")
	base, _ := Cart{}.AddToCart(cat, "1")
	base, _ = base.IncrementCounter(cat, "1")
	before := base.Lines()

	_, _ = base.IncrementCounter(cat, "1")
	_, _ = base.AddToCart(cat, "2")
	_ = base.DecrementCounter("1")
	_ = base.DeleteCart("1")
	_ = base.ClearCart()

	assert.Equal(t, before, base.Lines())
}

func TestNoLineEverHoldsZero(t *testing.T) {
	ids := []string{"a", "b", "c"}
	cat := testCatalog(ids...)

	rapid.Check(t, func(t *rapid.T) {
		c := Cart{}
		steps := rapid.IntRange(0, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			id := catalog.ProductID(rapid.SampledFrom(append(ids, "unknown")).Draw(t, "id"))
			switch rapid.IntRange(0, 4).Draw(t, "op") {
			case 0:
				c, _ = c.AddToCart(cat, id)
			case 1:
				c, _ = c.IncrementCounter(cat, id)
			case 2:
				c = c.DecrementCounter(id)
			case 3:
				c = c.DeleteCart(id)
			case 4:
				c = c.ClearCart()
			}

			seen := map[catalog.ProductID]bool{}
			for _, l := range c.Lines() {
				if l.Count <= 0 {
					t.Fatalf("line %q has count %d", l.ProductID, l.Count)
				}
				if seen[l.ProductID] {
					t.Fatalf("duplicate line for %q", l.ProductID)
				}
				if !cat.Contains(l.ProductID) {
					t.Fatalf("line %q references unknown product", l.ProductID)
				}
				seen[l.ProductID] = true
			}
		}
	})
}
