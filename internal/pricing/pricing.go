// Package pricing derives cart totals from a cart and a catalog.
package pricing

import (
	"github.com/shopspring/decimal"

	"storefront/internal/cart"
	"storefront/internal/catalog"
)

// LineTotal pairs a cart line with its resolved product. Product is nil for
// orphaned lines, whose product is missing from the catalog.
type LineTotal struct {
	cart.Line
	Product  *catalog.Product `json:"product,omitempty"`
	Subtotal decimal.Decimal  `json:"subtotal"`
}

func (l LineTotal) Orphaned() bool { return l.Product == nil }

// ComputeTotal sums price × count over every line whose product resolves
// in cat. Orphaned lines contribute zero. Decimal arithmetic keeps the sum
// exact regardless of order.
func ComputeTotal(c cart.Cart, cat catalog.Catalog) decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines() {
		p, ok := cat.Lookup(l.ProductID)
		if !ok {
			continue
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Count))))
	}
	return total
}

// Breakdown resolves every line in cart order.
func Breakdown(c cart.Cart, cat catalog.Catalog) []LineTotal {
	lines := c.Lines()
	out := make([]LineTotal, 0, len(lines))
	for _, l := range lines {
		lt := LineTotal{Line: l, Subtotal: decimal.Zero}
		if p, ok := cat.Lookup(l.ProductID); ok {
			lt.Product = &p
			lt.Subtotal = p.Price.Mul(decimal.NewFromInt(int64(l.Count)))
		}
		out = append(out, lt)
	}
	return out
}
