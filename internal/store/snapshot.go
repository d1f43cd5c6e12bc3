package store

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/pricing"
)

// Snapshot is an immutable view of the catalog, the cart and the total
// derived from them. Version increases by one with every published change.
type Snapshot struct {
	version uint64
	catalog catalog.Catalog
	cart    cart.Cart
	total   decimal.Decimal
}

func newSnapshot(version uint64, cat catalog.Catalog, c cart.Cart) Snapshot {
	return Snapshot{
		version: version,
		catalog: cat,
		cart:    c,
		total:   pricing.ComputeTotal(c, cat),
	}
}

func (s Snapshot) Version() uint64 { return s.version }
func (s Snapshot) Catalog() catalog.Catalog { return s.catalog }
func (s Snapshot) Cart() cart.Cart { return s.cart }
func (s Snapshot) LoadStatus() catalog.Status { return s.catalog.Status() }
func (s Snapshot) LoadError() error { return s.catalog.Err() }
func (s Snapshot) Products() []catalog.Product { return s.catalog.Products() }
func (s Snapshot) CartLines() []cart.Line { return s.cart.Lines() }
func (s Snapshot) TotalPrice() decimal.Decimal { return s.total }
func (s Snapshot) IsEmpty() bool { return s.cart.IsEmpty() }
func (s Snapshot) Count(id catalog.ProductID) int { return s.cart.Count(id) }

// Breakdown pairs each cart line with its product and subtotal.
func (s Snapshot) Breakdown() []pricing.LineTotal {
	return pricing.Breakdown(s.cart, s.catalog)
}

// Orphaned lists the cart lines whose product is absent from the catalog.
// They stay in the cart but do not count towards the total.
func (s Snapshot) Orphaned() []cart.Line {
	var out []cart.Line
	for _, l := range s.cart.Lines() {
		if !s.catalog.Contains(l.ProductID) {
			out = append(out, l)
		}
	}
	return out
}

type snapshotJSON struct {
	Version    uint64              `json:"version"`
	LoadStatus catalog.Status      `json:"loadStatus"`
	LoadError  string              `json:"loadError,omitempty"`
	Products   []catalog.Product   `json:"products"`
	CartLines  []pricing.LineTotal `json:"cartLines"`
	TotalPrice decimal.Decimal     `json:"totalPrice"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	v := snapshotJSON{
		Version:    s.version,
		LoadStatus: s.catalog.Status(),
		Products:   s.catalog.Products(),
		CartLines:  s.Breakdown(),
		TotalPrice: s.total,
	}
	if err := s.catalog.Err(); err != nil {
		v.LoadError = err.Error()
	}
	return json.Marshal(v)
}
