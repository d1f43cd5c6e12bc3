// internal/catalog/domain.go
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrCatalogLoadFailed = errors.New("catalog load failed")
	ErrInvalidProductID  = errors.New("invalid product id")
)

// ProductID identifies a product within a catalog fetch. Product sources
// emit either JSON numbers or strings; both decode into the same ID.
type ProductID string

func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrInvalidProductID
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProductID, err)
		}
		if s == "" {
			return ErrInvalidProductID
		}
		*id = ProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProductID, err)
	}
	*id = ProductID(n.String())
	return nil
}

func (id ProductID) String() string { return string(id) }

// Product is a sellable item as reported by a Source. Products are never
// mutated after they are received.
type Product struct {
	ID     ProductID       `json:"id"`
	Title  string          `json:"title"`
	Price  decimal.Decimal `json:"price"`
	Images []string        `json:"images"`
}

// Thumbnail returns the first image or "" when the product has none.
func (p Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Status is the load lifecycle of a Catalog.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Catalog is an immutable view of the known products and their load state.
// Every transition returns a new Catalog; the receiver is left untouched.
type Catalog struct {
	products []Product
	index    map[ProductID]int
	status   Status
	err      error
}

// New returns a loaded catalog holding products in the given order. Later
// duplicates of an id are dropped.
func New(products []Product) Catalog {
	return Catalog{status: StatusLoaded}.withProducts(products)
}

func (c Catalog) withProducts(products []Product) Catalog {
	c.products = make([]Product, 0, len(products))
	c.index = make(map[ProductID]int, len(products))
	for _, p := range products {
		if _, dup := c.index[p.ID]; dup {
			continue
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, cloneProduct(p))
	}
	return c
}

func cloneProduct(p Product) Product {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	return p
}

func (c Catalog) Status() Status { return c.status }

// Err is the cause of the last failed load, nil unless Status is StatusFailed.
func (c Catalog) Err() error { return c.err }

func (c Catalog) Len() int { return len(c.products) }

// Products returns a copy of the products in source order.
func (c Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c Catalog) Lookup(id ProductID) (Product, bool) {
	i, ok := c.index[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

func (c Catalog) Contains(id ProductID) bool {
	_, ok := c.index[id]
	return ok
}

// BeginLoad moves idle, loaded or failed catalogs to loading. It reports
// false and leaves the catalog as is when a load is already in flight.
func (c Catalog) BeginLoad() (Catalog, bool) {
	if c.status == StatusLoading {
		return c, false
	}
	c.status = StatusLoading
	c.err = nil
	return c, true
}

// Loaded replaces the products wholesale.
func (c Catalog) Loaded(products []Product) Catalog {
	c = c.withProducts(products)
	c.status = StatusLoaded
	c.err = nil
	return c
}

// Failed records the load error and keeps the last known good products.
func (c Catalog) Failed(cause error) Catalog {
	c.status = StatusFailed
	c.err = fmt.Errorf("%w: %w", ErrCatalogLoadFailed, cause)
	return c
}
