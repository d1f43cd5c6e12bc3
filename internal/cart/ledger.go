// Package cart holds the user's product selections. A Cart is a value:
// every mutation returns a new Cart and never touches the receiver.
package cart

import (
	"errors"
	"fmt"

	"storefront/internal/catalog"
)

var ErrUnknownProduct = errors.New("unknown product")

// Line is one product in the cart. Count is always at least 1.
type Line struct {
	ProductID catalog.ProductID `json:"productId"`
	Count     int               `json:"count"`
}

// Cart is an ordered set of lines keyed by product id. Lines keep the order
// in which they were first created.
type Cart struct {
	lines []Line
}

func (c Cart) Len() int { return len(c.lines) }

func (c Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Lines returns a copy of the lines in insertion order.
func (c Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Count returns the quantity held for id, 0 when there is no line.
func (c Cart) Count(id catalog.ProductID) int {
	if i := c.find(id); i >= 0 {
		return c.lines[i].Count
	}
	return 0
}

func (c Cart) find(id catalog.ProductID) int {
	for i, l := range c.lines {
		if l.ProductID == id {
			return i
		}
	}
	return -1
}

func (c Cart) with(i int, count int) Cart {
	lines := c.Lines()
	lines[i].Count = count
	return Cart{lines: lines}
}

func (c Cart) appended(id catalog.ProductID) Cart {
	lines := make([]Line, len(c.lines), len(c.lines)+1)
	copy(lines, c.lines)
	return Cart{lines: append(lines, Line{ProductID: id, Count: 1})}
}

func (c Cart) without(i int) Cart {
	lines := make([]Line, 0, len(c.lines)-1)
	lines = append(lines, c.lines[:i]...)
	lines = append(lines, c.lines[i+1:]...)
	return Cart{lines: lines}
}

func unknown(id catalog.ProductID) error {
	return fmt.Errorf("%w: %q", ErrUnknownProduct, id)
}

// AddToCart creates a line with count 1. Adding a product that already has
// a line leaves the cart unchanged.
func (c Cart) AddToCart(cat catalog.Catalog, id catalog.ProductID) (Cart, error) {
	if !cat.Contains(id) {
		return c, unknown(id)
	}
	if c.find(id) >= 0 {
		return c, nil
	}
	return c.appended(id), nil
}

// IncrementCounter raises the line's count by one, creating it when absent.
func (c Cart) IncrementCounter(cat catalog.Catalog, id catalog.ProductID) (Cart, error) {
	if !cat.Contains(id) {
		return c, unknown(id)
	}
	i := c.find(id)
	if i < 0 {
		return c.appended(id), nil
	}
	return c.with(i, c.lines[i].Count+1), nil
}

// DecrementCounter lowers the line's count by one. A line at count 1 is
// removed. Decrementing an absent product is a no-op.
func (c Cart) DecrementCounter(id catalog.ProductID) Cart {
	i := c.find(id)
	switch {
	case i < 0:
		return c
	case c.lines[i].Count <= 1:
		return c.without(i)
	default:
		return c.with(i, c.lines[i].Count-1)
	}
}

// DeleteCart removes the line for id regardless of its count.
func (c Cart) DeleteCart(id catalog.ProductID) Cart {
	i := c.find(id)
	if i < 0 {
		return c
	}
	return c.without(i)
}

func (c Cart) ClearCart() Cart {
	return Cart{}
}

// Equal reports whether both carts hold the same lines in the same order.
func (c Cart) Equal(o Cart) bool {
	if len(c.lines) != len(o.lines) {
		return false
	}
	for i := range c.lines {
		if c.lines[i] != o.lines[i] {
			return false
		}
	}
	return true
}
