package store

import (
	"storefront/internal/catalog"
)

// Kind names a mutation the store accepts.
type Kind int

const (
	KindLoadCatalog Kind = iota + 1
	KindRefreshCatalog
	KindAddToCart
	KindIncrementCounter
	KindDecrementCounter
	KindDeleteCart
	KindClearCart
)

func (k Kind) String() string {
	switch k {
	case KindLoadCatalog:
		return "load_catalog"
	case KindRefreshCatalog:
		return "refresh_catalog"
	case KindAddToCart:
		return "add_to_cart"
	case KindIncrementCounter:
		return "increment_counter"
	case KindDecrementCounter:
		return "decrement_counter"
	case KindDeleteCart:
		return "delete_cart"
	case KindClearCart:
		return "clear_cart"
	default:
		return "unknown"
	}
}

// Intent is a mutation request. ProductID is ignored by the catalog and
// clear intents.
type Intent struct {
	Kind      Kind
	ProductID catalog.ProductID
}

func LoadCatalog() Intent    { return Intent{Kind: KindLoadCatalog} }
func RefreshCatalog() Intent { return Intent{Kind: KindRefreshCatalog} }
func ClearCart() Intent      { return Intent{Kind: KindClearCart} }

func AddToCart(id catalog.ProductID) Intent {
	return Intent{Kind: KindAddToCart, ProductID: id}
}

func IncrementCounter(id catalog.ProductID) Intent {
	return Intent{Kind: KindIncrementCounter, ProductID: id}
}

func DecrementCounter(id catalog.ProductID) Intent {
	return Intent{Kind: KindDecrementCounter, ProductID: id}
}

func DeleteCart(id catalog.ProductID) Intent {
	return Intent{Kind: KindDeleteCart, ProductID: id}
}
