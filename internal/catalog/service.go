// internal/catalog/service.go
package catalog

import (
	"context"
)

// Source fetches the full list of available products. Latency and
// transport are up to the implementation.
type Source interface {
	FetchProducts(ctx context.Context) ([]Product, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) ([]Product, error)

func (f SourceFunc) FetchProducts(ctx context.Context) ([]Product, error) {
	return f(ctx)
}

// StaticSource always returns the same products.
type StaticSource []Product

func (s StaticSource) FetchProducts(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Product, len(s))
	copy(out, s)
	return out, nil
}
