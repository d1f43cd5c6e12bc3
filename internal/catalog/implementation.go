// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PostgresSource reads active products from the products table.
type PostgresSource struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresSource creates a Source backed by the given database handle.
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{
		db:     db,
		tracer: otel.Tracer("storefront/catalog/postgres"),
	}
}

// FetchProducts returns every active product ordered for display.
func (s *PostgresSource) FetchProducts(ctx context.Context) ([]Product, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.postgres.fetch")
	defer span.End()

	query := `
		SELECT id, title, price, images
		FROM products
		WHERE status = 'active'
		ORDER BY position ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var (
			p      Product
			id     string
			images []string
		)
		if err := rows.Scan(&id, &p.Title, &p.Price, pq.Array(&images)); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.ID = ProductID(id)
		p.Images = images
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	span.SetAttributes(attribute.Int("products.loaded", len(products)))
	return products, nil
}
