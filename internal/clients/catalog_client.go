// internal/clients/catalog_client.go
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"storefront/internal/catalog"
)

// CatalogClient fetches products from a remote product service over HTTP.
// It implements catalog.Source.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	tracer     trace.Tracer
	logger     *zap.Logger
}

type CatalogClientOption func(*CatalogClient)

func WithHTTPClient(c *http.Client) CatalogClientOption {
	return func(cc *CatalogClient) { cc.httpClient = c }
}

// WithRateLimit paces outbound fetches.
func WithRateLimit(limit rate.Limit, burst int) CatalogClientOption {
	return func(cc *CatalogClient) { cc.limiter = rate.NewLimiter(limit, burst) }
}

func WithClientLogger(logger *zap.Logger) CatalogClientOption {
	return func(cc *CatalogClient) { cc.logger = logger }
}

func NewCatalogClient(baseURL string, opts ...CatalogClientOption) *CatalogClient {
	c := &CatalogClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		tracer:     otel.Tracer("storefront/clients/catalog"),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "catalog",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// FetchProducts implements catalog.Source.
func (c *CatalogClient) FetchProducts(ctx context.Context) ([]catalog.Product, error) {
	ctx, span := c.tracer.Start(ctx, "clients.catalog.fetch",
		trace.WithAttributes(attribute.String("catalog.base_url", c.baseURL)))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	products := out.([]catalog.Product)
	span.SetAttributes(attribute.Int("products.loaded", len(products)))
	return products, nil
}

func (c *CatalogClient) fetch(ctx context.Context) ([]catalog.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body catalog.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	if body.Products == nil {
		body.Products = []catalog.Product{}
	}
	return body.Products, nil
}
