// internal/catalog/loader.go
package catalog

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Result is the outcome of one fetch. Generation echoes the value passed to
// Loader.Start so the receiver can discard superseded fetches.
type Result struct {
	Generation uint64
	Products   []Product
	Err        error
}

// Loader runs product fetches asynchronously against a Source.
type Loader struct {
	source        Source
	timeout       time.Duration
	logger        *zap.Logger
	tracer        trace.Tracer
	fetchDuration metric.Float64Histogram
}

type LoaderOption func(*Loader)

// WithFetchTimeout bounds every fetch. Zero disables the bound.
func WithFetchTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) { l.timeout = d }
}

func WithLoaderLogger(logger *zap.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

func NewLoader(source Source, opts ...LoaderOption) *Loader {
	l := &Loader{
		source: source,
		logger: zap.NewNop(),
		tracer: otel.Tracer("storefront/catalog"),
	}
	for _, opt := range opts {
		opt(l)
	}

	hist, err := otel.Meter("storefront/catalog").Float64Histogram(
		"catalog.fetch.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of product source fetches"),
	)
	if err != nil {
		l.logger.Warn("fetch duration histogram unavailable", zap.Error(err))
	}
	l.fetchDuration = hist
	return l
}

// Start fetches in a new goroutine and calls deliver exactly once with the
// result. Cancelling the returned func aborts the fetch; deliver is still
// called, carrying the context error.
func (l *Loader) Start(ctx context.Context, generation uint64, deliver func(Result)) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		products, err := l.fetch(ctx, generation)
		deliver(Result{Generation: generation, Products: products, Err: err})
	}()
	return cancel
}

func (l *Loader) fetch(ctx context.Context, generation uint64) (products []Product, err error) {
	ctx, span := l.tracer.Start(ctx, "catalog.fetch",
		trace.WithAttributes(attribute.Int64("fetch.generation", int64(generation))),
	)
	defer span.End()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			products, err = nil, fmt.Errorf("product source panicked: %v", r)
		}
		if l.fetchDuration != nil {
			l.fetchDuration.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(attribute.Bool("success", err == nil)))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return
		}
		span.SetAttributes(attribute.Int("products.loaded", len(products)))
	}()

	products, err = l.source.FetchProducts(ctx)
	if err != nil {
		l.logger.Debug("product fetch failed", zap.Uint64("generation", generation), zap.Error(err))
		return nil, err
	}
	return products, nil
}
