// Package chaos injects faults into product sources so the catalog loader's
// failure and supersession paths can be exercised outside of tests.
package chaos

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/catalog"
)

var ErrInjectedFailure = errors.New("chaos: injected failure")

// Experiment describes the faults applied to every fetch.
type Experiment struct {
	Name string
	// Latency is added before each fetch, plus up to Jitter more.
	Latency time.Duration
	Jitter  time.Duration
	// FailureRate is the probability, 0.0 to 1.0, that a fetch fails with
	// ErrInjectedFailure instead of reaching the wrapped source.
	FailureRate float64
}

func (e Experiment) Enabled() bool {
	return e.Latency > 0 || e.Jitter > 0 || e.FailureRate > 0
}

// Source wraps a catalog.Source with an Experiment.
type Source struct {
	next   catalog.Source
	exp    Experiment
	tracer trace.Tracer

	mu   sync.Mutex
	rand *rand.Rand
}

// Wrap returns next unchanged when the experiment injects nothing.
func Wrap(next catalog.Source, exp Experiment) catalog.Source {
	if !exp.Enabled() {
		return next
	}
	return NewSource(next, exp, rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)))
}

func NewSource(next catalog.Source, exp Experiment, r *rand.Rand) *Source {
	return &Source{
		next:   next,
		exp:    exp,
		tracer: otel.Tracer("storefront/chaos"),
		rand:   r,
	}
}

func (s *Source) FetchProducts(ctx context.Context) ([]catalog.Product, error) {
	ctx, span := s.tracer.Start(ctx, "chaos.fetch",
		trace.WithAttributes(attribute.String("experiment.name", s.exp.Name)))
	defer span.End()

	s.mu.Lock()
	delay := s.exp.Latency
	if s.exp.Jitter > 0 {
		delay += time.Duration(s.rand.Int64N(int64(s.exp.Jitter)))
	}
	fail := s.exp.FailureRate > 0 && s.rand.Float64() < s.exp.FailureRate
	s.mu.Unlock()

	if delay > 0 {
		span.AddEvent("latency.injected", trace.WithAttributes(attribute.Int64("latency.ms", delay.Milliseconds())))
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if fail {
		span.AddEvent("failure.injected")
		return nil, ErrInjectedFailure
	}
	return s.next.FetchProducts(ctx)
}
