// Package store is the storefront's single source of truth. It applies
// intents one at a time on a single goroutine and publishes each resulting
// Snapshot to readers and subscribers.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/metrics"
)

var ErrStoreClosed = errors.New("store closed")

const (
	outcomeApplied   = "applied"
	outcomeUnchanged = "unchanged"
	outcomeDeclined  = "declined"
	outcomeIgnored   = "ignored"
)

type request struct {
	ctx    context.Context
	intent Intent
	reply  chan response
}

type response struct {
	snap Snapshot
	err  error
}

// Store owns the catalog and cart. Create it with New and drive it with Run.
type Store struct {
	loader  *catalog.Loader
	logger  *zap.Logger
	metrics *metrics.Registry
	tracer  trace.Tracer

	requests  chan request
	results   chan catalog.Result
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	runOnce   sync.Once

	current atomic.Pointer[Snapshot]

	subMu   sync.Mutex
	subs    map[uint64]chan Snapshot
	nextSub uint64

	// Owned by the Run goroutine.
	generation  uint64
	cancelFetch context.CancelFunc
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Store) { s.metrics = reg }
}

func New(loader *catalog.Loader, opts ...Option) *Store {
	s := &Store{
		loader:   loader,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer("storefront/store"),
		requests: make(chan request),
		results:  make(chan catalog.Result),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		subs:     make(map[uint64]chan Snapshot),
	}
	initial := newSnapshot(0, catalog.Catalog{}, cart.Cart{})
	s.current.Store(&initial)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the latest published snapshot. Safe for concurrent use.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Run applies intents and fetch results until ctx is done or Close is
// called. In-flight fetches are cancelled on return. Run may only be called
// once.
func (s *Store) Run(ctx context.Context) error {
	started := false
	s.runOnce.Do(func() { started = true })
	if !started {
		return errors.New("store already running")
	}

	defer s.shutdown()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.closing:
			return nil
		case req := <-s.requests:
			snap, err := s.apply(ctx, req)
			req.reply <- response{snap: snap, err: err}
		case res := <-s.results:
			s.complete(res)
		}
	}
}

// Close stops Run. Dispatch returns ErrStoreClosed afterwards.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func (s *Store) shutdown() {
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	close(s.done)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// Dispatch submits an intent and waits until it has been applied. The
// returned snapshot reflects the intent. A declined intent returns the
// unchanged snapshot together with the reason, such as
// cart.ErrUnknownProduct.
func (s *Store) Dispatch(ctx context.Context, intent Intent) (Snapshot, error) {
	req := request{ctx: ctx, intent: intent, reply: make(chan response, 1)}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return s.Snapshot(), ctx.Err()
	case <-s.closing:
		return s.Snapshot(), ErrStoreClosed
	case <-s.done:
		return s.Snapshot(), ErrStoreClosed
	}

	resp := <-req.reply
	return resp.snap, resp.err
}

// Subscribe returns a channel that always offers the most recent snapshot.
// It starts with the current one. A slow reader skips intermediate
// snapshots rather than stalling the store. cancel releases the channel.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.subMu.Lock()
	select {
	case <-s.done:
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.Snapshot()
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if _, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

func (s *Store) apply(ctx context.Context, req request) (Snapshot, error) {
	_, span := s.tracer.Start(req.ctx, "store.apply", trace.WithAttributes(
		attribute.String("intent.kind", req.intent.Kind.String()),
		attribute.String("intent.product_id", req.intent.ProductID.String()),
	))
	defer span.End()

	cur := s.Snapshot()
	kind := req.intent.Kind.String()
	id := req.intent.ProductID

	var (
		nextCart = cur.cart
		nextCat  = cur.catalog
		err      error
	)
	switch req.intent.Kind {
	case KindLoadCatalog:
		var started bool
		nextCat, started = cur.catalog.BeginLoad()
		if !started {
			s.logger.Debug("catalog load already in flight", zap.Uint64("generation", s.generation))
			s.metrics.Intent(kind, outcomeIgnored)
			return cur, nil
		}
		s.startFetch(ctx)
	case KindRefreshCatalog:
		if s.cancelFetch != nil {
			s.logger.Debug("superseding in-flight catalog load", zap.Uint64("generation", s.generation))
			s.cancelFetch()
		}
		nextCat, _ = cur.catalog.BeginLoad()
		s.startFetch(ctx)
	case KindAddToCart:
		nextCart, err = cur.cart.AddToCart(cur.catalog, id)
	case KindIncrementCounter:
		nextCart, err = cur.cart.IncrementCounter(cur.catalog, id)
	case KindDecrementCounter:
		nextCart = cur.cart.DecrementCounter(id)
	case KindDeleteCart:
		nextCart = cur.cart.DeleteCart(id)
	case KindClearCart:
		nextCart = cur.cart.ClearCart()
	default:
		err = errors.New("unknown intent")
	}

	if err != nil {
		span.RecordError(err)
		s.logger.Debug("intent declined", zap.String("intent", kind), zap.String("product_id", id.String()), zap.Error(err))
		s.metrics.Intent(kind, outcomeDeclined)
		return cur, err
	}

	changed := nextCat.Status() != cur.catalog.Status() || !nextCart.Equal(cur.cart)
	switch {
	case changed, req.intent.Kind == KindRefreshCatalog:
		s.metrics.Intent(kind, outcomeApplied)
	default:
		s.metrics.Intent(kind, outcomeUnchanged)
	}
	if !changed {
		return cur, nil
	}
	return s.commit(nextCat, nextCart), nil
}

func (s *Store) startFetch(ctx context.Context) {
	s.generation++
	s.cancelFetch = s.loader.Start(ctx, s.generation, s.deliver)
}

func (s *Store) deliver(res catalog.Result) {
	select {
	case s.results <- res:
	case <-s.done:
	}
}

// complete applies a fetch result. Results from superseded fetches are
// dropped so an older response can never overwrite a newer one.
func (s *Store) complete(res catalog.Result) {
	if res.Generation != s.generation {
		s.logger.Debug("discarding stale catalog result",
			zap.Uint64("generation", res.Generation),
			zap.Uint64("current", s.generation))
		s.metrics.CatalogLoad("stale")
		return
	}
	s.cancelFetch = nil

	cur := s.Snapshot()
	var next catalog.Catalog
	if res.Err != nil {
		next = cur.catalog.Failed(res.Err)
		s.logger.Warn("catalog load failed", zap.Error(res.Err))
		s.metrics.CatalogLoad("failed")
	} else {
		next = cur.catalog.Loaded(res.Products)
		s.logger.Info("catalog loaded", zap.Int("products", next.Len()))
		s.metrics.CatalogLoad("loaded")
	}

	snap := s.commit(next, cur.cart)
	if orphaned := snap.Orphaned(); len(orphaned) > 0 {
		s.logger.Info("cart lines no longer in catalog", zap.Int("lines", len(orphaned)))
	}
}

// commit builds the next snapshot, recomputing the total, and publishes it.
func (s *Store) commit(cat catalog.Catalog, c cart.Cart) Snapshot {
	snap := newSnapshot(s.Snapshot().version+1, cat, c)
	s.current.Store(&snap)

	total, _ := snap.total.Float64()
	s.metrics.Published(c.Len(), total)

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
	return snap
}
