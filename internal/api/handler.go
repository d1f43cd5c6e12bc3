// Package api exposes the state container to UI clients over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/metrics"
	"storefront/internal/session"
	"storefront/internal/store"
)

// Dispatcher is the part of the store the API needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent store.Intent) (store.Snapshot, error)
	Snapshot() store.Snapshot
}

type Handler struct {
	store    Dispatcher
	sessions *session.Handler
	metrics  *metrics.Registry
	logger   *zap.Logger
}

func NewHandler(st Dispatcher, sessions *session.Handler, reg *metrics.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: st, sessions: sessions, metrics: reg, logger: logger}
}

// Router builds the full HTTP surface. Catalog and cart routes require a
// session.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h.sessions.Routes(r)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(h.sessions.RequireSession)

		r.Get("/snapshot", h.HandleSnapshot)
		r.Post("/catalog/load", h.intent(func(*http.Request) store.Intent { return store.LoadCatalog() }))
		r.Post("/catalog/refresh", h.intent(func(*http.Request) store.Intent { return store.RefreshCatalog() }))

		r.Delete("/cart", h.intent(func(*http.Request) store.Intent { return store.ClearCart() }))
		r.Route("/cart/{productID}", func(r chi.Router) {
			r.Post("/", h.intent(withProduct(store.AddToCart)))
			r.Delete("/", h.intent(withProduct(store.DeleteCart)))
			r.Post("/increment", h.intent(withProduct(store.IncrementCounter)))
			r.Post("/decrement", h.intent(withProduct(store.DecrementCounter)))
		})
	})
	return r
}

func withProduct(build func(catalog.ProductID) store.Intent) func(*http.Request) store.Intent {
	return func(r *http.Request) store.Intent {
		return build(catalog.ProductID(chi.URLParam(r, "productID")))
	}
}

func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

// errorResponse carries a declined intent's reason with the unchanged
// snapshot.
type errorResponse struct {
	Error    string         `json:"error"`
	Snapshot store.Snapshot `json:"snapshot"`
}

func (h *Handler) intent(build func(*http.Request) store.Intent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intent := build(r)
		snap, err := h.store.Dispatch(r.Context(), intent)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, snap)
		case errors.Is(err, cart.ErrUnknownProduct):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Snapshot: snap})
		case errors.Is(err, store.ErrStoreClosed):
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		default:
			h.logger.Error("dispatch intent",
				zap.String("intent", intent.Kind.String()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
