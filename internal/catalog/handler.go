// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ListResponse is the body served by GET /products and understood by the
// HTTP product source client.
type ListResponse struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

type Handler struct {
	source Source
	logger *zap.Logger
}

func NewHandler(source Source, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{source: source, logger: logger}
}

// Routes mounts the catalog endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/products", h.HandleProducts)
}

func (h *Handler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.source.FetchProducts(r.Context())
	if err != nil {
		h.logger.Error("list products", zap.Error(err))
		http.Error(w, "failed to list products", http.StatusInternalServerError)
		return
	}
	if products == nil {
		products = []Product{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ListResponse{Products: products, Total: len(products)})
}
