package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ProductHandler handles product-related HTTP requests.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// List handles GET /products. Query parameters: category, inStock, limit, offset.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	q := model.ProductQuery{Category: params.Get("category")}

	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &q.Limit}, {"offset", &q.Offset}} {
		raw := params.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid "+p.name+" parameter", h.logger)
			return
		}
		*p.dst = n
	}

	if raw := params.Get("inStock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid inStock parameter", h.logger)
			return
		}
		q.InStockOnly = inStock
	}

	products, err := h.service.List(r.Context(), q)
	if err != nil {
		writeDomainError(w, err, "failed to retrieve products", h.logger)
		return
	}

	writeData(w, http.StatusOK, products, h.logger)
}

// Get handles GET /products/{id}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	if productID == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "product ID is required", h.logger)
		return
	}

	product, err := h.service.Get(r.Context(), productID)
	if err != nil {
		if model.ErrorCode(err) == model.ErrCodeProductNotFound {
			writeError(w, http.StatusNotFound, model.ErrCodeProductNotFound, "product not found", h.logger)
			return
		}
		writeDomainError(w, err, "failed to retrieve product", h.logger)
		return
	}

	writeData(w, http.StatusOK, product, h.logger)
}
