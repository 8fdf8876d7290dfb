package handler

import (
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err, "failed to create order", h.logger)
		return
	}

	confirmation, err := h.service.CreateOrder(r.Context(), &req, auth.UserID(r.Context()))
	if err != nil {
		writeDomainError(w, err, "failed to create order", h.logger)
		return
	}

	writeData(w, http.StatusCreated, confirmation, h.logger)
}

// GetByID handles GET /orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err, "failed to retrieve order", h.logger)
		return
	}

	writeData(w, http.StatusOK, order, h.logger)
}

// UpdateStatus handles PUT /admin/orders/{id}/status requests.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req model.StatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, err, "failed to update order status", h.logger)
		return
	}

	status, err := model.ParseOrderStatus(req.Status)
	if err != nil {
		writeDomainError(w, err, "failed to update order status", h.logger)
		return
	}

	change, err := h.service.UpdateStatus(r.Context(), orderID, status)
	if err != nil {
		writeDomainError(w, err, "failed to update order status", h.logger)
		return
	}

	writeData(w, http.StatusOK, change, h.logger)
}

func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "order ID is required", h.logger)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidationFailed, "invalid order ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
