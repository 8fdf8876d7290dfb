package handler

import (
	"net/http"

	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// DeliveryHandler serves the delivery methods offered at checkout.
type DeliveryHandler struct {
	service service.DeliveryService
	logger  zerolog.Logger
}

// NewDeliveryHandler creates a new delivery handler.
func NewDeliveryHandler(service service.DeliveryService, logger zerolog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		service: service,
		logger:  logger.With().Str("handler", "delivery").Logger(),
	}
}

// List handles GET /delivery-methods requests.
func (h *DeliveryHandler) List(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "failed to retrieve delivery methods", h.logger)
		return
	}
	writeData(w, http.StatusOK, methods, h.logger)
}
