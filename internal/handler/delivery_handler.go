package handler

import (
	"context"
	"net/http"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// LocationLister lists delivery locations open for checkout.
type LocationLister interface {
	ActiveLocations(ctx context.Context) ([]model.DeliveryLocation, error)
}

// DeliveryHandler handles delivery-location HTTP requests.
type DeliveryHandler struct {
	locations LocationLister
	logger    zerolog.Logger
}

// NewDeliveryHandler creates a new delivery handler.
func NewDeliveryHandler(locations LocationLister, logger zerolog.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		locations: locations,
		logger:    logger.With().Str("handler", "delivery").Logger(),
	}
}

// ListActive handles GET /api/delivery-locations.
func (h *DeliveryHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	locations, err := h.locations.ActiveLocations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to retrieve delivery locations", h.logger)
		return
	}

	if locations == nil {
		locations = []model.DeliveryLocation{}
	}
	writeJSON(w, http.StatusOK, locations)
}
