package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CartHandler handles cart HTTP requests for the authenticated session.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

type addItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Size      *string         `json:"size,omitempty"`
	Color     *string         `json:"color,omitempty"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

type setDeliveryRequest struct {
	LocationID string `json:"locationId"`
}

// Get handles GET /api/cart. Totals use the cached prices.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.Get(session.ID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Prices handles GET /api/cart/prices.
func (h *CartHandler) Prices(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	priced, err := h.service.Prices(r.Context(), session.ID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, priced)
}

// AddItem handles POST /api/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	view, err := h.service.AddItem(session.ID, model.CartLineItem{
		ProductID:       req.ProductID,
		CachedUnitPrice: req.UnitPrice,
		Quantity:        req.Quantity,
		Size:            req.Size,
		Color:           req.Color,
	})
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// SetQuantity handles PUT /api/cart/items/{productId}. A quantity of zero removes the line.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if req.Quantity < 0 {
		writeDomainError(w, model.ErrInvalidQuantity, h.logger)
		return
	}

	view, err := h.service.SetQuantity(session.ID, chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// RemoveItem handles DELETE /api/cart/items/{productId}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.RemoveItem(session.ID, chi.URLParam(r, "productId"))
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Clear handles DELETE /api/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Clear(session.ID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ApplyCoupon handles POST /api/cart/coupon.
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	var req applyCouponRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	view, err := h.service.ApplyCoupon(r.Context(), session.ID, req.Code)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// RemoveCoupon handles DELETE /api/cart/coupon.
func (h *CartHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	view, err := h.service.RemoveCoupon(session.ID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// SetDelivery handles PUT /api/cart/delivery.
func (h *CartHandler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return
	}

	var req setDeliveryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	view, err := h.service.SetDelivery(r.Context(), session.ID, req.LocationID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
