package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service  service.OrderService
	accounts service.AccountResolver
	logger   zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, accounts service.AccountResolver, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		accounts: accounts,
		logger:   logger.With().Str("handler", "order").Logger(),
	}
}

type updateStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// GetByID handles GET /api/orders/{id} for the order's owner.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	account, ok := h.account(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetForAccount(r.Context(), orderID, account.ID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Cancel handles POST /api/orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}
	account, ok := h.account(w, r)
	if !ok {
		return
	}

	order, err := h.service.Cancel(r.Context(), orderID, account.ID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// AdminGetByID handles GET /api/admin/orders/{id}.
func (h *OrderHandler) AdminGetByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/admin/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "unknown order status", h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeValidation, "invalid order ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

// account maps the session to its durable account; orders are never keyed by session.
func (h *OrderHandler) account(w http.ResponseWriter, r *http.Request) (*model.Account, bool) {
	session, ok := requireSession(w, r, h.logger)
	if !ok {
		return nil, false
	}

	account, err := h.accounts.Resolve(r.Context(), session)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return nil, false
	}
	return account, true
}
