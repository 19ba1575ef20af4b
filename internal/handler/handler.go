package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("code", code).Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// domainStatus maps a DomainError code to its HTTP status.
var domainStatus = map[string]int{
	model.ErrCodeInvalidJSON:             http.StatusBadRequest,
	model.ErrCodeValidation:              http.StatusBadRequest,
	model.ErrCodeInvalidQuantity:         http.StatusBadRequest,
	model.ErrCodeInvalidPaymentMethod:    http.StatusBadRequest,
	model.ErrCodeCouponNotFound:          http.StatusNotFound,
	model.ErrCodeLocationNotFound:        http.StatusNotFound,
	model.ErrCodeOrderNotFound:           http.StatusNotFound,
	model.ErrCodeCouponExpired:           http.StatusUnprocessableEntity,
	model.ErrCodeCouponMinimumNotMet:     http.StatusUnprocessableEntity,
	model.ErrCodeCouponLimitExceeded:     http.StatusUnprocessableEntity,
	model.ErrCodeInactiveLocation:        http.StatusUnprocessableEntity,
	model.ErrCodeEmptyCart:               http.StatusUnprocessableEntity,
	model.ErrCodeInvalidStatusTransition: http.StatusConflict,
	model.ErrCodeCheckoutInProgress:      http.StatusConflict,
	model.ErrCodeUnauthorised:            http.StatusUnauthorized,
	model.ErrCodeForbidden:               http.StatusForbidden,
}

// writeDomainError maps err to a status and a {"error","message","stage"} body.
// Anything unrecognised is a 500 with a generic message.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var stage string
	var commitErr *model.CommitError
	if errors.As(err, &commitErr) {
		stage = string(commitErr.Stage)
	}

	status := http.StatusInternalServerError
	resp := model.ErrorResponse{Error: model.ErrCodeInternalError, Message: "internal server error", Stage: stage}

	var identityErr *model.IdentityResolutionError
	switch domainErr, ok := model.AsDomainError(err); {
	case ok:
		status = http.StatusInternalServerError
		if s, known := domainStatus[domainErr.Code]; known {
			status = s
		}
		resp.Error = domainErr.Code
		resp.Message = domainErr.Message
	case errors.As(err, &identityErr):
		status = http.StatusServiceUnavailable
		resp.Error = model.ErrCodeIdentityResolution
		resp.Message = "could not resolve your account, please retry"
		w.Header().Set("Retry-After", "1")
	case commitErr != nil && commitErr.Stage == model.StageValidate:
		status = http.StatusBadRequest
		resp.Error = model.ErrCodeValidation
		resp.Message = commitErr.Err.Error()
	case commitErr != nil:
		resp.Error = model.ErrCodeCommitFailed
		resp.Message = "order could not be committed"
	}

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Str("code", resp.Error).Str("stage", stage).Int("status", status).Msg("request failed")

	writeJSON(w, status, resp)
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// requireSession returns the authenticated session or writes a 401.
func requireSession(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.Session, bool) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeDomainError(w, model.ErrUnauthenticated, logger)
		return model.Session{}, false
	}
	return session, true
}
