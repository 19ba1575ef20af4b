package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Stage   string `json:"stage,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON             = "INVALID_JSON"
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeCouponNotFound          = "COUPON_NOT_FOUND"
	ErrCodeCouponExpired           = "COUPON_EXPIRED"
	ErrCodeCouponMinimumNotMet     = "COUPON_MINIMUM_NOT_MET"
	ErrCodeCouponLimitExceeded     = "COUPON_LIMIT_EXCEEDED"
	ErrCodeInactiveLocation        = "INACTIVE_LOCATION"
	ErrCodeLocationNotFound        = "LOCATION_NOT_FOUND"
	ErrCodeEmptyCart               = "EMPTY_CART"
	ErrCodeInvalidQuantity         = "INVALID_QUANTITY"
	ErrCodeInvalidPaymentMethod    = "INVALID_PAYMENT_METHOD"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeCheckoutInProgress      = "CHECKOUT_IN_PROGRESS"
	ErrCodeIdentityResolution      = "IDENTITY_RESOLUTION_FAILED"
	ErrCodeCommitFailed            = "COMMIT_FAILED"
	ErrCodeUnauthorised            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeInternalError           = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidCouponCode       = NewDomainError(ErrCodeValidation, "Coupon code must not be empty")
	ErrCouponNotFound          = NewDomainError(ErrCodeCouponNotFound, "Coupon code does not exist")
	ErrCouponExpired           = NewDomainError(ErrCodeCouponExpired, "Coupon is not active at this time")
	ErrCouponMinimumNotMet     = NewDomainError(ErrCodeCouponMinimumNotMet, "Order subtotal is below the coupon minimum")
	ErrCouponLimitExceeded     = NewDomainError(ErrCodeCouponLimitExceeded, "Coupon usage limit has been reached")
	ErrInactiveLocation        = NewDomainError(ErrCodeInactiveLocation, "Delivery location is not available")
	ErrLocationNotFound        = NewDomainError(ErrCodeLocationNotFound, "Delivery location not found")
	ErrEmptyCart               = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrInvalidQuantity         = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrMissingProductID        = NewDomainError(ErrCodeValidation, "Product ID is required")
	ErrMissingDeliveryLocation = NewDomainError(ErrCodeValidation, "Delivery location is required")
	ErrInvalidPaymentMethod    = NewDomainError(ErrCodeInvalidPaymentMethod, "Payment method must be cash_on_delivery or mobile_money")
	ErrMissingPaymentReference = NewDomainError(ErrCodeValidation, "Mobile money payments require a payment reference")
	ErrMissingSession          = NewDomainError(ErrCodeValidation, "Session identity and email are required")
	ErrOrderNotFound           = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidStatusTransition = NewDomainError(ErrCodeInvalidStatusTransition, "Order status transition is not allowed")
	ErrCheckoutInProgress      = NewDomainError(ErrCodeCheckoutInProgress, "A checkout for this cart is already in progress")
	ErrUnauthenticated         = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden               = NewDomainError(ErrCodeForbidden, "Access to this resource is forbidden")
)

// PriceFetchError reports that the catalog could not supply authoritative prices.
// It is absorbed by the reconciler and never fails a checkout.
type PriceFetchError struct {
	ProductIDs []string
	Err        error
}

func (e *PriceFetchError) Error() string {
	return fmt.Sprintf("fetch prices for %d products: %v", len(e.ProductIDs), e.Err)
}

func (e *PriceFetchError) Unwrap() error {
	return e.Err
}

// IdentityResolutionError reports that a session could not be mapped to an account.
type IdentityResolutionError struct {
	Attempts int
	Err      error
}

func (e *IdentityResolutionError) Error() string {
	return fmt.Sprintf("resolve account after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *IdentityResolutionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the checkout.
func (e *IdentityResolutionError) Retryable() bool {
	return true
}

// CommitStage names the checkout step that failed.
type CommitStage string

const (
	StageValidate CommitStage = "validate"
	StagePricing  CommitStage = "pricing"
	StageCoupon   CommitStage = "coupon"
	StageDelivery CommitStage = "delivery"
	StagePersist  CommitStage = "persist"
)

// CommitError reports a failed order commit. Nothing has been persisted when it is returned.
type CommitError struct {
	Stage CommitStage
	Err   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit order (%s): %v", e.Stage, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// NewCommitError wraps err with the stage it failed in.
func NewCommitError(stage CommitStage, err error) *CommitError {
	return &CommitError{Stage: stage, Err: err}
}

// AsDomainError extracts the first DomainError in err's chain.
func AsDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}
