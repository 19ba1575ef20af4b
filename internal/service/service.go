package service

import (
	"context"

	"storefront/internal/model"
	"storefront/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderService commits orders and manages their lifecycle.
type OrderService interface {
	// Commit persists an order from resolved checkout inputs. Failures are
	// *model.CommitError and leave nothing persisted.
	Commit(ctx context.Context, req *model.CommitRequest) (*model.Order, error)

	// GetByID retrieves an order by its ID with all items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetForAccount retrieves an order owned by accountID.
	GetForAccount(ctx context.Context, id, accountID uuid.UUID) (*model.Order, error)

	// UpdateStatus applies an administrative status transition.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error)

	// Cancel cancels an order on behalf of its owner.
	Cancel(ctx context.Context, id, accountID uuid.UUID) (*model.Order, error)
}

// CheckoutService sequences the checkout pipeline for a shopper's cart.
type CheckoutService interface {
	Checkout(ctx context.Context, session model.Session, req *model.CheckoutRequest) (*model.Order, error)
}

// CartService runs cart operations for a session.
type CartService interface {
	Get(sessionID string) (*CartView, error)
	Prices(ctx context.Context, sessionID string) (*PricedCart, error)
	AddItem(sessionID string, item model.CartLineItem) (*CartView, error)
	SetQuantity(sessionID, productID string, qty int) (*CartView, error)
	RemoveItem(sessionID, productID string) (*CartView, error)
	Clear(sessionID string) error
	ApplyCoupon(ctx context.Context, sessionID, code string) (*CartView, error)
	RemoveCoupon(sessionID string) (*CartView, error)
	SetDelivery(ctx context.Context, sessionID, locationID string) (*CartView, error)
}

// CouponValidator checks a coupon against a subtotal.
type CouponValidator interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal, accountID *uuid.UUID) (*model.AppliedCoupon, error)
}

// DeliveryResolver gates on location status and quotes shipping.
type DeliveryResolver interface {
	Resolve(ctx context.Context, locationID string) (*model.DeliveryQuote, error)
	ResolveLocation(ctx context.Context, locationID string) (*model.DeliveryLocation, error)
}

// AccountResolver maps a session to its durable account.
type AccountResolver interface {
	Resolve(ctx context.Context, session model.Session) (*model.Account, error)
}

// PriceReconciler supplies authoritative prices for cart lines.
type PriceReconciler interface {
	Reconcile(ctx context.Context, items []model.CartLineItem) *pricing.Result
}

// CartView is a cart snapshot with its display subtotal from cached prices.
type CartView struct {
	model.CartSnapshot
	CachedSubtotal decimal.Decimal `json:"cachedSubtotal"`
}

// PricedCart is a cart priced against the catalogue.
type PricedCart struct {
	Items    []model.ReconciledItem `json:"items"`
	Subtotal decimal.Decimal        `json:"subtotal"`
	Discount decimal.Decimal        `json:"discount"`
	Shipping decimal.Decimal        `json:"shipping"`
	Total    decimal.Decimal        `json:"total"`
	Degraded bool                   `json:"degraded"`
}

func newCartView(snapshot model.CartSnapshot) *CartView {
	return &CartView{CartSnapshot: snapshot, CachedSubtotal: snapshot.CachedSubtotal()}
}
