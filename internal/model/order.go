package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// forward ordering of non-cancelled states
var statusRank = map[OrderStatus]int{
	OrderPending:    0,
	OrderConfirmed:  1,
	OrderProcessing: 2,
	OrderShipped:    3,
	OrderDelivered:  4,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	if s == OrderCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Non-cancelled transitions only move forward; cancellation is allowed from
// any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// PaymentMethod is how the shopper settles the order out of band.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMobileMoney    PaymentMethod = "mobile_money"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentMobileMoney
}

// Order represents a committed customer order.
type Order struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	AccountID          uuid.UUID       `json:"accountId" db:"account_id"`
	DeliveryLocationID string          `json:"deliveryLocationId" db:"delivery_location_id"`
	Items              []OrderItem     `json:"items"`
	SubtotalAmount     decimal.Decimal `json:"subtotalAmount" db:"subtotal_amount"`
	ShippingAmount     decimal.Decimal `json:"shippingAmount" db:"shipping_amount"`
	DiscountAmount     decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	TotalAmount        decimal.Decimal `json:"totalAmount" db:"total_amount"`
	CouponID           *uuid.UUID      `json:"couponId,omitempty" db:"coupon_id"`
	CouponCode         *string         `json:"couponCode,omitempty" db:"coupon_code"`
	PaymentMethod      PaymentMethod   `json:"paymentMethod" db:"payment_method"`
	PaymentReference   *string         `json:"paymentReference,omitempty" db:"payment_reference"`
	Status             OrderStatus     `json:"status" db:"status"`
	CheckoutKey        string          `json:"-" db:"checkout_key"`
	CreatedAt          time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time       `json:"updatedAt" db:"updated_at"`
}

// OrderItem represents a line item in an order with its price snapshot.
type OrderItem struct {
	ID                  uuid.UUID       `json:"-" db:"id"`
	OrderID             uuid.UUID       `json:"-" db:"order_id"`
	ProductID           string          `json:"productId" db:"product_id"`
	Quantity            int             `json:"quantity" db:"quantity"`
	UnitPriceAtPurchase decimal.Decimal `json:"unitPriceAtPurchase" db:"unit_price_at_purchase"`
	Size                *string         `json:"size,omitempty" db:"size"`
	Color               *string         `json:"color,omitempty" db:"color"`
}

// OrderTotal computes max(0, subtotal + shipping - discount).
func OrderTotal(subtotal, shipping, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// CheckoutRequest is the shopper input to checkout.
type CheckoutRequest struct {
	DeliveryLocationID string        `json:"deliveryLocationId"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
	PaymentReference   *string       `json:"paymentReference,omitempty"`
}

// CommitRequest carries the resolved inputs to the order commit service.
type CommitRequest struct {
	AccountID          uuid.UUID
	Items              []ReconciledItem
	DeliveryLocationID string
	Coupon             *AppliedCoupon
	PaymentMethod      PaymentMethod
	PaymentReference   *string
	CheckoutKey        string
	// CartGeneration ties the commit to one fill of the shopper's cart.
	CartGeneration string
}

// ReconciledItem is a cart line paired with its authoritative unit price.
type ReconciledItem struct {
	CartLineItem
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// OrderEvent is published after an order is committed or changes status.
type OrderEvent struct {
	Type       string      `json:"type"`
	OrderID    uuid.UUID   `json:"orderId"`
	AccountID  uuid.UUID   `json:"accountId"`
	Status     OrderStatus `json:"status"`
	Total      string      `json:"total"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// Order event types
const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
)
