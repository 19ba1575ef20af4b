package model

import (
	"github.com/shopspring/decimal"
)

// CartLineItem is a single row in a shopper's cart.
type CartLineItem struct {
	ProductID       string          `json:"productId"`
	CachedUnitPrice decimal.Decimal `json:"cachedUnitPrice"`
	Quantity        int             `json:"quantity"`
	Size            *string         `json:"size,omitempty"`
	Color           *string         `json:"color,omitempty"`
}

// LineTotal returns price × quantity for the given unit price.
func (i CartLineItem) LineTotal(unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// CartSnapshot is an immutable copy of cart state handed to the checkout pipeline.
type CartSnapshot struct {
	// Generation changes every time an empty cart receives its first item.
	Generation       string            `json:"generation,omitempty"`
	Items            []CartLineItem    `json:"items"`
	Coupon           *AppliedCoupon    `json:"coupon,omitempty"`
	DeliveryLocation *DeliveryLocation `json:"deliveryLocation,omitempty"`
}

// ProductIDs returns the product ids in cart order.
func (s CartSnapshot) ProductIDs() []string {
	ids := make([]string, len(s.Items))
	for i, item := range s.Items {
		ids[i] = item.ProductID
	}
	return ids
}

// CachedSubtotal sums the cached prices. It is a display value only.
func (s CartSnapshot) CachedSubtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range s.Items {
		subtotal = subtotal.Add(item.LineTotal(item.CachedUnitPrice))
	}
	return subtotal
}

// IsEmpty reports whether the cart holds no items.
func (s CartSnapshot) IsEmpty() bool {
	return len(s.Items) == 0
}
