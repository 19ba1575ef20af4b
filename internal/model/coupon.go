package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// Coupon is a discount voucher and its eligibility constraints.
type Coupon struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	Code              string           `json:"code" db:"code"`
	DiscountType      DiscountType     `json:"discountType" db:"discount_type"`
	Value             decimal.Decimal  `json:"value" db:"value"`
	MinOrderAmount    *decimal.Decimal `json:"minOrderAmount,omitempty" db:"min_order_amount"`
	MaxDiscountAmount *decimal.Decimal `json:"maxDiscountAmount,omitempty" db:"max_discount_amount"`
	UsageLimit        *int             `json:"usageLimit,omitempty" db:"usage_limit"`
	UsedCount         int              `json:"usedCount" db:"used_count"`
	StartsAt          time.Time        `json:"startsAt" db:"starts_at"`
	ExpiresAt         time.Time        `json:"expiresAt" db:"expires_at"`
	IsActive          bool             `json:"isActive" db:"is_active"`
}

// ActiveAt reports whether the coupon is enabled and now falls inside its window.
// The window is [StartsAt, ExpiresAt).
func (c Coupon) ActiveAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if !c.StartsAt.IsZero() && now.Before(c.StartsAt) {
		return false
	}
	if !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt) {
		return false
	}
	return true
}

// Exhausted reports whether the usage limit has been reached.
func (c Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit
}

// AppliedCoupon is a validated coupon held by the cart until commit or removal.
type AppliedCoupon struct {
	CouponID       uuid.UUID       `json:"couponId"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}
