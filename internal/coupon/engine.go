package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Engine validates coupon codes and computes bounded discounts.
// It never changes a coupon's used count.
type Engine struct {
	store  Store
	now    func() time.Time
	logger zerolog.Logger
}

// NewEngine creates a coupon engine backed by store.
func NewEngine(store Store, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		now:    time.Now,
		logger: logger.With().Str("component", "coupon-engine").Logger(),
	}
}

// NormalizeCode trims and uppercases a shopper-entered code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks code against subtotal and returns the discount it grants.
// Checks run in a fixed order and stop at the first failure.
func (e *Engine) Validate(ctx context.Context, code string, subtotal decimal.Decimal, accountID *uuid.UUID) (*model.AppliedCoupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, model.ErrInvalidCouponCode
	}

	log := e.logger.With().Str("coupon_code", normalized).Str("subtotal", subtotal.StringFixed(2)).Logger()
	if accountID != nil {
		log = log.With().Str("account_id", accountID.String()).Logger()
	}

	c, err := e.store.GetByCode(ctx, normalized)
	if err != nil {
		log.Error().Err(err).Msg("failed to look up coupon")
		return nil, fmt.Errorf("failed to look up coupon: %w", err)
	}
	if c == nil {
		log.Debug().Msg("coupon not found")
		return nil, model.ErrCouponNotFound
	}

	if !c.ActiveAt(e.now()) {
		log.Debug().Bool("is_active", c.IsActive).Msg("coupon outside its active window")
		return nil, model.ErrCouponExpired
	}

	if c.MinOrderAmount != nil && subtotal.LessThan(*c.MinOrderAmount) {
		log.Debug().Str("min_order_amount", c.MinOrderAmount.StringFixed(2)).Msg("coupon minimum not met")
		return nil, model.ErrCouponMinimumNotMet
	}

	if c.Exhausted() {
		log.Debug().Int("used_count", c.UsedCount).Msg("coupon usage limit reached")
		return nil, model.ErrCouponLimitExceeded
	}

	discount := Discount(*c, subtotal)

	log.Debug().Str("discount", discount.StringFixed(2)).Msg("coupon validated")

	return &model.AppliedCoupon{
		CouponID:       c.ID,
		Code:           c.Code,
		DiscountAmount: discount,
	}, nil
}

// Discount computes the coupon's discount on subtotal, rounded to cents and
// clamped to [0, min(maxDiscountAmount, subtotal)].
func Discount(c model.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var raw decimal.Decimal
	switch c.DiscountType {
	case model.DiscountPercentage:
		raw = subtotal.Mul(c.Value).Div(hundred)
	case model.DiscountFixed:
		raw = c.Value
	default:
		return decimal.Zero
	}
	raw = raw.Round(2)

	discount := raw
	if c.MaxDiscountAmount != nil {
		discount = decimal.Min(discount, *c.MaxDiscountAmount)
	}
	discount = decimal.Min(discount, subtotal)

	return decimal.Max(discount, decimal.Zero)
}
