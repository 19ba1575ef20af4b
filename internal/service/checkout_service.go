package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"storefront/internal/inflight"
	"storefront/internal/model"
	"storefront/internal/pricing"

	"github.com/rs/zerolog"
)

// CheckoutConfig tunes the checkout orchestrator.
type CheckoutConfig struct {
	CommitTimeout time.Duration
	GuardTTL      time.Duration
}

// checkoutService implements CheckoutService.
type checkoutService struct {
	carts      CartService
	reconciler PriceReconciler
	coupons    CouponValidator
	delivery   DeliveryResolver
	accounts   AccountResolver
	orders     OrderService
	guard      inflight.Guard
	cfg        CheckoutConfig
	logger     zerolog.Logger
}

// NewCheckoutService creates the checkout orchestrator.
func NewCheckoutService(
	carts CartService,
	reconciler PriceReconciler,
	coupons CouponValidator,
	delivery DeliveryResolver,
	accounts AccountResolver,
	orders OrderService,
	guard inflight.Guard,
	cfg CheckoutConfig,
	logger zerolog.Logger,
) CheckoutService {
	return &checkoutService{
		carts:      carts,
		reconciler: reconciler,
		coupons:    coupons,
		delivery:   delivery,
		accounts:   accounts,
		orders:     orders,
		guard:      guard,
		cfg:        cfg,
		logger:     logger.With().Str("service", "checkout").Logger(),
	}
}

// Checkout runs cart → prices → coupon → delivery → identity → commit for the
// session's cart and clears the cart on success. A second checkout for the same
// session is rejected with ErrCheckoutInProgress until the first settles.
func (s *checkoutService) Checkout(ctx context.Context, session model.Session, req *model.CheckoutRequest) (*model.Order, error) {
	if session.ID == "" {
		return nil, model.ErrMissingSession
	}
	if req == nil {
		req = &model.CheckoutRequest{}
	}
	if err := validatePayment(req.PaymentMethod, req.PaymentReference); err != nil {
		return nil, err
	}

	log := s.logger.With().Str("session_id", session.ID).Logger()

	guardKey := "checkout:" + session.ID
	token, acquired, err := s.guard.Acquire(ctx, guardKey, s.cfg.GuardTTL)
	if err != nil {
		log.Error().Err(err).Msg("failed to acquire checkout guard")
		return nil, fmt.Errorf("failed to acquire checkout guard: %w", err)
	}
	if !acquired {
		log.Info().Msg("checkout already in progress")
		return nil, model.ErrCheckoutInProgress
	}
	defer func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), guardKey, token); err != nil {
			log.Warn().Err(err).Msg("failed to release checkout guard")
		}
	}()

	view, err := s.carts.Get(session.ID)
	if err != nil {
		return nil, err
	}
	if view.IsEmpty() {
		return nil, model.ErrEmptyCart
	}

	locationID := req.DeliveryLocationID
	if locationID == "" && view.DeliveryLocation != nil {
		locationID = view.DeliveryLocation.ID
	}
	if locationID == "" {
		return nil, model.ErrMissingDeliveryLocation
	}

	result := s.reconciler.Reconcile(ctx, view.Items)
	items := result.Items(view.Items)
	subtotal := pricing.Subtotal(items)
	if result.Degraded {
		log.Warn().Str("event", "price_fallback").Msg("checkout proceeding on cached prices")
	}

	var applied *model.AppliedCoupon
	if view.Coupon != nil {
		applied, err = s.coupons.Validate(ctx, view.Coupon.Code, subtotal, nil)
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.delivery.Resolve(ctx, locationID); err != nil {
		return nil, err
	}

	account, err := s.accounts.Resolve(ctx, session)
	if err != nil {
		return nil, err
	}

	commitReq := &model.CommitRequest{
		AccountID:          account.ID,
		Items:              items,
		DeliveryLocationID: locationID,
		Coupon:             applied,
		PaymentMethod:      req.PaymentMethod,
		PaymentReference:   req.PaymentReference,
		CartGeneration:     view.Generation,
	}
	commitReq.CheckoutKey = CheckoutKey(commitReq)

	// The commit outlives the caller's context so a disconnect cannot tear down a half-written order.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CommitTimeout)
	defer cancel()

	order, err := s.orders.Commit(commitCtx, commitReq)
	if err != nil {
		return nil, err
	}

	if err := s.carts.Clear(session.ID); err != nil {
		log.Error().Err(err).Str("order_id", order.ID.String()).Msg("order committed but cart not cleared")
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Str("account_id", account.ID.String()).
		Bool("degraded_pricing", result.Degraded).
		Msg("checkout completed")

	return order, nil
}

// CheckoutKey fingerprints a commit so that replaying the same cart for the same
// account maps to the same order. Refilling the cart starts a new generation and
// therefore a new key.
func CheckoutKey(req *model.CommitRequest) string {
	var b strings.Builder
	b.WriteString(req.CartGeneration)
	b.WriteString("|")
	b.WriteString(req.AccountID.String())
	b.WriteString("|")
	b.WriteString(req.DeliveryLocationID)
	b.WriteString("|")
	b.WriteString(string(req.PaymentMethod))
	if req.PaymentReference != nil {
		b.WriteString(":" + *req.PaymentReference)
	}
	b.WriteString("|")
	if req.Coupon != nil {
		b.WriteString(req.Coupon.Code)
	}
	for _, item := range req.Items {
		fmt.Fprintf(&b, "|%s x%d @%s", item.ProductID, item.Quantity, item.UnitPrice.StringFixed(2))
		if item.Size != nil {
			b.WriteString(" s=" + *item.Size)
		}
		if item.Color != nil {
			b.WriteString(" c=" + *item.Color)
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
