package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo repository.OrderRepository
	coupons   CouponValidator
	delivery  DeliveryResolver
	publisher events.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	coupons CouponValidator,
	delivery DeliveryResolver,
	publisher events.Publisher,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		coupons:   coupons,
		delivery:  delivery,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With().Str("service", "order").Logger(),
	}
}

// Commit recomputes every amount from the reconciled prices, re-validates the
// coupon and delivery location, then writes the order atomically.
func (s *orderService) Commit(ctx context.Context, req *model.CommitRequest) (*model.Order, error) {
	if err := s.validateCommitRequest(req); err != nil {
		return nil, model.NewCommitError(model.StageValidate, err)
	}

	log := s.logger.With().
		Str("account_id", req.AccountID.String()).
		Str("checkout_key", req.CheckoutKey).
		Logger()

	for _, item := range req.Items {
		if item.UnitPrice.IsNegative() {
			return nil, model.NewCommitError(model.StagePricing, fmt.Errorf("product %s has negative unit price %s", item.ProductID, item.UnitPrice))
		}
	}
	subtotal := pricing.Subtotal(req.Items)

	discount := decimal.Zero
	var couponID *uuid.UUID
	var couponCode *string
	if req.Coupon != nil {
		applied, err := s.coupons.Validate(ctx, req.Coupon.Code, subtotal, &req.AccountID)
		if err != nil {
			log.Warn().Err(err).Str("coupon_code", req.Coupon.Code).Msg("coupon rejected at commit")
			return nil, model.NewCommitError(model.StageCoupon, err)
		}
		if !applied.DiscountAmount.Equal(req.Coupon.DiscountAmount) {
			log.Info().
				Str("coupon_code", applied.Code).
				Str("cart_discount", req.Coupon.DiscountAmount.StringFixed(2)).
				Str("commit_discount", applied.DiscountAmount.StringFixed(2)).
				Msg("coupon discount recomputed")
		}
		discount = applied.DiscountAmount
		couponID = &applied.CouponID
		couponCode = &applied.Code
	}

	quote, err := s.delivery.Resolve(ctx, req.DeliveryLocationID)
	if err != nil {
		log.Warn().Err(err).Str("location_id", req.DeliveryLocationID).Msg("delivery rejected at commit")
		return nil, model.NewCommitError(model.StageDelivery, err)
	}

	now := s.now().UTC()
	order := &model.Order{
		ID:                 uuid.New(),
		AccountID:          req.AccountID,
		DeliveryLocationID: quote.LocationID,
		Items:              make([]model.OrderItem, len(req.Items)),
		SubtotalAmount:     subtotal,
		ShippingAmount:     quote.ShippingAmount,
		DiscountAmount:     discount,
		TotalAmount:        model.OrderTotal(subtotal, quote.ShippingAmount, discount),
		CouponID:           couponID,
		CouponCode:         couponCode,
		PaymentMethod:      req.PaymentMethod,
		PaymentReference:   req.PaymentReference,
		Status:             model.OrderPending,
		CheckoutKey:        req.CheckoutKey,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for i, item := range req.Items {
		order.Items[i] = model.OrderItem{
			ID:                  uuid.New(),
			OrderID:             order.ID,
			ProductID:           item.ProductID,
			Quantity:            item.Quantity,
			UnitPriceAtPurchase: item.UnitPrice,
			Size:                item.Size,
			Color:               item.Color,
		}
	}

	if err := s.orderRepo.InsertOrderWithItems(ctx, order); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateCheckout):
			existing, getErr := s.orderRepo.GetByCheckoutKey(ctx, req.CheckoutKey)
			if getErr != nil || existing == nil {
				log.Error().Err(getErr).Msg("failed to load order for duplicate checkout")
				return nil, model.NewCommitError(model.StagePersist, fmt.Errorf("failed to load committed order: %w", errors.Join(err, getErr)))
			}
			log.Info().Str("order_id", existing.ID.String()).Msg("checkout already committed, returning existing order")
			return existing, nil
		case errors.Is(err, model.ErrCouponLimitExceeded):
			return nil, model.NewCommitError(model.StageCoupon, err)
		default:
			log.Error().Err(err).Msg("failed to persist order")
			return nil, model.NewCommitError(model.StagePersist, err)
		}
	}

	log.Info().
		Str("order_id", order.ID.String()).
		Int("item_count", len(order.Items)).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order created successfully")

	s.publish(ctx, model.EventOrderCreated, order)

	return order, nil
}

// GetByID retrieves an order by its ID with all items.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// GetForAccount hides orders owned by other accounts behind ErrOrderNotFound.
func (s *orderService) GetForAccount(ctx context.Context, id, accountID uuid.UUID) (*model.Order, error) {
	order, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.AccountID != accountID {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("account_id", accountID.String()).
			Msg("order requested by non-owner")
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	order, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, status)
}

func (s *orderService) Cancel(ctx context.Context, id, accountID uuid.UUID) (*model.Order, error) {
	order, err := s.GetForAccount(ctx, id, accountID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, order, model.OrderCancelled)
}

func (s *orderService) transition(ctx context.Context, order *model.Order, next model.OrderStatus) (*model.Order, error) {
	if !order.Status.CanTransitionTo(next) {
		s.logger.Info().
			Str("order_id", order.ID.String()).
			Str("from", string(order.Status)).
			Str("to", string(next)).
			Msg("status transition rejected")
		return nil, model.ErrInvalidStatusTransition
	}

	if err := s.orderRepo.UpdateStatus(ctx, order.ID, order.Status, next); err != nil {
		if errors.Is(err, repository.ErrStatusChanged) {
			return nil, model.ErrInvalidStatusTransition
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	order.Status = next
	order.UpdatedAt = s.now().UTC()

	s.publish(ctx, model.EventOrderStatusChanged, order)

	return order, nil
}

// publish never fails the caller; the order is already committed.
func (s *orderService) publish(ctx context.Context, eventType string, order *model.Order) {
	event := model.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		AccountID:  order.AccountID,
		Status:     order.Status,
		Total:      order.TotalAmount.StringFixed(2),
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID.String()).Str("event", eventType).Msg("order event not published")
	}
}

// validateCommitRequest validates the commit request.
func (s *orderService) validateCommitRequest(req *model.CommitRequest) error {
	if req == nil {
		return fmt.Errorf("commit request is nil")
	}

	if req.AccountID == uuid.Nil {
		return fmt.Errorf("account id is required")
	}

	if len(req.Items) == 0 {
		return model.ErrEmptyCart
	}

	for i, item := range req.Items {
		if item.ProductID == "" {
			return fmt.Errorf("item %d: %w", i, model.ErrMissingProductID)
		}

		if item.Quantity <= 0 {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
	}

	if err := validatePayment(req.PaymentMethod, req.PaymentReference); err != nil {
		return err
	}

	if req.CheckoutKey == "" {
		return fmt.Errorf("checkout key is required")
	}

	return nil
}

func validatePayment(method model.PaymentMethod, reference *string) error {
	if !method.Valid() {
		return model.ErrInvalidPaymentMethod
	}
	if method == model.PaymentMobileMoney && (reference == nil || *reference == "") {
		return model.ErrMissingPaymentReference
	}
	return nil
}
