package service

import (
	"context"
	"sync"

	"storefront/internal/cart"
	"storefront/internal/model"
	"storefront/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// keyedMutex serialises work per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyLock)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// cartService implements CartService over a cart.Storage.
type cartService struct {
	storage    cart.Storage
	locks      *keyedMutex
	reconciler PriceReconciler
	coupons    CouponValidator
	delivery   DeliveryResolver
	logger     zerolog.Logger
}

// NewCartService creates a cart service. Requests for the same session are serialised.
func NewCartService(
	storage cart.Storage,
	reconciler PriceReconciler,
	coupons CouponValidator,
	delivery DeliveryResolver,
	logger zerolog.Logger,
) CartService {
	return &cartService{
		storage:    storage,
		locks:      newKeyedMutex(),
		reconciler: reconciler,
		coupons:    coupons,
		delivery:   delivery,
		logger:     logger.With().Str("service", "cart").Logger(),
	}
}

// withCart opens the session's cart under its lock, runs fn and returns the resulting snapshot.
func (s *cartService) withCart(sessionID string, fn func(*cart.Store) error) (*CartView, error) {
	if sessionID == "" {
		return nil, model.ErrMissingSession
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	store, err := cart.Open(s.storage, sessionID, s.logger)
	if err != nil {
		return nil, err
	}

	if fn != nil {
		if err := fn(store); err != nil {
			return nil, err
		}
	}

	return newCartView(store.Snapshot()), nil
}

func (s *cartService) Get(sessionID string) (*CartView, error) {
	return s.withCart(sessionID, nil)
}

// Prices reconciles the cart and totals it against the applied coupon and delivery location.
func (s *cartService) Prices(ctx context.Context, sessionID string) (*PricedCart, error) {
	view, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}

	result := s.reconciler.Reconcile(ctx, view.Items)
	items := result.Items(view.Items)
	subtotal := pricing.Subtotal(items)

	discount := decimal.Zero
	if view.Coupon != nil {
		discount = decimal.Min(view.Coupon.DiscountAmount, subtotal)
	}
	shipping := decimal.Zero
	if view.DeliveryLocation != nil {
		shipping = view.DeliveryLocation.ShippingAmount
	}

	return &PricedCart{
		Items:    items,
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    model.OrderTotal(subtotal, shipping, discount),
		Degraded: result.Degraded,
	}, nil
}

func (s *cartService) AddItem(sessionID string, item model.CartLineItem) (*CartView, error) {
	if item.CachedUnitPrice.IsNegative() {
		return nil, model.NewDomainError(model.ErrCodeValidation, "Unit price cannot be negative")
	}
	return s.withCart(sessionID, func(c *cart.Store) error {
		return c.Add(item)
	})
}

func (s *cartService) SetQuantity(sessionID, productID string, qty int) (*CartView, error) {
	return s.withCart(sessionID, func(c *cart.Store) error {
		return c.SetQuantity(productID, qty)
	})
}

func (s *cartService) RemoveItem(sessionID, productID string) (*CartView, error) {
	return s.withCart(sessionID, func(c *cart.Store) error {
		return c.Remove(productID)
	})
}

func (s *cartService) Clear(sessionID string) error {
	_, err := s.withCart(sessionID, func(c *cart.Store) error {
		return c.Clear()
	})
	return err
}

// ApplyCoupon validates code against the reconciled subtotal and stores the result on the cart.
func (s *cartService) ApplyCoupon(ctx context.Context, sessionID, code string) (*CartView, error) {
	view, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if view.IsEmpty() {
		return nil, model.ErrEmptyCart
	}

	result := s.reconciler.Reconcile(ctx, view.Items)
	subtotal := pricing.Subtotal(result.Items(view.Items))

	applied, err := s.coupons.Validate(ctx, code, subtotal, nil)
	if err != nil {
		return nil, err
	}

	return s.withCart(sessionID, func(c *cart.Store) error {
		return c.ApplyCoupon(*applied)
	})
}

func (s *cartService) RemoveCoupon(sessionID string) (*CartView, error) {
	return s.withCart(sessionID, func(c *cart.Store) error {
		return c.RemoveCoupon()
	})
}

// SetDelivery selects an active delivery location for the cart.
func (s *cartService) SetDelivery(ctx context.Context, sessionID, locationID string) (*CartView, error) {
	location, err := s.delivery.ResolveLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	return s.withCart(sessionID, func(c *cart.Store) error {
		return c.SetDeliveryLocation(*location)
	})
}
