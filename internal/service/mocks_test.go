package service

import (
	"context"
	"sync"
	"time"

	"storefront/internal/model"
	"storefront/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of repository.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) InsertOrderWithItems(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByCheckoutKey(ctx context.Context, key string) (*model.Order, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

// MockCouponValidator is a mock implementation of CouponValidator.
type MockCouponValidator struct {
	mock.Mock
}

func (m *MockCouponValidator) Validate(ctx context.Context, code string, subtotal decimal.Decimal, accountID *uuid.UUID) (*model.AppliedCoupon, error) {
	args := m.Called(ctx, code, subtotal, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AppliedCoupon), args.Error(1)
}

// MockDeliveryResolver is a mock implementation of DeliveryResolver.
type MockDeliveryResolver struct {
	mock.Mock
}

func (m *MockDeliveryResolver) Resolve(ctx context.Context, locationID string) (*model.DeliveryQuote, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryQuote), args.Error(1)
}

func (m *MockDeliveryResolver) ResolveLocation(ctx context.Context, locationID string) (*model.DeliveryLocation, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeliveryLocation), args.Error(1)
}

// MockAccountResolver is a mock implementation of AccountResolver.
type MockAccountResolver struct {
	mock.Mock
}

func (m *MockAccountResolver) Resolve(ctx context.Context, session model.Session) (*model.Account, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

// stubCatalog prices products from a fixed map, or fails every call when err is set.
type stubCatalog struct {
	prices map[string]decimal.Decimal
	err    error
}

func (c *stubCatalog) GetPrices(_ context.Context, ids []string) (map[string]decimal.Decimal, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		if p, ok := c.prices[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func newStubReconciler(prices map[string]decimal.Decimal) *pricing.Reconciler {
	return pricing.NewReconciler(&stubCatalog{prices: prices}, time.Second, nopLogger)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []model.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event model.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []model.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.OrderEvent(nil), p.events...)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}
