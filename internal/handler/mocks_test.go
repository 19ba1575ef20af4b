package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCartService is a mock implementation of service.CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) view(args mock.Arguments) (*service.CartView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CartView), args.Error(1)
}

func (m *MockCartService) Get(sessionID string) (*service.CartView, error) {
	return m.view(m.Called(sessionID))
}

func (m *MockCartService) Prices(ctx context.Context, sessionID string) (*service.PricedCart, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PricedCart), args.Error(1)
}

func (m *MockCartService) AddItem(sessionID string, item model.CartLineItem) (*service.CartView, error) {
	return m.view(m.Called(sessionID, item))
}

func (m *MockCartService) SetQuantity(sessionID, productID string, qty int) (*service.CartView, error) {
	return m.view(m.Called(sessionID, productID, qty))
}

func (m *MockCartService) RemoveItem(sessionID, productID string) (*service.CartView, error) {
	return m.view(m.Called(sessionID, productID))
}

func (m *MockCartService) Clear(sessionID string) error {
	return m.Called(sessionID).Error(0)
}

func (m *MockCartService) ApplyCoupon(ctx context.Context, sessionID, code string) (*service.CartView, error) {
	return m.view(m.Called(ctx, sessionID, code))
}

func (m *MockCartService) RemoveCoupon(sessionID string) (*service.CartView, error) {
	return m.view(m.Called(sessionID))
}

func (m *MockCartService) SetDelivery(ctx context.Context, sessionID, locationID string) (*service.CartView, error) {
	return m.view(m.Called(ctx, sessionID, locationID))
}

// MockCheckoutService is a mock implementation of service.CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Checkout(ctx context.Context, session model.Session, req *model.CheckoutRequest) (*model.Order, error) {
	args := m.Called(ctx, session, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockOrderService is a mock implementation of service.OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) order(args mock.Arguments) (*model.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) Commit(ctx context.Context, req *model.CommitRequest) (*model.Order, error) {
	return m.order(m.Called(ctx, req))
}

func (m *MockOrderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return m.order(m.Called(ctx, id))
}

func (m *MockOrderService) GetForAccount(ctx context.Context, id, accountID uuid.UUID) (*model.Order, error) {
	return m.order(m.Called(ctx, id, accountID))
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.Order, error) {
	return m.order(m.Called(ctx, id, status))
}

func (m *MockOrderService) Cancel(ctx context.Context, id, accountID uuid.UUID) (*model.Order, error) {
	return m.order(m.Called(ctx, id, accountID))
}

// MockAccountResolver is a mock implementation of service.AccountResolver.
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

var testSession = model.Session{ID: "sess-1", Email: "ama@example.com"}

// newRequest builds a request carrying testSession, as SessionAuth would.
func newRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithSession(req.Context(), testSession))
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
