package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// route mounts h on pattern so chi URL parameters resolve.
func route(method, pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func cartView(items ...model.CartLineItem) *service.CartView {
	snapshot := model.CartSnapshot{Items: items}
	return &service.CartView{CartSnapshot: snapshot, CachedSubtotal: snapshot.CachedSubtotal()}
}

func TestCartHandler_RequiresSession(t *testing.T) {
	h := NewCartHandler(new(MockCartService), zerolog.Nop())

	w := httptest.NewRecorder()
	h.Get(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, model.ErrCodeUnauthorised, decodeError(t, w).Error)
}

func TestCartHandler_Get(t *testing.T) {
	svc := new(MockCartService)
	h := NewCartHandler(svc, zerolog.Nop())
	svc.On("Get", "sess-1").Return(cartView(model.CartLineItem{ProductID: "P001", Quantity: 2, CachedUnitPrice: decimal.NewFromInt(100)}), nil)

	w := httptest.NewRecorder()
	h.Get(w, newRequest(http.MethodGet, "/api/cart", ""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"productId":"P001"`)
	assert.Contains(t, w.Body.String(), `"cachedSubtotal":"200"`)
}

func TestCartHandler_AddItem(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(svc *MockCartService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "success",
			body: `{"productId":"P001","quantity":2,"unitPrice":"100.50","size":"M"}`,
			setup: func(svc *MockCartService) {
				svc.On("AddItem", "sess-1", mock.MatchedBy(func(item model.CartLineItem) bool {
					return item.ProductID == "P001" && item.Quantity == 2 &&
						item.CachedUnitPrice.Equal(decimal.RequireFromString("100.50")) &&
						item.Size != nil && *item.Size == "M"
				})).Return(cartView(), nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid json",
			body:       `{"productId":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeInvalidJSON,
		},
		{
			name: "invalid quantity",
			body: `{"productId":"P001","quantity":0,"unitPrice":"1"}`,
			setup: func(svc *MockCartService) {
				svc.On("AddItem", "sess-1", mock.Anything).Return(nil, model.ErrInvalidQuantity)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockCartService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			h := NewCartHandler(svc, zerolog.Nop())

			w := httptest.NewRecorder()
			h.AddItem(w, newRequest(http.MethodPost, "/api/cart/items", tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, w).Error)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestCartHandler_SetQuantityAndRemove(t *testing.T) {
	svc := new(MockCartService)
	h := NewCartHandler(svc, zerolog.Nop())
	svc.On("SetQuantity", "sess-1", "P001", 3).Return(cartView(), nil)
	svc.On("RemoveItem", "sess-1", "P002").Return(cartView(), nil)

	w := route(http.MethodPut, "/api/cart/items/{productId}", h.SetQuantity,
		newRequest(http.MethodPut, "/api/cart/items/P001", `{"quantity":3}`))
	assert.Equal(t, http.StatusOK, w.Code)

	w = route(http.MethodPut, "/api/cart/items/{productId}", h.SetQuantity,
		newRequest(http.MethodPut, "/api/cart/items/P001", `{"quantity":-1}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = route(http.MethodDelete, "/api/cart/items/{productId}", h.RemoveItem,
		newRequest(http.MethodDelete, "/api/cart/items/P002", ""))
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
}

func TestCartHandler_Clear(t *testing.T) {
	svc := new(MockCartService)
	h := NewCartHandler(svc, zerolog.Nop())
	svc.On("Clear", "sess-1").Return(nil)

	w := httptest.NewRecorder()
	h.Clear(w, newRequest(http.MethodDelete, "/api/cart", ""))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestCartHandler_Prices(t *testing.T) {
	svc := new(MockCartService)
	h := NewCartHandler(svc, zerolog.Nop())
	svc.On("Prices", mock.Anything, "sess-1").Return(&service.PricedCart{
		Subtotal: decimal.NewFromInt(240),
		Total:    decimal.NewFromInt(240),
		Degraded: true,
	}, nil)

	w := httptest.NewRecorder()
	h.Prices(w, newRequest(http.MethodGet, "/api/cart/prices", ""))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subtotal":"240"`)
	assert.Contains(t, w.Body.String(), `"degraded":true`)
}

func TestCartHandler_ApplyCoupon(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		svc := new(MockCartService)
		h := NewCartHandler(svc, zerolog.Nop())
		svc.On("ApplyCoupon", mock.Anything, "sess-1", "save20").Return(cartView(), nil)

		w := httptest.NewRecorder()
		h.ApplyCoupon(w, newRequest(http.MethodPost, "/api/cart/coupon", `{"code":"save20"}`))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		svc := new(MockCartService)
		h := NewCartHandler(svc, zerolog.Nop())
		svc.On("ApplyCoupon", mock.Anything, "sess-1", "OLD").Return(nil, model.ErrCouponExpired)

		w := httptest.NewRecorder()
		h.ApplyCoupon(w, newRequest(http.MethodPost, "/api/cart/coupon", `{"code":"OLD"}`))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, model.ErrCodeCouponExpired, decodeError(t, w).Error)
	})

	t.Run("remove", func(t *testing.T) {
		svc := new(MockCartService)
		h := NewCartHandler(svc, zerolog.Nop())
		svc.On("RemoveCoupon", "sess-1").Return(cartView(), nil)

		w := httptest.NewRecorder()
		h.RemoveCoupon(w, newRequest(http.MethodDelete, "/api/cart/coupon", ""))

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCartHandler_SetDelivery(t *testing.T) {
	svc := new(MockCartService)
	h := NewCartHandler(svc, zerolog.Nop())
	svc.On("SetDelivery", mock.Anything, "sess-1", "LOC-TEMA").Return(nil, model.ErrInactiveLocation)

	w := httptest.NewRecorder()
	h.SetDelivery(w, newRequest(http.MethodPut, "/api/cart/delivery", `{"locationId":"LOC-TEMA"}`))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, model.ErrCodeInactiveLocation, decodeError(t, w).Error)
}
