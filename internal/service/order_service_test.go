package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var nopLogger = zerolog.Nop()

type orderServiceFixture struct {
	repo      *MockOrderRepository
	coupons   *MockCouponValidator
	delivery  *MockDeliveryResolver
	publisher *recordingPublisher
	service   *orderService
}

func newOrderServiceFixture() *orderServiceFixture {
	f := &orderServiceFixture{
		repo:      new(MockOrderRepository),
		coupons:   new(MockCouponValidator),
		delivery:  new(MockDeliveryResolver),
		publisher: &recordingPublisher{},
	}
	f.service = NewOrderService(f.repo, f.coupons, f.delivery, f.publisher, nopLogger).(*orderService)
	f.service.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func commitRequest(accountID uuid.UUID) *model.CommitRequest {
	return &model.CommitRequest{
		AccountID: accountID,
		Items: []model.ReconciledItem{
			{CartLineItem: model.CartLineItem{ProductID: "P001", Quantity: 2, CachedUnitPrice: dec("900")}, UnitPrice: dec("1000")},
			{CartLineItem: model.CartLineItem{ProductID: "P002", Quantity: 1, Size: strPtr("M")}, UnitPrice: dec("1000")},
		},
		DeliveryLocationID: "LOC-ACCRA",
		PaymentMethod:      model.PaymentCashOnDelivery,
		CheckoutKey:        "key-1",
	}
}

func TestOrderService_Commit_WithCoupon(t *testing.T) {
	f := newOrderServiceFixture()
	ctx := context.Background()
	accountID := uuid.New()
	couponID := uuid.New()

	req := commitRequest(accountID)
	req.Coupon = &model.AppliedCoupon{CouponID: couponID, Code: "SAVE20", DiscountAmount: dec("540")}

	f.coupons.On("Validate", ctx, "SAVE20", mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec("3000")) }), &accountID).
		Return(&model.AppliedCoupon{CouponID: couponID, Code: "SAVE20", DiscountAmount: dec("600")}, nil)
	f.delivery.On("Resolve", ctx, "LOC-ACCRA").
		Return(&model.DeliveryQuote{LocationID: "LOC-ACCRA", ShippingAmount: dec("25")}, nil)
	f.repo.On("InsertOrderWithItems", ctx, mock.AnythingOfType("*model.Order")).Return(nil)

	order, err := f.service.Commit(ctx, req)

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, accountID, order.AccountID)
	assert.True(t, order.SubtotalAmount.Equal(dec("3000")))
	assert.True(t, order.DiscountAmount.Equal(dec("600")), "discount is recomputed, not taken from the cart")
	assert.True(t, order.ShippingAmount.Equal(dec("25")))
	assert.True(t, order.TotalAmount.Equal(dec("2425")))
	assert.Equal(t, model.OrderPending, order.Status)
	require.NotNil(t, order.CouponID)
	assert.Equal(t, couponID, *order.CouponID)
	assert.Equal(t, "key-1", order.CheckoutKey)

	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[0].UnitPriceAtPurchase.Equal(dec("1000")), "reconciled price wins over cached")
	assert.Equal(t, order.ID, order.Items[0].OrderID)
	require.NotNil(t, order.Items[1].Size)
	assert.Equal(t, "M", *order.Items[1].Size)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventOrderCreated, events[0].Type)
	assert.Equal(t, order.ID, events[0].OrderID)
	assert.Equal(t, "2425.00", events[0].Total)

	f.repo.AssertExpectations(t)
	f.coupons.AssertExpectations(t)
	f.delivery.AssertExpectations(t)
}

func TestOrderService_Commit_WithoutCoupon(t *testing.T) {
	f := newOrderServiceFixture()
	ctx := context.Background()

	f.delivery.On("Resolve", ctx, "LOC-ACCRA").
		Return(&model.DeliveryQuote{LocationID: "LOC-ACCRA", ShippingAmount: dec("10")}, nil)
	f.repo.On("InsertOrderWithItems", ctx, mock.AnythingOfType("*model.Order")).Return(nil)

	order, err := f.service.Commit(ctx, commitRequest(uuid.New()))

	require.NoError(t, err)
	assert.True(t, order.DiscountAmount.IsZero())
	assert.Nil(t, order.CouponID)
	assert.Nil(t, order.CouponCode)
	assert.True(t, order.TotalAmount.Equal(dec("3010")))
	f.coupons.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Commit_ValidationErrors(t *testing.T) {
	accountID := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*model.CommitRequest) *model.CommitRequest
		wantErr error
	}{
		{
			name:   "nil request",
			mutate: func(*model.CommitRequest) *model.CommitRequest { return nil },
		},
		{
			name: "missing account",
			mutate: func(r *model.CommitRequest) *model.CommitRequest {
				r.AccountID = uuid.Nil
				return r
			},
		},
		{
			name: "no items",
			mutate: func(r *model.CommitRequest) *model.CommitRequest {
				r.Items = nil
				return r
			},
			wantErr: model.ErrEmptyCart,
		},
		{
			name: "missing product id",
			mutate: func(r *model.CommitRequest) *model.CommitRequest {
				r.Items[0].ProductID = ""
				return r
			},
			wantErr: model.ErrMissingProductID,
		},
		{
			name: "zero quantity",
			mutate: func(r *model.CommitRequest) *model.CommitRequest {
				r.Items[1].Quantity = 0
				return r
			},
			wantErr: model.ErrInvalidQuantity,
		},
		{
			name: "unknown payment method",
			mutate: func(r *model.CommitRequest) *model.CommitRequest {
				r.PaymentMethod = "card"
				return r
			},
			wantErr: model.ErrInvalidPaymentMethod,
		},
		{
			name: "mobile money without reference",
			mutate: func(r *model.CommitRequest) *model.CommitRequest {
				r.PaymentMethod = model.PaymentMobileMoney
				return r
			},
			wantErr: model.ErrMissingPaymentReference,
		},
		{
			name: "missing checkout key",
			mutate: func(r *model.CommitRequest) *model.CommitRequest {
				r.CheckoutKey = ""
				return r
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderServiceFixture()

			order, err := f.service.Commit(context.Background(), tt.mutate(commitRequest(accountID)))

			require.Error(t, err)
			assert.Nil(t, order)

			var commitErr *model.CommitError
			require.ErrorAs(t, err, &commitErr)
			assert.Equal(t, model.StageValidate, commitErr.Stage)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			f.repo.AssertNotCalled(t, "InsertOrderWithItems", mock.Anything, mock.Anything)
			assert.Empty(t, f.publisher.Events())
		})
	}
}

func TestOrderService_Commit_NegativePrice(t *testing.T) {
	f := newOrderServiceFixture()

	req := commitRequest(uuid.New())
	req.Items[0].UnitPrice = dec("-1")

	_, err := f.service.Commit(context.Background(), req)

	var commitErr *model.CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, model.StagePricing, commitErr.Stage)
	f.repo.AssertNotCalled(t, "InsertOrderWithItems", mock.Anything, mock.Anything)
}

func TestOrderService_Commit_StageFailures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *orderServiceFixture)
		withCoupon bool
		wantStage  model.CommitStage
		wantErr    error
	}{
		{
			name: "coupon expired since it was applied",
			setup: func(f *orderServiceFixture) {
				f.coupons.On("Validate", mock.Anything, "SAVE20", mock.Anything, mock.Anything).Return(nil, model.ErrCouponExpired)
			},
			withCoupon: true,
			wantStage:  model.StageCoupon,
			wantErr:    model.ErrCouponExpired,
		},
		{
			name: "location deactivated",
			setup: func(f *orderServiceFixture) {
				f.delivery.On("Resolve", mock.Anything, "LOC-ACCRA").Return(nil, model.ErrInactiveLocation)
			},
			wantStage: model.StageDelivery,
			wantErr:   model.ErrInactiveLocation,
		},
		{
			name: "coupon exhausted inside the transaction",
			setup: func(f *orderServiceFixture) {
				f.coupons.On("Validate", mock.Anything, "SAVE20", mock.Anything, mock.Anything).
					Return(&model.AppliedCoupon{CouponID: uuid.New(), Code: "SAVE20", DiscountAmount: dec("600")}, nil)
				f.delivery.On("Resolve", mock.Anything, "LOC-ACCRA").
					Return(&model.DeliveryQuote{LocationID: "LOC-ACCRA", ShippingAmount: dec("25")}, nil)
				f.repo.On("InsertOrderWithItems", mock.Anything, mock.Anything).Return(model.ErrCouponLimitExceeded)
			},
			withCoupon: true,
			wantStage:  model.StageCoupon,
			wantErr:    model.ErrCouponLimitExceeded,
		},
		{
			name: "database failure",
			setup: func(f *orderServiceFixture) {
				f.delivery.On("Resolve", mock.Anything, "LOC-ACCRA").
					Return(&model.DeliveryQuote{LocationID: "LOC-ACCRA", ShippingAmount: dec("25")}, nil)
				f.repo.On("InsertOrderWithItems", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
			},
			wantStage: model.StagePersist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderServiceFixture()
			tt.setup(f)

			req := commitRequest(uuid.New())
			if tt.withCoupon {
				req.Coupon = &model.AppliedCoupon{Code: "SAVE20", DiscountAmount: dec("600")}
			}

			order, err := f.service.Commit(context.Background(), req)

			require.Error(t, err)
			assert.Nil(t, order)
			var commitErr *model.CommitError
			require.ErrorAs(t, err, &commitErr)
			assert.Equal(t, tt.wantStage, commitErr.Stage)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Empty(t, f.publisher.Events())
		})
	}
}

func TestOrderService_Commit_DuplicateCheckoutReturnsExisting(t *testing.T) {
	f := newOrderServiceFixture()
	ctx := context.Background()
	existing := &model.Order{ID: uuid.New(), Status: model.OrderPending, CheckoutKey: "key-1"}

	f.delivery.On("Resolve", ctx, "LOC-ACCRA").
		Return(&model.DeliveryQuote{LocationID: "LOC-ACCRA", ShippingAmount: dec("25")}, nil)
	f.repo.On("InsertOrderWithItems", ctx, mock.Anything).Return(repository.ErrDuplicateCheckout)
	f.repo.On("GetByCheckoutKey", ctx, "key-1").Return(existing, nil)

	order, err := f.service.Commit(ctx, commitRequest(uuid.New()))

	require.NoError(t, err)
	assert.Same(t, existing, order)
	assert.Empty(t, f.publisher.Events(), "no second created event for a replay")
}

func TestOrderService_Commit_PublishFailureIgnored(t *testing.T) {
	f := newOrderServiceFixture()
	f.publisher.err = errors.New("broker down")

	f.delivery.On("Resolve", mock.Anything, "LOC-ACCRA").
		Return(&model.DeliveryQuote{LocationID: "LOC-ACCRA", ShippingAmount: dec("25")}, nil)
	f.repo.On("InsertOrderWithItems", mock.Anything, mock.Anything).Return(nil)

	order, err := f.service.Commit(context.Background(), commitRequest(uuid.New()))

	require.NoError(t, err)
	assert.NotNil(t, order)
}

func TestOrderService_GetByID(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("found", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.repo.On("GetByID", ctx, orderID).Return(&model.Order{ID: orderID}, nil)

		order, err := f.service.GetByID(ctx, orderID)

		require.NoError(t, err)
		assert.Equal(t, orderID, order.ID)
	})

	t.Run("not found", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.repo.On("GetByID", ctx, orderID).Return(nil, nil)

		_, err := f.service.GetByID(ctx, orderID)

		assert.ErrorIs(t, err, model.ErrOrderNotFound)
	})

	t.Run("repository error", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.repo.On("GetByID", ctx, orderID).Return(nil, errors.New("boom"))

		_, err := f.service.GetByID(ctx, orderID)

		require.Error(t, err)
		assert.NotErrorIs(t, err, model.ErrOrderNotFound)
	})
}

func TestOrderService_GetForAccount_HidesOtherAccounts(t *testing.T) {
	f := newOrderServiceFixture()
	ctx := context.Background()
	orderID, owner := uuid.New(), uuid.New()
	f.repo.On("GetByID", ctx, orderID).Return(&model.Order{ID: orderID, AccountID: owner}, nil)

	order, err := f.service.GetForAccount(ctx, orderID, owner)
	require.NoError(t, err)
	assert.Equal(t, owner, order.AccountID)

	_, err = f.service.GetForAccount(ctx, orderID, uuid.New())
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    model.OrderStatus
		to      model.OrderStatus
		repoErr error
		wantErr error
	}{
		{name: "pending to confirmed", from: model.OrderPending, to: model.OrderConfirmed},
		{name: "skip ahead to shipped", from: model.OrderConfirmed, to: model.OrderShipped},
		{name: "cancel processing", from: model.OrderProcessing, to: model.OrderCancelled},
		{name: "backwards", from: model.OrderShipped, to: model.OrderConfirmed, wantErr: model.ErrInvalidStatusTransition},
		{name: "from delivered", from: model.OrderDelivered, to: model.OrderCancelled, wantErr: model.ErrInvalidStatusTransition},
		{name: "unknown status", from: model.OrderPending, to: "lost", wantErr: model.ErrInvalidStatusTransition},
		{name: "concurrent change", from: model.OrderPending, to: model.OrderConfirmed, repoErr: repository.ErrStatusChanged, wantErr: model.ErrInvalidStatusTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderServiceFixture()
			ctx := context.Background()
			orderID := uuid.New()

			f.repo.On("GetByID", ctx, orderID).Return(&model.Order{ID: orderID, Status: tt.from}, nil)
			f.repo.On("UpdateStatus", ctx, orderID, tt.from, tt.to).Return(tt.repoErr).Maybe()

			order, err := f.service.UpdateStatus(ctx, orderID, tt.to)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, f.publisher.Events())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, order.Status)

			events := f.publisher.Events()
			require.Len(t, events, 1)
			assert.Equal(t, model.EventOrderStatusChanged, events[0].Type)
			assert.Equal(t, tt.to, events[0].Status)
		})
	}
}

func TestOrderService_Cancel(t *testing.T) {
	ctx := context.Background()
	orderID, owner := uuid.New(), uuid.New()

	t.Run("owner cancels pending order", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.repo.On("GetByID", ctx, orderID).Return(&model.Order{ID: orderID, AccountID: owner, Status: model.OrderPending}, nil)
		f.repo.On("UpdateStatus", ctx, orderID, model.OrderPending, model.OrderCancelled).Return(nil)

		order, err := f.service.Cancel(ctx, orderID, owner)

		require.NoError(t, err)
		assert.Equal(t, model.OrderCancelled, order.Status)
	})

	t.Run("other account", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.repo.On("GetByID", ctx, orderID).Return(&model.Order{ID: orderID, AccountID: owner, Status: model.OrderPending}, nil)

		_, err := f.service.Cancel(ctx, orderID, uuid.New())

		assert.ErrorIs(t, err, model.ErrOrderNotFound)
		f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already cancelled", func(t *testing.T) {
		f := newOrderServiceFixture()
		f.repo.On("GetByID", ctx, orderID).Return(&model.Order{ID: orderID, AccountID: owner, Status: model.OrderCancelled}, nil)

		_, err := f.service.Cancel(ctx, orderID, owner)

		assert.ErrorIs(t, err, model.ErrInvalidStatusTransition)
	})
}
