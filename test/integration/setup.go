// Package integration exercises the HTTP API end to end against Postgres.
package integration

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"storefront/internal/cart"
	"storefront/internal/coupon"
	"storefront/internal/database/dbtest"
	"storefront/internal/delivery"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/identity"
	"storefront/internal/inflight"
	"storefront/internal/model"
	"storefront/internal/pricing"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	testAPIKey        = "test-api-key"
	testSessionSecret = "integration-secret-integration-secret"
)

// Stack is a fully wired API over a test database.
type Stack struct {
	DB      *dbtest.TestDB
	Handler http.Handler
}

// NewStack starts Postgres, imports couponDefs and wires every component the way cmd/api does,
// with in-memory carts and guard.
func NewStack(t *testing.T, couponDefs []model.Coupon) *Stack {
	t.Helper()

	db := dbtest.New(t)
	logger := zerolog.Nop()
	ctx := context.Background()

	store := repository.NewProvider(db.Pool, logger)

	if len(couponDefs) > 0 {
		path := writeCouponFile(t, couponDefs)
		if _, err := coupon.NewImporter(coupon.NewFileLoader(logger), store.Coupons, logger).Import(ctx, []string{path}); err != nil {
			t.Fatalf("failed to import coupons: %v", err)
		}
	}

	reconciler := pricing.NewReconciler(store.Products, time.Second, logger)
	coupons := coupon.NewEngine(store.Coupons, logger)
	locations := delivery.NewResolver(store.Locations, logger)
	accounts := identity.NewResolver(store.Accounts, 3, logger)

	carts := service.NewCartService(cart.NewMemoryStorage(), reconciler, coupons, locations, logger)
	orders := service.NewOrderService(store.Orders, coupons, locations, events.NopPublisher{}, logger)
	checkout := service.NewCheckoutService(carts, reconciler, coupons, locations, accounts, orders,
		inflight.NewMemoryGuard(),
		service.CheckoutConfig{CommitTimeout: 10 * time.Second, GuardTTL: 30 * time.Second},
		logger)

	h := router.New(router.Handlers{
		Cart:     handler.NewCartHandler(carts, logger),
		Checkout: handler.NewCheckoutHandler(checkout, logger),
		Orders:   handler.NewOrderHandler(orders, accounts, logger),
		Delivery: handler.NewDeliveryHandler(locations, logger),
	}, router.Options{
		APIKey:        testAPIKey,
		SessionSecret: testSessionSecret,
		CheckoutRate:  100,
		CheckoutBurst: 100,
	}, logger)

	return &Stack{DB: db, Handler: h}
}

// Pool returns the stack's database pool.
func (s *Stack) Pool() *pgxpool.Pool {
	return s.DB.Pool
}

// SessionToken signs a shopper token for sessionID.
func SessionToken(t *testing.T, sessionID, email string) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        sessionID,
		"email":      email,
		"given_name": "Test",
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSessionSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func writeCouponFile(t *testing.T, defs []model.Coupon) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "coupons.jsonl.gz")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create coupon file: %v", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	for _, c := range defs {
		if err := enc.Encode(c); err != nil {
			t.Fatalf("failed to encode coupon: %v", err)
		}
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}
	return path
}
