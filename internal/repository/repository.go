package repository

import (
	"context"
	"errors"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateCheckout is returned when an order with the same checkout key already exists.
	ErrDuplicateCheckout = errors.New("order already committed for this checkout")
	// ErrStatusChanged is returned when an order's status moved under a concurrent update.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// ProductRepository is the catalog price provider.
type ProductRepository interface {
	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetPrices returns the effective unit price of every known id in one query.
	// Unknown ids are absent from the result.
	GetPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}

// CouponRepository stores coupons.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	UpsertCoupons(ctx context.Context, coupons []model.Coupon) (int, error)
}

// DeliveryLocationRepository reads delivery locations.
type DeliveryLocationRepository interface {
	GetLocation(ctx context.Context, id string) (*model.DeliveryLocation, error)
	ListActiveLocations(ctx context.Context) ([]model.DeliveryLocation, error)
}

// AccountRepository stores accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	FindBySessionRef(ctx context.Context, sessionRef string) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	InsertAccount(ctx context.Context, account *model.Account) error
	UpdateSessionRef(ctx context.Context, accountID uuid.UUID, sessionRef string) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// InsertOrderWithItems writes the order, its items and, when the order
	// carries a coupon, the coupon usage increment in one transaction.
	InsertOrderWithItems(ctx context.Context, order *model.Order) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByCheckoutKey retrieves the order committed for a checkout key.
	GetByCheckoutKey(ctx context.Context, key string) (*model.Order, error)

	// UpdateStatus moves an order from one status to another.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error
}

// Provider bundles every store behind the one Postgres pool.
type Provider struct {
	Products  ProductRepository
	Coupons   CouponRepository
	Locations DeliveryLocationRepository
	Accounts  AccountRepository
	Orders    OrderRepository
}

// NewProvider creates all Postgres-backed repositories.
func NewProvider(pool *pgxpool.Pool, logger zerolog.Logger) *Provider {
	return &Provider{
		Products:  NewProductRepository(pool, logger),
		Coupons:   NewCouponRepository(pool, logger),
		Locations: NewDeliveryLocationRepository(pool, logger),
		Accounts:  NewAccountRepository(pool, logger),
		Orders:    NewOrderRepository(pool, logger),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
