// Package coupon validates promotional codes against an order subtotal and keeps
// the coupon catalogue in sync with definition files.
package coupon

import (
	"context"

	"storefront/internal/model"
)

// Store looks coupons up by their normalised code.
type Store interface {
	// GetByCode returns nil, nil when no coupon has the code.
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
}

// Writer persists coupon definitions.
type Writer interface {
	// UpsertCoupons inserts or updates definitions by code, leaving used counts untouched.
	UpsertCoupons(ctx context.Context, coupons []model.Coupon) (int, error)
}

// Loader reads a gzipped JSON-lines file of coupon definitions.
type Loader interface {
	Load(ctx context.Context, path string) ([]model.Coupon, error)
}
