package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type couponRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(pool *pgxpool.Pool, logger zerolog.Logger) CouponRepository {
	return &couponRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "coupon").Logger(),
	}
}

// GetByCode returns nil, nil when no coupon has code.
func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	query := `
		SELECT id, code, discount_type, value, min_order_amount, max_discount_amount,
		       usage_limit, used_count, starts_at, expires_at, is_active
		FROM coupons
		WHERE code = $1
	`

	var (
		c                   model.Coupon
		startsAt, expiresAt *time.Time
	)
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&c.ID,
		&c.Code,
		&c.DiscountType,
		&c.Value,
		&c.MinOrderAmount,
		&c.MaxDiscountAmount,
		&c.UsageLimit,
		&c.UsedCount,
		&startsAt,
		&expiresAt,
		&c.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("coupon_code", code).Msg("failed to query coupon")
		return nil, fmt.Errorf("failed to query coupon: %w", err)
	}

	if startsAt != nil {
		c.StartsAt = *startsAt
	}
	if expiresAt != nil {
		c.ExpiresAt = *expiresAt
	}

	return &c, nil
}

// UpsertCoupons inserts new codes and updates existing ones. Existing ids and
// used counts are kept.
func (r *couponRepository) UpsertCoupons(ctx context.Context, coupons []model.Coupon) (int, error) {
	if len(coupons) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO coupons (id, code, discount_type, value, min_order_amount, max_discount_amount,
		                     usage_limit, used_count, starts_at, expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
		ON CONFLICT (code) DO UPDATE SET
			discount_type       = EXCLUDED.discount_type,
			value               = EXCLUDED.value,
			min_order_amount    = EXCLUDED.min_order_amount,
			max_discount_amount = EXCLUDED.max_discount_amount,
			usage_limit         = EXCLUDED.usage_limit,
			starts_at           = EXCLUDED.starts_at,
			expires_at          = EXCLUDED.expires_at,
			is_active           = EXCLUDED.is_active
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, c := range coupons {
		batch.Queue(query,
			c.ID,
			c.Code,
			c.DiscountType,
			c.Value,
			c.MinOrderAmount,
			c.MaxDiscountAmount,
			c.UsageLimit,
			nullableTime(c.StartsAt),
			nullableTime(c.ExpiresAt),
			c.IsActive,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, c := range coupons {
		if _, err := results.Exec(); err != nil {
			results.Close()
			r.logger.Error().Err(err).Str("coupon_code", c.Code).Msg("failed to upsert coupon")
			return 0, fmt.Errorf("failed to upsert coupon %s: %w", c.Code, err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Msg("failed to commit coupon upsert")
		return 0, fmt.Errorf("failed to commit coupon upsert: %w", err)
	}

	r.logger.Info().Int("count", len(coupons)).Msg("coupons upserted")

	return len(coupons), nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
