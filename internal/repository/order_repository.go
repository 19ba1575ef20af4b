package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// InsertOrderWithItems writes the order row, every item row and the coupon
// usage increment atomically. It returns ErrDuplicateCheckout when the
// checkout key is taken and model.ErrCouponLimitExceeded when the coupon ran
// out between validation and commit; nothing is written in either case.
func (r *orderRepository) InsertOrderWithItems(ctx context.Context, order *model.Order) error {
	if len(order.Items) == 0 {
		return model.ErrEmptyCart
	}

	log := r.logger.With().Str("order_id", order.ID.String()).Logger()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := r.createOrder(ctx, tx, order); err != nil {
		return err
	}

	if err := r.createOrderItems(ctx, tx, order); err != nil {
		return err
	}

	if order.CouponID != nil {
		if err := r.incrementCouponUsage(ctx, tx, *order.CouponID); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("failed to commit order transaction")
		return fmt.Errorf("failed to commit order transaction: %w", err)
	}

	log.Debug().Int("item_count", len(order.Items)).Msg("order committed")

	return nil
}

func (r *orderRepository) createOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (id, account_id, delivery_location_id, subtotal_amount, shipping_amount,
		                    discount_amount, total_amount, coupon_id, coupon_code, payment_method,
		                    payment_reference, status, checkout_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (checkout_key) DO NOTHING
	`

	tag, err := tx.Exec(ctx, query,
		order.ID,
		order.AccountID,
		order.DeliveryLocationID,
		order.SubtotalAmount,
		order.ShippingAmount,
		order.DiscountAmount,
		order.TotalAmount,
		order.CouponID,
		order.CouponCode,
		order.PaymentMethod,
		order.PaymentReference,
		order.Status,
		order.CheckoutKey,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Info().Str("order_id", order.ID.String()).Msg("duplicate checkout key, order not created")
		return ErrDuplicateCheckout
	}

	return nil
}

func (r *orderRepository) createOrderItems(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price_at_purchase, size, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPriceAtPurchase, item.Size, item.Color)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(order.Items); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Str("product_id", order.Items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	return nil
}

func (r *orderRepository) incrementCouponUsage(ctx context.Context, tx pgx.Tx, couponID uuid.UUID) error {
	query := `
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
	`

	tag, err := tx.Exec(ctx, query, couponID)
	if err != nil {
		r.logger.Error().Err(err).Str("coupon_id", couponID.String()).Msg("failed to increment coupon usage")
		return fmt.Errorf("failed to increment coupon usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Info().Str("coupon_id", couponID.String()).Msg("coupon exhausted at commit")
		return model.ErrCouponLimitExceeded
	}

	return nil
}

const orderColumns = `id, account_id, delivery_location_id, subtotal_amount, shipping_amount, discount_amount,
	total_amount, coupon_id, coupon_code, payment_method, payment_reference, status, checkout_key,
	created_at, updated_at`

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOrder(ctx, "id = $1", id)
}

// GetByCheckoutKey retrieves the order committed for key.
func (r *orderRepository) GetByCheckoutKey(ctx context.Context, key string) (*model.Order, error) {
	return r.getOrder(ctx, "checkout_key = $1", key)
}

func (r *orderRepository) getOrder(ctx context.Context, where string, arg any) (*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ` + where

	var order model.Order
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&order.ID,
		&order.AccountID,
		&order.DeliveryLocationID,
		&order.SubtotalAmount,
		&order.ShippingAmount,
		&order.DiscountAmount,
		&order.TotalAmount,
		&order.CouponID,
		&order.CouponCode,
		&order.PaymentMethod,
		&order.PaymentReference,
		&order.Status,
		&order.CheckoutKey,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("lookup", where).Msg("order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("lookup", where).Msg("failed to query order")
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.getItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *orderRepository) getItems(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price_at_purchase, size, color
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id, id
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPriceAtPurchase, &item.Size, &item.Color)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// UpdateStatus changes the status only if it is still from. It returns
// ErrStatusChanged when another writer got there first.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus) error {
	query := `UPDATE orders SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	tag, err := r.pool.Exec(ctx, query, id, from, to)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusChanged
	}

	r.logger.Info().
		Str("order_id", id.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("order status updated")

	return nil
}
