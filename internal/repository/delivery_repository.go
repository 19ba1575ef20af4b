package repository

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type deliveryLocationRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewDeliveryLocationRepository creates a new PostgreSQL-backed delivery location repository.
func NewDeliveryLocationRepository(pool *pgxpool.Pool, logger zerolog.Logger) DeliveryLocationRepository {
	return &deliveryLocationRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "delivery_location").Logger(),
	}
}

const locationColumns = `id, city_name, shipping_amount, pickup_location, pickup_phone, status`

func scanLocation(row pgx.Row) (*model.DeliveryLocation, error) {
	var l model.DeliveryLocation
	if err := row.Scan(&l.ID, &l.CityName, &l.ShippingAmount, &l.PickupLocation, &l.PickupPhone, &l.Status); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *deliveryLocationRepository) GetLocation(ctx context.Context, id string) (*model.DeliveryLocation, error) {
	query := `SELECT ` + locationColumns + ` FROM delivery_locations WHERE id = $1`

	l, err := scanLocation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("location_id", id).Msg("failed to query delivery location")
		return nil, fmt.Errorf("failed to query delivery location: %w", err)
	}

	return l, nil
}

func (r *deliveryLocationRepository) ListActiveLocations(ctx context.Context) ([]model.DeliveryLocation, error) {
	query := `SELECT ` + locationColumns + ` FROM delivery_locations WHERE status = $1 ORDER BY city_name`

	rows, err := r.pool.Query(ctx, query, model.LocationActive)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query delivery locations")
		return nil, fmt.Errorf("failed to query delivery locations: %w", err)
	}
	defer rows.Close()

	locations := []model.DeliveryLocation{}
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery location: %w", err)
		}
		locations = append(locations, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating delivery locations: %w", err)
	}

	return locations, nil
}
