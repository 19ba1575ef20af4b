// Package delivery maps a delivery location to its flat shipping fee.
package delivery

import (
	"context"
	"fmt"

	"storefront/internal/model"

	"github.com/rs/zerolog"
)

// LocationProvider reads delivery locations.
type LocationProvider interface {
	// GetLocation returns nil, nil when the location does not exist.
	GetLocation(ctx context.Context, id string) (*model.DeliveryLocation, error)
	ListActiveLocations(ctx context.Context) ([]model.DeliveryLocation, error)
}

// Resolver gates checkout on location status and quotes its shipping fee.
type Resolver struct {
	locations LocationProvider
	logger    zerolog.Logger
}

// NewResolver creates a delivery cost resolver.
func NewResolver(locations LocationProvider, logger zerolog.Logger) *Resolver {
	return &Resolver{
		locations: locations,
		logger:    logger.With().Str("component", "delivery-resolver").Logger(),
	}
}

// Resolve returns the shipping fee for locationID. Locations that are not
// active are rejected whatever fee they carry.
func (r *Resolver) Resolve(ctx context.Context, locationID string) (*model.DeliveryQuote, error) {
	location, err := r.ResolveLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}

	return &model.DeliveryQuote{
		LocationID:     location.ID,
		ShippingAmount: location.ShippingAmount,
	}, nil
}

// ResolveLocation returns the full location record after the same checks as Resolve.
func (r *Resolver) ResolveLocation(ctx context.Context, locationID string) (*model.DeliveryLocation, error) {
	if locationID == "" {
		return nil, model.ErrMissingDeliveryLocation
	}

	location, err := r.locations.GetLocation(ctx, locationID)
	if err != nil {
		r.logger.Error().Err(err).Str("location_id", locationID).Msg("failed to look up delivery location")
		return nil, fmt.Errorf("failed to look up delivery location: %w", err)
	}
	if location == nil {
		return nil, model.ErrLocationNotFound
	}

	if !location.IsActive() {
		r.logger.Info().
			Str("location_id", locationID).
			Str("status", string(location.Status)).
			Msg("delivery location not available")
		return nil, model.ErrInactiveLocation
	}

	return location, nil
}

// ActiveLocations lists the locations a shopper may choose from.
func (r *Resolver) ActiveLocations(ctx context.Context) ([]model.DeliveryLocation, error) {
	locations, err := r.locations.ListActiveLocations(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list delivery locations")
		return nil, fmt.Errorf("failed to list delivery locations: %w", err)
	}
	return locations, nil
}
