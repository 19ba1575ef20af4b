// Package cart implements the shopper's cart as a sequence of synchronous state
// transitions, each persisted to a Storage port before it becomes visible.
package cart

import (
	"errors"
	"fmt"
	"strings"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type state struct {
	// generation identifies one fill of the cart, from its first item until it is cleared.
	generation string
	items      []model.CartLineItem
	coupon     *model.AppliedCoupon
	location   *model.DeliveryLocation
}

func (s state) indexOf(productID string) int {
	for i, item := range s.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s state) clone() state {
	c := state{generation: s.generation, items: make([]model.CartLineItem, len(s.items))}
	copy(c.items, s.items)
	if s.coupon != nil {
		coupon := *s.coupon
		c.coupon = &coupon
	}
	if s.location != nil {
		location := *s.location
		c.location = &location
	}
	return c
}

// Store is one shopper's cart. It is not safe for concurrent use; callers
// serialise mutations the way a UI event loop does.
type Store struct {
	key     string
	storage Storage
	state   state
	logger  zerolog.Logger
}

// Open loads the cart stored under key, or starts an empty one.
func Open(storage Storage, key string, logger zerolog.Logger) (*Store, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("cart key is required")
	}

	s := &Store{
		key:     key,
		storage: storage,
		logger:  logger.With().Str("component", "cart").Str("cart_key", key).Logger(),
	}

	data, err := storage.Read(key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s, nil
		}
		s.logger.Error().Err(err).Msg("failed to load cart")
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	loaded, err := decodeState(data)
	if err != nil {
		// an unreadable cart is discarded rather than blocking the shopper
		s.logger.Warn().Err(err).Msg("stored cart is corrupt, starting empty")
		return s, nil
	}
	s.state = loaded

	return s, nil
}

// mutate applies fn to a copy of the state and only adopts it once it has been written.
func (s *Store) mutate(op string, fn func(*state) error) error {
	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}

	data, err := encodeState(next)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.storage.Write(s.key, data); err != nil {
		s.logger.Error().Err(err).Str("op", op).Msg("failed to persist cart")
		return fmt.Errorf("failed to persist cart: %w", err)
	}

	s.state = next
	s.logger.Debug().Str("op", op).Int("items", len(next.items)).Msg("cart updated")
	return nil
}

// Add appends item, or increments the quantity of the existing row for the same product.
func (s *Store) Add(item model.CartLineItem) error {
	item.ProductID = strings.TrimSpace(item.ProductID)
	if item.ProductID == "" {
		return model.ErrMissingProductID
	}
	if item.Quantity < 1 {
		return model.ErrInvalidQuantity
	}

	return s.mutate("add", func(st *state) error {
		if len(st.items) == 0 {
			st.generation = uuid.NewString()
		}
		if idx := st.indexOf(item.ProductID); idx >= 0 {
			st.items[idx].Quantity += item.Quantity
			st.items[idx].CachedUnitPrice = item.CachedUnitPrice
			return nil
		}
		st.items = append(st.items, item)
		return nil
	})
}

// Remove deletes the row for productID. Removing a missing product is a no-op.
func (s *Store) Remove(productID string) error {
	return s.mutate("remove", func(st *state) error {
		if idx := st.indexOf(productID); idx >= 0 {
			st.items = append(st.items[:idx], st.items[idx+1:]...)
		}
		return nil
	})
}

// SetQuantity replaces the quantity for productID; qty <= 0 removes the row.
func (s *Store) SetQuantity(productID string, qty int) error {
	return s.mutate("set_quantity", func(st *state) error {
		idx := st.indexOf(productID)
		if idx < 0 {
			return nil
		}
		if qty <= 0 {
			st.items = append(st.items[:idx], st.items[idx+1:]...)
			return nil
		}
		st.items[idx].Quantity = qty
		return nil
	})
}

// Clear empties the cart, including its coupon and delivery choice.
func (s *Store) Clear() error {
	return s.mutate("clear", func(st *state) error {
		*st = state{}
		return nil
	})
}

// ApplyCoupon replaces any applied coupon.
func (s *Store) ApplyCoupon(coupon model.AppliedCoupon) error {
	return s.mutate("apply_coupon", func(st *state) error {
		st.coupon = &coupon
		return nil
	})
}

// RemoveCoupon drops the applied coupon.
func (s *Store) RemoveCoupon() error {
	return s.mutate("remove_coupon", func(st *state) error {
		st.coupon = nil
		return nil
	})
}

// SetDeliveryLocation records the chosen delivery location.
func (s *Store) SetDeliveryLocation(location model.DeliveryLocation) error {
	return s.mutate("set_delivery_location", func(st *state) error {
		st.location = &location
		return nil
	})
}

// Snapshot returns a copy of the cart that later mutations do not affect.
func (s *Store) Snapshot() model.CartSnapshot {
	c := s.state.clone()
	return model.CartSnapshot{
		Generation:       c.generation,
		Items:            c.items,
		Coupon:           c.coupon,
		DeliveryLocation: c.location,
	}
}
