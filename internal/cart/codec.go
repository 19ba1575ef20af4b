package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// persistedVersion is bumped when the stored layout changes.
const persistedVersion = 2

// persistedCart is the on-storage layout. Version 1 carts stored numeric product ids.
type persistedCart struct {
	Version          int                     `json:"version"`
	Generation       string                  `json:"generation,omitempty"`
	Items            []persistedItem         `json:"items"`
	Coupon           *model.AppliedCoupon    `json:"coupon,omitempty"`
	DeliveryLocation *model.DeliveryLocation `json:"deliveryLocation,omitempty"`
}

type persistedItem struct {
	ProductID       json.RawMessage `json:"productId"`
	CachedUnitPrice decimal.Decimal `json:"cachedUnitPrice"`
	Quantity        int             `json:"quantity"`
	Size            *string         `json:"size,omitempty"`
	Color           *string         `json:"color,omitempty"`
}

func encodeState(s state) ([]byte, error) {
	p := persistedCart{
		Version:          persistedVersion,
		Generation:       s.generation,
		Items:            make([]persistedItem, len(s.items)),
		Coupon:           s.coupon,
		DeliveryLocation: s.location,
	}
	for i, item := range s.items {
		id, err := json.Marshal(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to encode product id: %w", err)
		}
		p.Items[i] = persistedItem{
			ProductID:       id,
			CachedUnitPrice: item.CachedUnitPrice,
			Quantity:        item.Quantity,
			Size:            item.Size,
			Color:           item.Color,
		}
	}
	return json.Marshal(p)
}

// decodeState parses stored bytes. Product ids are coerced to strings and rows
// that would be invalid after migration (empty id, quantity <= 0) are dropped.
// Rows repeating a product id are merged. Carts stored without a generation get a fresh one.
func decodeState(data []byte) (state, error) {
	var p persistedCart
	if err := json.Unmarshal(data, &p); err != nil {
		return state{}, fmt.Errorf("failed to decode cart: %w", err)
	}

	s := state{
		generation: p.Generation,
		coupon:     p.Coupon,
		location:   p.DeliveryLocation,
	}
	for _, raw := range p.Items {
		id, err := coerceProductID(raw.ProductID)
		if err != nil {
			return state{}, err
		}
		if id == "" || raw.Quantity <= 0 {
			continue
		}
		item := model.CartLineItem{
			ProductID:       id,
			CachedUnitPrice: raw.CachedUnitPrice,
			Quantity:        raw.Quantity,
			Size:            raw.Size,
			Color:           raw.Color,
		}
		if idx := s.indexOf(id); idx >= 0 {
			s.items[idx].Quantity += item.Quantity
			continue
		}
		s.items = append(s.items, item)
	}
	if len(s.items) > 0 && s.generation == "" {
		s.generation = uuid.NewString()
	}
	return s, nil
}

// coerceProductID accepts a JSON string or number and returns its canonical string form.
func coerceProductID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("failed to decode product id: %w", err)
		}
		return strings.TrimSpace(s), nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return "", fmt.Errorf("product id %s is neither string nor number: %w", raw, err)
	}
	return n.String(), nil
}
