package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalogue product as seen by the checkout core.
type Product struct {
	ID          string           `json:"id" db:"id"`
	Name        string           `json:"name" db:"name"`
	Price       decimal.Decimal  `json:"price" db:"price"`
	SaleEnabled bool             `json:"saleEnabled" db:"sale_enabled"`
	SalePrice   *decimal.Decimal `json:"salePrice,omitempty" db:"sale_price"`
	CreatedAt   time.Time        `json:"createdAt" db:"created_at"`
}

// OnSale reports whether the sale price currently replaces the list price.
func (p Product) OnSale() bool {
	return p.SaleEnabled && p.SalePrice != nil && p.SalePrice.IsPositive() && p.SalePrice.LessThan(p.Price)
}

// EffectivePrice returns the unit price a shopper pays right now.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.OnSale() {
		return *p.SalePrice
	}
	return p.Price
}
