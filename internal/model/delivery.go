package model

import "github.com/shopspring/decimal"

// LocationStatus is the availability state of a delivery location.
type LocationStatus string

const (
	LocationActive      LocationStatus = "active"
	LocationInactive    LocationStatus = "inactive"
	LocationMaintenance LocationStatus = "maintenance"
)

// DeliveryLocation is a city with a flat shipping fee and a pickup point.
type DeliveryLocation struct {
	ID             string          `json:"id" db:"id"`
	CityName       string          `json:"cityName" db:"city_name"`
	ShippingAmount decimal.Decimal `json:"shippingAmount" db:"shipping_amount"`
	PickupLocation string          `json:"pickupLocation" db:"pickup_location"`
	PickupPhone    string          `json:"pickupPhone" db:"pickup_phone"`
	Status         LocationStatus  `json:"status" db:"status"`
}

// IsActive reports whether checkout may use this location.
func (l DeliveryLocation) IsActive() bool {
	return l.Status == LocationActive
}

// DeliveryQuote is the resolved shipping fee for a location.
type DeliveryQuote struct {
	LocationID     string          `json:"locationId"`
	ShippingAmount decimal.Decimal `json:"shippingAmount"`
}
