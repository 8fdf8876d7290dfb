package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryMethod is a shipping option offered at checkout.
type DeliveryMethod struct {
	ID          string          `json:"id" db:"id"`
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description,omitempty" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	MinDays     int             `json:"minDays" db:"min_days"`
	MaxDays     int             `json:"maxDays" db:"max_days"`
	Active      bool            `json:"active" db:"active"`
}

// EstimatedDelivery returns the latest expected delivery date for an order placed at t.
func (d DeliveryMethod) EstimatedDelivery(t time.Time) time.Time {
	return t.AddDate(0, 0, d.MaxDays)
}

// DefaultDeliveryMethods are offered when the delivery catalogue cannot be read.
func DefaultDeliveryMethods() []DeliveryMethod {
	return []DeliveryMethod{
		{
			ID:          "standard",
			Name:        "Standard Delivery",
			Description: "Free delivery in 5-7 business days",
			Price:       decimal.Zero,
			MinDays:     5,
			MaxDays:     7,
			Active:      true,
		},
		{
			ID:          "express",
			Name:        "Express Delivery",
			Description: "Delivery in 1-2 business days",
			Price:       decimal.RequireFromString("9.99"),
			MinDays:     1,
			MaxDays:     2,
			Active:      true,
		},
	}
}
