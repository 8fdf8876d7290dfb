package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalogue product with its live stock level.
type Product struct {
	ID        string          `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Stock     int             `json:"stock" db:"stock"`
	ImageURL  string          `json:"imageUrl,omitempty" db:"image_url"`
	Category  string          `json:"category" db:"category"`
	CreatedAt time.Time       `json:"createdAt" db:"created_at"`
}

// Catalogue page sizes.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProductQuery selects a page of the catalogue. An empty Category matches every category;
// InStockOnly hides products that cannot be added to a cart.
type ProductQuery struct {
	Category    string
	InStockOnly bool
	Limit       int
	Offset      int
}
