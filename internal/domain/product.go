package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	QuantityInStock int             `json:"quantity_in_stock"`
	Category        string          `json:"category"`
	ImageURL        string          `json:"image_url,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProductFilter narrows a catalog listing. Empty fields match everything.
type ProductFilter struct {
	Category string
	Query    string
}
