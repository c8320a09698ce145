package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

// OrderStatusPending is the only status an order is ever written with.
const OrderStatusPending OrderStatus = "pending"

// Line is one (product, quantity) pair requested by a customer.
type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	Quantity    int             `json:"quantity"`
	PriceAtTime decimal.Decimal `json:"price_at_time"`
	Name        string          `json:"name,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// Subtotal is the snapshot price multiplied by the quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     OrderStatus     `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	Items      []OrderItem     `json:"items,omitempty"`
}

// OrderSummary is an order header as returned by order listings.
type OrderSummary struct {
	Order
	ItemCount int `json:"item_count"`
}
