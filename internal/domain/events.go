package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderCreatedEvent struct {
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	Email      string          `json:"email"`
	Name       string          `json:"name"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Items      []OrderItem     `json:"items"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewOrderCreatedEvent builds the event published once an order has committed.
func NewOrderCreatedEvent(order *Order, email, name string) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Email:      email,
		Name:       name,
		TotalPrice: order.TotalPrice,
		Items:      order.Items,
		Timestamp:  order.CreatedAt,
	}
}
