package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is owned by the order-management side; this service reads it to build
// checkout descriptions and writes its status exactly once, on a success
// transition.
type Order struct {
	ID        string
	Customer  string
	Amount    float64
	Currency  string
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
