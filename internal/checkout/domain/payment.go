package domain

import "time"

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusSucceeded PaymentStatus = "succeeded"
	StatusFailed    PaymentStatus = "failed"
)

// Payment is the local mirror of one checkout attempt for one order. There is
// at most one row per order; a retried checkout replaces the checkout id and
// resets the status instead of inserting a second row.
type Payment struct {
	ID         string
	OrderID    string
	Amount     float64
	Currency   string
	CheckoutID string
	Status     PaymentStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p Payment) Terminal() bool {
	return p.Status == StatusSucceeded || p.Status == StatusFailed
}
