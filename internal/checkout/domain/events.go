package domain

type PaymentSucceeded struct {
	OrderID    string  `json:"order_id"`
	CheckoutID string  `json:"checkout_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
}

type PaymentFailed struct {
	OrderID    string `json:"order_id"`
	CheckoutID string `json:"checkout_id"`
}
