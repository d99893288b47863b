package application

import (
	"context"

	"github.com/paymentsys/checkout-service/internal/checkout/domain"
)

// PaymentRepository is the narrow store the orchestrator and reconciler write
// through. Lookups report absence as (zero, false, nil) — not found is a
// normal outcome, not an error.
type PaymentRepository interface {
	FindPaymentByOrder(ctx context.Context, orderID string) (domain.Payment, bool, error)
	FindPaymentByCheckoutID(ctx context.Context, checkoutID string) (domain.Payment, bool, error)

	// UpsertPayment atomically inserts or replaces the single payment row for
	// an order, recording the new checkout id and resetting status to pending.
	UpsertPayment(ctx context.Context, orderID string, amount float64, currency, checkoutID string) (domain.Payment, error)

	// TransitionPaymentStatus applies a pending → terminal transition as a
	// conditional update and, when it wins, records the outbox event in the
	// same transaction. Returns false when another writer already moved the
	// row out of pending.
	TransitionPaymentStatus(ctx context.Context, p domain.Payment, to domain.PaymentStatus, eventType string, payload []byte) (bool, error)
}

// OrderStore is the collaborator interface owned by order management.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (domain.Order, bool, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
}

// ProviderGateway abstracts the external payment provider so tests can
// substitute a fake without process-wide state.
type ProviderGateway interface {
	CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (domain.ProviderCheckout, error)
	GetCheckout(ctx context.Context, checkoutID string) (domain.ProviderCheckout, error)
}
