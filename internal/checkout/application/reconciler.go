package application

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/paymentsys/checkout-service/internal/checkout/domain"
)

// Reconciler applies the provider's authoritative checkout status to the
// local payment row. The client verify path and the webhook path both call
// Reconcile; the transition logic exists exactly once.
type Reconciler struct {
	log      *slog.Logger
	gateway  ProviderGateway
	payments PaymentRepository
	orders   OrderStore
}

func NewReconciler(log *slog.Logger, gateway ProviderGateway, payments PaymentRepository, orders OrderStore) *Reconciler {
	return &Reconciler{log: log, gateway: gateway, payments: payments, orders: orders}
}

type ReconcileOutcome struct {
	Status domain.PaymentStatus
	// Known is false when no local payment row matched the checkout id.
	Known bool
	// Applied is true when this call wrote the status transition.
	Applied bool
}

// Reconcile fetches the checkout from the provider and applies any due
// transition. Repeated invocations with the same provider status are no-ops:
// the payment-status write is a conditional update, so the success side
// effects fire at most once even when a verify races a webhook.
func (r *Reconciler) Reconcile(ctx context.Context, checkoutID string) (ReconcileOutcome, error) {
	chk, err := r.gateway.GetCheckout(ctx, checkoutID)
	if err != nil {
		return ReconcileOutcome{}, err
	}

	target, due := domain.LocalStatus(chk.Status)

	p, ok, err := r.payments.FindPaymentByCheckoutID(ctx, checkoutID)
	if err != nil {
		return ReconcileOutcome{}, err
	}
	if !ok {
		// A webhook for an attempt this service never recorded, or a race
		// with an in-flight checkout creation. Never fabricate a record.
		r.log.Warn("reconcile for unknown checkout",
			"checkout_id", checkoutID, "provider_status", chk.Status)
		return ReconcileOutcome{Status: target, Known: false}, nil
	}

	if !due || p.Status == target || p.Terminal() {
		return ReconcileOutcome{Status: p.Status, Known: true}, nil
	}

	eventType, payload := transitionEvent(p, target)
	applied, err := r.payments.TransitionPaymentStatus(ctx, p, target, eventType, payload)
	if err != nil {
		return ReconcileOutcome{}, err
	}
	if !applied {
		// Lost the race against a concurrent reconcile; its writer owns the
		// side effects.
		return ReconcileOutcome{Status: target, Known: true}, nil
	}

	if target == domain.StatusSucceeded {
		// Best effort relative to the payment write: the payment status is
		// the authoritative signal, a stale order row is an operator
		// follow-up, not a reconciliation failure.
		if err := r.orders.UpdateOrderStatus(ctx, p.OrderID, domain.OrderPaid); err != nil {
			r.log.Error("order status update failed after successful payment",
				"order_id", p.OrderID, "checkout_id", checkoutID, "err", err)
		}
	}

	r.log.Info("payment reconciled",
		"checkout_id", checkoutID, "order_id", p.OrderID, "status", target)
	return ReconcileOutcome{Status: target, Known: true, Applied: true}, nil
}

// VerifyPayment is the synchronous entry point for the redirected client. It
// returns the resulting status in the provider's vocabulary.
func (r *Reconciler) VerifyPayment(ctx context.Context, checkoutID string) (string, error) {
	out, err := r.Reconcile(ctx, checkoutID)
	if err != nil {
		return "", err
	}
	return domain.ProviderVocab(out.Status), nil
}

func transitionEvent(p domain.Payment, target domain.PaymentStatus) (string, []byte) {
	if target == domain.StatusSucceeded {
		payload, _ := json.Marshal(domain.PaymentSucceeded{
			OrderID:    p.OrderID,
			CheckoutID: p.CheckoutID,
			Amount:     p.Amount,
			Currency:   p.Currency,
		})
		return "PaymentSucceeded", payload
	}
	payload, _ := json.Marshal(domain.PaymentFailed{
		OrderID:    p.OrderID,
		CheckoutID: p.CheckoutID,
	})
	return "PaymentFailed", payload
}
