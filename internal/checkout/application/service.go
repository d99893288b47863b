package application

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/paymentsys/checkout-service/internal/checkout/domain"
)

// Service is the only entry point for starting a new payment attempt.
type Service struct {
	log              *slog.Logger
	gateway          ProviderGateway
	payments         PaymentRepository
	orders           OrderStore
	returnBase       string
	checkoutPageBase string
}

func NewService(log *slog.Logger, gateway ProviderGateway, payments PaymentRepository, orders OrderStore, returnBase, checkoutPageBase string) *Service {
	return &Service{
		log:              log,
		gateway:          gateway,
		payments:         payments,
		orders:           orders,
		returnBase:       strings.TrimRight(returnBase, "/"),
		checkoutPageBase: strings.TrimRight(checkoutPageBase, "/"),
	}
}

type CheckoutResult struct {
	CheckoutURL string
	CheckoutID  string
}

// CreateCheckoutForOrder opens a checkout with the provider and upserts the
// local payment row for the order. Calling it twice for the same order is
// safe: the provider gets a second checkout, the local row always reflects
// the most recent one.
func (s *Service) CreateCheckoutForOrder(ctx context.Context, orderID string, amount float64, currency string) (CheckoutResult, error) {
	if math.IsNaN(amount) || amount <= 0 {
		return CheckoutResult{}, domain.ErrInvalidAmount
	}

	order, ok, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if !ok {
		return CheckoutResult{}, domain.ErrOrderNotFound
	}

	chk, err := s.gateway.CreateCheckout(ctx, domain.CheckoutRequest{
		OrderRef:    order.ID,
		Amount:      amount,
		Currency:    currency,
		Description: fmt.Sprintf("Order %s", order.ID),
		ReturnURL:   fmt.Sprintf("%s/payments/return?order=%s", s.returnBase, url.QueryEscape(orderID)),
	})
	if err != nil {
		return CheckoutResult{}, err
	}

	checkoutURL := s.checkoutURL(chk)

	// The user must never be redirected to a checkout whose local record
	// failed to persist — reconciliation would have nothing to update.
	if _, err := s.payments.UpsertPayment(ctx, orderID, amount, currency, chk.ID); err != nil {
		return CheckoutResult{}, err
	}

	s.log.Info("checkout created", "order_id", orderID, "checkout_id", chk.ID)
	return CheckoutResult{CheckoutURL: checkoutURL, CheckoutID: chk.ID}, nil
}

// checkoutURL picks the hosted-payment-page URL out of the provider response:
// a link whose rel names the checkout page, else the first GET-able link,
// else a URL template built from the checkout id. The template is a degraded
// fallback that depends on the provider's undocumented URL scheme.
func (s *Service) checkoutURL(chk domain.ProviderCheckout) string {
	for _, l := range chk.Links {
		rel := strings.ToLower(l.Rel)
		if (rel == "checkout" || rel == "pay") && l.Href != "" {
			return l.Href
		}
	}
	for _, l := range chk.Links {
		if strings.EqualFold(l.Method, "GET") && l.Href != "" {
			return l.Href
		}
	}
	s.log.Warn("provider returned no usable checkout link, falling back to url template",
		"checkout_id", chk.ID, "links", len(chk.Links))
	return fmt.Sprintf("%s/pay/%s", s.checkoutPageBase, chk.ID)
}
