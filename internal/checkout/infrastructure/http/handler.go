package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/paymentsys/checkout-service/internal/checkout/application"
	"github.com/paymentsys/checkout-service/internal/checkout/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DeliveryDeduper dampens webhook retry storms. It is advisory only:
// reconciliation stays idempotent with or without it.
type DeliveryDeduper interface {
	Key(checkoutID string) string
	Seen(ctx context.Context, key string) (bool, error)
}

type Handler struct {
	log        *slog.Logger
	service    *application.Service
	reconciler *application.Reconciler
	dedupe     DeliveryDeduper
	tracer     trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, reconciler *application.Reconciler, dedupe DeliveryDeduper) *Handler {
	return &Handler{
		log:        log,
		service:    service,
		reconciler: reconciler,
		dedupe:     dedupe,
		tracer:     otel.Tracer("checkout-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/checkouts", h.createCheckout)
	r.Post("/checkouts/{checkoutID}/verify", h.verifyPayment)
	r.Post("/webhooks/payment", h.paymentWebhook)
	r.Get("/healthz", h.health)

	return r
}

type createCheckoutReq struct {
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type apiError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
}

func (h *Handler) createCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCheckout")
	defer span.End()

	var req createCheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body", "bad_request")
		return
	}

	res, err := h.service.CreateCheckoutForOrder(ctx, req.OrderID, req.Amount, req.Currency)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"checkoutUrl": res.CheckoutURL,
		"checkoutId":  res.CheckoutID,
	})
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "VerifyPayment")
	defer span.End()

	checkoutID := chi.URLParam(r, "checkoutID")

	status, err := h.reconciler.VerifyPayment(ctx, checkoutID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// webhookPayload tolerates the provider's loosely pinned schema: the checkout
// identifier arrives as checkout_id or id depending on integration version.
type webhookPayload struct {
	CheckoutID string `json:"checkout_id"`
	ID         string `json:"id"`
}

func (p webhookPayload) checkoutID() string {
	if p.CheckoutID != "" {
		return p.CheckoutID
	}
	return p.ID
}

// paymentWebhook always acknowledges with 200: the provider's retry loop is
// no substitute for our own idempotent reconciliation, and refusing a
// delivery only earns a retry storm that buries the real failure.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentWebhook")
	defer span.End()

	ack := func(processed bool) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"received": true, "processed": processed})
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		h.log.Warn("webhook body unreadable", "err", err)
		ack(false)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Warn("webhook payload not json", "err", err)
		ack(false)
		return
	}

	checkoutID := payload.checkoutID()
	if checkoutID == "" {
		h.log.Warn("webhook without checkout identifier", "payload", string(body))
		ack(false)
		return
	}

	if h.dedupe != nil {
		seen, err := h.dedupe.Seen(ctx, h.dedupe.Key(checkoutID))
		if err != nil {
			// Dedupe is an optimisation; on store trouble we reconcile anyway.
			h.log.Warn("webhook dedupe check failed", "checkout_id", checkoutID, "err", err)
		} else if seen {
			h.log.Info("duplicate webhook delivery skipped", "checkout_id", checkoutID)
			ack(false)
			return
		}
	}

	out, err := h.reconciler.Reconcile(ctx, checkoutID)
	if err != nil {
		h.log.Error("webhook reconcile failed", "checkout_id", checkoutID, "err", err)
		ack(false)
		return
	}
	ack(out.Known)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var gerr *domain.GatewayError
	var serr *domain.StorageError

	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		h.writeError(w, http.StatusBadRequest, err.Error(), "invalid_amount")
	case errors.Is(err, domain.ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, err.Error(), "order_not_found")
	case errors.As(err, &gerr):
		switch gerr.Kind {
		case domain.GatewayConfig:
			h.writeError(w, http.StatusInternalServerError, gerr.Message, "gateway_configuration")
		case domain.GatewayDenied:
			h.writeError(w, http.StatusBadGateway, gerr.Message, "gateway_denied")
		default:
			h.writeError(w, http.StatusBadGateway, gerr.Message, "gateway_unavailable")
		}
	case errors.As(err, &serr):
		h.writeError(w, http.StatusInternalServerError, serr.Error(), "storage_failure")
	default:
		h.writeError(w, http.StatusInternalServerError, err.Error(), "internal")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{StatusCode: status, Message: message, Error: code})
}
