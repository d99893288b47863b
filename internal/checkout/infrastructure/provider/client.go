package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/paymentsys/checkout-service/internal/checkout/domain"
)

const checkoutsPath = "/v0.1/checkouts"

// Client issues authenticated calls against the provider's checkout API.
// Every call carries a bounded timeout; a hung provider surfaces as a
// transient GatewayError, never as an indefinite wait.
type Client struct {
	log          *slog.Logger
	http         *http.Client
	baseURL      string
	apiKey       string
	merchantCode string
}

// NewClient fails fast on missing credential or merchant configuration —
// those are startup errors, not per-request ones.
func NewClient(log *slog.Logger, baseURL, apiKey, merchantCode string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, &domain.GatewayError{Kind: domain.GatewayConfig, Message: "provider api key is required"}
	}
	if merchantCode == "" {
		return nil, &domain.GatewayError{Kind: domain.GatewayConfig, Message: "merchant code is required"}
	}
	return &Client{
		log:          log,
		http:         &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		merchantCode: merchantCode,
	}, nil
}

type checkoutPayload struct {
	CheckoutReference string  `json:"checkout_reference"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	MerchantCode      string  `json:"merchant_code"`
	Description       string  `json:"description,omitempty"`
	ReturnURL         string  `json:"return_url,omitempty"`
}

type linkPayload struct {
	Rel    string `json:"rel"`
	Href   string `json:"href"`
	Method string `json:"method"`
}

type checkoutResponse struct {
	ID                string        `json:"id"`
	Status            string        `json:"status"`
	Amount            float64       `json:"amount"`
	Currency          string        `json:"currency"`
	CheckoutReference string        `json:"checkout_reference"`
	Links             []linkPayload `json:"links"`
}

type providerError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (c *Client) CreateCheckout(ctx context.Context, req domain.CheckoutRequest) (domain.ProviderCheckout, error) {
	if math.IsNaN(req.Amount) || req.Amount <= 0 {
		return domain.ProviderCheckout{}, domain.ErrInvalidAmount
	}

	body, err := json.Marshal(checkoutPayload{
		CheckoutReference: req.OrderRef,
		Amount:            req.Amount,
		Currency:          strings.ToUpper(req.Currency),
		MerchantCode:      c.merchantCode,
		Description:       req.Description,
		ReturnURL:         req.ReturnURL,
	})
	if err != nil {
		return domain.ProviderCheckout{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkoutsPath, bytes.NewReader(body))
	if err != nil {
		return domain.ProviderCheckout{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq)
}

func (c *Client) GetCheckout(ctx context.Context, checkoutID string) (domain.ProviderCheckout, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s/%s", c.baseURL, checkoutsPath, checkoutID), nil)
	if err != nil {
		return domain.ProviderCheckout{}, err
	}
	return c.do(httpReq)
}

func (c *Client) do(req *http.Request) (domain.ProviderCheckout, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.ProviderCheckout{}, &domain.GatewayError{
			Kind:    domain.GatewayTransient,
			Message: err.Error(),
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ProviderCheckout{}, &domain.GatewayError{
			Kind:       domain.GatewayTransient,
			StatusCode: resp.StatusCode,
			Message:    err.Error(),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ProviderCheckout{}, c.classify(resp.StatusCode, raw)
	}

	var chk checkoutResponse
	if err := json.Unmarshal(raw, &chk); err != nil {
		return domain.ProviderCheckout{}, &domain.GatewayError{
			Kind:       domain.GatewayTransient,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("malformed provider response: %v", err),
		}
	}

	links := make([]domain.Link, 0, len(chk.Links))
	for _, l := range chk.Links {
		links = append(links, domain.Link{Rel: l.Rel, Href: l.Href, Method: l.Method})
	}
	return domain.ProviderCheckout{
		ID:        chk.ID,
		Status:    chk.Status,
		Amount:    chk.Amount,
		Currency:  chk.Currency,
		Reference: chk.CheckoutReference,
		Links:     links,
	}, nil
}

// classify keeps the provider's error taxonomy intact: auth and regulatory
// refusals are not retryable and must not be mistaken for an outage.
func (c *Client) classify(status int, raw []byte) error {
	var pe providerError
	_ = json.Unmarshal(raw, &pe)

	gerr := &domain.GatewayError{
		StatusCode:   status,
		ProviderCode: pe.ErrorCode,
		Message:      pe.Message,
	}
	if gerr.Message == "" {
		gerr.Message = strings.TrimSpace(string(raw))
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		gerr.Kind = domain.GatewayDenied
	default:
		gerr.Kind = domain.GatewayTransient
	}

	c.log.Error("provider call failed",
		"status", status, "kind", string(gerr.Kind), "provider_code", pe.ErrorCode)
	return gerr
}
