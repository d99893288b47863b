package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount = errors.New("amount must be a positive number")
	ErrOrderNotFound = errors.New("order not found")
)

type GatewayErrorKind string

const (
	// GatewayConfig: required merchant/credential configuration is missing or
	// rejected. Not retryable.
	GatewayConfig GatewayErrorKind = "config"
	// GatewayDenied: the provider refused the request for account or
	// regulatory reasons. Retrying does not help; the account needs fixing.
	GatewayDenied GatewayErrorKind = "denied"
	// GatewayTransient: network failure, timeout or provider 5xx. Safe to
	// retry with backoff.
	GatewayTransient GatewayErrorKind = "transient"
)

// GatewayError carries the classification of a failed provider call so it is
// never flattened to a generic 500 on the way out.
type GatewayError struct {
	Kind         GatewayErrorKind
	StatusCode   int
	ProviderCode string
	Message      string
}

func (e *GatewayError) Error() string {
	if e.ProviderCode != "" {
		return fmt.Sprintf("gateway %s (%d %s): %s", e.Kind, e.StatusCode, e.ProviderCode, e.Message)
	}
	return fmt.Sprintf("gateway %s: %s", e.Kind, e.Message)
}

// StorageError wraps a local persistence failure. Always retryable by the
// caller.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
