package domain

// Provider-side checkout statuses. The provider is the source of truth; these
// values travel back to clients of the verify endpoint unchanged.
const (
	CheckoutPending = "PENDING"
	CheckoutPaid    = "PAID"
	CheckoutFailed  = "FAILED"
)

// CheckoutRequest carries everything the gateway needs to open a hosted
// checkout session.
type CheckoutRequest struct {
	OrderRef    string
	Amount      float64
	Currency    string
	Description string
	ReturnURL   string
}

// ProviderCheckout is the provider's transient representation of a session.
// It is never persisted verbatim.
type ProviderCheckout struct {
	ID        string
	Status    string
	Amount    float64
	Currency  string
	Reference string
	Links     []Link
}

type Link struct {
	Rel    string
	Href   string
	Method string
}

// LocalStatus maps a provider checkout status onto the local payment state.
// PENDING and any unrecognised value map to no transition.
func LocalStatus(providerStatus string) (PaymentStatus, bool) {
	switch providerStatus {
	case CheckoutPaid:
		return StatusSucceeded, true
	case CheckoutFailed:
		return StatusFailed, true
	default:
		return StatusPending, false
	}
}

// ProviderVocab renders a local payment status in the provider's vocabulary.
func ProviderVocab(s PaymentStatus) string {
	switch s {
	case StatusSucceeded:
		return CheckoutPaid
	case StatusFailed:
		return CheckoutFailed
	default:
		return CheckoutPending
	}
}
