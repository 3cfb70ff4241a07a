package payments

import "context"

// Event types this pipeline reacts to, named as the payment provider names
// them.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// IntentRequest describes the charge to create. The wallet address and
// quantity ride along as intent metadata so the webhook can recover them.
type IntentRequest struct {
	AmountCents   int64
	Quantity      int64
	WalletAddress string
	Description   string
}

// Intent is the provider-side charge handle returned to the browser.
type Intent struct {
	ID           string
	ClientSecret string
}

// Event is a verified, decoded webhook notification. ParseWebhook never
// returns an Event for a payload whose signature did not verify.
type Event struct {
	Type          string
	IntentID      string
	WalletAddress string
	Quantity      int64
	AmountCents   int64
}

// Provider abstracts the fiat payment processor.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
	// ParseWebhook verifies the payload signature against the shared
	// webhook secret and decodes the event. Verification happens before
	// any payload field is trusted.
	ParseWebhook(payload []byte, sigHeader string) (Event, error)
}
