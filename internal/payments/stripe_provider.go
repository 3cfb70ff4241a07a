package payments

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"squadmint/internal/faults"
)

// StripeProvider creates payment intents and verifies webhook deliveries
// through the Stripe SDK. It holds its own API client rather than the SDK's
// package-level key so multiple instances can coexist in tests.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

func NewStripeProvider(secretKey, webhookSecret string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api, webhookSecret: webhookSecret}
}

func (p *StripeProvider) CreateIntent(_ context.Context, req IntentRequest) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.AddMetadata("walletAddress", req.WalletAddress)
	params.AddMetadata("quantity", strconv.FormatInt(req.Quantity, 10))

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, faults.New(faults.KindUpstream, err)
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (p *StripeProvider) ParseWebhook(payload []byte, sigHeader string) (Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, faults.New(faults.KindSignature, err)
	}

	out := Event{Type: string(event.Type)}
	switch out.Type {
	case EventPaymentSucceeded, EventPaymentFailed:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return Event{}, faults.New(faults.KindValidation, err)
		}
		out.IntentID = pi.ID
		out.AmountCents = pi.Amount
		out.WalletAddress = pi.Metadata["walletAddress"]
		if q, err := strconv.ParseInt(pi.Metadata["quantity"], 10, 64); err == nil {
			out.Quantity = q
		}
	}
	return out, nil
}
