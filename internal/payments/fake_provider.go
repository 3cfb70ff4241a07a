package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"squadmint/internal/faults"
)

// FakeProvider mimics the payment processor for tests: intents get
// deterministic ids and webhooks are authenticated with a plain HMAC over
// the payload.
type FakeProvider struct {
	Secret string
	// CreateErr, when set, is returned from CreateIntent.
	CreateErr error

	mu      sync.Mutex
	created []IntentRequest
}

type fakeWebhookBody struct {
	Type          string `json:"type"`
	IntentID      string `json:"intentId"`
	WalletAddress string `json:"walletAddress"`
	Quantity      int64  `json:"quantity"`
	AmountCents   int64  `json:"amountCents"`
}

func (f *FakeProvider) CreateIntent(_ context.Context, req IntentRequest) (Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return Intent{}, faults.New(faults.KindUpstream, f.CreateErr)
	}
	f.created = append(f.created, req)
	id := fmt.Sprintf("pi_fake_%d", len(f.created))
	return Intent{ID: id, ClientSecret: id + "_secret"}, nil
}

func (f *FakeProvider) ParseWebhook(payload []byte, sigHeader string) (Event, error) {
	if !hmac.Equal([]byte(f.Sign(payload)), []byte(sigHeader)) {
		return Event{}, faults.Newf(faults.KindSignature, "webhook signature mismatch")
	}
	var body fakeWebhookBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return Event{}, faults.New(faults.KindValidation, err)
	}
	return Event{
		Type:          body.Type,
		IntentID:      body.IntentID,
		WalletAddress: body.WalletAddress,
		Quantity:      body.Quantity,
		AmountCents:   body.AmountCents,
	}, nil
}

// Sign computes the signature header value the fake expects for payload.
func (f *FakeProvider) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(f.Secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// CreatedIntents returns every intent request seen by the fake.
func (f *FakeProvider) CreatedIntents() []IntentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]IntentRequest(nil), f.created...)
}
