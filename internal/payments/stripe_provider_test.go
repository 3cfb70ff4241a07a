package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadmint/internal/faults"
)

const webhookSecret = "whsec_stripe_test"

// stripeSign produces a Stripe-Signature header for payload: the signed
// string is "<timestamp>.<payload>" keyed with the webhook secret.
func stripeSign(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func succeededEventJSON(intentID, walletAddr string, quantity int) []byte {
	return []byte(fmt.Sprintf(`{
	  "id": "evt_1",
	  "type": "payment_intent.succeeded",
	  "api_version": "2025-03-31",
	  "data": {
	    "object": {
	      "id": %q,
	      "object": "payment_intent",
	      "amount": 10000,
	      "currency": "usd",
	      "metadata": {"walletAddress": %q, "quantity": "%d"}
	    }
	  }
	}`, intentID, walletAddr, quantity))
}

func TestStripeParseWebhookVerifiesAndDecodes(t *testing.T) {
	p := NewStripeProvider("sk_test_123", webhookSecret)
	payload := succeededEventJSON("pi_abc", buyerAddress, 2)

	ev, err := p.ParseWebhook(payload, stripeSign(webhookSecret, payload, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, EventPaymentSucceeded, ev.Type)
	assert.Equal(t, "pi_abc", ev.IntentID)
	assert.Equal(t, buyerAddress, ev.WalletAddress)
	assert.Equal(t, int64(2), ev.Quantity)
	assert.Equal(t, int64(10000), ev.AmountCents)
}

func TestStripeParseWebhookRejectsWrongSecret(t *testing.T) {
	p := NewStripeProvider("sk_test_123", webhookSecret)
	payload := succeededEventJSON("pi_abc", buyerAddress, 1)

	_, err := p.ParseWebhook(payload, stripeSign("whsec_other", payload, time.Now()))
	require.Error(t, err)
	assert.Equal(t, faults.KindSignature, faults.KindOf(err))
}

func TestStripeParseWebhookRejectsStaleTimestamp(t *testing.T) {
	p := NewStripeProvider("sk_test_123", webhookSecret)
	payload := succeededEventJSON("pi_abc", buyerAddress, 1)

	// Outside the default tolerance window: a replayed capture.
	stale := time.Now().Add(-time.Hour)
	_, err := p.ParseWebhook(payload, stripeSign(webhookSecret, payload, stale))
	require.Error(t, err)
	assert.Equal(t, faults.KindSignature, faults.KindOf(err))
}

func TestStripeParseWebhookRejectsMissingHeader(t *testing.T) {
	p := NewStripeProvider("sk_test_123", webhookSecret)
	payload := succeededEventJSON("pi_abc", buyerAddress, 1)

	_, err := p.ParseWebhook(payload, "")
	require.Error(t, err)
	assert.Equal(t, faults.KindSignature, faults.KindOf(err))
}
