package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"squadmint/internal/faults"
	"squadmint/internal/ledger"
)

// Minter is the on-chain surface the service needs; *contract.Minter
// satisfies it.
type Minter interface {
	CreditCardMint(ctx context.Context, to string, quantity int64) (string, error)
}

// Service bridges fiat payments to on-chain mints executed by the
// backend-held signer.
type Service struct {
	provider       Provider
	minter         Minter
	store          ledger.Store
	recon          *Reconciler
	unitPriceCents int64
	maxPerTx       int64
}

func NewService(provider Provider, minter Minter, store ledger.Store, recon *Reconciler, unitPriceCents int64, maxPerTx int64) *Service {
	return &Service{
		provider:       provider,
		minter:         minter,
		store:          store,
		recon:          recon,
		unitPriceCents: unitPriceCents,
		maxPerTx:       maxPerTx,
	}
}

// CreateIntentResult is returned to the browser to drive card collection.
type CreateIntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	AmountCents     int64  `json:"amount"`
	Quantity        int64  `json:"quantity"`
	WalletAddress   string `json:"walletAddress"`
}

// CreateIntent validates the request and creates a payment intent with the
// provider. Validation failures never reach the provider.
func (s *Service) CreateIntent(ctx context.Context, quantity int64, walletAddress string) (CreateIntentResult, error) {
	if quantity < 1 || quantity > s.maxPerTx {
		return CreateIntentResult{}, faults.Newf(faults.KindValidation, "quantity must be between 1 and %d", s.maxPerTx)
	}
	if !isStrictHexAddress(walletAddress) {
		return CreateIntentResult{}, faults.Newf(faults.KindValidation, "wallet address must be 0x-prefixed 20-byte hex")
	}

	amount := s.unitPriceCents * quantity
	plural := ""
	if quantity > 1 {
		plural = "s"
	}
	intent, err := s.provider.CreateIntent(ctx, IntentRequest{
		AmountCents:   amount,
		Quantity:      quantity,
		WalletAddress: walletAddress,
		Description:   fmt.Sprintf("SkunkSquad NFT Purchase - %d NFT%s", quantity, plural),
	})
	if err != nil {
		return CreateIntentResult{}, err
	}

	log.Info().Str("intent_id", intent.ID).Int64("amount_cents", amount).Int64("quantity", quantity).Msg("payment intent created")
	return CreateIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		AmountCents:     amount,
		Quantity:        quantity,
		WalletAddress:   walletAddress,
	}, nil
}

// WebhookOutcome reports what a verified delivery did.
type WebhookOutcome struct {
	Status   string // minted | duplicate | reconciliation | ignored
	IntentID string
	TxHash   string
}

// HandleWebhook verifies and processes one webhook delivery. The ledger
// claim is the idempotency boundary: however many times the provider
// redelivers payment_intent.succeeded for one intent id, at most one mint
// transaction is ever submitted. A mint failure after a successful payment
// is recorded for manual reconciliation and is not retried, since the
// original transaction may have landed even though its confirmation was
// lost.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) (WebhookOutcome, error) {
	ev, err := s.provider.ParseWebhook(payload, sigHeader)
	if err != nil {
		return WebhookOutcome{}, err
	}

	switch ev.Type {
	case EventPaymentSucceeded:
		return s.handlePaymentSucceeded(ctx, ev)
	case EventPaymentFailed:
		log.Info().Str("intent_id", ev.IntentID).Msg("payment failed, nothing to mint")
		return WebhookOutcome{Status: "ignored", IntentID: ev.IntentID}, nil
	default:
		log.Debug().Str("type", ev.Type).Msg("unhandled webhook event type")
		return WebhookOutcome{Status: "ignored"}, nil
	}
}

func (s *Service) handlePaymentSucceeded(ctx context.Context, ev Event) (WebhookOutcome, error) {
	if ev.IntentID == "" {
		return WebhookOutcome{}, faults.Newf(faults.KindValidation, "event carries no intent id")
	}
	if !isStrictHexAddress(ev.WalletAddress) || ev.Quantity < 1 {
		// Payment went through but the metadata is unusable: this is a
		// money-collected case, so it must land in reconciliation rather
		// than vanish.
		if claimed, _ := s.store.Claim(ctx, ledger.Entry{IntentID: ev.IntentID, WalletAddress: ev.WalletAddress, Quantity: ev.Quantity, AmountCents: ev.AmountCents}); claimed {
			reason := "invalid intent metadata"
			_ = s.store.MarkFailed(ctx, ev.IntentID, reason)
			s.recon.Record(ev, fmt.Errorf("%s", reason))
		}
		return WebhookOutcome{}, faults.Newf(faults.KindValidation, "intent %s carries invalid metadata", ev.IntentID)
	}

	claimed, err := s.store.Claim(ctx, ledger.Entry{
		IntentID:      ev.IntentID,
		WalletAddress: ev.WalletAddress,
		Quantity:      ev.Quantity,
		AmountCents:   ev.AmountCents,
	})
	if err != nil {
		return WebhookOutcome{}, fmt.Errorf("claim intent %s: %w", ev.IntentID, err)
	}
	if !claimed {
		existing, _ := s.store.Get(ctx, ev.IntentID)
		outcome := WebhookOutcome{Status: "duplicate", IntentID: ev.IntentID}
		if existing != nil {
			outcome.TxHash = existing.TxHash
		}
		log.Info().Str("intent_id", ev.IntentID).Msg("duplicate webhook delivery, mint already handled")
		return outcome, nil
	}

	txHash, err := s.minter.CreditCardMint(ctx, ev.WalletAddress, ev.Quantity)
	if err != nil {
		classified := faults.Classify(err)
		_ = s.store.MarkFailed(ctx, ev.IntentID, classified.Error())
		s.recon.Record(ev, classified)
		log.Error().Err(classified).Str("intent_id", ev.IntentID).
			Msg("payment collected but mint failed, queued for manual reconciliation")
		return WebhookOutcome{Status: "reconciliation", IntentID: ev.IntentID}, classified
	}

	if err := s.store.MarkMinted(ctx, ev.IntentID, txHash); err != nil {
		log.Error().Err(err).Str("intent_id", ev.IntentID).Msg("mint succeeded but ledger update failed")
	}
	log.Info().Str("intent_id", ev.IntentID).Str("tx", txHash).Msg("credit-card mint submitted")
	return WebhookOutcome{Status: "minted", IntentID: ev.IntentID, TxHash: txHash}, nil
}

// isStrictHexAddress requires the 0x prefix and a checksummable 20-byte hex
// body.
func isStrictHexAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}
