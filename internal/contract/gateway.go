package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"squadmint/internal/faults"
	"squadmint/internal/wallet"
)

// Gateway is the client-path write surface: transactions are signed and
// submitted by the connected wallet, the page only crafts calldata.
type Gateway struct {
	reader   *Reader
	provider wallet.Provider
	abi      abi.ABI
	address  common.Address
	pollTick time.Duration
}

// NewGateway wires a read path and a wallet provider for submissions.
func NewGateway(reader *Reader, provider wallet.Provider) *Gateway {
	return &Gateway{
		reader:   reader,
		provider: provider,
		abi:      reader.abi,
		address:  reader.address,
		pollTick: 2 * time.Second,
	}
}

func (g *Gateway) Price(ctx context.Context) (*big.Int, error)       { return g.reader.Price(ctx) }
func (g *Gateway) TotalSupply(ctx context.Context) (*big.Int, error) { return g.reader.TotalSupply(ctx) }
func (g *Gateway) MaxSupply(ctx context.Context) (*big.Int, error)   { return g.reader.MaxSupply(ctx) }

// Mint submits a mintNFT transaction from the connected wallet and returns a
// pending TxRecord immediately. valueWei must equal the current unit price
// times quantity; the price is re-read here rather than trusted from page
// load, since it can change between load and click.
func (g *Gateway) Mint(ctx context.Context, from string, quantity int64, valueWei *big.Int) (*TxRecord, error) {
	if quantity < 1 {
		return nil, faults.Newf(faults.KindValidation, "quantity must be at least 1, got %d", quantity)
	}
	if !common.IsHexAddress(from) {
		return nil, faults.Newf(faults.KindValidation, "invalid payer address %q", from)
	}

	price, err := g.reader.Price(ctx)
	if err != nil {
		return nil, err
	}
	expected := new(big.Int).Mul(price, big.NewInt(quantity))
	if valueWei == nil || expected.Cmp(valueWei) != 0 {
		return nil, faults.Newf(faults.KindValidation, "value %v does not match price %v * quantity %d", valueWei, price, quantity)
	}

	data, err := g.abi.Pack("mintNFT", big.NewInt(quantity))
	if err != nil {
		return nil, fmt.Errorf("pack mintNFT: %w", err)
	}

	hash, err := g.provider.SendTransaction(ctx, wallet.TxParams{
		From:  strings.ToLower(from),
		To:    g.address.Hex(),
		Value: valueWei,
		Data:  data,
	})
	if err != nil {
		return nil, faults.Classify(err)
	}
	return &TxRecord{Hash: hash, Status: TxPending}, nil
}

// WaitMined polls for the transaction receipt until the context expires.
// Block confirmation can stall indefinitely under congestion, so callers are
// expected to bound ctx.
func (g *Gateway) WaitMined(ctx context.Context, hash string) (*TxRecord, error) {
	ticker := time.NewTicker(g.pollTick)
	defer ticker.Stop()

	txHash := common.HexToHash(hash)
	for {
		receipt, err := g.reader.client.TransactionReceipt(ctx, txHash)
		if receipt != nil {
			rec := &TxRecord{Hash: hash, BlockNumber: receipt.BlockNumber.Uint64()}
			if receipt.Status == 1 {
				rec.Status = TxConfirmed
			} else {
				rec.Status = TxFailed
			}
			return rec, nil
		}
		if err != nil && !strings.Contains(err.Error(), "not found") {
			return nil, faults.Classify(err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
