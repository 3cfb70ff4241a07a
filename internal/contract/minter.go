package contract

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"squadmint/internal/faults"
)

// Minter submits creditCardMint transactions with the backend-held signer.
// The signer is a single shared credential, so submissions are serialized to
// keep nonces strictly ordered.
type Minter struct {
	client    *ethclient.Client
	bound     *bind.BoundContract
	abi       abi.ABI
	address   common.Address
	chainID   *big.Int
	transacts *bind.TransactOpts

	mu sync.Mutex
}

type MinterConfig struct {
	RPCURL          string
	PrivateKeyHex   string
	ContractAddress string
}

func NewMinter(ctx context.Context, cfg MinterConfig) (*Minter, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("invalid contract address %q", cfg.ContractAddress)
	}
	if cfg.PrivateKeyHex == "" {
		return nil, fmt.Errorf("private key is required for the backend minter")
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(NFTABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	pk, err := parsePrivateKey(cfg.PrivateKeyHex)
	if err != nil {
		return nil, err
	}

	chainID, err := cli.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	txOpts, err := bind.NewKeyedTransactorWithChainID(pk, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	txOpts.GasLimit = 0 // let node estimate
	txOpts.GasPrice = nil
	txOpts.Nonce = nil

	address := common.HexToAddress(cfg.ContractAddress)
	return &Minter{
		client:    cli,
		bound:     bind.NewBoundContract(address, parsedABI, cli, cli, cli),
		abi:       parsedABI,
		address:   address,
		chainID:   chainID,
		transacts: txOpts,
	}, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// CreditCardMint mints quantity tokens to the buyer's address after a
// verified fiat payment. Returns the transaction hash.
func (m *Minter) CreditCardMint(ctx context.Context, to string, quantity int64) (string, error) {
	if !common.IsHexAddress(to) {
		return "", faults.Newf(faults.KindValidation, "invalid recipient address %q", to)
	}
	if quantity < 1 {
		return "", faults.Newf(faults.KindValidation, "quantity must be at least 1, got %d", quantity)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	opts := *m.transacts
	opts.Context = ctx

	tx, err := m.bound.Transact(&opts, "creditCardMint", common.HexToAddress(to), big.NewInt(quantity))
	if err != nil {
		return "", faults.Classify(err)
	}
	return tx.Hash().Hex(), nil
}

// WaitForReceipt polls until the transaction is mined or ctx is cancelled.
func (m *Minter) WaitForReceipt(ctx context.Context, txHash string) (*TxRecord, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	hash := common.HexToHash(txHash)
	for {
		receipt, err := m.client.TransactionReceipt(ctx, hash)
		if receipt != nil {
			rec := &TxRecord{Hash: txHash, BlockNumber: receipt.BlockNumber.Uint64()}
			if receipt.Status == 1 {
				rec.Status = TxConfirmed
			} else {
				rec.Status = TxFailed
			}
			return rec, nil
		}
		if err != nil && !strings.Contains(err.Error(), "not found") {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Ping checks RPC liveness.
func (m *Minter) Ping(ctx context.Context) error {
	_, err := m.client.BlockNumber(ctx)
	return err
}
