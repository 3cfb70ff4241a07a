package contract

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"squadmint/internal/faults"
)

// Reader exposes the contract's view methods without leaking ABI plumbing to
// callers. Reads have no side effects.
type Reader struct {
	client      *ethclient.Client
	bound       *bind.BoundContract
	abi         abi.ABI
	address     common.Address
	priceMethod string
}

// NewReader dials the RPC endpoint and binds the contract. abiJSON may be
// empty to use the canonical ABI.
func NewReader(ctx context.Context, rpcURL, contractAddr, abiJSON string) (*Reader, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(contractAddr) {
		return nil, fmt.Errorf("invalid contract address %q", contractAddr)
	}
	cli, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return newReaderWithClient(cli, contractAddr, abiJSON)
}

func newReaderWithClient(cli *ethclient.Client, contractAddr, abiJSON string) (*Reader, error) {
	if abiJSON == "" {
		abiJSON = NFTABI
	}
	parsedABI, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	priceMethod, err := resolvePriceMethod(parsedABI)
	if err != nil {
		return nil, err
	}

	address := common.HexToAddress(contractAddr)
	return &Reader{
		client:      cli,
		bound:       bind.NewBoundContract(address, parsedABI, cli, cli, cli),
		abi:         parsedABI,
		address:     address,
		priceMethod: priceMethod,
	}, nil
}

// resolvePriceMethod picks the canonical unit-price accessor once, instead of
// trial-and-error calls scattered across call sites.
func resolvePriceMethod(parsed abi.ABI) (string, error) {
	for _, name := range priceMethodCandidates {
		if m, ok := parsed.Methods[name]; ok {
			if len(m.Inputs) == 0 && len(m.Outputs) == 1 {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("abi exposes no known price accessor (tried %s)", strings.Join(priceMethodCandidates, ", "))
}

// Price returns the current unit price in wei.
func (r *Reader) Price(ctx context.Context) (*big.Int, error) {
	return r.readUint(ctx, r.priceMethod)
}

// TotalSupply returns the number of tokens minted so far.
func (r *Reader) TotalSupply(ctx context.Context) (*big.Int, error) {
	return r.readUint(ctx, "totalSupply")
}

// MaxSupply returns the collection cap.
func (r *Reader) MaxSupply(ctx context.Context) (*big.Int, error) {
	return r.readUint(ctx, "MAX_SUPPLY")
}

// BalanceOf returns the token balance of an owner address.
func (r *Reader) BalanceOf(ctx context.Context, owner string) (*big.Int, error) {
	if !common.IsHexAddress(owner) {
		return nil, faults.Newf(faults.KindValidation, "invalid owner address %q", owner)
	}
	var out []interface{}
	if err := r.bound.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", common.HexToAddress(owner)); err != nil {
		return nil, faults.Classify(err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// OwnerOf returns the owner address of a token id.
func (r *Reader) OwnerOf(ctx context.Context, tokenID *big.Int) (string, error) {
	var out []interface{}
	if err := r.bound.Call(&bind.CallOpts{Context: ctx}, &out, "ownerOf", tokenID); err != nil {
		return "", faults.Classify(err)
	}
	addr := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return addr.Hex(), nil
}

// TokenURI returns the metadata URI of a token id.
func (r *Reader) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	var out []interface{}
	if err := r.bound.Call(&bind.CallOpts{Context: ctx}, &out, "tokenURI", tokenID); err != nil {
		return "", faults.Classify(err)
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// Ping checks RPC liveness.
func (r *Reader) Ping(ctx context.Context) error {
	_, err := r.client.BlockNumber(ctx)
	return err
}

func (r *Reader) readUint(ctx context.Context, method string) (*big.Int, error) {
	var out []interface{}
	if err := r.bound.Call(&bind.CallOpts{Context: ctx}, &out, method); err != nil {
		return nil, faults.Classify(err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
