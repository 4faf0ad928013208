package onchain

// balance.go — On-chain ERC1155 balance reads for Polymarket CTF tokens.
//
// The CTF (Conditional Token Framework) contract holds outcome shares as
// ERC1155 tokens, 6 decimals. The chain is the authoritative source of
// position size: the reconciler compares these reads against the ledger.
//
// Public RPC nodes rate-limit aggressively and report it inconsistently
// (HTTP 429, JSON-RPC -32090, message substrings), so every read runs
// under a retry policy and, once exhausted, degrades to 0 with a warning
// instead of failing the sync pass.

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alejandrodnm/polymonitor/internal/backoff"
	"github.com/alejandrodnm/polymonitor/internal/domain"
)

const (
	// CTF contract on Polygon — holds conditional tokens (ERC1155)
	ctfAddress = "0x4D97DCd97eC945f40cF65F87097ACe5EA0476045"

	// Shares use 6 decimals on-chain
	sharesDecimals = 1e6

	// Pause between consecutive reads against the same RPC node,
	// to stay under free-tier limits when querying both wallets
	interQueryPause = 200 * time.Millisecond
)

var balanceOfABI abi.ABI

func init() {
	var err error
	balanceOfABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "balanceOf",
			"type": "function",
			"stateMutability": "view",
			"inputs": [
				{"name": "account", "type": "address"},
				{"name": "id", "type": "uint256"}
			],
			"outputs": [
				{"name": "", "type": "uint256"}
			]
		}
	]`))
	if err != nil {
		panic("erc1155 abi parse: " + err.Error())
	}
}

// ChainBalances implements ports.BalanceSource against a Polygon RPC node.
type ChainBalances struct {
	caller      ethereum.ContractCaller
	ctf         common.Address
	apiWallet   common.Address
	proxyWallet common.Address
	policy      backoff.Policy
	pause       time.Duration
}

// NewChainBalances dials the RPC node and derives the api wallet address
// from the private key. proxyAddress may be empty if the operator only
// trades from the api wallet.
func NewChainBalances(rpcURL, privateKeyHex, proxyAddress string) (*ChainBalances, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("onchain.NewChainBalances: dial %s: %w", rpcURL, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("onchain.NewChainBalances: parse private key: %w", err)
	}

	cb := &ChainBalances{
		caller:    client,
		ctf:       common.HexToAddress(ctfAddress),
		apiWallet: crypto.PubkeyToAddress(key.PublicKey),
		policy:    backoff.Default(),
		pause:     interQueryPause,
	}
	if proxyAddress != "" {
		cb.proxyWallet = common.HexToAddress(proxyAddress)
	}
	return cb, nil
}

// TokenBalance returns the share balance for the given wallet scope.
// On persistent RPC failure it logs a warning and returns 0 — callers
// treat balances as advisory input, never as a hard gate.
func (cb *ChainBalances) TokenBalance(ctx context.Context, scope domain.WalletScope, tokenID string) float64 {
	switch scope {
	case domain.WalletAPI:
		return cb.walletBalance(ctx, cb.apiWallet, tokenID)
	case domain.WalletProxy:
		return cb.walletBalance(ctx, cb.proxyWallet, tokenID)
	default:
		api := cb.walletBalance(ctx, cb.apiWallet, tokenID)
		cb.sleep(ctx)
		return api + cb.walletBalance(ctx, cb.proxyWallet, tokenID)
	}
}

func (cb *ChainBalances) walletBalance(ctx context.Context, wallet common.Address, tokenID string) float64 {
	if wallet == (common.Address{}) {
		return 0
	}

	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		slog.Warn("invalid token id for balance read", "token", tokenID)
		return 0
	}

	var balance float64
	err := cb.policy.Do(ctx, classifyRPCError, func() error {
		b, err := cb.balanceOf(ctx, wallet, id)
		if err != nil {
			return err
		}
		balance = b
		return nil
	})
	if err != nil {
		slog.Warn("balance read failed, assuming 0",
			"wallet", wallet.Hex(),
			"token", tokenID,
			"error", err,
		)
		return 0
	}
	return balance
}

func (cb *ChainBalances) balanceOf(ctx context.Context, wallet common.Address, id *big.Int) (float64, error) {
	data, err := balanceOfABI.Pack("balanceOf", wallet, id)
	if err != nil {
		return 0, fmt.Errorf("pack balanceOf: %w", err)
	}

	result, err := cb.caller.CallContract(ctx, ethereum.CallMsg{To: &cb.ctf, Data: data}, nil)
	if err != nil {
		return 0, fmt.Errorf("call balanceOf: %w", err)
	}

	out, err := balanceOfABI.Unpack("balanceOf", result)
	if err != nil {
		return 0, fmt.Errorf("unpack balanceOf: %w", err)
	}

	raw, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}

	shares, _ := new(big.Float).Quo(new(big.Float).SetInt(raw), big.NewFloat(sharesDecimals)).Float64()
	return shares, nil
}

// classifyRPCError maps node errors to retry classes: rate limit signals
// get the full backoff schedule, everything else a single extra retry
// (public nodes drop connections transiently all the time).
func classifyRPCError(err error) backoff.Class {
	if domain.IsRateLimited(err) {
		return backoff.RateLimited
	}
	return backoff.Transient
}

func (cb *ChainBalances) sleep(ctx context.Context) {
	select {
	case <-time.After(cb.pause):
	case <-ctx.Done():
	}
}
