package onchain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polymonitor/internal/backoff"
	"github.com/alejandrodnm/polymonitor/internal/domain"
)

type fakeCaller struct {
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	balance *big.Int
	err     error
}

func (f *fakeCaller) CallContract(_ context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	r := f.responses[f.calls]
	f.calls++
	if r.err != nil {
		return nil, r.err
	}
	return common.LeftPadBytes(r.balance.Bytes(), 32), nil
}

func newTestBalances(caller ethereum.ContractCaller) *ChainBalances {
	return &ChainBalances{
		caller:      caller,
		ctf:         common.HexToAddress(ctfAddress),
		apiWallet:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
		proxyWallet: common.HexToAddress("0x2222222222222222222222222222222222222222"),
		policy:      backoff.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond},
		pause:       time.Millisecond,
	}
}

func TestTokenBalance_SingleWallet(t *testing.T) {
	// 12.5 shares = 12_500_000 micro-units
	caller := &fakeCaller{responses: []fakeResponse{
		{balance: big.NewInt(12_500_000)},
	}}
	cb := newTestBalances(caller)

	got := cb.TokenBalance(context.Background(), domain.WalletAPI, "12345")
	assert.InDelta(t, 12.5, got, 1e-9)
	assert.Equal(t, 1, caller.calls)
}

func TestTokenBalance_BothSumsWallets(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{
		{balance: big.NewInt(3_000_000)},
		{balance: big.NewInt(7_000_000)},
	}}
	cb := newTestBalances(caller)

	got := cb.TokenBalance(context.Background(), domain.WalletBoth, "12345")
	assert.InDelta(t, 10.0, got, 1e-9)
	assert.Equal(t, 2, caller.calls)
}

func TestTokenBalance_RetriesRateLimit(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{
		{err: errors.New("429 Too Many Requests")},
		{balance: big.NewInt(5_000_000)},
	}}
	cb := newTestBalances(caller)

	got := cb.TokenBalance(context.Background(), domain.WalletAPI, "12345")
	assert.InDelta(t, 5.0, got, 1e-9)
	assert.Equal(t, 2, caller.calls)
}

func TestTokenBalance_ExhaustedReturnsZero(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{
		{err: errors.New("call rate limit exhausted")},
		{err: errors.New("call rate limit exhausted")},
		{err: errors.New("call rate limit exhausted")},
	}}
	cb := newTestBalances(caller)

	got := cb.TokenBalance(context.Background(), domain.WalletAPI, "12345")
	assert.Zero(t, got)
	assert.Equal(t, 3, caller.calls)
}

func TestTokenBalance_InvalidTokenID(t *testing.T) {
	caller := &fakeCaller{}
	cb := newTestBalances(caller)

	got := cb.TokenBalance(context.Background(), domain.WalletAPI, "not-a-number")
	assert.Zero(t, got)
	assert.Zero(t, caller.calls)
}

func TestTokenBalance_EmptyProxyWallet(t *testing.T) {
	caller := &fakeCaller{responses: []fakeResponse{
		{balance: big.NewInt(1_000_000)},
	}}
	cb := newTestBalances(caller)
	cb.proxyWallet = common.Address{}

	got := cb.TokenBalance(context.Background(), domain.WalletBoth, "12345")
	assert.InDelta(t, 1.0, got, 1e-9)
	assert.Equal(t, 1, caller.calls)
}

func TestClassifyRPCError(t *testing.T) {
	require.Equal(t, backoff.RateLimited, classifyRPCError(errors.New("jsonrpc error -32090")))
	require.Equal(t, backoff.Transient, classifyRPCError(errors.New("connection reset by peer")))
}
