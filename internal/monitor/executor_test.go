package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polymonitor/internal/domain"
	"github.com/alejandrodnm/polymonitor/internal/monitor"
)

func newExecutorFixture(books *mockBooks, markets *mockMarkets, balances *mockBalances, venue *mockVenue, ledger *mockLedger) *monitor.Executor {
	return monitor.NewExecutor(monitor.NewOracle(books, markets), books, balances, venue, ledger)
}

func TestSell_Success(t *testing.T) {
	pos := openPosition(0.40, 10)
	books := &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.60)}}
	balances := &mockBalances{api: map[string]float64{"tok-1": 10}}
	venue := &mockVenue{submission: domain.SellSubmission{OrderID: "0xorder", Status: "live"}}
	ledger := &mockLedger{positions: []domain.Position{pos}}

	exec := newExecutorFixture(books, &mockMarkets{}, balances, venue, ledger)
	result := exec.Sell(context.Background(), pos, "take-profit", false)

	require.Equal(t, domain.SellSuccess, result.Status)
	assert.NotEmpty(t, result.AttemptID)
	assert.Equal(t, "0xorder", result.VenueID)
	assert.InDelta(t, 0.60, result.Price, 1e-9)
	assert.InDelta(t, 2.00, result.PnL, 1e-9)
	// la posición queda cerrada y persistida
	assert.Equal(t, []string{"tok-1"}, ledger.closed)
	require.Len(t, venue.submitted, 1)
	assert.InDelta(t, 10.0, venue.submitted[0].size, 1e-9)
}

func TestSell_Simulated(t *testing.T) {
	pos := openPosition(0.40, 10)
	books := &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.60)}}
	balances := &mockBalances{api: map[string]float64{"tok-1": 10}}
	venue := &mockVenue{}
	ledger := &mockLedger{positions: []domain.Position{pos}}

	exec := newExecutorFixture(books, &mockMarkets{}, balances, venue, ledger)
	result := exec.Sell(context.Background(), pos, "take-profit", true)

	assert.Equal(t, domain.SellSimulated, result.Status)
	assert.InDelta(t, 2.00, result.PnL, 1e-9)
	// nada tocó el venue ni el ledger
	assert.Empty(t, venue.submitted)
	assert.Empty(t, ledger.closed)
}

func TestSell_NoPriceFailsFast(t *testing.T) {
	pos := openPosition(0.40, 10)
	books := &mockBooks{err: errors.New("down")}
	venue := &mockVenue{}

	exec := newExecutorFixture(books, &mockMarkets{}, &mockBalances{}, venue, &mockLedger{})
	result := exec.Sell(context.Background(), pos, "stop-loss", false)

	require.Equal(t, domain.SellError, result.Status)
	assert.ErrorIs(t, result.Err, domain.ErrNoPrice)
	assert.Empty(t, venue.submitted)
}

func TestSell_ProxyFundsClassified(t *testing.T) {
	pos := openPosition(0.40, 10)
	books := &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.60)}}
	// nada en la api wallet, todo en la proxy
	balances := &mockBalances{api: map[string]float64{}, proxy: map[string]float64{"tok-1": 10}}
	venue := &mockVenue{}

	exec := newExecutorFixture(books, &mockMarkets{}, balances, venue, &mockLedger{})
	result := exec.Sell(context.Background(), pos, "take-profit", false)

	require.Equal(t, domain.SellError, result.Status)
	var funds *domain.InsufficientFundsError
	require.ErrorAs(t, result.Err, &funds)
	assert.Equal(t, domain.WalletProxy, funds.Scope)
	assert.Empty(t, venue.submitted)
}

func TestSell_APIFundsMissing(t *testing.T) {
	pos := openPosition(0.40, 10)
	books := &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.60)}}
	balances := &mockBalances{}

	exec := newExecutorFixture(books, &mockMarkets{}, balances, &mockVenue{}, &mockLedger{})
	result := exec.Sell(context.Background(), pos, "take-profit", false)

	require.Equal(t, domain.SellError, result.Status)
	var funds *domain.InsufficientFundsError
	require.ErrorAs(t, result.Err, &funds)
	assert.Equal(t, domain.WalletAPI, funds.Scope)
}

func TestSell_ClampsPriceNearOne(t *testing.T) {
	pos := openPosition(0.40, 10)
	// el book solo ofrece 1.0: hay que recortar a 0.999
	books := &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 1.0)}}
	balances := &mockBalances{api: map[string]float64{"tok-1": 10}}
	venue := &mockVenue{submission: domain.SellSubmission{OrderID: "0xorder"}}
	ledger := &mockLedger{positions: []domain.Position{pos}}

	exec := newExecutorFixture(books, &mockMarkets{}, balances, venue, ledger)
	result := exec.Sell(context.Background(), pos, "take-profit", false)

	require.Equal(t, domain.SellSuccess, result.Status)
	assert.InDelta(t, 0.999, result.Price, 1e-9)
	require.Len(t, venue.submitted, 1)
	assert.InDelta(t, 0.999, venue.submitted[0].price, 1e-9)
	// el PnL realizado refleja el precio recortado
	assert.InDelta(t, (0.999-0.40)*10, result.PnL, 1e-9)
}

func TestSell_PreciseBidNearOne(t *testing.T) {
	pos := openPosition(0.40, 10)
	// la relectura encuentra un bid real por debajo de 1.0
	books := &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.995)}}
	balances := &mockBalances{api: map[string]float64{"tok-1": 10}}
	venue := &mockVenue{submission: domain.SellSubmission{OrderID: "0xorder"}}
	ledger := &mockLedger{positions: []domain.Position{pos}}

	exec := newExecutorFixture(books, &mockMarkets{}, balances, venue, ledger)
	result := exec.Sell(context.Background(), pos, "take-profit", false)

	require.Equal(t, domain.SellSuccess, result.Status)
	assert.InDelta(t, 0.995, result.Price, 1e-9)
}

func TestSell_ClampsPriceFloor(t *testing.T) {
	pos := openPosition(0.40, 10)
	books := &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.0005)}}
	balances := &mockBalances{api: map[string]float64{"tok-1": 10}}
	venue := &mockVenue{submission: domain.SellSubmission{OrderID: "0xorder"}}
	ledger := &mockLedger{positions: []domain.Position{pos}}

	exec := newExecutorFixture(books, &mockMarkets{}, balances, venue, ledger)
	result := exec.Sell(context.Background(), pos, "stop-loss", false)

	require.Equal(t, domain.SellSuccess, result.Status)
	assert.InDelta(t, 0.001, result.Price, 1e-9)
}

func TestSell_MarketSettledLeavesPositionOpen(t *testing.T) {
	pos := openPosition(0.40, 10)
	books := &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.60)}}
	balances := &mockBalances{api: map[string]float64{"tok-1": 10}}
	venue := &mockVenue{err: fmt.Errorf("submit sell: %w", domain.ErrMarketSettled)}
	ledger := &mockLedger{positions: []domain.Position{pos}}

	exec := newExecutorFixture(books, &mockMarkets{}, balances, venue, ledger)
	result := exec.Sell(context.Background(), pos, "take-profit", false)

	require.Equal(t, domain.SellError, result.Status)
	assert.ErrorIs(t, result.Err, domain.ErrMarketSettled)
	assert.Empty(t, ledger.closed)
}

func TestSell_NoVenueConfigured(t *testing.T) {
	pos := openPosition(0.40, 10)
	books := &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.60)}}
	balances := &mockBalances{api: map[string]float64{"tok-1": 10}}

	exec := monitor.NewExecutor(monitor.NewOracle(books, &mockMarkets{}), books, balances, nil, &mockLedger{})
	result := exec.Sell(context.Background(), pos, "take-profit", false)

	require.Equal(t, domain.SellError, result.Status)
	assert.Contains(t, result.Err.Error(), "no trading credentials")
}
