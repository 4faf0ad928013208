package monitor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polymonitor/internal/domain"
	"github.com/alejandrodnm/polymonitor/internal/monitor"
)

type fixture struct {
	ledger   *mockLedger
	books    *mockBooks
	markets  *mockMarkets
	balances *mockBalances
	venue    *mockVenue
	notifier *mockNotifier
}

func newMonitor(cfg monitor.Config, f *fixture) *monitor.Monitor {
	oracle := monitor.NewOracle(f.books, f.markets)
	executor := monitor.NewExecutor(oracle, f.books, f.balances, f.venue, f.ledger)
	reconciler := monitor.NewReconciler(f.ledger, f.balances, 0.01)
	return monitor.New(cfg, f.ledger, f.balances, f.notifier, oracle, executor, reconciler)
}

func TestRunOnce_HoldReportsWithoutSelling(t *testing.T) {
	f := &fixture{
		ledger:   &mockLedger{positions: []domain.Position{openPosition(0.40, 10)}},
		books:    &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.45)}},
		markets:  &mockMarkets{},
		balances: &mockBalances{api: map[string]float64{"tok-1": 10}},
		venue:    &mockVenue{},
		notifier: &mockNotifier{},
	}
	m := newMonitor(monitor.Config{
		Interval:    time.Second,
		AutoExecute: true,
		Thresholds:  monitor.Thresholds{TakeProfitPct: 0.3, StopLossPct: 0.15},
	}, f)

	reports, err := m.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.Equal(t, domain.ActionHold, reports[0].Action)
	assert.Empty(t, f.venue.submitted)
}

func TestRunOnce_SellExecutedWhenAutoExecute(t *testing.T) {
	f := &fixture{
		ledger:   &mockLedger{positions: []domain.Position{openPosition(0.40, 10)}},
		books:    &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.60)}},
		markets:  &mockMarkets{},
		balances: &mockBalances{api: map[string]float64{"tok-1": 10}},
		venue:    &mockVenue{submission: domain.SellSubmission{OrderID: "0xorder"}},
		notifier: &mockNotifier{},
	}
	m := newMonitor(monitor.Config{
		Interval:    time.Second,
		AutoExecute: true,
		Thresholds:  monitor.Thresholds{TakeProfitPct: 0.3},
	}, f)

	reports, err := m.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.Equal(t, domain.ActionSell, reports[0].Action)
	require.Len(t, f.venue.submitted, 1)
	assert.Equal(t, []string{"tok-1"}, f.ledger.closed)
}

func TestRunOnce_SimulateOverridesAutoExecute(t *testing.T) {
	f := &fixture{
		ledger:   &mockLedger{positions: []domain.Position{openPosition(0.40, 10)}},
		books:    &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.60)}},
		markets:  &mockMarkets{},
		balances: &mockBalances{api: map[string]float64{"tok-1": 10}},
		venue:    &mockVenue{},
		notifier: &mockNotifier{},
	}
	m := newMonitor(monitor.Config{
		Interval:    time.Second,
		AutoExecute: true,
		Simulate:    true,
		Thresholds:  monitor.Thresholds{TakeProfitPct: 0.3},
	}, f)

	_, err := m.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.venue.submitted)
	assert.Empty(t, f.ledger.closed)
}

func TestRunOnce_NoPriceNeverSells(t *testing.T) {
	f := &fixture{
		ledger:   &mockLedger{positions: []domain.Position{openPosition(0.40, 10)}},
		books:    &mockBooks{books: map[string]domain.OrderBook{}},
		markets:  &mockMarkets{},
		balances: &mockBalances{api: map[string]float64{"tok-1": 10}},
		venue:    &mockVenue{},
		notifier: &mockNotifier{},
	}
	m := newMonitor(monitor.Config{
		Interval:    time.Second,
		AutoExecute: true,
		Thresholds:  monitor.Thresholds{TakeProfitPct: 0.01, StopLossPct: 0.01},
	}, f)

	reports, err := m.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, reports, 1)
	assert.Equal(t, domain.ActionHold, reports[0].Action)
	assert.False(t, reports[0].PriceKnown)
	assert.Empty(t, f.venue.submitted)
}

func TestRunOnce_ReappliesThresholds(t *testing.T) {
	pos := openPosition(0.40, 10)
	// TP/SL absolutos de una configuración anterior
	pos.TakeProfit = 0.90
	pos.StopLoss = 0.05
	f := &fixture{
		ledger:   &mockLedger{positions: []domain.Position{pos}},
		books:    &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.45)}},
		markets:  &mockMarkets{},
		balances: &mockBalances{api: map[string]float64{"tok-1": 10}},
		venue:    &mockVenue{},
		notifier: &mockNotifier{},
	}
	m := newMonitor(monitor.Config{
		Interval:   time.Second,
		Thresholds: monitor.Thresholds{TakeProfitPct: 0.30, StopLossPct: 0.15},
	}, f)

	_, err := m.RunOnce(context.Background())
	require.NoError(t, err)

	got := f.ledger.positions[0]
	assert.InDelta(t, 0.52, got.TakeProfit, 1e-9) // 0.40 × 1.30
	assert.InDelta(t, 0.34, got.StopLoss, 1e-9)   // 0.40 × 0.85
}

func TestRunOnce_SyncCorrectsBeforeEvaluation(t *testing.T) {
	f := &fixture{
		ledger:   &mockLedger{positions: []domain.Position{openPosition(0.40, 10)}},
		books:    &mockBooks{books: map[string]domain.OrderBook{"tok-1": bookWithBid("tok-1", 0.45)}},
		markets:  &mockMarkets{},
		balances: &mockBalances{api: map[string]float64{"tok-1": 8.5}},
		venue:    &mockVenue{},
		notifier: &mockNotifier{},
	}
	m := newMonitor(monitor.Config{Interval: time.Second}, f)

	reports, err := m.RunOnce(context.Background())
	require.NoError(t, err)

	// la reconciliación del primer tick ya corrigió la cantidad
	assert.InDelta(t, 8.5, f.ledger.positions[0].Quantity, 1e-9)
	require.Len(t, reports, 1)
	assert.InDelta(t, 8.5, reports[0].Quantity, 1e-9)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := &fixture{
		ledger:   &mockLedger{},
		books:    &mockBooks{},
		markets:  &mockMarkets{},
		balances: &mockBalances{},
		venue:    &mockVenue{},
		notifier: &mockNotifier{},
	}
	m := newMonitor(monitor.Config{Interval: 10 * time.Millisecond}, f)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on context cancellation")
	}
	// al menos el tick inicial reportó
	assert.NotEmpty(t, f.notifier.reports)
}
