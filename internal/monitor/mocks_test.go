package monitor_test

import (
	"context"
	"time"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

// --- mocks compartidos del paquete de tests ---

type mockLedger struct {
	positions []domain.Position
	loadErr   error
	saveErr   error
	saves     int
	closed    []string
}

func (m *mockLedger) Load() ([]domain.Position, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]domain.Position, len(m.positions))
	copy(out, m.positions)
	return out, nil
}

func (m *mockLedger) Save(positions []domain.Position) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.positions = make([]domain.Position, len(positions))
	copy(m.positions, positions)
	m.saves++
	return nil
}

func (m *mockLedger) Upsert(d domain.PositionDraft) (domain.Position, bool, error) {
	p := domain.NewPosition(d, 0, 0, time.Now())
	m.positions = append(m.positions, p)
	return p, true, nil
}

func (m *mockLedger) ListOpen() ([]domain.Position, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	var open []domain.Position
	for _, p := range m.positions {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open, nil
}

func (m *mockLedger) Close(tokenID string) error {
	m.closed = append(m.closed, tokenID)
	for i := range m.positions {
		if m.positions[i].TokenID == tokenID && m.positions[i].IsOpen() {
			m.positions[i].Status = domain.StatusClosed
		}
	}
	return nil
}

func (m *mockLedger) SetThresholds(tokenID string, tpPct, slPct float64) error {
	for i := range m.positions {
		if m.positions[i].TokenID == tokenID && m.positions[i].IsOpen() {
			m.positions[i].ApplyThresholds(tpPct, slPct)
		}
	}
	return nil
}

type mockBooks struct {
	books map[string]domain.OrderBook
	err   error
	calls int
}

func (m *mockBooks) FetchOrderBook(_ context.Context, tokenID string) (domain.OrderBook, error) {
	m.calls++
	if m.err != nil {
		return domain.OrderBook{}, m.err
	}
	return m.books[tokenID], nil
}

type mockMarkets struct {
	prices map[string]float64
	err    error
}

func (m *mockMarkets) OutcomePrice(_ context.Context, tokenID string) (float64, error) {
	if m.err != nil {
		return 0, m.err
	}
	price, ok := m.prices[tokenID]
	if !ok {
		return 0, domain.ErrNoPrice
	}
	return price, nil
}

// mockBalances devuelve balances fijos por scope.
type mockBalances struct {
	api   map[string]float64
	proxy map[string]float64
}

func (m *mockBalances) TokenBalance(_ context.Context, scope domain.WalletScope, tokenID string) float64 {
	switch scope {
	case domain.WalletAPI:
		return m.api[tokenID]
	case domain.WalletProxy:
		return m.proxy[tokenID]
	default:
		return m.api[tokenID] + m.proxy[tokenID]
	}
}

type mockVenue struct {
	submission domain.SellSubmission
	err        error
	submitted  []submittedOrder
}

type submittedOrder struct {
	tokenID string
	price   float64
	size    float64
}

func (m *mockVenue) SubmitLimitSell(_ context.Context, tokenID string, price, size float64) (domain.SellSubmission, error) {
	m.submitted = append(m.submitted, submittedOrder{tokenID: tokenID, price: price, size: size})
	if m.err != nil {
		return domain.SellSubmission{}, m.err
	}
	return m.submission, nil
}

type mockNotifier struct {
	reports [][]domain.PositionReport
}

func (m *mockNotifier) ReportTick(_ context.Context, reports []domain.PositionReport) error {
	m.reports = append(m.reports, reports)
	return nil
}

func bookWithBid(tokenID string, bid float64) domain.OrderBook {
	return domain.OrderBook{
		TokenID: tokenID,
		Bids:    []domain.BookEntry{{Price: bid, Size: 100}},
		Asks:    []domain.BookEntry{{Price: bid + 0.02, Size: 100}},
	}
}
