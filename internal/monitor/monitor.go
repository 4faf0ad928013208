package monitor

// Package monitor implementa el loop principal: cada tick evalúa todas
// las posiciones abiertas contra precios en vivo y dispara ventas cuando
// un umbral de riesgo se cruza. La reconciliación on-chain corre en el
// primer tick y después cada N ticks.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polymonitor/internal/domain"
	"github.com/alejandrodnm/polymonitor/internal/ports"
)

// Config contiene la configuración del monitor.
type Config struct {
	Interval       time.Duration
	SyncEveryTicks int  // reconciliación cada N ticks (y siempre en el primero)
	AutoExecute    bool // false → todas las ventas son simuladas
	Simulate       bool // fuerza modo simulado aunque AutoExecute esté activo
	Thresholds     Thresholds
}

// Monitor es el orquestador del loop de monitoreo.
type Monitor struct {
	cfg        Config
	ledger     ports.Ledger
	balances   ports.BalanceSource
	notifier   ports.Notifier
	oracle     *Oracle
	executor   *Executor
	reconciler *Reconciler
}

// New crea un Monitor con todas las dependencias inyectadas.
func New(
	cfg Config,
	ledger ports.Ledger,
	balances ports.BalanceSource,
	notifier ports.Notifier,
	oracle *Oracle,
	executor *Executor,
	reconciler *Reconciler,
) *Monitor {
	if cfg.SyncEveryTicks <= 0 {
		cfg.SyncEveryTicks = 10
	}
	return &Monitor{
		cfg:        cfg,
		ledger:     ledger,
		balances:   balances,
		notifier:   notifier,
		oracle:     oracle,
		executor:   executor,
		reconciler: reconciler,
	}
}

// Run ejecuta el loop hasta que el contexto se cancele. El tick en curso
// siempre termina completo: la cancelación solo se observa entre ticks.
func (m *Monitor) Run(ctx context.Context) error {
	slog.Info("monitor starting",
		"interval", m.cfg.Interval,
		"take_profit_pct", m.cfg.Thresholds.TakeProfitPct,
		"stop_loss_pct", m.cfg.Thresholds.StopLossPct,
		"auto_execute", m.cfg.AutoExecute,
		"simulate", m.cfg.Simulate,
	)

	if err := m.applyThresholds(); err != nil {
		return fmt.Errorf("monitor.Run: %w", err)
	}

	tick := 1
	if err := m.runTick(ctx, tick); err != nil {
		slog.Error("tick failed", "tick", tick, "err", err)
	}

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor stopped")
			return nil
		case <-ticker.C:
			tick++
			if err := m.runTick(ctx, tick); err != nil {
				slog.Error("tick failed", "tick", tick, "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un tick (con reconciliación) y devuelve los
// reportes. Es el camino del flag -once.
func (m *Monitor) RunOnce(ctx context.Context) ([]domain.PositionReport, error) {
	if err := m.applyThresholds(); err != nil {
		return nil, fmt.Errorf("monitor.RunOnce: %w", err)
	}
	return m.tick(ctx, 1)
}

// applyThresholds recalcula los precios absolutos de TP/SL de todas las
// posiciones abiertas con los porcentajes configurados, para que un cambio
// de configuración aplique a posiciones existentes.
func (m *Monitor) applyThresholds() error {
	positions, err := m.ledger.Load()
	if err != nil {
		return fmt.Errorf("apply thresholds: load: %w", err)
	}

	changed := false
	for i := range positions {
		if !positions[i].IsOpen() {
			continue
		}
		before := positions[i]
		positions[i].ApplyThresholds(m.cfg.Thresholds.TakeProfitPct, m.cfg.Thresholds.StopLossPct)
		if positions[i].TakeProfit != before.TakeProfit || positions[i].StopLoss != before.StopLoss {
			changed = true
		}
	}

	if !changed {
		return nil
	}
	if err := m.ledger.Save(positions); err != nil {
		return fmt.Errorf("apply thresholds: save: %w", err)
	}
	slog.Info("thresholds re-applied to open positions")
	return nil
}

func (m *Monitor) runTick(ctx context.Context, n int) error {
	reports, err := m.tick(ctx, n)
	if err != nil {
		return err
	}
	if err := m.notifier.ReportTick(ctx, reports); err != nil {
		slog.Warn("notifier error", "err", err)
	}
	return nil
}

// tick ejecuta un ciclo: reconciliación (si toca), evaluación de cada
// posición abierta y ejecución de las ventas disparadas. Un error en una
// posición nunca aborta el resto del ciclo.
func (m *Monitor) tick(ctx context.Context, n int) ([]domain.PositionReport, error) {
	start := time.Now()

	// reconciler nil → modo watch-only, sin lecturas on-chain que aplicar
	if m.reconciler != nil && (n == 1 || n%m.cfg.SyncEveryTicks == 0) {
		if _, err := m.reconciler.Sync(ctx); err != nil {
			slog.Error("balance sync failed, continuing with local quantities", "err", err)
		}
	}

	open, err := m.ledger.ListOpen()
	if err != nil {
		return nil, fmt.Errorf("monitor.tick: list open: %w", err)
	}

	reports := make([]domain.PositionReport, 0, len(open))
	for _, pos := range open {
		report := m.evaluate(ctx, pos)
		reports = append(reports, report)

		if report.Action != domain.ActionSell {
			continue
		}

		simulate := m.cfg.Simulate || !m.cfg.AutoExecute
		result := m.executor.Sell(ctx, pos, report.Reason, simulate)
		if result.Status == domain.SellError {
			slog.Error("sell attempt failed",
				"attempt", result.AttemptID,
				"token", pos.TokenID,
				"err", result.Err,
			)
		}
	}

	slog.Info("tick complete",
		"tick", n,
		"positions", len(reports),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return reports, nil
}

// evaluate junta la I/O de una posición (precio + balance) y delega la
// decisión en Evaluate.
func (m *Monitor) evaluate(ctx context.Context, pos domain.Position) domain.PositionReport {
	quote, err := m.oracle.Quote(ctx, pos.TokenID)
	quoteKnown := err == nil
	if err != nil {
		var ambiguous *domain.AmbiguousMappingError
		switch {
		case errors.As(err, &ambiguous):
			// Requiere intervención: el token no aparece en los arrays
			// del mercado y adivinar vendería al precio equivocado.
			slog.Warn("ambiguous token mapping, holding", "token", pos.TokenID, "err", err)
		case errors.Is(err, domain.ErrNoPrice):
			slog.Debug("no price available, holding", "token", pos.TokenID)
		default:
			slog.Warn("price lookup failed, holding", "token", pos.TokenID, "err", err)
		}
	}

	chainQty := m.balances.TokenBalance(ctx, domain.WalletBoth, pos.TokenID)

	return Evaluate(pos, quote, quoteKnown, chainQty, m.cfg.Thresholds)
}
