package monitor

import (
	"fmt"
	"math"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

// Thresholds son los porcentajes de TP/SL configurados.
// Un valor <= 0 desactiva el check correspondiente.
type Thresholds struct {
	TakeProfitPct float64
	StopLossPct   float64
}

// Evaluate decide la acción para una posición dada su cotización y el
// balance on-chain. Es una función pura: toda la I/O ocurre antes, en el
// tick del monitor.
//
// Orden de evaluación: sin precio → HOLD; take-profit porcentual;
// stop-loss porcentual; y por último los precios absolutos de TP/SL que
// pueda llevar la posición (compatibilidad con ledgers antiguos).
func Evaluate(pos domain.Position, quote float64, quoteKnown bool, chainQty float64, th Thresholds) domain.PositionReport {
	report := domain.PositionReport{
		TokenID:      pos.TokenID,
		Question:     pos.Question,
		Side:         pos.Side,
		OrderID:      pos.OrderID,
		EntryPrice:   pos.EntryPrice,
		CurrentPrice: pos.EntryPrice, // sin precio, la fila muestra la entrada
		Quantity:     pos.Quantity,
		Cost:         pos.Cost,
		Action:       domain.ActionHold,
	}

	if !pos.IsOpen() {
		report.Reason = "closed"
		return report
	}

	if !quoteKnown {
		// Nunca se vende a ciegas: sin precio la posición se mantiene.
		report.Reason = "no price available"
		return report
	}

	// La cantidad on-chain es autoritativa cuando está disponible;
	// nunca se promedia con la local.
	if chainQty > 0 {
		report.Quantity = chainQty
	}

	report.CurrentPrice = quote
	report.PriceKnown = true
	report.Value = quote * report.Quantity
	report.PnLPct = pos.PnLPct(quote)
	report.PnLValue = (quote - pos.EntryPrice) * report.Quantity

	switch {
	case th.TakeProfitPct > 0 && report.PnLPct >= th.TakeProfitPct:
		report.Action = domain.ActionSell
		report.Reason = fmt.Sprintf("take-profit triggered: gain %.1f%% >= %.0f%%",
			report.PnLPct*100, th.TakeProfitPct*100)

	case th.StopLossPct > 0 && report.PnLPct <= -th.StopLossPct:
		report.Action = domain.ActionSell
		report.Reason = fmt.Sprintf("stop-loss triggered: drawdown %.1f%% >= %.0f%%",
			math.Abs(report.PnLPct)*100, th.StopLossPct*100)

	case pos.TakeProfit > 0 && quote >= pos.TakeProfit:
		report.Action = domain.ActionSell
		report.Reason = fmt.Sprintf("take-profit triggered: target price $%.2f", pos.TakeProfit)

	case pos.StopLoss > 0 && quote <= pos.StopLoss:
		report.Action = domain.ActionSell
		report.Reason = fmt.Sprintf("stop-loss triggered: target price $%.2f", pos.StopLoss)
	}

	return report
}
