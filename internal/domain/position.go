package domain

import (
	"math"
	"time"
)

// PositionStatus es el estado del ciclo de vida de una posición.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
	// StatusExpired está reservado para mercados resueltos sin venta.
	// La lógica actual no lo asigna, pero el ledger lo acepta al leer.
	StatusExpired PositionStatus = "expired"
)

// Límites de precio que acepta el CLOB para órdenes limit.
const (
	MinOrderPrice = 0.001
	MaxOrderPrice = 0.999
)

// Position es una posición en un outcome token de Polymarket.
// Los nombres JSON son estables — el archivo de posiciones es compatible
// con versiones anteriores y los campos desconocidos se ignoran al leer.
type Position struct {
	TokenID    string         `json:"token_id"`
	Question   string         `json:"market_question"` // solo display
	Side       string         `json:"side"`            // "Yes" | "No"
	EntryPrice float64        `json:"buy_price"`       // promedio ponderado por tamaño
	Quantity   float64        `json:"quantity"`        // shares
	Cost       float64        `json:"cost"`            // USDC acumulado
	OpenedAt   time.Time      `json:"buy_time"`        // última acumulación, no la primera compra
	TakeProfit float64        `json:"take_profit"`     // precio absoluto, 0 = desactivado
	StopLoss   float64        `json:"stop_loss"`       // precio absoluto, 0 = desactivado
	Status     PositionStatus `json:"status"`
	OrderID    string         `json:"order_id"` // ref de la orden que creó/tocó la posición
}

// PositionDraft es una compra pendiente de registrar en el ledger.
type PositionDraft struct {
	TokenID  string
	Question string
	Side     string
	Price    float64
	Quantity float64
	Cost     float64
	OrderID  string
}

// IsOpen devuelve true si la posición sigue abierta.
func (p Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// CurrentValue devuelve el valor de mercado al precio dado.
func (p Position) CurrentValue(price float64) float64 {
	return round6(price * p.Quantity)
}

// PnLPct devuelve el PnL porcentual respecto al precio de entrada.
// Devuelve 0 si el precio de entrada no es válido.
func (p Position) PnLPct(price float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (price - p.EntryPrice) / p.EntryPrice
}

// ApplyThresholds recalcula los precios absolutos de TP/SL a partir del
// precio de entrada y los porcentajes configurados. Un porcentaje <= 0
// desactiva el umbral correspondiente.
func (p *Position) ApplyThresholds(takeProfitPct, stopLossPct float64) {
	if takeProfitPct > 0 {
		p.TakeProfit = round6(math.Min(p.EntryPrice*(1+takeProfitPct), 0.99))
	} else {
		p.TakeProfit = 0
	}
	if stopLossPct > 0 {
		p.StopLoss = round6(math.Max(p.EntryPrice*(1-stopLossPct), 0.01))
	} else {
		p.StopLoss = 0
	}
}

// Accumulate funde una compra nueva dentro de la posición abierta:
// suma shares y coste, y recalcula el precio de entrada como promedio
// ponderado por tamaño — la base económicamente correcta cuando se
// compran lotes parciales a precios distintos.
func (p *Position) Accumulate(d PositionDraft, takeProfitPct, stopLossPct float64, now time.Time) {
	total := round6(p.Quantity + d.Quantity)
	if total > 0 {
		p.EntryPrice = round6((p.Quantity*p.EntryPrice + d.Quantity*d.Price) / total)
	}
	p.Quantity = total
	p.Cost = round6(p.Cost + d.Cost)
	p.OpenedAt = now.UTC()
	p.ApplyThresholds(takeProfitPct, stopLossPct)
}

// Rescale sobreescribe la cantidad con el balance on-chain autoritativo y
// escala el coste proporcionalmente, preservando el precio medio de entrada.
// Con balance ~0 la posición queda cerrada.
func (p *Position) Rescale(actual float64) {
	old := p.Quantity
	p.Quantity = round6(actual)
	switch {
	case old > 0 && actual > 0:
		p.Cost = round6(p.Cost * (actual / old))
	case actual <= 0:
		p.Cost = 0
	}
	if actual < 0.0001 {
		p.Status = StatusClosed
	}
}

// NewPosition crea una posición abierta a partir de un draft.
func NewPosition(d PositionDraft, takeProfitPct, stopLossPct float64, now time.Time) Position {
	p := Position{
		TokenID:    d.TokenID,
		Question:   d.Question,
		Side:       d.Side,
		EntryPrice: d.Price,
		Quantity:   round6(d.Quantity),
		Cost:       round6(d.Cost),
		OpenedAt:   now.UTC(),
		Status:     StatusOpen,
		OrderID:    d.OrderID,
	}
	p.ApplyThresholds(takeProfitPct, stopLossPct)
	return p
}

// round6 redondea a 6 decimales — la precisión de micro-USDC.
func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
