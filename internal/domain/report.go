package domain

import "time"

// Action es la decisión del risk engine para una posición.
type Action string

const (
	ActionHold Action = "HOLD"
	ActionSell Action = "SELL"
)

// PositionReport es el resultado de evaluar una posición contra el precio
// y la cantidad on-chain actuales. Una fila del reporte por tick.
type PositionReport struct {
	TokenID      string
	Question     string
	Side         string
	OrderID      string
	EntryPrice   float64
	CurrentPrice float64 // best bid; igual a EntryPrice si no hay precio
	PriceKnown   bool    // false si ninguna fuente resolvió precio
	Quantity     float64 // cantidad on-chain si está disponible, sino la local
	Cost         float64
	Value        float64 // CurrentPrice × Quantity
	PnLPct       float64
	PnLValue     float64
	Action       Action
	Reason       string
}

// SellStatus clasifica el desenlace de un intento de venta.
type SellStatus string

const (
	SellSimulated SellStatus = "simulated"
	SellSuccess   SellStatus = "success"
	SellError     SellStatus = "error"
)

// SellResult es el resultado de Executor.Sell.
type SellResult struct {
	AttemptID string // uuid local para rastrear el intento en los logs
	Status    SellStatus
	Reason    string  // motivo de la venta o detalle del error
	Price     float64 // precio limit enviado (ya clampeado)
	Quantity  float64 // shares vendidas
	PnL       float64 // (precio de venta − entrada) × cantidad
	VenueID   string  // order ID devuelto por el CLOB
	Err       error
}

// SellSubmission es la respuesta del venue al enviar una orden limit de venta.
type SellSubmission struct {
	OrderID     string
	Status      string
	TakenAmount float64 // USDC recibidos inmediatamente (porción taker)
	MadeAmount  float64 // shares en reposo en el book (porción maker)
	SubmittedAt time.Time
}

// SyncResult resume una pasada de reconciliación de balances.
type SyncResult struct {
	Checked   int
	Corrected int
	Closed    int
}
