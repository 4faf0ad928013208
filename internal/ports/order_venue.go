package ports

import (
	"context"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

// OrderVenue envía órdenes limit de venta al CLOB.
type OrderVenue interface {
	// SubmitLimitSell firma y envía una orden limit SELL.
	// price debe estar ya dentro de [0.001, 0.999].
	// Si el orderbook del mercado no existe (cerrado/resuelto) devuelve
	// un error que envuelve domain.ErrMarketSettled.
	SubmitLimitSell(ctx context.Context, tokenID string, price, size float64) (domain.SellSubmission, error)
}
