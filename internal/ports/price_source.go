package ports

import (
	"context"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

// BookSource obtiene el orderbook en vivo de un token desde el CLOB.
type BookSource interface {
	// FetchOrderBook devuelve el book del token con bids/asks ordenados.
	FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
}

// MarketPriceSource resuelve el precio indicativo de mercado de un outcome.
// Es la fuente secundaria del oráculo, para cuando el book está vacío.
type MarketPriceSource interface {
	// OutcomePrice devuelve el precio del outcome correspondiente al token,
	// emparejando el token ID dentro de los arrays del mercado — nunca por
	// posición. Si el ID no aparece en los arrays devuelve
	// *domain.AmbiguousMappingError.
	OutcomePrice(ctx context.Context, tokenID string) (float64, error)
}
