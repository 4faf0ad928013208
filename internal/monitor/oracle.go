package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polymonitor/internal/domain"
	"github.com/alejandrodnm/polymonitor/internal/ports"
)

// Oracle resuelve el precio de venta actual de un token consultando las
// fuentes en orden fijo: primero el best bid del orderbook (el precio al
// que de verdad se puede vender ahora), después el precio indicativo de
// Gamma. La cadena de fallback vive aquí y solo aquí — los callers ven
// un único Quote.
type Oracle struct {
	books   ports.BookSource
	markets ports.MarketPriceSource
}

// NewOracle crea un Oracle con ambas fuentes de precio.
func NewOracle(books ports.BookSource, markets ports.MarketPriceSource) *Oracle {
	return &Oracle{books: books, markets: markets}
}

// Quote devuelve el mejor precio de venta disponible para el token.
// Si ninguna fuente resuelve, devuelve un error que envuelve
// domain.ErrNoPrice; un mapeo ambiguo en Gamma se propaga tal cual.
// El precio nunca se trata como 0 — sin precio no hay decisión.
func (o *Oracle) Quote(ctx context.Context, tokenID string) (float64, error) {
	book, err := o.books.FetchOrderBook(ctx, tokenID)
	if err == nil {
		if bid := book.BestBid(); bid > 0 {
			return bid, nil
		}
		slog.Debug("book empty, falling back to gamma", "token", tokenID)
	} else {
		slog.Debug("book fetch failed, falling back to gamma", "token", tokenID, "err", err)
	}

	price, gerr := o.markets.OutcomePrice(ctx, tokenID)
	if gerr == nil {
		return price, nil
	}

	var ambiguous *domain.AmbiguousMappingError
	if errors.As(gerr, &ambiguous) {
		return 0, gerr
	}
	if errors.Is(gerr, domain.ErrNoPrice) {
		return 0, gerr
	}
	return 0, fmt.Errorf("oracle.Quote: token %s: %v: %w", tokenID, gerr, domain.ErrNoPrice)
}
