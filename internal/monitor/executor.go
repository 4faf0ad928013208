package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polymonitor/internal/domain"
	"github.com/alejandrodnm/polymonitor/internal/ports"
)

// apiDustThreshold: por debajo de esto la wallet de ejecución se considera
// vacía y la venta por API es imposible.
const apiDustThreshold = 0.01

// Executor lleva una decisión SELL hasta el venue: verifica fondos, ajusta
// el precio al rango legal del CLOB y deja el ledger consistente con el
// resultado. Nunca borra posiciones — una venta exitosa cierra, un error
// deja todo como estaba.
type Executor struct {
	oracle   *Oracle
	books    ports.BookSource
	balances ports.BalanceSource
	venue    ports.OrderVenue
	ledger   ports.Ledger
}

// NewExecutor crea un Executor. venue puede ser nil si no hay credenciales
// de trading — en ese caso solo funciona el modo simulado.
func NewExecutor(
	oracle *Oracle,
	books ports.BookSource,
	balances ports.BalanceSource,
	venue ports.OrderVenue,
	ledger ports.Ledger,
) *Executor {
	return &Executor{
		oracle:   oracle,
		books:    books,
		balances: balances,
		venue:    venue,
		ledger:   ledger,
	}
}

// Sell intenta vender la posición completa. Con simulate=true ejecuta todo
// el pipeline menos el envío real. Cada intento lleva un ID propio que
// aparece en todos los logs del intento.
func (e *Executor) Sell(ctx context.Context, pos domain.Position, reason string, simulate bool) domain.SellResult {
	result := domain.SellResult{
		AttemptID: uuid.NewString(),
		Reason:    reason,
	}
	log := slog.With("attempt", result.AttemptID, "token", pos.TokenID)

	// Sin precio no hay venta — el executor falla rápido, a diferencia
	// del risk engine que simplemente mantiene.
	quote, err := e.oracle.Quote(ctx, pos.TokenID)
	if err != nil {
		result.Status = domain.SellError
		result.Err = fmt.Errorf("executor.Sell: %w", err)
		log.Error("sell aborted: no price", "err", err)
		return result
	}

	apiBal := e.balances.TokenBalance(ctx, domain.WalletAPI, pos.TokenID)
	proxyBal := e.balances.TokenBalance(ctx, domain.WalletProxy, pos.TokenID)

	// Se vende lo que de verdad hay en la wallet de ejecución; el registro
	// local solo es fallback cuando la lectura on-chain no resolvió.
	sellQty := pos.Quantity
	if apiBal > 0 {
		sellQty = apiBal
	}

	result.Quantity = sellQty
	result.PnL = (quote - pos.EntryPrice) * sellQty

	log.Info("preparing sell",
		"question", pos.Question,
		"reason", reason,
		"recorded_qty", pos.Quantity,
		"sell_qty", sellQty,
		"entry", pos.EntryPrice,
		"quote", quote,
		"est_pnl", result.PnL,
	)

	if simulate {
		result.Status = domain.SellSimulated
		result.Price = quote
		log.Info("simulated sell, no order submitted")
		return result
	}

	if apiBal < apiDustThreshold {
		scope := domain.WalletAPI
		// tolerancia del 1% para diferencias de precisión on-chain
		if proxyBal >= pos.Quantity*0.99 {
			scope = domain.WalletProxy
		}
		result.Status = domain.SellError
		result.Err = &domain.InsufficientFundsError{
			TokenID:    pos.TokenID,
			Scope:      scope,
			APIBalance: apiBal,
			ProxyBal:   proxyBal,
		}
		log.Error("sell aborted: insufficient funds", "err", result.Err)
		return result
	}

	if e.venue == nil {
		result.Status = domain.SellError
		result.Err = errors.New("executor.Sell: no trading credentials configured")
		log.Error("sell aborted: no venue")
		return result
	}

	sellPrice := e.clampPrice(ctx, log, pos.TokenID, quote, sellQty)
	result.Price = sellPrice

	submission, err := e.venue.SubmitLimitSell(ctx, pos.TokenID, sellPrice, sellQty)
	if err != nil {
		result.Status = domain.SellError
		result.Err = err
		if errors.Is(err, domain.ErrMarketSettled) {
			// Terminal: la posición queda abierta y el operador tiene que
			// resolverla manualmente tras el settlement.
			log.Error("sell impossible: market settled, manual resolution required", "err", err)
		} else {
			log.Error("sell failed", "err", err)
		}
		return result
	}

	result.PnL = (sellPrice - pos.EntryPrice) * sellQty
	result.VenueID = submission.OrderID

	if err := e.ledger.Close(pos.TokenID); err != nil {
		// La orden ya está en el venue; el ledger desincronizado se
		// corrige en la próxima reconciliación.
		log.Error("order placed but ledger close failed", "order", submission.OrderID, "err", err)
	}

	result.Status = domain.SellSuccess
	log.Info("sell submitted",
		"order", submission.OrderID,
		"status", submission.Status,
		"price", sellPrice,
		"qty", sellQty,
		"pnl", result.PnL,
	)
	return result
}

// clampPrice lleva la cotización al rango [0.001, 0.999] que acepta el
// CLOB. Cerca de 1.0 primero relee el book por si hay un bid real más
// preciso; si aun así hay que recortar, la pérdida de valor se reporta.
func (e *Executor) clampPrice(ctx context.Context, log *slog.Logger, tokenID string, quote, qty float64) float64 {
	price := quote

	if price >= 0.99 {
		book, err := e.books.FetchOrderBook(ctx, tokenID)
		if err == nil {
			if bid := book.BestBid(); bid >= domain.MinOrderPrice && bid < 1.0 {
				log.Info("using precise book bid near 1.0", "bid", bid, "quote", quote)
				price = bid
			}
		} else {
			log.Warn("book re-read failed near 1.0", "err", err)
		}
	}

	if price > domain.MaxOrderPrice {
		loss := (price - domain.MaxOrderPrice) * qty
		log.Warn("price clamped to venue maximum",
			"original", price,
			"clamped", domain.MaxOrderPrice,
			"value_loss", loss,
		)
		price = domain.MaxOrderPrice
	}
	if price < domain.MinOrderPrice {
		log.Warn("price clamped to venue minimum",
			"original", price,
			"clamped", domain.MinOrderPrice,
		)
		price = domain.MinOrderPrice
	}
	return price
}
