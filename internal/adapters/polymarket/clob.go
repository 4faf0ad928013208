package polymarket

// clob.go — Polymarket CLOB API adapter.
//
// Implementa ports.BookSource. El monitor consulta un book por posición y
// tick: no hace falta el endpoint batch, con GET /book alcanza y el rate
// limiter en doWithRetry controla el ritmo.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

const bookPath = "/book"

// FetchOrderBook devuelve el orderbook del token con bids/asks ordenados.
func (c *Client) FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	u := fmt.Sprintf("%s%s?token_id=%s", c.clobBase, bookPath, url.QueryEscape(tokenID))

	var resp bookResponse
	if err := c.get(ctx, c.bookLimiter, u, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("clob.FetchOrderBook: %w", err)
	}

	ob := mapOrderBook(tokenID, resp)
	slog.Debug("order book fetched",
		"token", tokenID,
		"bids", len(ob.Bids),
		"asks", len(ob.Asks),
		"best_bid", ob.BestBid(),
	)
	return ob, nil
}

// IsNegRisk consulta si el mercado del token usa el adapter NegRisk,
// necesario para elegir el contrato de exchange al firmar órdenes.
func (c *Client) IsNegRisk(ctx context.Context, tokenID string) (bool, error) {
	u := fmt.Sprintf("%s/neg-risk?token_id=%s", c.clobBase, url.QueryEscape(tokenID))

	var resp clobNegRiskResponse
	if err := c.get(ctx, c.clobLimiter, u, &resp); err != nil {
		return false, fmt.Errorf("clob.IsNegRisk: %w", err)
	}
	return resp.NegRisk, nil
}
