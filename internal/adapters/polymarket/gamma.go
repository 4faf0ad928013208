package polymarket

// gamma.go — Gamma API adapter: precio indicativo de mercado por outcome.
//
// Es la fuente secundaria del oráculo de precios. El punto delicado es el
// mapeo token → índice: outcomePrices[i] corresponde a clobTokenIds[i], y
// asumir la posición 0 devuelve silenciosamente el precio del outcome
// equivocado en mercados no binarios. Aquí se empareja siempre por ID y,
// si el ID no aparece, se devuelve AmbiguousMappingError en vez de adivinar.

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

const gammaMarketsPath = "/markets"

// OutcomePrice devuelve el precio indicativo del outcome correspondiente
// al token dado, emparejando el token ID dentro de clobTokenIds.
func (c *Client) OutcomePrice(ctx context.Context, tokenID string) (float64, error) {
	u := fmt.Sprintf("%s%s?clob_token_ids=%s", c.gammaBase, gammaMarketsPath, url.QueryEscape(tokenID))

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, u, &resp); err != nil {
		return 0, fmt.Errorf("gamma.OutcomePrice: %w", err)
	}
	if len(resp) == 0 {
		return 0, fmt.Errorf("gamma.OutcomePrice: no market for token %s: %w", tokenID, domain.ErrNoPrice)
	}

	gm := resp[0]
	if len(gm.ClobTokenIDs) == 0 || len(gm.ClobTokenIDs) != len(gm.OutcomePrices) {
		return 0, &domain.AmbiguousMappingError{TokenID: tokenID, Outcomes: gm.Outcomes}
	}

	for i, id := range gm.ClobTokenIDs {
		if id != tokenID {
			continue
		}
		price, err := strconv.ParseFloat(gm.OutcomePrices[i], 64)
		if err != nil || price <= 0 {
			return 0, fmt.Errorf("gamma.OutcomePrice: bad price %q for token %s: %w", gm.OutcomePrices[i], tokenID, domain.ErrNoPrice)
		}
		slog.Debug("gamma outcome price resolved",
			"token", tokenID,
			"index", i,
			"price", price,
		)
		return price, nil
	}

	return 0, &domain.AmbiguousMappingError{TokenID: tokenID, Outcomes: gm.Outcomes}
}
