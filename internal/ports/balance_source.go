package ports

import (
	"context"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

// BalanceSource consulta los balances on-chain autoritativos por token.
// El upstream está rate-limited: las implementaciones reintentan con
// backoff y, agotados los reintentos, devuelven 0 con un warning — el
// balance es un insumo consultivo de la reconciliación, no un gate.
type BalanceSource interface {
	// TokenBalance devuelve el balance en shares del token para el scope
	// de wallet dado (api, proxy o la suma de ambas).
	TokenBalance(ctx context.Context, scope domain.WalletScope, tokenID string) float64
}
