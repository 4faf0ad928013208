package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores centinela de la taxonomía de fallos del monitor.
var (
	// ErrNoPrice indica que ninguna fuente pudo resolver un precio.
	// Nunca fuerza una venta — el caller debe mantener la posición.
	ErrNoPrice = errors.New("no price available")

	// ErrMarketSettled indica que el orderbook no existe: el mercado está
	// cerrado o resuelto y la venta por API es imposible. Terminal —
	// requiere resolución manual del operador.
	ErrMarketSettled = errors.New("orderbook does not exist: market closed or settled")
)

// WalletScope identifica qué wallet se consulta para balances.
type WalletScope string

const (
	WalletAPI   WalletScope = "api"   // wallet de ejecución (private key) — vendible por API
	WalletProxy WalletScope = "proxy" // wallet proxy/custodial — solo vendible por la web
	WalletBoth  WalletScope = "both"  // suma de ambas
)

// InsufficientFundsError indica que la cantidad registrada no está en la
// wallet de ejecución. Scope señala dónde están realmente los fondos
// para que el operador sepa por qué canal vender.
type InsufficientFundsError struct {
	TokenID    string
	Scope      WalletScope
	APIBalance float64
	ProxyBal   float64
}

func (e *InsufficientFundsError) Error() string {
	if e.Scope == WalletProxy {
		return fmt.Sprintf("token %s held in proxy wallet (%.4f shares) — sell via Polymarket web UI", shortToken(e.TokenID), e.ProxyBal)
	}
	return fmt.Sprintf("insufficient balance in api wallet for token %s (api=%.4f proxy=%.4f)", shortToken(e.TokenID), e.APIBalance, e.ProxyBal)
}

// AmbiguousMappingError indica que un token ID no se pudo localizar dentro
// de los arrays de outcomes del mercado. Adivinar por posición devolvería
// silenciosamente el precio del outcome equivocado, así que se devuelve
// como error explícito que requiere confirmación del operador.
type AmbiguousMappingError struct {
	TokenID  string
	Outcomes []string
}

func (e *AmbiguousMappingError) Error() string {
	return fmt.Sprintf("token %s not found in market outcome arrays (outcomes=%v) — refusing to guess the index", shortToken(e.TokenID), e.Outcomes)
}

// IsRateLimited detecta señales de rate limiting de upstreams inconsistentes.
// La detección es deliberadamente liberal: código HTTP, substring del mensaje
// o el código JSON-RPC -32090 que devuelven los nodos de Polygon.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{
		"rate limit",
		"too many requests",
		"call rate limit exhausted",
		"429",
		"-32090",
	} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// shortToken acorta un token ID largo para mensajes de error legibles.
func shortToken(id string) string {
	if len(id) <= 20 {
		return id
	}
	return id[:20] + "..."
}
