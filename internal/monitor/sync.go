package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/alejandrodnm/polymonitor/internal/domain"
	"github.com/alejandrodnm/polymonitor/internal/ports"
)

// closeEpsilon: balance on-chain por debajo del cual la posición se
// considera totalmente vendida.
const closeEpsilon = 0.0001

// Reconciler alinea las cantidades del ledger con los balances on-chain.
// La cadena es la fuente autoritativa de tamaño: cualquier divergencia
// por encima de la tolerancia se corrige sobreescribiendo la cantidad y
// escalando el coste proporcionalmente, preservando el precio medio.
type Reconciler struct {
	ledger    ports.Ledger
	balances  ports.BalanceSource
	tolerance float64
}

// NewReconciler crea un Reconciler con la tolerancia de precisión dada.
func NewReconciler(ledger ports.Ledger, balances ports.BalanceSource, tolerance float64) *Reconciler {
	return &Reconciler{ledger: ledger, balances: balances, tolerance: tolerance}
}

// Sync recorre los tokens con posición abierta, compara la suma local
// contra el balance api+proxy y corrige las divergencias. Escribe el
// ledger una sola vez al final, con todas las correcciones de la pasada.
func (r *Reconciler) Sync(ctx context.Context) (domain.SyncResult, error) {
	var result domain.SyncResult

	positions, err := r.ledger.Load()
	if err != nil {
		return result, fmt.Errorf("reconciler.Sync: load: %w", err)
	}

	for _, tokenID := range openTokens(positions) {
		result.Checked++

		actual := r.balances.TokenBalance(ctx, domain.WalletBoth, tokenID)

		localTotal := 0.0
		first := -1
		for i := range positions {
			if positions[i].TokenID == tokenID && positions[i].IsOpen() {
				localTotal += positions[i].Quantity
				if first < 0 {
					first = i
				}
			}
		}

		diff := math.Abs(actual - localTotal)
		if diff <= r.tolerance {
			continue
		}

		slog.Warn("balance mismatch, correcting from chain",
			"token", tokenID,
			"local", localTotal,
			"chain", actual,
			"diff", diff,
		)

		// Toda la divergencia se absorbe en la primera posición abierta
		// del token — tras un merge solo debería haber una.
		positions[first].Rescale(actual)
		result.Corrected++
		if !positions[first].IsOpen() {
			slog.Info("position fully sold on chain, closing", "token", tokenID)
			result.Closed++
		}
	}

	if result.Corrected > 0 {
		if err := r.ledger.Save(positions); err != nil {
			return result, fmt.Errorf("reconciler.Sync: save: %w", err)
		}
	}

	slog.Info("balance sync complete",
		"checked", result.Checked,
		"corrected", result.Corrected,
		"closed", result.Closed,
	)
	return result, nil
}

// openTokens devuelve los token IDs con al menos una posición abierta,
// sin duplicados y en orden de aparición.
func openTokens(positions []domain.Position) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, p := range positions {
		if !p.IsOpen() || seen[p.TokenID] {
			continue
		}
		seen[p.TokenID] = true
		tokens = append(tokens, p.TokenID)
	}
	return tokens
}
