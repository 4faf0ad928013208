package ports

import (
	"github.com/alejandrodnm/polymonitor/internal/domain"
)

// Ledger persiste la colección de posiciones en un único recurso durable.
// Toda escritura es atómica: un lector concurrente ve el archivo viejo
// completo o el nuevo completo, nunca una escritura a medias.
type Ledger interface {
	// Load lee todas las posiciones desde disco.
	Load() ([]domain.Position, error)

	// Save escribe la colección completa de forma atómica (tmp + fsync + rename).
	Save(positions []domain.Position) error

	// Upsert registra una compra con semántica de acumulación:
	// mismo order_id → no-op (replay duplicado); posición abierta del mismo
	// token → merge con promedio ponderado; si no, inserta una nueva.
	// Devuelve la posición resultante y si fue recién creada.
	Upsert(draft domain.PositionDraft) (domain.Position, bool, error)

	// ListOpen devuelve las posiciones con status open.
	ListOpen() ([]domain.Position, error)

	// Close marca como cerrada la posición abierta del token dado.
	// Las posiciones nunca se borran — quedan como histórico de PnL.
	Close(tokenID string) error

	// SetThresholds recalcula TP/SL de la posición abierta del token dado
	// con los porcentajes indicados.
	SetThresholds(tokenID string, takeProfitPct, stopLossPct float64) error
}
