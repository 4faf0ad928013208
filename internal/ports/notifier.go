package ports

import (
	"context"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

// Notifier presenta el estado de las posiciones al operador.
type Notifier interface {
	// ReportTick muestra una fila por posición evaluada más una fila de
	// totales. En la implementación de consola, imprime una tabla formateada.
	ReportTick(ctx context.Context, reports []domain.PositionReport) error
}
