// Package ledger implementa ports.Ledger sobre un único archivo JSON.
//
// Disciplina de escritura: tmp + fsync + rename atómico. Un proceso lector
// concurrente (p. ej. `-show` corriendo junto al monitor) ve siempre el
// archivo viejo completo o el nuevo completo. La exclusión entre procesos
// depende de esta disciplina, no de locks en memoria — con dos escritores
// gana el último (limitación aceptada: se asume un solo monitor).
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alejandrodnm/polymonitor/internal/domain"
)

// loadRetries reintenta lecturas fallidas una vez. Con rename atómico un
// JSON roto no debería ocurrir, pero el archivo pudo escribirlo una
// versión anterior sin esa garantía.
const (
	loadRetries    = 1
	loadRetryDelay = 100 * time.Millisecond
)

// FileLedger es el ledger de posiciones respaldado por archivo.
type FileLedger struct {
	path          string
	takeProfitPct float64
	stopLossPct   float64
	mu            sync.Mutex
	now           func() time.Time
}

// NewFileLedger crea un ledger sobre la ruta dada. Los porcentajes se usan
// para recalcular TP/SL en cada merge de acumulación.
func NewFileLedger(path string, takeProfitPct, stopLossPct float64) *FileLedger {
	return &FileLedger{
		path:          path,
		takeProfitPct: takeProfitPct,
		stopLossPct:   stopLossPct,
		now:           time.Now,
	}
}

// Load lee todas las posiciones desde disco. Un archivo inexistente es un
// ledger vacío, no un error.
func (l *FileLedger) Load() ([]domain.Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Save escribe la colección completa de forma atómica.
func (l *FileLedger) Save(positions []domain.Position) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(positions)
}

// Upsert registra una compra con semántica de acumulación. Siempre recarga
// desde disco antes de decidir — otro proceso pudo escribir entre ticks.
func (l *FileLedger) Upsert(draft domain.PositionDraft) (domain.Position, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// No debería pasar nunca — si pasa, registrar un draft así corrompería
	// el promedio ponderado de la posición.
	if draft.Quantity <= 0 || draft.Price <= 0 {
		return domain.Position{}, false, fmt.Errorf("ledger.Upsert: invalid draft for token %s: quantity=%.6f price=%.6f", draft.TokenID, draft.Quantity, draft.Price)
	}

	positions, err := l.load()
	if err != nil {
		return domain.Position{}, false, fmt.Errorf("ledger.Upsert: %w", err)
	}

	// Replay duplicado: la misma orden ya creó o tocó una posición.
	if draft.OrderID != "" {
		for _, p := range positions {
			if p.OrderID != "" && p.OrderID == draft.OrderID {
				return p, false, nil
			}
		}
	}

	// Posición abierta existente para el token → merge ponderado.
	for i := range positions {
		if positions[i].TokenID == draft.TokenID && positions[i].IsOpen() {
			positions[i].Accumulate(draft, l.takeProfitPct, l.stopLossPct, l.now())
			if err := l.save(positions); err != nil {
				return domain.Position{}, false, fmt.Errorf("ledger.Upsert: %w", err)
			}
			return positions[i], false, nil
		}
	}

	p := domain.NewPosition(draft, l.takeProfitPct, l.stopLossPct, l.now())
	positions = append(positions, p)
	if err := l.save(positions); err != nil {
		return domain.Position{}, false, fmt.Errorf("ledger.Upsert: %w", err)
	}
	return p, true, nil
}

// ListOpen devuelve las posiciones abiertas.
func (l *FileLedger) ListOpen() ([]domain.Position, error) {
	all, err := l.Load()
	if err != nil {
		return nil, err
	}
	open := make([]domain.Position, 0, len(all))
	for _, p := range all {
		if p.IsOpen() {
			open = append(open, p)
		}
	}
	return open, nil
}

// Close marca como cerrada la posición abierta del token dado.
func (l *FileLedger) Close(tokenID string) error {
	return l.mutateOpen(tokenID, func(p *domain.Position) {
		p.Status = domain.StatusClosed
	})
}

// SetThresholds recalcula TP/SL de la posición abierta del token dado.
func (l *FileLedger) SetThresholds(tokenID string, takeProfitPct, stopLossPct float64) error {
	return l.mutateOpen(tokenID, func(p *domain.Position) {
		p.ApplyThresholds(takeProfitPct, stopLossPct)
	})
}

// mutateOpen aplica fn a la posición abierta del token y persiste.
func (l *FileLedger) mutateOpen(tokenID string, fn func(*domain.Position)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	positions, err := l.load()
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	for i := range positions {
		if positions[i].TokenID == tokenID && positions[i].IsOpen() {
			fn(&positions[i])
			if err := l.save(positions); err != nil {
				return fmt.Errorf("ledger: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("ledger: no open position for token %s", tokenID)
}

func (l *FileLedger) load() ([]domain.Position, error) {
	var lastErr error
	for attempt := 0; attempt <= loadRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(loadRetryDelay)
		}

		data, err := os.ReadFile(l.path)
		if os.IsNotExist(err) {
			return nil, nil
		}
		if err != nil {
			lastErr = err
			continue
		}

		var positions []domain.Position
		if err := json.Unmarshal(data, &positions); err != nil {
			lastErr = fmt.Errorf("parse %q: %w", l.path, err)
			continue
		}
		return positions, nil
	}
	return nil, lastErr
}

// save escribe a un archivo temporal, hace fsync y renombra sobre el
// destino. Un crash entre escritura y rename deja el archivo anterior
// intacto y válido.
func (l *FileLedger) save(positions []domain.Position) error {
	if positions == nil {
		positions = []domain.Position{}
	}

	data, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal positions: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}
