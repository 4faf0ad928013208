// Package backoff implementa la política de reintentos compartida por el
// reconciliador de balances y el envío de órdenes. Antes estaba duplicada
// en cada call site; ahora hay una sola, parametrizada por intentos máximos
// y función de espera.
package backoff

import (
	"context"
	"math"
	"time"
)

// Class clasifica un error para decidir cómo reintentar.
type Class int

const (
	// Fatal no se reintenta.
	Fatal Class = iota
	// RateLimited se reintenta hasta MaxAttempts con backoff exponencial.
	RateLimited
	// Transient recibe un único reintento extra antes de rendirse.
	Transient
)

// Classifier decide la clase de un error.
type Classifier func(error) Class

// Policy es una política de reintentos con backoff exponencial acotado.
type Policy struct {
	MaxAttempts int           // intentos para errores RateLimited
	BaseDelay   time.Duration // delay del primer reintento; se duplica en cada intento
	MaxDelay    time.Duration // techo del delay
}

// Default devuelve la política usada contra los upstreams de Polygon:
// 3 intentos, 1s base, techo de 60s.
func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 60 * time.Second}
}

// Delay devuelve la espera antes del intento attempt (0-indexed): base×2^attempt,
// acotada por MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * p.BaseDelay
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Sleep espera el delay del intento dado respetando el contexto.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	select {
	case <-time.After(p.Delay(attempt)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do ejecuta fn con reintentos según la clase de cada error. Los errores
// RateLimited agotan MaxAttempts, los Transient reciben un solo reintento
// extra y los Fatal se devuelven de inmediato. Devuelve el último error
// si se agotan los reintentos.
func (p Policy) Do(ctx context.Context, classify Classifier, fn func() error) error {
	transientRetried := false

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		switch classify(err) {
		case RateLimited:
			if attempt >= p.MaxAttempts-1 {
				return err
			}
		case Transient:
			if transientRetried {
				return err
			}
			transientRetried = true
		default:
			return err
		}

		if serr := p.Sleep(ctx, attempt); serr != nil {
			return err
		}
	}
}
