package ports

import (
	"context"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

// ActivityProvider obtiene la actividad de una wallet en la Data API.
// Un resultado vacío es válido: significa "sin cambios", no "wallet inexistente".
type ActivityProvider interface {
	// FetchTrades devuelve los trades taker recientes de la wallet.
	FetchTrades(ctx context.Context, proxy string) ([]domain.Trade, error)

	// FetchPositions devuelve todas las posiciones, paginando internamente.
	FetchPositions(ctx context.Context, proxy string) ([]domain.Position, error)
}
