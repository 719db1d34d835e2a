package ports

import (
	"context"

	"github.com/alejandrodnm/copysignal/internal/domain"
)

// EventProvider resuelve un evento por slug. Devuelve (nil, nil) si no existe.
type EventProvider interface {
	FetchEvent(ctx context.Context, slug string) (*domain.Event, error)
}

// LeaderboardProvider obtiene una página del leaderboard de PnL.
type LeaderboardProvider interface {
	FetchLeaderboard(ctx context.Context, category, period string, limit int) ([]domain.LeaderboardEntry, error)
}
