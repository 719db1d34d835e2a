package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/alejandrodnm/copysignal/internal/leaderboard"
)

type (
	SummarySender interface {
		Send(ctx context.Context) error
	}
	LeaderboardRunner interface {
		Run(ctx context.Context) (leaderboard.Report, error)
	}
)

// DailyJob envía el resumen de ayer y luego ingesta el leaderboard.
// Un fallo del resumen no impide la ingesta.
type DailyJob struct {
	summary SummarySender
	board   LeaderboardRunner
}

// NewDailyJob crea el job diario. Cualquiera de las dos partes puede ser nil.
func NewDailyJob(summary SummarySender, board LeaderboardRunner) *DailyJob {
	return &DailyJob{summary: summary, board: board}
}

// Run ejecuta ambas partes y devuelve los errores combinados.
func (d *DailyJob) Run(ctx context.Context) error {
	var errs []error
	if d.summary != nil {
		if err := d.summary.Send(ctx); err != nil {
			errs = append(errs, fmt.Errorf("summary: %w", err))
		}
	}
	if d.board != nil {
		if _, err := d.board.Run(ctx); err != nil {
			errs = append(errs, fmt.Errorf("leaderboard: %w", err))
		}
	}
	return errors.Join(errs...)
}
