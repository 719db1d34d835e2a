package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/robfig/cron/v3"
)

// CronRunner ejecuta jobs periódicos (resumen diario, heartbeat) en una zona horaria.
type CronRunner struct {
	cron    *cron.Cron
	baseCtx context.Context
}

// NewCronRunner crea el runner. Las specs son de 5 campos o descriptores (@every 60s).
func NewCronRunner(baseCtx context.Context, loc *time.Location) *CronRunner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CronRunner{
		cron:    cron.New(cron.WithLocation(loc)),
		baseCtx: baseCtx,
	}
}

// Add registra un job. Un panic o error del job se registra y no para el runner.
func (r *CronRunner) Add(spec, name string, job func(context.Context) error) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, r.wrap(name, job))
	if err != nil {
		return 0, fmt.Errorf("scheduler.CronRunner.Add %s: %w", name, err)
	}
	return id, nil
}

func (r *CronRunner) wrap(name string, job func(context.Context) error) func() {
	return func() {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("cron job panic", "job", name, "panic", rec, "stack", string(debug.Stack()))
			}
		}()
		start := time.Now()
		if err := job(r.baseCtx); err != nil {
			slog.Error("cron job failed", "job", name, "err", err)
			return
		}
		slog.Debug("cron job done", "job", name, "duration", time.Since(start).Round(time.Millisecond))
	}
}

// Start arranca el runner en segundo plano.
func (r *CronRunner) Start() {
	slog.Info("cron started", "jobs", len(r.cron.Entries()))
	r.cron.Start()
}

// Stop detiene el runner y espera a los jobs en curso.
func (r *CronRunner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	slog.Info("cron stopped")
}
