package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTickInProgress indica que el tick se descartó porque la pasada anterior sigue en curso.
var ErrTickInProgress = errors.New("scheduler: previous pass still running")

// Scheduler dispara el pipeline cada Interval sin solaparse consigo mismo.
// Un tick que llega con la pasada anterior en curso se descarta.
type Scheduler struct {
	interval time.Duration
	pipeline *Pipeline

	running  atomic.Bool
	wg       sync.WaitGroup
	started  time.Time
	ticks    atomic.Int64
	dropped  atomic.Int64
	lastTook atomic.Int64 // nanosegundos
}

// New crea un Scheduler.
func New(interval time.Duration, pipeline *Pipeline) *Scheduler {
	return &Scheduler{
		interval: interval,
		pipeline: pipeline,
		started:  time.Now(),
	}
}

// Tick ejecuta una pasada si no hay otra en curso; si la hay devuelve ErrTickInProgress.
func (s *Scheduler) Tick(ctx context.Context) (TickReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		slog.Debug("tick skipped: previous pass still running")
		return TickReport{}, ErrTickInProgress
	}
	defer s.running.Store(false)

	rep, err := s.pipeline.Run(ctx)
	s.ticks.Add(1)
	s.lastTook.Store(int64(rep.Duration))
	if err != nil {
		slog.Error("tick failed", "err", err, "duration", rep.Duration.Round(time.Millisecond))
		return rep, err
	}

	slog.Info("tick complete",
		"wallets", rep.Wallets,
		"reconciled", rep.Reconciled,
		"skipped", rep.Skipped,
		"failed", rep.Failed,
		"inserted", rep.Inserted,
		"updated", rep.Updated,
		"backfilled", rep.Backfilled,
		"live_picks", rep.LivePicks,
		"paused", rep.Paused,
		"published", rep.Published,
		"duration", rep.Duration.Round(time.Millisecond),
	)
	return rep, nil
}

// Run lanza una pasada inmediata y luego una por intervalo hasta que ctx se cancele.
// La pasada en curso no se cancela: al parar se espera a que termine.
func (s *Scheduler) Run(ctx context.Context) error {
	slog.Info("scheduler starting", "interval", s.interval)

	tickCtx := context.WithoutCancel(ctx)
	fire := func() {
		if s.running.Load() {
			s.dropped.Add(1)
			slog.Debug("tick skipped: previous pass still running")
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_, _ = s.Tick(tickCtx)
		}()
	}

	fire()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping, waiting for current pass")
			s.wg.Wait()
			slog.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			fire()
		}
	}
}

// Heartbeat registra que el proceso sigue vivo.
func (s *Scheduler) Heartbeat() {
	slog.Info("heartbeat",
		"uptime", time.Since(s.started).Round(time.Second),
		"ticks", s.ticks.Load(),
		"dropped", s.dropped.Load(),
		"running", s.running.Load(),
		"last_tick", time.Duration(s.lastTook.Load()).Round(time.Millisecond),
	)
}

// Stats devuelve ticks completados y descartados.
func (s *Scheduler) Stats() (ticks, dropped int64) {
	return s.ticks.Load(), s.dropped.Load()
}
