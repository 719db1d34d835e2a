package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alejandrodnm/copysignal/internal/domain"
	"github.com/alejandrodnm/copysignal/internal/tracker"
)

// Interfaces mínimas de cada etapa del pipeline.
type (
	WalletSource interface {
		Ping(ctx context.Context) error
		ListWallets(ctx context.Context) ([]domain.Wallet, error)
	}
	Reconciler interface {
		Reconcile(ctx context.Context, w domain.Wallet) (tracker.Result, error)
	}
	Backfiller interface {
		Run(ctx context.Context) (int, error)
	}
	ProjectionBuilder interface {
		Rebuild(ctx context.Context) (int, error)
	}
	MetricsEvaluator interface {
		EvaluateAll(ctx context.Context, wallets []domain.Wallet) (int, error)
	}
	SignalPublisher interface {
		Publish(ctx context.Context) (int, error)
	}
)

// PipelineConfig controla el fan-out y el backfill.
type PipelineConfig struct {
	Workers   int
	Reprocess bool
}

// Pipeline ejecuta una pasada: reconciliar cada wallet ⇒ proyectado ⇒ métricas ⇒ publicar.
type Pipeline struct {
	cfg        PipelineConfig
	store      WalletSource
	reconciler Reconciler
	backfiller Backfiller
	builder    ProjectionBuilder
	evaluator  MetricsEvaluator
	publisher  SignalPublisher
}

// NewPipeline crea el pipeline. backfiller puede ser nil.
func NewPipeline(
	cfg PipelineConfig,
	store WalletSource,
	reconciler Reconciler,
	backfiller Backfiller,
	builder ProjectionBuilder,
	evaluator MetricsEvaluator,
	publisher SignalPublisher,
) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		reconciler: reconciler,
		backfiller: backfiller,
		builder:    builder,
		evaluator:  evaluator,
		publisher:  publisher,
	}
}

// TickReport resume una pasada.
type TickReport struct {
	Wallets    int
	Reconciled int
	Skipped    int
	Failed     int
	Inserted   int
	Updated    int
	Backfilled int
	LivePicks  int
	Paused     int
	Published  int
	Duration   time.Duration
}

// Run ejecuta una pasada completa. Un panic se recupera y se devuelve como error.
func (p *Pipeline) Run(ctx context.Context) (rep TickReport, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panic", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("scheduler.Pipeline.Run: panic: %v", r)
		}
		rep.Duration = time.Since(start)
	}()

	if err := p.store.Ping(ctx); err != nil {
		return rep, fmt.Errorf("scheduler.Pipeline.Run: store unavailable: %w", err)
	}

	if p.cfg.Reprocess && p.backfiller != nil {
		n, err := p.backfiller.Run(ctx)
		if err != nil {
			slog.Warn("backfill failed", "err", err)
		}
		rep.Backfilled = n
	}

	wallets, err := p.store.ListWallets(ctx)
	if err != nil {
		return rep, fmt.Errorf("scheduler.Pipeline.Run: list wallets: %w", err)
	}
	rep.Wallets = len(wallets)
	p.reconcileAll(ctx, wallets, &rep)

	// E ⇒ D ⇒ F, estrictamente en orden.
	rows, err := p.builder.Rebuild(ctx)
	if err != nil {
		return rep, fmt.Errorf("scheduler.Pipeline.Run: rebuild live picks: %w", err)
	}
	rep.LivePicks = rows

	wallets, err = p.store.ListWallets(ctx)
	if err != nil {
		return rep, fmt.Errorf("scheduler.Pipeline.Run: reload wallets: %w", err)
	}
	paused, err := p.evaluator.EvaluateAll(ctx, wallets)
	if err != nil {
		slog.Warn("metrics evaluation incomplete", "err", err)
	}
	rep.Paused = paused

	published, err := p.publisher.Publish(ctx)
	if err != nil {
		return rep, fmt.Errorf("scheduler.Pipeline.Run: publish: %w", err)
	}
	rep.Published = published
	return rep, nil
}

// reconcileAll reparte las wallets en un pool acotado. Los errores por wallet
// se registran y no detienen al resto.
func (p *Pipeline) reconcileAll(ctx context.Context, wallets []domain.Wallet, rep *TickReport) {
	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(p.cfg.Workers)

	for _, w := range wallets {
		g.Go(func() error {
			res, err := p.reconcileOne(ctx, w)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				rep.Failed++
				slog.Warn("wallet reconcile failed", "wallet", w.ProxyAddress, "err", err)
			case res.Skipped:
				rep.Skipped++
			default:
				rep.Reconciled++
				rep.Inserted += res.Inserted
				rep.Updated += res.Updated
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Pipeline) reconcileOne(ctx context.Context, w domain.Wallet) (res tracker.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("reconcile panic", "wallet", w.ProxyAddress, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.reconciler.Reconcile(ctx, w)
}
