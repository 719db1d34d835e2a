package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/copysignal/internal/domain"
	"github.com/alejandrodnm/copysignal/internal/ports"
)

// Backfiller resuelve señales Pending consultando el evento cacheado.
// Se usa con REPROCESS=true al inicio de cada pasada.
type Backfiller struct {
	events  ports.EventProvider
	signals ports.SignalStore
	now     func() time.Time
}

// NewBackfiller crea un Backfiller.
func NewBackfiller(events ports.EventProvider, signals ports.SignalStore) *Backfiller {
	return &Backfiller{
		events:  events,
		signals: signals,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run resuelve las señales Pending cuyo mercado ya está cerrado con ganador.
// Devuelve cuántas señales pasaron a WIN o LOSS.
func (b *Backfiller) Run(ctx context.Context) (int, error) {
	pending, err := b.signals.ListPendingWithEvent(ctx)
	if err != nil {
		return 0, fmt.Errorf("tracker.Backfiller.Run: list pending: %w", err)
	}

	// (wallet, mercado) ya decididos en esta pasada.
	decided := make(map[[2]string]bool)
	resolved := 0
	for _, sig := range pending {
		key := [2]string{sig.WalletID, sig.MarketSlug}
		if decided[key] {
			continue
		}

		ev, err := b.events.FetchEvent(ctx, sig.EventSlug)
		if err != nil {
			slog.Warn("event lookup failed", "event", sig.EventSlug, "err", err)
			continue
		}
		if ev == nil {
			continue
		}
		m, ok := ev.Market(sig.MarketSlug)
		if !ok {
			continue
		}
		winner, ok := m.Winner()
		if !ok {
			continue
		}

		at := b.now()
		sig.ResolvedOutcome = winner
		sig.OutcomeAt = &at
		if sig.PickedOutcome == winner {
			sig.Outcome = domain.OutcomeWin
		} else {
			sig.Outcome = domain.OutcomeLoss
		}
		if err := b.signals.UpdateSignalResolution(ctx, sig); err != nil {
			return resolved, fmt.Errorf("tracker.Backfiller.Run: update %s: %w", sig.MarketSlug, err)
		}
		decided[key] = true
		resolved++
	}

	if resolved > 0 {
		slog.Info("backfill resolved signals", "count", resolved, "pending", len(pending))
	}
	return resolved, nil
}
