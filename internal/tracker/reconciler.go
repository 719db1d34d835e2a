package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/copysignal/internal/domain"
	"github.com/alejandrodnm/copysignal/internal/ports"
)

// Config contiene los umbrales que usa el reconciliador.
type Config struct {
	// WinRateThreshold es el win rate (0-100) a partir del cual una wallet pausada se reactiva.
	WinRateThreshold float64
}

// Result resume una reconciliación.
type Result struct {
	Skipped  bool
	Unpaused bool
	Inserted int
	Updated  int
}

// Reconciler cruza posiciones y trades de una wallet con sus señales persistidas.
type Reconciler struct {
	cfg      Config
	activity ports.ActivityProvider
	wallets  ports.WalletStore
	signals  ports.SignalStore
	now      func() time.Time
}

// NewReconciler crea un Reconciler con las dependencias inyectadas.
func NewReconciler(cfg Config, activity ports.ActivityProvider, wallets ports.WalletStore, signals ports.SignalStore) *Reconciler {
	return &Reconciler{
		cfg:      cfg,
		activity: activity,
		wallets:  wallets,
		signals:  signals,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// marketIndex es el estado en memoria de las señales de una wallet.
type marketIndex struct {
	byMarket map[string][]*domain.Signal // por created_at ascendente
	byAsset  map[string]*domain.Signal
}

func newMarketIndex(sigs []domain.Signal) *marketIndex {
	idx := &marketIndex{
		byMarket: make(map[string][]*domain.Signal),
		byAsset:  make(map[string]*domain.Signal),
	}
	for i := range sigs {
		idx.add(&sigs[i])
	}
	return idx
}

func (idx *marketIndex) add(s *domain.Signal) {
	idx.byMarket[s.MarketSlug] = append(idx.byMarket[s.MarketSlug], s)
	idx.byAsset[s.Asset] = s
}

// decided devuelve la señal terminal del mercado, si la hay.
func (idx *marketIndex) decided(market string) *domain.Signal {
	for _, s := range idx.byMarket[market] {
		if s.Outcome.Terminal() {
			return s
		}
	}
	return nil
}

// target elige la señal del mercado que recibe la resolución de una posición:
// la ya terminal, si no la del mismo asset, si no la más antigua.
func (idx *marketIndex) target(market, asset string) *domain.Signal {
	sigs := idx.byMarket[market]
	if len(sigs) == 0 {
		return nil
	}
	if s := idx.decided(market); s != nil {
		return s
	}
	for _, s := range sigs {
		if s.Asset == asset {
			return s
		}
	}
	return sigs[0]
}

// Reconcile sincroniza las señales de la wallet con la actividad upstream.
// Los fallos de fetch no son fatales: la fuente que falla aporta una lista vacía.
// Los fallos del store sí se devuelven.
func (r *Reconciler) Reconcile(ctx context.Context, w domain.Wallet) (Result, error) {
	var res Result
	if w.ProxyAddress == "" {
		res.Skipped = true
		return res, nil
	}

	// Reactivación automática si el win rate ya se ha recuperado.
	if w.Paused && w.WinRate >= r.cfg.WinRateThreshold {
		if err := r.wallets.SetPaused(ctx, w.ID, false); err != nil {
			return res, fmt.Errorf("tracker.Reconcile: unpause %s: %w", w.ProxyAddress, err)
		}
		w.Paused = false
		res.Unpaused = true
		slog.Info("wallet unpaused", "wallet", w.ProxyAddress, "win_rate", w.WinRate)
	}
	if w.Paused && !w.ForceFetch {
		res.Skipped = true
		return res, nil
	}

	positions, err := r.activity.FetchPositions(ctx, w.ProxyAddress)
	if err != nil {
		slog.Warn("positions fetch failed", "wallet", w.ProxyAddress, "err", err)
		positions = nil
	}
	trades, err := r.activity.FetchTrades(ctx, w.ProxyAddress)
	if err != nil {
		slog.Warn("trades fetch failed", "wallet", w.ProxyAddress, "err", err)
		trades = nil
	}

	existing, err := r.signals.ListSignalsByWallet(ctx, w.ID)
	if err != nil {
		return res, fmt.Errorf("tracker.Reconcile: load signals: %w", err)
	}
	idx := newMarketIndex(existing)
	now := r.now()

	for _, p := range positions {
		if err := r.applyPosition(ctx, w, idx, p, now, &res); err != nil {
			return res, err
		}
	}

	if err := r.applyTrades(ctx, w, idx, positions, trades, now, &res); err != nil {
		return res, err
	}

	if err := r.wallets.TouchWallet(ctx, w.ID, now); err != nil {
		return res, fmt.Errorf("tracker.Reconcile: touch: %w", err)
	}
	if w.ForceFetch {
		if err := r.wallets.ClearForceFetch(ctx, w.ID); err != nil {
			return res, fmt.Errorf("tracker.Reconcile: clear force fetch: %w", err)
		}
	}

	slog.Debug("wallet reconciled",
		"wallet", w.ProxyAddress,
		"positions", len(positions),
		"trades", len(trades),
		"inserted", res.Inserted,
		"updated", res.Updated,
	)
	return res, nil
}

// applyPosition actualiza la señal del mercado o inserta una nueva.
func (r *Reconciler) applyPosition(ctx context.Context, w domain.Wallet, idx *marketIndex, p domain.Position, now time.Time, res *Result) error {
	market := p.MarketSlug()
	if market == "" || p.Asset == "" {
		return nil
	}
	pick := p.Pick()
	outcome, resolvedOutcome := domain.Classify(p.Resolved, p.CashPnl, pick, p.OppositeOutcome)

	if sig := idx.target(market, p.Asset); sig != nil {
		if sig.Outcome.Terminal() {
			// Un mercado decidido solo lo reescribe la posición de su propio asset,
			// y nunca de vuelta a Pending.
			if sig.Asset != p.Asset || !outcome.Terminal() {
				return nil
			}
		}
		if domain.SameFloat(sig.PnL, p.CashPnl) && sig.Outcome == outcome && sig.ResolvedOutcome == resolvedOutcome {
			return nil
		}

		changed := sig.Outcome != outcome
		sig.PnL = p.CashPnl
		sig.Outcome = outcome
		sig.ResolvedOutcome = resolvedOutcome
		if p.CashPnl != nil && (sig.OutcomeAt == nil || changed) {
			at := now
			sig.OutcomeAt = &at
		}
		if err := r.signals.UpdateSignalResolution(ctx, *sig); err != nil {
			return fmt.Errorf("tracker.applyPosition: update %s: %w", market, err)
		}
		res.Updated++
		return nil
	}

	if _, ok := idx.byAsset[p.Asset]; ok {
		return nil
	}

	sig := domain.Signal{
		WalletID:        w.ID,
		MarketSlug:      market,
		EventSlug:       p.EventKey(),
		MarketName:      p.Title,
		PickedOutcome:   pick,
		OppositeOutcome: p.OppositeOutcome,
		Side:            domain.ParseSide(p.Side),
		Asset:           p.Asset,
		PnL:             p.CashPnl,
		Outcome:         outcome,
		ResolvedOutcome: resolvedOutcome,
		WinRate:         w.WinRate,
		CreatedAt:       p.OpenedAt(now),
	}
	if p.CashPnl != nil {
		at := now
		sig.OutcomeAt = &at
	}
	return r.insert(ctx, idx, sig, res)
}

// applyTrades inserta como Pending los trades de eventos que siguen abiertos.
func (r *Reconciler) applyTrades(ctx context.Context, w domain.Wallet, idx *marketIndex, positions []domain.Position, trades []domain.Trade, now time.Time, res *Result) error {
	if len(trades) == 0 {
		return nil
	}

	openEvents := make(map[string]bool)
	closedMarkets := make(map[string]bool)
	for _, p := range positions {
		if !p.Resolved || p.CashPnl == nil {
			openEvents[p.EventKey()] = true
		} else {
			closedMarkets[p.MarketSlug()] = true
		}
	}

	for _, t := range trades {
		market := t.MarketSlug()
		switch {
		case t.Asset == "" || market == "":
			continue
		case !openEvents[t.EventKey()]:
			continue
		case closedMarkets[market] || idx.decided(market) != nil:
			continue
		}
		if _, ok := idx.byAsset[t.Asset]; ok {
			continue
		}

		sig := domain.Signal{
			WalletID:      w.ID,
			MarketSlug:    market,
			EventSlug:     t.EventKey(),
			MarketName:    t.Title,
			PickedOutcome: t.Pick(),
			Side:          domain.ParseSide(t.Side),
			Asset:         t.Asset,
			Outcome:       domain.OutcomePending,
			WinRate:       w.WinRate,
			CreatedAt:     t.ExecutedAt(now),
		}
		if err := r.insert(ctx, idx, sig, res); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reconciler) insert(ctx context.Context, idx *marketIndex, sig domain.Signal, res *Result) error {
	sig.ID = uuid.New().String()
	ok, err := r.signals.InsertSignal(ctx, sig)
	if err != nil {
		return fmt.Errorf("tracker.insert: %s/%s: %w", sig.MarketSlug, sig.Asset, err)
	}
	if !ok {
		// Ya existía con otro id: solo se marca el asset como visto.
		idx.byAsset[sig.Asset] = &sig
		return nil
	}
	res.Inserted++
	idx.add(&sig)
	return nil
}
