package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/copysignal/internal/domain"
	"github.com/alejandrodnm/copysignal/internal/ports"
)

// Config contiene los umbrales de admisión.
type Config struct {
	LosingStreakThreshold int
	WinRateThreshold      float64
}

// Evaluator calcula y persiste las métricas de cada wallet.
type Evaluator struct {
	cfg     Config
	wallets ports.WalletStore
	signals ports.SignalStore
	now     func() time.Time
}

// NewEvaluator crea un Evaluator.
func NewEvaluator(cfg Config, wallets ports.WalletStore, signals ports.SignalStore) *Evaluator {
	return &Evaluator{
		cfg:     cfg,
		wallets: wallets,
		signals: signals,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// MarketWinRate calcula el win rate por mercado, no por señal.
// Cada mercado aporta el outcome de la señal cuyo pick gana por mayoría estricta;
// los mercados empatados no cuentan. Devuelve 0 si ningún mercado cuenta.
func MarketWinRate(resolved []domain.Signal) float64 {
	byMarket := make(map[string][]domain.Signal)
	var order []string
	for _, s := range resolved {
		if _, ok := byMarket[s.MarketSlug]; !ok {
			order = append(order, s.MarketSlug)
		}
		byMarket[s.MarketSlug] = append(byMarket[s.MarketSlug], s)
	}

	wins, counted := 0, 0
	for _, market := range order {
		sigs := byMarket[market]
		picks := make([]string, len(sigs))
		for i, s := range sigs {
			picks[i] = s.PickedOutcome
		}
		top, _, ok := domain.Plurality(picks)
		if !ok {
			continue
		}
		for _, s := range sigs {
			if s.PickedOutcome != top {
				continue
			}
			counted++
			if s.Outcome == domain.OutcomeWin {
				wins++
			}
			break
		}
	}
	if counted == 0 {
		return 0
	}
	return float64(wins) / float64(counted) * 100
}

// LosingStreak cuenta las LOSS consecutivas desde la señal resuelta más reciente.
// resolved debe venir ordenado por created_at ascendente.
func LosingStreak(resolved []domain.Signal) int {
	streak := 0
	for i := len(resolved) - 1; i >= 0; i-- {
		if resolved[i].Outcome != domain.OutcomeLoss {
			break
		}
		streak++
	}
	return streak
}

// Compute deriva las métricas de una wallet a partir de sus señales.
func (e *Evaluator) Compute(resolved []domain.Signal, pending int) domain.WalletMetrics {
	m := domain.WalletMetrics{
		WinRate:      MarketWinRate(resolved),
		LosingStreak: LosingStreak(resolved),
		LivePicks:    pending,
		CheckedAt:    e.now(),
	}
	m.Paused = m.LosingStreak >= e.cfg.LosingStreakThreshold || m.WinRate < e.cfg.WinRateThreshold
	return m
}

// Evaluate recalcula y persiste las métricas de la wallet.
func (e *Evaluator) Evaluate(ctx context.Context, w domain.Wallet) (domain.WalletMetrics, error) {
	resolved, err := e.signals.ListResolvedSignals(ctx, w.ID)
	if err != nil {
		return domain.WalletMetrics{}, fmt.Errorf("metrics.Evaluate: resolved signals: %w", err)
	}
	pending, err := e.signals.CountPendingSignals(ctx, w.ID)
	if err != nil {
		return domain.WalletMetrics{}, fmt.Errorf("metrics.Evaluate: pending signals: %w", err)
	}

	m := e.Compute(resolved, pending)
	if err := e.wallets.SaveMetrics(ctx, w.ID, m); err != nil {
		return domain.WalletMetrics{}, fmt.Errorf("metrics.Evaluate: save: %w", err)
	}

	if m.Paused != w.Paused {
		slog.Info("wallet admission changed",
			"wallet", w.ProxyAddress,
			"paused", m.Paused,
			"win_rate", fmt.Sprintf("%.1f", m.WinRate),
			"losing_streak", m.LosingStreak,
		)
	}
	return m, nil
}

// EvaluateAll evalúa todas las wallets. Un fallo en una wallet no detiene el resto;
// devuelve el número de wallets pausadas y el primer error.
func (e *Evaluator) EvaluateAll(ctx context.Context, wallets []domain.Wallet) (int, error) {
	paused := 0
	var firstErr error
	for _, w := range wallets {
		m, err := e.Evaluate(ctx, w)
		if err != nil {
			slog.Warn("wallet evaluation failed", "wallet", w.ProxyAddress, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if m.Paused {
			paused++
		}
	}
	return paused, firstErr
}
