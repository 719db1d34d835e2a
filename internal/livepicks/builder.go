package livepicks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/copysignal/internal/domain"
	"github.com/alejandrodnm/copysignal/internal/ports"
)

// Builder reconstruye el proyectado wallet_live_picks a partir de las señales.
type Builder struct {
	minWinRate float64
	wallets    ports.WalletStore
	signals    ports.SignalStore
	picks      ports.LivePickStore
	now        func() time.Time
}

// NewBuilder crea un Builder. minWinRate es el umbral de elegibilidad (0-100).
func NewBuilder(minWinRate float64, wallets ports.WalletStore, signals ports.SignalStore, picks ports.LivePickStore) *Builder {
	return &Builder{
		minWinRate: minWinRate,
		wallets:    wallets,
		signals:    signals,
		picks:      picks,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Rebuild trunca y reinserta el proyectado. Devuelve el número de filas escritas.
func (b *Builder) Rebuild(ctx context.Context) (int, error) {
	wallets, err := b.wallets.ListWallets(ctx)
	if err != nil {
		return 0, fmt.Errorf("livepicks.Rebuild: list wallets: %w", err)
	}

	eligible := Eligible(wallets, b.minWinRate)
	ids := make([]string, 0, len(eligible))
	for id := range eligible {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var candidates []domain.Signal
	if len(ids) > 0 {
		candidates, err = b.signals.ListLiveCandidates(ctx, ids)
		if err != nil {
			return 0, fmt.Errorf("livepicks.Rebuild: load signals: %w", err)
		}
	}

	rows := Build(eligible, candidates, b.now())
	if err := b.picks.ReplaceLivePicks(ctx, rows); err != nil {
		return 0, fmt.Errorf("livepicks.Rebuild: replace: %w", err)
	}

	slog.Debug("live picks rebuilt",
		"eligible_wallets", len(eligible),
		"candidates", len(candidates),
		"rows", len(rows),
	)
	return len(rows), nil
}

// Eligible filtra las wallets que pueden votar, indexadas por id.
func Eligible(wallets []domain.Wallet, minWinRate float64) map[string]domain.Wallet {
	out := make(map[string]domain.Wallet)
	for _, w := range wallets {
		if w.Eligible(minWinRate) {
			out[w.ID] = w
		}
	}
	return out
}

type walletEvent struct {
	wallet string
	event  string
}

type marketPick struct {
	market string
	pick   string
}

// Build es la parte pura del builder: dado el conjunto elegible y sus señales
// Pending, devuelve las filas del proyectado en orden determinista.
func Build(eligible map[string]domain.Wallet, signals []domain.Signal, fetchedAt time.Time) []domain.LivePick {
	groups := make(map[walletEvent][]domain.Signal)
	for _, s := range signals {
		if _, ok := eligible[s.WalletID]; !ok {
			continue
		}
		if s.Outcome != domain.OutcomePending || s.PickedOutcome == "" {
			continue
		}
		key := walletEvent{s.WalletID, eventKey(s)}
		groups[key] = append(groups[key], s)
	}

	// Pick mayoritario de cada wallet en cada evento; los empates se abstienen.
	votes := make(map[marketPick]map[string]domain.Signal)
	for key, sigs := range groups {
		picks := make([]string, len(sigs))
		for i, s := range sigs {
			picks[i] = s.PickedOutcome
		}
		winner, _, ok := domain.Plurality(picks)
		if !ok {
			continue
		}
		for _, s := range sigs {
			if s.PickedOutcome != winner {
				continue
			}
			mp := marketPick{s.MarketSlug, winner}
			if votes[mp] == nil {
				votes[mp] = make(map[string]domain.Signal)
			}
			if prev, seen := votes[mp][key.wallet]; !seen || s.CreatedAt.Before(prev.CreatedAt) {
				votes[mp][key.wallet] = s
			}
		}
	}

	rows := make([]domain.LivePick, 0, len(votes))
	for mp, byWallet := range votes {
		count := len(byWallet)
		for walletID, s := range byWallet {
			rows = append(rows, domain.LivePick{
				WalletID:        walletID,
				MarketSlug:      mp.market,
				EventSlug:       s.EventSlug,
				MarketName:      s.MarketName,
				PickedOutcome:   mp.pick,
				Side:            s.Side,
				PnL:             s.PnL,
				Outcome:         s.Outcome,
				ResolvedOutcome: s.ResolvedOutcome,
				FetchedAt:       fetchedAt,
				VoteCount:       count,
				WinRate:         eligible[walletID].WinRate,
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.MarketSlug != b.MarketSlug {
			return a.MarketSlug < b.MarketSlug
		}
		if a.PickedOutcome != b.PickedOutcome {
			return a.PickedOutcome < b.PickedOutcome
		}
		return a.WalletID < b.WalletID
	})
	return rows
}

// eventKey agrupa por evento; sin event slug el mercado es su propio evento.
func eventKey(s domain.Signal) string {
	if s.EventSlug != "" {
		return s.EventSlug
	}
	return s.MarketSlug
}
