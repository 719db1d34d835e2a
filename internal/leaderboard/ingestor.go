package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/copysignal/internal/domain"
	"github.com/alejandrodnm/copysignal/internal/ports"
	"github.com/alejandrodnm/copysignal/internal/tracker"
)

// Config define los buckets y el filtro de calidad.
type Config struct {
	Categories []string
	Periods    []string
	Limit      int
	PnLMin     float64
	VolMult    float64
}

// DefaultConfig devuelve los buckets habituales del leaderboard.
func DefaultConfig() Config {
	return Config{
		Categories: []string{"OVERALL", "POLITICS", "SPORTS", "CRYPTO"},
		Periods:    []string{"DAY", "WEEK", "MONTH"},
		Limit:      50,
		PnLMin:     1000,
		VolMult:    10,
	}
}

// Seeder reconcilia una wallet recién dada de alta.
type Seeder interface {
	Reconcile(ctx context.Context, w domain.Wallet) (tracker.Result, error)
}

// Report resume una ingesta.
type Report struct {
	Fetched   int
	Qualified int
	Inserted  int
	Seeded    int
}

// Ingestor da de alta wallets del leaderboard y siembra su historial.
type Ingestor struct {
	cfg     Config
	board   ports.LeaderboardProvider
	wallets ports.WalletStore
	seeder  Seeder
	now     func() time.Time
}

// NewIngestor crea un Ingestor.
func NewIngestor(cfg Config, board ports.LeaderboardProvider, wallets ports.WalletStore, seeder Seeder) *Ingestor {
	return &Ingestor{
		cfg:     cfg,
		board:   board,
		wallets: wallets,
		seeder:  seeder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run recorre todos los buckets (categoría × periodo). Un bucket que falla se
// registra y se salta; solo los errores del store abortan.
func (in *Ingestor) Run(ctx context.Context) (Report, error) {
	var rep Report

	existing, err := in.wallets.ListWallets(ctx)
	if err != nil {
		return rep, fmt.Errorf("leaderboard.Run: list wallets: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, w := range existing {
		known[strings.ToLower(w.ProxyAddress)] = true
	}

	for _, category := range in.cfg.Categories {
		for _, period := range in.cfg.Periods {
			entries, err := in.board.FetchLeaderboard(ctx, category, period, in.cfg.Limit)
			if err != nil {
				slog.Warn("leaderboard fetch failed", "category", category, "period", period, "err", err)
				continue
			}
			rep.Fetched += len(entries)

			for _, e := range entries {
				if !e.Qualifies(in.cfg.PnLMin, in.cfg.VolMult) {
					continue
				}
				rep.Qualified++
				if err := in.admit(ctx, e, known, &rep); err != nil {
					return rep, err
				}
			}
		}
	}

	slog.Info("leaderboard ingested",
		"fetched", rep.Fetched,
		"qualified", rep.Qualified,
		"inserted", rep.Inserted,
		"seeded", rep.Seeded,
	)
	return rep, nil
}

func (in *Ingestor) admit(ctx context.Context, e domain.LeaderboardEntry, known map[string]bool, rep *Report) error {
	addr := strings.ToLower(e.ProxyWallet)
	if known[addr] {
		return nil
	}
	known[addr] = true

	w := domain.Wallet{
		ID:           uuid.New().String(),
		ProxyAddress: addr,
		DisplayName:  e.UserName,
		ForceFetch:   true,
		CreatedAt:    in.now(),
	}
	inserted, err := in.wallets.InsertWallet(ctx, w)
	if err != nil {
		return fmt.Errorf("leaderboard.admit: insert %s: %w", addr, err)
	}
	if !inserted {
		return nil
	}
	rep.Inserted++
	slog.Info("wallet added from leaderboard", "wallet", addr, "name", e.UserName, "pnl", e.PnL)

	if in.seeder == nil {
		return nil
	}
	if _, err := in.seeder.Reconcile(ctx, w); err != nil {
		// El flag force_fetch sigue puesto: el siguiente tick lo reintenta.
		slog.Warn("wallet seed failed", "wallet", addr, "err", err)
		return nil
	}
	rep.Seeded++
	return nil
}

// Seed da de alta direcciones a mano con force_fetch y las reconcilia.
func (in *Ingestor) Seed(ctx context.Context, addresses []string) (Report, error) {
	var rep Report
	known := make(map[string]bool)
	for _, a := range addresses {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		rep.Qualified++
		if err := in.admit(ctx, domain.LeaderboardEntry{ProxyWallet: a}, known, &rep); err != nil {
			return rep, err
		}
	}
	return rep, nil
}
