package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copysignal/internal/adapters/storage"
	"github.com/alejandrodnm/copysignal/internal/domain"
)

type recordingChat struct{ messages []string }

func (r *recordingChat) Publish(_ context.Context, text string) error {
	r.messages = append(r.messages, text)
	return nil
}

func f64(v float64) *float64 { return &v }

func TestSummarizer_YesterdayInZone(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	madrid := time.FixedZone("CET", 3600)
	// 07:00 en Madrid el 2 de marzo.
	now := time.Date(2026, 3, 2, 7, 0, 0, 0, madrid)
	sent := now.Add(-72 * time.Hour)

	add := func(wallet, market, asset, pick string, outcome domain.Outcome, resolved string, pnl *float64, at time.Time) {
		_, err := db.InsertWallet(ctx, domain.Wallet{ID: wallet, ProxyAddress: "0x" + wallet})
		require.NoError(t, err)
		s := domain.Signal{
			WalletID:        wallet,
			MarketSlug:      market,
			MarketName:      "Market " + market,
			PickedOutcome:   pick,
			Asset:           asset,
			Outcome:         outcome,
			ResolvedOutcome: resolved,
			PnL:             pnl,
			CreatedAt:       sent,
			SentAt:          &sent,
		}
		if outcome.Terminal() {
			s.OutcomeAt = &at
		}
		_, err = db.InsertSignal(ctx, s)
		require.NoError(t, err)
	}

	yesterday := time.Date(2026, 3, 1, 12, 0, 0, 0, madrid)
	add("a", "m1", "a1", "YES", domain.OutcomeWin, "YES", f64(10.10), yesterday)
	add("b", "m1", "b1", "YES", domain.OutcomeWin, "YES", f64(0.20), yesterday)
	add("c", "m2", "c1", "YES", domain.OutcomeLoss, "NO", f64(-5), yesterday)
	// Resuelta hoy: fuera del resumen.
	add("d", "m3", "d1", "YES", domain.OutcomeWin, "YES", f64(1), now.Add(-time.Hour))
	add("e", "m4", "e1", "NO", domain.OutcomePending, "", nil, time.Time{})

	s := NewSummarizer(db, &recordingChat{}, madrid)
	s.now = func() time.Time { return now }

	sum, err := s.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", sum.Day.Format(time.DateOnly))
	require.Len(t, sum.Resolved, 2)
	assert.Equal(t, 1, sum.Wins)
	assert.Equal(t, 1, sum.Losses)
	assert.Equal(t, "5.30", sum.TotalPnL.StringFixed(2))
	assert.Equal(t, 2, sum.Resolved[0].Wallets)
	assert.Equal(t, "10.30", sum.Resolved[0].PnL.StringFixed(2))
	require.Len(t, sum.Pending, 1)
	assert.Equal(t, "m4", sum.Pending[0].MarketSlug)
	assert.InDelta(t, 50, sum.HitRate(), 0.001)
}

func TestSummarizer_SendPublishes(t *testing.T) {
	ctx := context.Background()
	db, err := storage.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	chat := &recordingChat{}
	s := NewSummarizer(db, chat, time.UTC)
	require.NoError(t, s.Send(ctx))
	require.Len(t, chat.messages, 1)
	assert.Contains(t, chat.messages[0], "DAILY SUMMARY")
	assert.Contains(t, chat.messages[0], "No signals resolved yesterday.")
}

func TestSummarize_SellDirection(t *testing.T) {
	sigs := []domain.Signal{{
		WalletID:        "a",
		MarketSlug:      "m1",
		PickedOutcome:   "YES",
		OppositeOutcome: "NO",
		Side:            domain.SideSell,
		Outcome:         domain.OutcomeWin,
		ResolvedOutcome: "NO",
	}}
	lines := summarize(sigs)
	require.Len(t, lines, 1)
	assert.Equal(t, "NO", lines[0].Pick)
}
