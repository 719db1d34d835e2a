package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copysignal/internal/adapters/storage"
	"github.com/alejandrodnm/copysignal/internal/domain"
)

func newStore(t *testing.T) *storage.SQLStorage {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func addWallet(t *testing.T, db *storage.SQLStorage, addr string) domain.Wallet {
	t.Helper()
	w := domain.Wallet{
		ID:           "w-" + addr,
		ProxyAddress: addr,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	ok, err := db.InsertWallet(context.Background(), w)
	require.NoError(t, err)
	require.True(t, ok)
	return w
}

func makeSignal(walletID, market, asset, pick string, created time.Time) domain.Signal {
	return domain.Signal{
		WalletID:      walletID,
		MarketSlug:    market,
		EventSlug:     "ev-" + market,
		MarketName:    "Market " + market,
		PickedOutcome: pick,
		Side:          domain.SideBuy,
		Asset:         asset,
		Outcome:       domain.OutcomePending,
		CreatedAt:     created,
	}
}

func pnl(v float64) *float64 { return &v }

func TestOpen_AppliesSchemaTwice(t *testing.T) {
	db := newStore(t)
	require.NoError(t, db.Ping(context.Background()))

	// Reabrir el mismo DSN de fichero no debe fallar por CREATE TABLE.
	path := t.TempDir() + "/copysignal.db"
	a, err := storage.Open(context.Background(), "sqlite://"+path)
	require.NoError(t, err)
	require.NoError(t, a.Close())
	b, err := storage.Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestWallets_InsertIsIdempotentByAddress(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	addWallet(t, db, "0xabc")

	ok, err := db.InsertWallet(ctx, domain.Wallet{ProxyAddress: "0xabc"})
	require.NoError(t, err)
	assert.False(t, ok)

	ws, err := db.ListWallets(ctx)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "w-0xabc", ws[0].ID)
	assert.Nil(t, ws[0].LastChecked)
}

func TestWallets_FlagsAndMetrics(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	w := addWallet(t, db, "0xabc")

	require.NoError(t, db.SetPaused(ctx, w.ID, true))
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveMetrics(ctx, w.ID, domain.WalletMetrics{
		WinRate: 66.5, LosingStreak: 3, LivePicks: 4, Paused: false, CheckedAt: at,
	}))

	got, err := db.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, got.Paused)
	assert.InDelta(t, 66.5, got.WinRate, 0.001)
	assert.Equal(t, 3, got.LosingStreak)
	assert.Equal(t, 4, got.LivePicks)
	require.NotNil(t, got.LastChecked)
	assert.True(t, at.Equal(*got.LastChecked))

	_, err = db.GetWallet(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, db.SetPaused(ctx, "missing", true), storage.ErrNotFound)
}

func TestWallets_ClearForceFetch(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	ok, err := db.InsertWallet(ctx, domain.Wallet{ID: "w1", ProxyAddress: "0x1", ForceFetch: true})
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.ClearForceFetch(ctx, "w1"))
	got, err := db.GetWallet(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, got.ForceFetch)
}

func TestSignals_InsertIsIdempotent(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	w := addWallet(t, db, "0xabc")
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	ok, err := db.InsertSignal(ctx, makeSignal(w.ID, "m1", "a1", "Yes", created))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.InsertSignal(ctx, makeSignal(w.ID, "m1", "a1", "Yes", created))
	require.NoError(t, err)
	assert.False(t, ok)

	// Otro asset del mismo mercado es otra señal.
	ok, err = db.InsertSignal(ctx, makeSignal(w.ID, "m1", "a2", "No", created))
	require.NoError(t, err)
	assert.True(t, ok)

	sigs, err := db.ListSignalsByWallet(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, sigs, 2)
	assert.Equal(t, domain.OutcomePending, sigs[0].Outcome)
	assert.Nil(t, sigs[0].PnL)
	assert.True(t, created.Equal(sigs[0].CreatedAt))
}

func TestSignals_UpdateResolution(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	w := addWallet(t, db, "0xabc")
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	_, err := db.InsertSignal(ctx, makeSignal(w.ID, "m1", "a1", "Yes", created))
	require.NoError(t, err)

	sigs, err := db.ListSignalsByWallet(ctx, w.ID)
	require.NoError(t, err)
	sig := sigs[0]
	at := created.Add(time.Hour)
	sig.PnL = pnl(12.5)
	sig.Outcome = domain.OutcomeWin
	sig.ResolvedOutcome = "Yes"
	sig.OutcomeAt = &at
	require.NoError(t, db.UpdateSignalResolution(ctx, sig))

	resolved, err := db.ListResolvedSignals(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, domain.OutcomeWin, resolved[0].Outcome)
	assert.Equal(t, "Yes", resolved[0].ResolvedOutcome)
	require.NotNil(t, resolved[0].PnL)
	assert.InDelta(t, 12.5, *resolved[0].PnL, 0.001)

	n, err := db.CountPendingSignals(ctx, w.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSignals_ListResolvedOrdersByCreation(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	w := addWallet(t, db, "0xabc")
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	for i, m := range []string{"m3", "m1", "m2"} {
		s := makeSignal(w.ID, m, "a-"+m, "Yes", base.Add(time.Duration(2-i)*time.Hour))
		s.Outcome = domain.OutcomeLoss
		s.ResolvedOutcome = "No"
		_, err := db.InsertSignal(ctx, s)
		require.NoError(t, err)
	}

	resolved, err := db.ListResolvedSignals(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, resolved, 3)
	assert.Equal(t, "m2", resolved[0].MarketSlug)
	assert.Equal(t, "m1", resolved[1].MarketSlug)
	assert.Equal(t, "m3", resolved[2].MarketSlug)
}

func TestSignals_LiveCandidatesExcludeDecidedMarkets(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	w := addWallet(t, db, "0xabc")
	other := addWallet(t, db, "0xdef")
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	// m1: una hermana terminal y otra pendiente → fuera.
	win := makeSignal(w.ID, "m1", "a1", "Yes", base)
	win.Outcome = domain.OutcomeWin
	win.ResolvedOutcome = "Yes"
	_, err := db.InsertSignal(ctx, win)
	require.NoError(t, err)
	_, err = db.InsertSignal(ctx, makeSignal(w.ID, "m1", "a2", "No", base))
	require.NoError(t, err)

	// m2: pendiente → dentro. Sin pick → fuera.
	_, err = db.InsertSignal(ctx, makeSignal(w.ID, "m2", "b1", "Yes", base))
	require.NoError(t, err)
	_, err = db.InsertSignal(ctx, makeSignal(w.ID, "m4", "d1", "", base))
	require.NoError(t, err)

	// Otra wallet no pedida.
	_, err = db.InsertSignal(ctx, makeSignal(other.ID, "m3", "c1", "Yes", base))
	require.NoError(t, err)

	got, err := db.ListLiveCandidates(ctx, []string{w.ID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m2", got[0].MarketSlug)

	none, err := db.ListLiveCandidates(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSignals_MarkSentNeverOverwrites(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	a := addWallet(t, db, "0xa")
	b := addWallet(t, db, "0xb")
	base := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	_, err := db.InsertSignal(ctx, makeSignal(a.ID, "m1", "x", "Yes", base))
	require.NoError(t, err)
	_, err = db.InsertSignal(ctx, makeSignal(b.ID, "m1", "x", "Yes", base))
	require.NoError(t, err)

	sent, err := db.MarketAlreadySent(ctx, "m1", "Yes")
	require.NoError(t, err)
	assert.False(t, sent)

	first := base.Add(time.Hour)
	n, err := db.MarkSent(ctx, "m1", "Yes", []string{a.ID, b.ID}, first)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = db.MarkSent(ctx, "m1", "Yes", []string{a.ID, b.ID}, first.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	sigs, err := db.ListSignalsByWallet(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, sigs[0].SentAt)
	assert.True(t, first.Equal(*sigs[0].SentAt))

	sent, err = db.MarketAlreadySent(ctx, "m1", "Yes")
	require.NoError(t, err)
	assert.True(t, sent)

	pending, err := db.ListSentPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestSignals_ListSentResolvedBetween(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	w := addWallet(t, db, "0xa")
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	for i, at := range []time.Time{day.Add(-time.Hour), day.Add(5 * time.Hour), day.Add(25 * time.Hour)} {
		s := makeSignal(w.ID, "m", string(rune('a'+i)), "Yes", day.Add(-48*time.Hour))
		s.Outcome = domain.OutcomeWin
		s.ResolvedOutcome = "Yes"
		at := at
		s.OutcomeAt = &at
		s.SentAt = &s.CreatedAt
		_, err := db.InsertSignal(ctx, s)
		require.NoError(t, err)
	}

	got, err := db.ListSentResolvedBetween(ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Asset)
}

func TestLivePicks_ReplaceTruncates(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	first := []domain.LivePick{
		{WalletID: "w1", MarketSlug: "m1", PickedOutcome: "Yes", Outcome: domain.OutcomePending, FetchedAt: now, VoteCount: 2},
		{WalletID: "w2", MarketSlug: "m1", PickedOutcome: "Yes", Outcome: domain.OutcomePending, FetchedAt: now, VoteCount: 2},
	}
	require.NoError(t, db.ReplaceLivePicks(ctx, first))

	got, err := db.ListLivePicks(ctx, domain.OutcomePending)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].VoteCount)
	assert.Equal(t, domain.SideBuy, got[0].Side)

	require.NoError(t, db.ReplaceLivePicks(ctx, first[:1]))
	got, err = db.ListLivePicks(ctx, domain.OutcomePending)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	require.NoError(t, db.ReplaceLivePicks(ctx, nil))
	got, err = db.ListLivePicks(ctx, domain.OutcomePending)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNotes_GetAndSave(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()

	n, found, err := db.GetNote(ctx, "copy-signals")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "copy-signals", n.Slug)

	require.NoError(t, db.SaveNote(ctx, domain.Note{Slug: "copy-signals", Content: "a", IsPublic: true}))
	require.NoError(t, db.SaveNote(ctx, domain.Note{Slug: "copy-signals", Content: "b", IsPublic: true}))

	n, found, err = db.GetNote(ctx, "copy-signals")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "b", n.Content)
	assert.True(t, n.IsPublic)
}
