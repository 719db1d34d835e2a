package leaderboard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copysignal/internal/adapters/storage"
	"github.com/alejandrodnm/copysignal/internal/domain"
	"github.com/alejandrodnm/copysignal/internal/leaderboard"
	"github.com/alejandrodnm/copysignal/internal/tracker"
)

type fakeBoard struct {
	pages map[string][]domain.LeaderboardEntry
	fail  map[string]bool
	calls []string
}

func (f *fakeBoard) FetchLeaderboard(_ context.Context, category, period string, _ int) ([]domain.LeaderboardEntry, error) {
	key := category + "/" + period
	f.calls = append(f.calls, key)
	if f.fail[key] {
		return nil, errors.New("boom")
	}
	return f.pages[key], nil
}

type fakeSeeder struct {
	seeded []domain.Wallet
	err    error
}

func (f *fakeSeeder) Reconcile(_ context.Context, w domain.Wallet) (tracker.Result, error) {
	f.seeded = append(f.seeded, w)
	return tracker.Result{}, f.err
}

func newStore(t *testing.T) *storage.SQLStorage {
	t.Helper()
	db, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func cfg() leaderboard.Config {
	return leaderboard.Config{
		Categories: []string{"OVERALL", "SPORTS"},
		Periods:    []string{"WEEK"},
		Limit:      50,
		PnLMin:     1000,
		VolMult:    10,
	}
}

func TestRun_DeduplicatesAcrossBuckets(t *testing.T) {
	db := newStore(t)
	p := domain.LeaderboardEntry{ProxyWallet: "0xP", UserName: "whale", PnL: 5000, Volume: 20000}
	board := &fakeBoard{pages: map[string][]domain.LeaderboardEntry{
		"OVERALL/WEEK": {p},
		"SPORTS/WEEK":  {p},
	}}
	seeder := &fakeSeeder{}

	rep, err := leaderboard.NewIngestor(cfg(), board, db, seeder).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Fetched)
	assert.Equal(t, 1, rep.Inserted)
	assert.Equal(t, 1, rep.Seeded)
	require.Len(t, seeder.seeded, 1)
	assert.True(t, seeder.seeded[0].ForceFetch)
	assert.False(t, seeder.seeded[0].Paused)

	ws, err := db.ListWallets(context.Background())
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "0xp", ws[0].ProxyAddress)
	assert.Equal(t, "whale", ws[0].DisplayName)

	// Una segunda ingesta no inserta nada.
	rep, err = leaderboard.NewIngestor(cfg(), board, db, seeder).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, rep.Inserted)
	assert.Len(t, seeder.seeded, 1)
}

func TestRun_FiltersByPnLAndVolume(t *testing.T) {
	db := newStore(t)
	board := &fakeBoard{pages: map[string][]domain.LeaderboardEntry{
		"OVERALL/WEEK": {
			{ProxyWallet: "0xsmall", PnL: 500, Volume: 100},
			{ProxyWallet: "0xchurn", PnL: 2000, Volume: 20000},
			{ProxyWallet: "0xgood", PnL: 2000, Volume: 19999},
		},
	}}

	rep, err := leaderboard.NewIngestor(cfg(), board, db, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Qualified)
	assert.Equal(t, 1, rep.Inserted)
	assert.Zero(t, rep.Seeded)
}

func TestRun_FailedBucketIsSkipped(t *testing.T) {
	db := newStore(t)
	board := &fakeBoard{
		pages: map[string][]domain.LeaderboardEntry{
			"SPORTS/WEEK": {{ProxyWallet: "0xa", PnL: 5000, Volume: 1}},
		},
		fail: map[string]bool{"OVERALL/WEEK": true},
	}

	rep, err := leaderboard.NewIngestor(cfg(), board, db, &fakeSeeder{err: errors.New("upstream")}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"OVERALL/WEEK", "SPORTS/WEEK"}, board.calls)
	assert.Equal(t, 1, rep.Inserted)
	assert.Zero(t, rep.Seeded)

	// La wallet queda con force_fetch para el siguiente tick.
	ws, err := db.ListWallets(context.Background())
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.True(t, ws[0].ForceFetch)
}

func TestSeed_ManualAddresses(t *testing.T) {
	db := newStore(t)
	seeder := &fakeSeeder{}
	in := leaderboard.NewIngestor(cfg(), &fakeBoard{}, db, seeder)

	rep, err := in.Seed(context.Background(), []string{"0xA", " ", "0xa", "0xB"})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Inserted)
	assert.Len(t, seeder.seeded, 2)
}
