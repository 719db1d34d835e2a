package tracker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copysignal/internal/domain"
	"github.com/alejandrodnm/copysignal/internal/tracker"
)

type fakeEvents struct {
	events map[string]*domain.Event
	err    error
	calls  int
}

func (f *fakeEvents) FetchEvent(_ context.Context, slug string) (*domain.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events[slug], nil
}

func closedEvent(slug, market string, prices ...float64) *domain.Event {
	return &domain.Event{
		Slug:   slug,
		Closed: true,
		Markets: []domain.EventMarket{{
			Slug:          market,
			Outcomes:      []string{"YES", "NO"},
			OutcomePrices: prices,
			Closed:        true,
		}},
	}
}

func insertPending(t *testing.T, r interface {
	InsertSignal(context.Context, domain.Signal) (bool, error)
}, walletID, market, asset, pick string) {
	t.Helper()
	ok, err := r.InsertSignal(context.Background(), domain.Signal{
		WalletID:      walletID,
		MarketSlug:    market,
		EventSlug:     "ev-" + market,
		PickedOutcome: pick,
		Asset:         asset,
		Outcome:       domain.OutcomePending,
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestBackfill_ResolvesClosedMarkets(t *testing.T) {
	db := newStore(t)
	w := seedWallet(t, db, domain.Wallet{})
	insertPending(t, db, w.ID, "m1", "a1", "YES")
	insertPending(t, db, w.ID, "m2", "b1", "YES")
	insertPending(t, db, w.ID, "m3", "c1", "YES")

	events := &fakeEvents{events: map[string]*domain.Event{
		"ev-m1": closedEvent("ev-m1", "m1", 1, 0),
		"ev-m2": closedEvent("ev-m2", "m2", 0, 1),
		"ev-m3": {Slug: "ev-m3", Markets: []domain.EventMarket{{Slug: "m3", Outcomes: []string{"YES", "NO"}, OutcomePrices: []float64{0.6, 0.4}}}},
	}}

	n, err := tracker.NewBackfiller(events, db).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sigs, err := db.ListSignalsByWallet(context.Background(), w.ID)
	require.NoError(t, err)
	byMarket := make(map[string]domain.Signal)
	for _, s := range sigs {
		byMarket[s.MarketSlug] = s
	}
	assert.Equal(t, domain.OutcomeWin, byMarket["m1"].Outcome)
	assert.Equal(t, domain.OutcomeLoss, byMarket["m2"].Outcome)
	assert.Equal(t, "NO", byMarket["m2"].ResolvedOutcome)
	assert.Equal(t, domain.OutcomePending, byMarket["m3"].Outcome)
}

func TestBackfill_OneTerminalPerMarket(t *testing.T) {
	db := newStore(t)
	w := seedWallet(t, db, domain.Wallet{})
	insertPending(t, db, w.ID, "m1", "a1", "YES")
	insertPending(t, db, w.ID, "m1", "a2", "NO")

	events := &fakeEvents{events: map[string]*domain.Event{"ev-m1": closedEvent("ev-m1", "m1", 1, 0)}}
	n, err := tracker.NewBackfiller(events, db).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	resolved, err := db.ListResolvedSignals(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Len(t, resolved, 1)

	// Una segunda pasada no toca la hermana Pending.
	n, err = tracker.NewBackfiller(events, db).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestBackfill_LookupErrorsAreSkipped(t *testing.T) {
	db := newStore(t)
	w := seedWallet(t, db, domain.Wallet{})
	insertPending(t, db, w.ID, "m1", "a1", "YES")

	events := &fakeEvents{err: errors.New("upstream down")}
	n, err := tracker.NewBackfiller(events, db).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, events.calls)
}
