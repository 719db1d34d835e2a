package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/copysignal/internal/leaderboard"
)

func TestCronRunner_AddValidatesSpec(t *testing.T) {
	r := NewCronRunner(context.Background(), time.UTC)

	_, err := r.Add("0 7 * * *", "daily", func(context.Context) error { return nil })
	require.NoError(t, err)
	_, err = r.Add("@every 60s", "heartbeat", func(context.Context) error { return nil })
	require.NoError(t, err)

	_, err = r.Add("not a spec", "broken", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestCronRunner_DailyJobFiresAtLocalTime(t *testing.T) {
	madrid := time.FixedZone("CET", 3600)
	r := NewCronRunner(context.Background(), madrid)
	id, err := r.Add("0 7 * * *", "daily", func(context.Context) error { return nil })
	require.NoError(t, err)

	from := time.Date(2026, 3, 1, 8, 0, 0, 0, madrid)
	next := r.cron.Entry(id).Schedule.Next(from)
	assert.Equal(t, time.Date(2026, 3, 2, 7, 0, 0, 0, madrid), next.In(madrid))
}

func TestCronRunner_WrapRecoversPanics(t *testing.T) {
	r := NewCronRunner(context.Background(), nil)
	assert.NotPanics(t, r.wrap("panicky", func(context.Context) error { panic("boom") }))
	assert.NotPanics(t, r.wrap("failing", func(context.Context) error { return errors.New("nope") }))
}

type fakeSummary struct {
	sent int
	err  error
}

func (f *fakeSummary) Send(context.Context) error {
	f.sent++
	return f.err
}

type fakeBoard struct{ runs int }

func (f *fakeBoard) Run(context.Context) (leaderboard.Report, error) {
	f.runs++
	return leaderboard.Report{}, nil
}

func TestDailyJob_SummaryFailureStillIngests(t *testing.T) {
	summary := &fakeSummary{err: errors.New("chat down")}
	board := &fakeBoard{}

	err := NewDailyJob(summary, board).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "summary")
	assert.Equal(t, 1, summary.sent)
	assert.Equal(t, 1, board.runs)

	assert.NoError(t, NewDailyJob(nil, nil).Run(context.Background()))
}
