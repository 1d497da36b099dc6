package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PerpDesk/internal/domain/models"
	"PerpDesk/internal/services/signals"
)

func TestCollectorRunOnceStoresAndTracks(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	src := &scriptedSource{
		mids: []float64{100, 102},
		at:   []time.Time{base, base.Add(time.Minute)},
	}
	store := &memStore{}
	sigLog := &memSignals{}
	pub := &recordingPublisher{}

	c := NewCollector(CollectorDeps{
		Source:    src,
		Store:     store,
		Signals:   sigLog,
		Tracker:   signals.NewTracker([]string{"BTC"}),
		Publisher: pub,
	}, []string{"BTC"}, time.Minute)
	c.SetClock(func() time.Time { return base })

	first, err := c.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Count)
	assert.Empty(t, first.Signals, "no previous snapshot, nothing to compare")

	second, err := c.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Count)
	require.Len(t, second.Signals, 1)
	assert.Equal(t, models.EventLargeMoveUp, second.Signals[0].Event)
	assert.Len(t, sigLog.sigs, 1)
	assert.Equal(t, 1, pub.signals)
}

func TestCollectorUsesStoredSnapshotAsPrevious(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mid := 100.0
	store := &memStore{snaps: []models.Snapshot{{
		Timestamp: base,
		Assets:    map[string]models.AssetSnapshot{"BTC": {Mid: &mid}},
	}}}
	src := &scriptedSource{mids: []float64{97}, at: []time.Time{base.Add(time.Minute)}}

	c := NewCollector(CollectorDeps{
		Source:  src,
		Store:   store,
		Signals: &memSignals{},
		Tracker: signals.NewTracker([]string{"BTC"}),
	}, []string{"BTC"}, time.Minute)
	c.SetClock(func() time.Time { return base })

	cy, err := c.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, cy.Signals, 1)
	assert.Equal(t, models.EventLargeMoveDown, cy.Signals[0].Event)
}

func TestCollectorRotatesOnNewUTCDay(t *testing.T) {
	ctx := context.Background()
	day1 := time.Date(2024, 3, 1, 23, 58, 0, 0, time.UTC)
	sigLog := &memSignals{sigs: []models.Signal{{Timestamp: day1, Asset: "BTC", Event: models.EventNewDayHigh}}}
	src := &scriptedSource{
		mids: []float64{100, 100},
		at:   []time.Time{day1.Add(time.Minute), day1.Add(3 * time.Minute)},
	}
	now := day1.Add(time.Minute)

	c := NewCollector(CollectorDeps{
		Source:  src,
		Store:   &memStore{},
		Signals: sigLog,
		Tracker: signals.NewTracker([]string{"BTC"}),
	}, []string{"BTC"}, time.Minute)
	c.SetClock(func() time.Time { return now })

	cy, err := c.RunOnce(ctx)
	require.NoError(t, err)
	assert.False(t, cy.Rotated)
	assert.Len(t, sigLog.sigs, 1)

	now = day1.Add(3 * time.Minute)
	cy, err = c.RunOnce(ctx)
	require.NoError(t, err)
	assert.True(t, cy.Rotated)
	assert.Equal(t, 1, sigLog.resets)
	assert.Empty(t, sigLog.sigs)
}

func TestCollectorFetchFailure(t *testing.T) {
	store := &memStore{}
	c := NewCollector(CollectorDeps{
		Source:  &scriptedSource{err: errors.New("boom")},
		Store:   store,
		Signals: &memSignals{},
		Tracker: signals.NewTracker(nil),
	}, []string{"BTC"}, time.Minute)

	_, err := c.RunOnce(context.Background())
	require.Error(t, err)
	n, _ := store.Count(context.Background())
	assert.Zero(t, n)
}

func TestCollectorRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	base := time.Now().UTC()
	src := &scriptedSource{mids: []float64{100}, at: []time.Time{base}}
	c := NewCollector(CollectorDeps{
		Source:  src,
		Store:   &memStore{},
		Signals: &memSignals{},
		Tracker: signals.NewTracker(nil),
	}, []string{"BTC"}, time.Hour)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	require.Eventually(t, func() bool { return src.calls() >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}
}
