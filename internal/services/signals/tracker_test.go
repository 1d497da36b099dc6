package signals

import (
	"testing"
	"time"

	"PerpDesk/internal/domain/models"
	"PerpDesk/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ts = time.Date(2024, 10, 10, 12, 1, 0, 0, time.UTC)

func snap(t time.Time, mids map[string]float64, daily, intraday []models.Candle) *models.Snapshot {
	s := &models.Snapshot{Timestamp: t, Assets: map[string]models.AssetSnapshot{}}
	for sym, m := range mids {
		s.Assets[sym] = models.AssetSnapshot{Mid: util.Float(m), Candles1d: daily, Candles15m: intraday}
	}
	return s
}

var daily = []models.Candle{
	{High: 120, Low: 80, Close: 95},
	{High: 110, Low: 90, Close: 100},
	{High: 112, Low: 95, Close: 101},
}

func events(sigs []models.Signal) []string {
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = s.Key()
	}
	return out
}

func TestTrackPriorDayCrossings(t *testing.T) {
	tr := NewTracker([]string{"BTC"})

	sigs := tr.Track(
		snap(ts, map[string]float64{"BTC": 110.5}, daily, nil),
		snap(ts.Add(-time.Minute), map[string]float64{"BTC": 110}, daily, nil),
	)
	require.Len(t, sigs, 1)
	assert.Equal(t, models.Signal{
		Timestamp:  ts,
		Asset:      "BTC",
		Event:      models.EventBrokeAbove,
		Level:      models.LevelPriorDayHigh,
		LevelValue: util.Float(110),
		Price:      110.5,
	}, sigs[0])

	sigs = tr.Track(
		snap(ts, map[string]float64{"BTC": 99.5}, daily, nil),
		snap(ts.Add(-time.Minute), map[string]float64{"BTC": 100}, daily, nil),
	)
	assert.Equal(t, []string{"BTC|broke_below|prior_day_close"}, events(sigs))

	sigs = tr.Track(
		snap(ts, map[string]float64{"BTC": 89.9}, daily, nil),
		snap(ts.Add(-time.Minute), map[string]float64{"BTC": 90.2}, daily, nil),
	)
	assert.Equal(t, []string{"BTC|broke_below|prior_day_low"}, events(sigs))
}

func TestTrackNewDayHighExcludesFormingBar(t *testing.T) {
	intraday := []models.Candle{
		{High: 101, Low: 99},
		{High: 102, Low: 98.5},
		{High: 150, Low: 1}, // forming
	}
	tr := NewTracker([]string{"BTC"})

	sigs := tr.Track(
		snap(ts, map[string]float64{"BTC": 102.2}, nil, intraday),
		snap(ts.Add(-time.Minute), map[string]float64{"BTC": 101.9}, nil, intraday),
	)
	require.Len(t, sigs, 1)
	assert.Equal(t, models.EventNewDayHigh, sigs[0].Event)
	assert.Equal(t, 102.0, *sigs[0].LevelValue)

	sigs = tr.Track(
		snap(ts, map[string]float64{"BTC": 98.4}, nil, intraday),
		snap(ts.Add(-time.Minute), map[string]float64{"BTC": 98.6}, nil, intraday),
	)
	require.Len(t, sigs, 1)
	assert.Equal(t, models.EventNewDayLow, sigs[0].Event)
	assert.Equal(t, 98.5, *sigs[0].LevelValue)
}

func TestTrackLargeMove(t *testing.T) {
	tr := NewTracker(nil)

	sigs := tr.Track(
		snap(ts, map[string]float64{"ETH": 2500, "SOL": 150}, nil, nil),
		snap(ts.Add(-time.Minute), map[string]float64{"ETH": 2450, "SOL": 149}, nil, nil),
	)
	require.Len(t, sigs, 1)
	assert.Equal(t, "ETH", sigs[0].Asset)
	assert.Equal(t, models.EventLargeMoveUp, sigs[0].Event)
	assert.Equal(t, 2.041, *sigs[0].Pct)

	sigs = NewTracker(nil, WithLargeMovePct(0.5)).Track(
		snap(ts, map[string]float64{"SOL": 149}, nil, nil),
		snap(ts.Add(-time.Minute), map[string]float64{"SOL": 150}, nil, nil),
	)
	require.Len(t, sigs, 1)
	assert.Equal(t, models.EventLargeMoveDown, sigs[0].Event)
	assert.Equal(t, -0.667, *sigs[0].Pct)
}

func TestTrackSkipsMissingData(t *testing.T) {
	tr := NewTracker([]string{"BTC", "ETH"})

	assert.Nil(t, tr.Track(snap(ts, map[string]float64{"BTC": 120}, daily, nil), nil))

	prev := snap(ts.Add(-time.Minute), map[string]float64{"BTC": 100}, daily, nil)
	curr := snap(ts, map[string]float64{"ETH": 3000}, daily, nil)
	assert.Empty(t, tr.Track(curr, prev))
}

func TestRotationDue(t *testing.T) {
	day := time.Date(2024, 10, 10, 23, 59, 0, 0, time.UTC)

	assert.True(t, RotationDue(day, time.Time{}))
	assert.False(t, RotationDue(day, time.Date(2024, 10, 10, 0, 0, 1, 0, time.UTC)))
	assert.True(t, RotationDue(day.Add(2*time.Minute), day))

	// Day boundaries are UTC regardless of the clock's zone.
	tokyo := time.FixedZone("JST", 9*3600)
	assert.False(t, RotationDue(time.Date(2024, 10, 11, 8, 0, 0, 0, tokyo), day))
	assert.True(t, RotationDue(time.Date(2024, 10, 11, 9, 0, 0, 0, tokyo), day))
}
