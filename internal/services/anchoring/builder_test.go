package anchoring

import (
	"strings"
	"testing"
	"time"

	"PerpDesk/internal/domain/models"
	"PerpDesk/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)

const prevRaw = `{
  "timestamp": "2024-10-10T10:20:00Z",
  "regime": "trend",
  "regime_note": "higher highs on 1h",
  "setups": [
    {"rank": 1, "asset": "BTC", "direction": "long", "playbook": "B", "confidence": 68,
     "entry": {"levels": {"trigger": 66750}}, "stop": {"level": 66500},
     "take_profits": [{"level": 67250, "pct": 50}],
     "invalidations": ["15m close back below 66500", "funding flips extreme", "third item"]},
    {"rank": 2, "asset": "ETH", "direction": "short", "playbook": "A", "confidence": 55,
     "entry": {"levels": {"trigger": 2450}}, "stop": {"level": 2480}, "take_profits": []},
    {"rank": 3, "asset": "SOL", "direction": "no_trade", "playbook": "E", "confidence": 0}
  ]
}`

func record(age time.Duration) *models.AnalysisRecord {
	return &models.AnalysisRecord{Timestamp: now.Add(-age), Raw: prevRaw}
}

func builder() *Builder {
	return NewBuilder(WithClock(func() time.Time { return now }))
}

func signalAt(ts time.Time, asset, event, level string, price float64) models.Signal {
	return models.Signal{Timestamp: ts, Asset: asset, Event: event, Level: level, Price: price}
}

func TestBuildWithoutRecord(t *testing.T) {
	_, ok := builder().Build(nil, nil)
	assert.False(t, ok)

	_, ok = builder().Build(&models.AnalysisRecord{Raw: prevRaw}, nil)
	assert.False(t, ok, "zero timestamp means no anchor")
}

func TestBuildHardStale(t *testing.T) {
	rec := record(100 * time.Minute)

	_, ok := builder().Build(rec, nil)
	assert.False(t, ok)

	// A signal at exactly the record time does not count.
	_, ok = builder().Build(rec, []models.Signal{signalAt(rec.Timestamp, "BTC", models.EventNewDayHigh, "", 1)})
	assert.False(t, ok)

	digest, ok := builder().Build(rec, []models.Signal{
		signalAt(rec.Timestamp.Add(time.Minute), "BTC", models.EventNewDayHigh, "", 67000),
	})
	require.True(t, ok)
	assert.Contains(t, digest, "ANCHOR STRENGTH: MODERATE")
	assert.Contains(t, digest, "Signals since: 1")
}

func TestBuildStrength(t *testing.T) {
	cases := []struct {
		name    string
		age     time.Duration
		signals int
		want    Strength
	}{
		{"fresh", 10 * time.Minute, 0, StrengthStrong},
		{"boundary", 45 * time.Minute, 0, StrengthStrong},
		{"aging quiet", 60 * time.Minute, 0, StrengthWeak},
		{"aging active", 60 * time.Minute, 2, StrengthModerate},
		{"ninety quiet", 90 * time.Minute, 0, StrengthWeak},
		{"clock skew", -5 * time.Minute, 0, StrengthStrong},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := record(c.age)
			var sigs []models.Signal
			for i := 0; i < c.signals; i++ {
				sigs = append(sigs, signalAt(rec.Timestamp.Add(time.Duration(i+1)*time.Second), "ETH",
					models.EventBrokeBelow, models.LevelPriorDayLow, 2400))
			}
			digest, ok := builder().Build(rec, sigs)
			require.True(t, ok)
			assert.Contains(t, digest, "ANCHOR STRENGTH: "+string(c.want))
		})
	}
}

func TestBuildDigestLines(t *testing.T) {
	digest, ok := builder().Build(record(30*time.Minute), nil)
	require.True(t, ok)

	lines := strings.Split(digest, "\n")
	assert.Equal(t, "Previous regime: trend (higher highs on 1h)", lines[0])
	assert.Equal(t, "Age: 30 minutes ago | Signals since: 0", lines[1])
	assert.Contains(t, digest, "  - BTC LONG (playbook B, conf=68): trigger=66750, stop=66500, TP1=67250")
	assert.Contains(t, digest, "    Invalidated if: 15m close back below 66500; funding flips extreme\n")
	assert.NotContains(t, digest, "third item")
	assert.Contains(t, digest, "  - ETH SHORT (playbook A, conf=55): trigger=2450, stop=2480, TP1=0")
	assert.Contains(t, digest, "    Invalidated if: none specified")
	assert.Contains(t, digest, "  - SOL: NO_TRADE (playbook E)")
	assert.NotContains(t, digest, "Signals since previous analysis")
}

func TestBuildTruncatesInvalidations(t *testing.T) {
	long := strings.Repeat("é", 150)
	rec := &models.AnalysisRecord{
		Timestamp: now.Add(-time.Minute),
		Raw:       `{"regime":"range","setups":[{"asset":"BTC","direction":"long","invalidations":["` + long + `"]}]}`,
	}
	digest, ok := builder().Build(rec, nil)
	require.True(t, ok)
	assert.Contains(t, digest, "Invalidated if: "+strings.Repeat("é", 100)+"...")
	assert.NotContains(t, digest, strings.Repeat("é", 101))
}

func TestBuildUnparseableRecord(t *testing.T) {
	rec := &models.AnalysisRecord{Timestamp: now.Add(-time.Minute), Raw: "not json"}
	_, ok := builder().Build(rec, nil)
	assert.False(t, ok)
}

func TestBuildMissingRegime(t *testing.T) {
	rec := &models.AnalysisRecord{Timestamp: now.Add(-time.Minute), Raw: `{"setups":[]}`}
	digest, ok := builder().Build(rec, nil)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(digest, "Previous regime: unknown ()"))
}

func TestSummarizeDeduplicatesLatest(t *testing.T) {
	t0 := now.Add(-time.Hour)
	sigs := []models.Signal{
		{Timestamp: t0.Add(3 * time.Minute), Asset: "ETH", Event: models.EventLargeMoveDown, Pct: util.Float(-1.234), Price: 2400},
		{Timestamp: t0.Add(1 * time.Minute), Asset: "BTC", Event: models.EventBrokeAbove, Level: models.LevelPriorDayHigh,
			LevelValue: util.Float(67000), Price: 67010},
		{Timestamp: t0.Add(2 * time.Minute), Asset: "BTC", Event: models.EventBrokeAbove, Level: models.LevelPriorDayHigh,
			LevelValue: util.Float(67000), Price: 67050},
		{Timestamp: t0.Add(4 * time.Minute), Asset: "BTC", Event: models.EventNewDayHigh, Price: 67100},
	}

	assert.Equal(t, []string{
		"BTC: broke_above prior_day_high (67000) @ 67050",
		"BTC: new_day_high @ 67100",
		"ETH: large_move_down -1.23% @ 2400",
	}, Summarize(sigs))
}

func TestBuildIncludesSignalSummary(t *testing.T) {
	rec := record(20 * time.Minute)
	sigs := []models.Signal{
		signalAt(rec.Timestamp.Add(-time.Minute), "BTC", models.EventNewDayLow, "", 66000),
		signalAt(rec.Timestamp.Add(time.Minute), "BTC", models.EventNewDayHigh, "", 67100),
	}
	digest, ok := builder().Build(rec, sigs)
	require.True(t, ok)
	assert.Contains(t, digest, "Signals since: 1")
	assert.Contains(t, digest, "  Signals since previous analysis:\n    BTC: new_day_high @ 67100")
	assert.NotContains(t, digest, "new_day_low")
}
