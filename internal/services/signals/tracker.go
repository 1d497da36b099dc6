// Package signals detects discrete intraday events between two consecutive
// snapshots.
package signals

import (
	"math"
	"sort"
	"time"

	"PerpDesk/internal/domain/models"
	applogger "PerpDesk/pkg/logger"
	"PerpDesk/pkg/util"
)

// DefaultLargeMovePct is the mid-to-mid move, in percent, reported as a large move.
const DefaultLargeMovePct = 1.0

type Tracker struct {
	assets       []string
	largeMovePct float64
	logger       *applogger.Logger
}

type Option func(*Tracker)

func WithLargeMovePct(pct float64) Option {
	return func(t *Tracker) {
		if pct > 0 {
			t.largeMovePct = pct
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// NewTracker watches assets, or every asset in the current snapshot when
// assets is empty.
func NewTracker(assets []string, opts ...Option) *Tracker {
	t := &Tracker{assets: assets, largeMovePct: DefaultLargeMovePct}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = applogger.OrNop(t.logger)
	return t
}

// Track compares curr against prev. Assets without a mid in both snapshots
// are skipped. Signals carry curr's timestamp.
func (t *Tracker) Track(curr, prev *models.Snapshot) []models.Signal {
	if curr == nil || prev == nil {
		return nil
	}

	var out []models.Signal
	for _, symbol := range t.symbols(curr) {
		mid, prevMid := curr.MidOf(symbol), prev.MidOf(symbol)
		if !util.Positive(mid) || !util.Positive(prevMid) {
			continue
		}
		out = append(out, t.trackAsset(curr.Timestamp, symbol, curr.Assets[symbol], *mid, *prevMid)...)
	}
	if len(out) > 0 {
		t.logger.Debug("signals detected", applogger.Int("count", len(out)))
	}
	return out
}

func (t *Tracker) symbols(curr *models.Snapshot) []string {
	if len(t.assets) > 0 {
		return t.assets
	}
	keys := make([]string, 0, len(curr.Assets))
	for k := range curr.Assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *Tracker) trackAsset(ts time.Time, symbol string, data models.AssetSnapshot, mid, prevMid float64) []models.Signal {
	var out []models.Signal
	price := util.Round(mid, 2)

	crossing := func(event, level string, value float64) models.Signal {
		return models.Signal{
			Timestamp:  ts,
			Asset:      symbol,
			Event:      event,
			Level:      level,
			LevelValue: util.Float(value),
			Price:      price,
		}
	}

	if len(data.Candles1d) >= 2 {
		pd := data.Candles1d[len(data.Candles1d)-2]
		if crossedUp(prevMid, mid, pd.High) {
			out = append(out, crossing(models.EventBrokeAbove, models.LevelPriorDayHigh, pd.High))
		}
		if crossedDown(prevMid, mid, pd.Low) {
			out = append(out, crossing(models.EventBrokeBelow, models.LevelPriorDayLow, pd.Low))
		}
		if crossedUp(prevMid, mid, pd.Close) {
			out = append(out, crossing(models.EventBrokeAbove, models.LevelPriorDayClose, pd.Close))
		}
		if crossedDown(prevMid, mid, pd.Close) {
			out = append(out, crossing(models.EventBrokeBelow, models.LevelPriorDayClose, pd.Close))
		}
	}

	// The last 15m bar is still forming and already contains the current mid.
	if n := len(data.Candles15m); n > 1 {
		hi, lo := highLow(data.Candles15m[:n-1])
		if hi > 0 && crossedUp(prevMid, mid, hi) {
			out = append(out, crossing(models.EventNewDayHigh, "", util.Round(hi, 2)))
		}
		if lo > 0 && crossedDown(prevMid, mid, lo) {
			out = append(out, crossing(models.EventNewDayLow, "", util.Round(lo, 2)))
		}
	}

	move := (mid - prevMid) / prevMid * 100
	if math.Abs(move) > t.largeMovePct {
		event := models.EventLargeMoveUp
		if move < 0 {
			event = models.EventLargeMoveDown
		}
		out = append(out, models.Signal{
			Timestamp: ts,
			Asset:     symbol,
			Event:     event,
			Price:     price,
			Pct:       util.RoundPtr(move, 3),
		})
	}
	return out
}

func crossedUp(prev, cur, level float64) bool {
	return level > 0 && prev <= level && cur > level
}

func crossedDown(prev, cur, level float64) bool {
	return level > 0 && prev >= level && cur < level
}

func highLow(candles []models.Candle) (hi, lo float64) {
	for _, c := range candles {
		if c.High > hi {
			hi = c.High
		}
		if c.Low > 0 && (lo == 0 || c.Low < lo) {
			lo = c.Low
		}
	}
	return hi, lo
}

// RotationDue reports whether now falls on a later UTC day than lastDay.
// A zero lastDay always rotates.
func RotationDue(now, lastDay time.Time) bool {
	if lastDay.IsZero() {
		return true
	}
	return util.StartOfUTCDay(now).After(util.StartOfUTCDay(lastDay))
}
