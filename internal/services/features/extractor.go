package features

import (
	"math"

	"PerpDesk/internal/domain/models"
	"PerpDesk/pkg/util"
)

// minATRCandles is the fewest bars ATR is reported for.
const minATRCandles = 3

// PctChange returns round((cur-ref)/ref*100, 4), or nil when ref is not positive.
func PctChange(cur, ref float64) *float64 {
	if ref <= 0 || cur <= 0 {
		return nil
	}
	return util.RoundPtr((cur-ref)/ref*100, 4)
}

// CloseReturn computes the percent return between the last two closes.
func CloseReturn(candles []models.Candle) *float64 {
	if len(candles) < 2 {
		return nil
	}
	return PctChange(candles[len(candles)-1].Close, candles[len(candles)-2].Close)
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
// A prevClose <= 0 means there is no previous bar.
func TrueRange(c models.Candle, prevClose float64) float64 {
	tr := c.High - c.Low
	if prevClose > 0 {
		tr = math.Max(tr, math.Abs(c.High-prevClose))
		tr = math.Max(tr, math.Abs(c.Low-prevClose))
	}
	return tr
}

// ATR is the mean true range over the trailing period bars. The first bar of
// the window uses high-low only. Nil below minATRCandles bars.
func ATR(candles []models.Candle, period int) *float64 {
	if len(candles) < minATRCandles || period <= 0 {
		return nil
	}
	start := len(candles) - period
	if start < 0 {
		start = 0
	}
	window := candles[start:]

	var sum float64
	for i, c := range window {
		prev := 0.0
		if i > 0 {
			prev = window[i-1].Close
		}
		sum += TrueRange(c, prev)
	}
	return util.RoundPtr(sum/float64(len(window)), 4)
}

// HighLow returns the highest high and lowest positive low of candles.
func HighLow(candles []models.Candle) (high, low *float64) {
	for _, c := range candles {
		if c.High > 0 && (high == nil || c.High > *high) {
			high = util.Float(c.High)
		}
		if c.Low > 0 && (low == nil || c.Low < *low) {
			low = util.Float(c.Low)
		}
	}
	return high, low
}

// VWAP is the volume-weighted typical price (H+L+C)/3. Bars with a missing
// price or no volume are skipped; nil when total volume is zero.
func VWAP(candles []models.Candle) *float64 {
	var pv, vol float64
	for _, c := range candles {
		if c.High <= 0 || c.Low <= 0 || c.Close <= 0 || c.Volume <= 0 {
			continue
		}
		typical := (c.High + c.Low + c.Close) / 3
		pv += typical * c.Volume
		vol += c.Volume
	}
	if vol == 0 {
		return nil
	}
	return util.RoundPtr(pv/vol, 4)
}

// tail returns the last n candles.
func tail(candles []models.Candle, n int) []models.Candle {
	if n <= 0 || len(candles) <= n {
		return candles
	}
	return candles[len(candles)-n:]
}
