package features

import (
	"PerpDesk/internal/domain/models"
	"PerpDesk/pkg/util"
)

// Pivots are classic floor pivots from one prior period.
type Pivots struct {
	PP, R1, R2, S1, S2 float64
}

// FloorPivots computes PP=(H+L+C)/3, R1=2PP-L, S1=2PP-H, R2=PP+(H-L), S2=PP-(H-L).
func FloorPivots(high, low, close float64) Pivots {
	pp := (high + low + close) / 3
	return Pivots{
		PP: pp,
		R1: 2*pp - low,
		S1: 2*pp - high,
		R2: pp + (high - low),
		S2: pp - (high - low),
	}
}

// PriorDay returns the last completed daily bar. The final bar of the series
// is the day still forming.
func PriorDay(daily []models.Candle) (models.Candle, bool) {
	if len(daily) < 2 {
		return models.Candle{}, false
	}
	return daily[len(daily)-2], true
}

func keyLevels(a models.AssetSnapshot, intradayWindow int) models.KeyLevels {
	var kl models.KeyLevels

	kl.DayHigh, kl.DayLow = HighLow(tail(a.Candles15m, intradayWindow))
	kl.WeekHigh, kl.WeekLow = HighLow(a.Candles1d)
	kl.VWAP = VWAP(a.Candles15m)

	if pd, ok := PriorDay(a.Candles1d); ok {
		kl.PriorDayOpen = positive(pd.Open)
		kl.PriorDayHigh = positive(pd.High)
		kl.PriorDayLow = positive(pd.Low)
		kl.PriorDayClose = positive(pd.Close)

		if kl.PriorDayHigh != nil && kl.PriorDayLow != nil && kl.PriorDayClose != nil {
			p := FloorPivots(pd.High, pd.Low, pd.Close)
			kl.PivotPP = util.RoundPtr(p.PP, 4)
			kl.PivotR1 = util.RoundPtr(p.R1, 4)
			kl.PivotR2 = util.RoundPtr(p.R2, 4)
			kl.PivotS1 = util.RoundPtr(p.S1, 4)
			kl.PivotS2 = util.RoundPtr(p.S2, 4)
		}
	}
	return kl
}

func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return util.Float(v)
}
