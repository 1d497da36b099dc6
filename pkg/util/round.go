package util

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round rounds v half away from zero to places decimals.
// NaN and infinities are returned unchanged.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// RoundPtr is Round returning a pointer, for optional fields.
func RoundPtr(v float64, places int32) *float64 {
	r := Round(v, places)
	return &r
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Deref returns *p or def when p is nil.
func Deref(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Positive reports whether p is known and strictly positive.
func Positive(p *float64) bool { return p != nil && *p > 0 }

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
