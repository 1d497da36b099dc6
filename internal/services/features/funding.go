package features

import (
	"math"

	"PerpDesk/internal/domain/models"
	"PerpDesk/pkg/util"
)

// Funding trend thresholds.
const (
	extremeFunding   = 0.01
	stableFundingEps = 0.0001
)

// FundingTrend classifies the current funding rate against the value one hour ago.
func FundingTrend(current, hourAgo *float64) string {
	if current == nil {
		return models.TrendUnknown
	}
	switch {
	case *current > extremeFunding:
		return models.TrendExtremeLong
	case *current < -extremeFunding:
		return models.TrendExtremeShort
	case hourAgo == nil:
		return models.TrendUnknown
	}
	delta := *current - *hourAgo
	switch {
	case math.Abs(delta) < stableFundingEps:
		return models.TrendStable
	case delta > 0:
		return models.TrendRising
	default:
		return models.TrendFalling
	}
}

func fundingOI(symbol string, snapshots []models.Snapshot, hourLag int) models.FundingOI {
	latest := snapshots[0].Assets[symbol]
	out := models.FundingOI{
		FundingRate:  latest.Funding,
		OpenInterest: latest.OpenInterest,
		Trend:        models.TrendUnknown,
	}

	var old models.AssetSnapshot
	if len(snapshots) >= 2 {
		idx := hourLag
		if idx > len(snapshots)-1 {
			idx = len(snapshots) - 1
		}
		old = snapshots[idx].Assets[symbol]
	}

	if latest.OpenInterest != nil && old.OpenInterest != nil {
		out.OIDelta1h = util.RoundPtr(*latest.OpenInterest-*old.OpenInterest, 2)
	}
	if latest.Funding != nil && old.Funding != nil {
		out.FundingDelta1h = util.RoundPtr(*latest.Funding-*old.Funding, 8)
	}
	out.Trend = FundingTrend(latest.Funding, old.Funding)
	return out
}
