package features

import (
	"testing"

	"PerpDesk/internal/domain/models"
	"PerpDesk/pkg/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFundingTrend(t *testing.T) {
	f := util.Float
	cases := []struct {
		name     string
		cur, old *float64
		want     string
	}{
		{"unknown current", nil, f(0.0001), models.TrendUnknown},
		{"extreme long", f(0.011), nil, models.TrendExtremeLong},
		{"extreme short", f(-0.02), f(0), models.TrendExtremeShort},
		{"no history", f(0.0001), nil, models.TrendUnknown},
		{"stable", f(0.00012), f(0.0001), models.TrendStable},
		{"rising", f(0.0005), f(0.0001), models.TrendRising},
		{"falling", f(-0.0005), f(0.0001), models.TrendFalling},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, FundingTrend(c.cur, c.old))
		})
	}
}

func TestFundingOIDeltaClampsToOldest(t *testing.T) {
	snap := func(oi, funding float64) models.Snapshot {
		return models.Snapshot{Assets: map[string]models.AssetSnapshot{
			"BTC": {OpenInterest: util.Float(oi), Funding: util.Float(funding)},
		}}
	}
	snaps := []models.Snapshot{snap(1500, 0.0003), snap(1200, 0.0002), snap(1000, 0.0001)}

	got := fundingOI("BTC", snaps, 60)
	require.NotNil(t, got.OIDelta1h)
	require.NotNil(t, got.FundingDelta1h)
	assert.Equal(t, 500.0, *got.OIDelta1h)
	assert.Equal(t, 0.0002, *got.FundingDelta1h)
	assert.Equal(t, models.TrendRising, got.Trend)
}

func TestFundingOISingleSnapshot(t *testing.T) {
	snaps := []models.Snapshot{{Assets: map[string]models.AssetSnapshot{
		"BTC": {OpenInterest: util.Float(1500), Funding: util.Float(0.0001)},
	}}}
	got := fundingOI("BTC", snaps, 60)
	assert.Nil(t, got.OIDelta1h)
	assert.Nil(t, got.FundingDelta1h)
	assert.Equal(t, 1500.0, *got.OpenInterest)
	assert.Equal(t, models.TrendUnknown, got.Trend)
}
