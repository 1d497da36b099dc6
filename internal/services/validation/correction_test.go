package validation

import (
	"strings"
	"testing"

	"PerpDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeLeverageCeiling(t *testing.T) {
	sz := Size(testLimits, 1.0, 66750, 66500, 0)
	assert.InDelta(t, 0.003745, sz.StopDistance, 1e-6)
	assert.InDelta(t, 26700, sz.NotionalUSD, 1)
	assert.Equal(t, 6, sz.Leverage)
	assert.InDelta(t, 4450, sz.MarginUSD, 1)
	assert.Equal(t, 100.0, sz.MaxLossUSD)
	assert.Equal(t, 0.0, sz.RRToTP1, "no take-profit means no reward:risk")
	assert.False(t, sz.Capped)

	capped := testLimits
	capped.MaxLeverage = 4
	sz = Size(capped, 1.0, 66750, 66500, 67250)
	assert.True(t, sz.Capped)
	assert.Equal(t, 20000.0, sz.NotionalUSD)
	assert.Equal(t, 4, sz.Leverage)
	assert.Equal(t, 5000.0, sz.MarginUSD)
	assert.InDelta(t, 74.91, sz.MaxLossUSD, 1e-9)
	assert.Equal(t, 2.0, sz.RRToTP1)
}

func TestSizeRespectsMinLeverage(t *testing.T) {
	limits := testLimits
	limits.MinLeverage = 2
	sz := Size(limits, 0.1, 100, 90, 120)
	// 10 loss / 10% = 100 notional, far below the margin budget.
	assert.Equal(t, 2, sz.Leverage)
	assert.Equal(t, 50.0, sz.MarginUSD)
	assert.Equal(t, 2.0, sz.RRToTP1)
}

func TestCorrectRewritesDriftedFigures(t *testing.T) {
	o := validOutput()
	r := o.Setups[0].Risk
	r.RiskPctEquity = 3
	r.PositionNotionalUSD = 10000
	r.MaxLossUSD = 300
	r.RecommendedLeverage = 2
	r.RRToTP1 = 5
	r.LiquidationBufferNote = "plenty"

	v := New(testLimits)
	notes := v.Correct(o)
	corrections, issues := SplitNotes(notes)
	assert.Empty(t, issues)
	require.Len(t, corrections, 5)
	assert.Contains(t, corrections[0], "capped risk_pct_equity 3.00% to 1.00%")
	assert.Contains(t, corrections[1], "corrected notional $10000 -> $26700")
	assert.Contains(t, corrections[2], "corrected max_loss $300.00 -> $100.00")
	assert.Contains(t, corrections[3], "corrected leverage 2x -> 6x")
	assert.Contains(t, corrections[4], "corrected R:R 5.00 -> 2.00")

	assert.Equal(t, 1.0, r.RiskPctEquity)
	assert.InDelta(t, 26700, r.PositionNotionalUSD, 1)
	assert.Equal(t, 6, r.RecommendedLeverage)
	assert.InDelta(t, 4450, r.MarginUsedUSD, 1)
	assert.Equal(t, 2.0, r.RRToTP1)
	assert.Equal(t, "Liq ~16.7% from entry, stop at 0.37% (16.3% buffer)", r.LiquidationBufferNote)
	assert.Equal(t, "acceptance back below level", o.Setups[0].Invalidations[0], "qualitative text is untouched")
}

func TestCorrectIsFixedPoint(t *testing.T) {
	o := validOutput()
	o.Setups[0].Risk.PositionNotionalUSD = 1
	o.Setups[0].Risk.RecommendedLeverage = 20
	o.Setups[1].Risk.RRToTP1 = 9

	v := New(testLimits)
	first, _ := SplitNotes(v.Correct(o))
	require.NotEmpty(t, first)

	second, _ := SplitNotes(v.Correct(o))
	assert.Empty(t, second)
}

func TestCorrectRiskIsFixedPoint(t *testing.T) {
	cases := map[string]func(o *models.LLMOutput){
		"stale sizing": func(o *models.LLMOutput) {
			o.Setups[0].Risk.PositionNotionalUSD = 1
			o.Setups[0].Risk.RecommendedLeverage = 20
			o.Setups[1].Risk.RRToTP1 = 9
		},
		"risk above cap": func(o *models.LLMOutput) { o.Setups[0].Risk.RiskPctEquity = 3 },
		"total above cap": func(o *models.LLMOutput) {
			o.Setups[2] = tradeSetup(3, "SOL", models.DirectionLong, 150, 148, 154, 1.0)
			o.Setups[1].Risk.RiskPctEquity = 1
		},
		"unsizable entry": func(o *models.LLMOutput) { o.Setups[1].Entry.Levels.Trigger = 0 },
		"no trade":        func(o *models.LLMOutput) { o.Setups[0] = noTradeSetup(1, "BTC") },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := validOutput()
			mutate(o)
			v := New(testLimits)
			v.CorrectRisk(o)
			before := encode(t, o)

			again, _ := SplitNotes(v.CorrectRisk(o))
			assert.Empty(t, again)
			assert.Equal(t, before, encode(t, o))
		})
	}
}

func TestCorrectRiskLeavesTotalUncapped(t *testing.T) {
	o := validOutput()
	o.Setups[2] = tradeSetup(3, "SOL", models.DirectionLong, 150, 148, 154, 1.0)
	o.Setups[1].Risk.RiskPctEquity = 1

	New(testLimits).CorrectRisk(o)
	for _, s := range o.Setups {
		assert.Equal(t, 1.0, s.Risk.RiskPctEquity)
	}
}

func TestCorrectLeverageCapNote(t *testing.T) {
	limits := testLimits
	limits.MaxLeverage = 4
	o := validOutput()

	v := New(limits)
	corrections, _ := SplitNotes(v.Correct(o))
	require.NotEmpty(t, corrections)
	assert.Contains(t, corrections[0], "Setup 1 (BTC): leverage capped at 4x, notional reduced to $20000, max_loss=$74.91")
	assert.Equal(t, 20000.0, o.Setups[0].Risk.PositionNotionalUSD)
	assert.Equal(t, 4, o.Setups[0].Risk.RecommendedLeverage)

	again, _ := SplitNotes(v.Correct(o))
	assert.Empty(t, again)
}

func TestRewardRiskGate(t *testing.T) {
	o := validOutput()
	o.Setups[0] = tradeSetup(1, "BTC", models.DirectionLong, 66750, 66500, 66900, 1.0)

	corrections, issues := SplitNotes(New(testLimits).Correct(o))
	assert.Empty(t, corrections)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "Setup 1 (BTC): R:R to TP1 = 0.60 (< 1.50 minimum)")
}

func TestUnusableEntryLeavesRiskAsSupplied(t *testing.T) {
	o := validOutput()
	o.Setups[1].Entry.Levels.Trigger = 0
	o.Setups[1].Risk.PositionNotionalUSD = 123

	corrections, issues := SplitNotes(New(testLimits).Correct(o))
	assert.Empty(t, corrections)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "Setup 2 (ETH): entry 0 and stop 2480 cannot size a position")
	assert.Equal(t, 123.0, o.Setups[1].Risk.PositionNotionalUSD)
}

func TestTotalRiskScaling(t *testing.T) {
	o := validOutput()
	o.Setups = []models.Setup{
		tradeSetup(1, "BTC", models.DirectionLong, 66750, 66500, 67250, 1.0),
		tradeSetup(2, "ETH", models.DirectionShort, 2450, 2480, 2390, 1.0),
		tradeSetup(3, "SOL", models.DirectionLong, 150, 148, 154, 1.0),
	}

	v := New(testLimits)
	notes := v.Correct(o)
	corrections, issues := SplitNotes(notes)
	assert.Empty(t, issues)
	require.Len(t, corrections, 3)

	var sum float64
	for i, s := range o.Setups {
		assert.Equal(t, 0.6667, s.Risk.RiskPctEquity)
		assert.Equal(t, 66.67, s.Risk.MaxLossUSD)
		assert.Contains(t, corrections[i], "scaled risk 1.00% -> 0.6667%")
		sum += s.Risk.RiskPctEquity
	}
	assert.InDelta(t, 2.0, sum, 0.0002)
	assert.InDelta(t, 26700, o.Setups[0].Risk.PositionNotionalUSD, 1, "notional is left as sized")
	assert.Equal(t, 6, o.Setups[0].Risk.RecommendedLeverage)

	// risk correction sizes from the scaled percentage once, then settles
	resized, _ := SplitNotes(v.CorrectRisk(o))
	assert.NotEmpty(t, resized)
	settled, _ := SplitNotes(v.CorrectRisk(o))
	assert.Empty(t, settled)
}

func TestTotalRiskScalingWithResize(t *testing.T) {
	o := validOutput()
	o.Setups = []models.Setup{
		tradeSetup(1, "BTC", models.DirectionLong, 66750, 66500, 67250, 1.0),
		tradeSetup(2, "ETH", models.DirectionShort, 2450, 2480, 2390, 1.0),
		tradeSetup(3, "SOL", models.DirectionLong, 150, 148, 154, 1.0),
	}

	v := New(testLimits, WithResizeOnScale(true))
	v.Correct(o)

	r := o.Setups[0].Risk
	assert.Equal(t, 0.6667, r.RiskPctEquity)
	assert.InDelta(t, 17801, r.PositionNotionalUSD, 1)
	assert.Equal(t, 4, r.RecommendedLeverage)

	again, _ := SplitNotes(v.Correct(o))
	assert.Empty(t, again)
}

func TestNotesOrderedCorrectionsFirst(t *testing.T) {
	o := validOutput()
	o.Setups[0] = tradeSetup(1, "BTC", models.DirectionLong, 66750, 66500, 66900, 1.0)
	o.Setups[1].Risk.RecommendedLeverage = 9

	notes := New(testLimits).Correct(o)
	require.Len(t, notes, 2)
	assert.True(t, strings.HasPrefix(notes[0], CorrectionPrefix))
	assert.True(t, strings.HasPrefix(notes[1], IssuePrefix))
}

func TestCorrectFollowsRankOrder(t *testing.T) {
	o := validOutput()
	o.Setups[0], o.Setups[1] = o.Setups[1], o.Setups[0]
	o.Setups[0].Risk.RecommendedLeverage = 9
	o.Setups[1].Risk.RecommendedLeverage = 9

	corrections, _ := SplitNotes(New(testLimits).Correct(o))
	require.Len(t, corrections, 2)
	assert.True(t, strings.HasPrefix(corrections[0], "Setup 1 "))
	assert.True(t, strings.HasPrefix(corrections[1], "Setup 2 "))
}

func TestSplitNotes(t *testing.T) {
	corrections, issues := SplitNotes([]string{
		CorrectionPrefix + "fixed",
		IssuePrefix + "still wrong",
		"Invalid JSON: eof",
	})
	assert.Equal(t, []string{"fixed"}, corrections)
	assert.Equal(t, []string{"still wrong", "Invalid JSON: eof"}, issues)
}
