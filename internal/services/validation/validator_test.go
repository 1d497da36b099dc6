package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"PerpDesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = models.RiskLimits{
	EquityUSD:          10000,
	MaxRiskPerTradePct: 1,
	MaxTotalRiskPct:    2,
	MinLeverage:        1,
	MaxLeverage:        6,
	MarginBudgetPct:    50,
	MinRewardRisk:      1.5,
}

func breakdown(score int) []models.ConfidenceCriterion {
	out := make([]models.ConfidenceCriterion, 10)
	for i := range out {
		out[i] = models.ConfidenceCriterion{Criterion: "criterion", Score: score}
	}
	return out
}

// tradeSetup returns a setup whose stated risk figures are already correct.
func tradeSetup(rank int, asset, direction string, entry, stop, tp1, riskPct float64) models.Setup {
	sz := Size(testLimits, riskPct, entry, stop, tp1)
	further := tp1 + (tp1 - entry)
	return models.Setup{
		Rank:                rank,
		Asset:               asset,
		Direction:           direction,
		Playbook:            "B",
		Confidence:          70,
		ConfidenceBreakdown: breakdown(7),
		TimeHorizonHours:    []float64{6, 12},
		Entry: &models.Entry{
			Type:              "trigger",
			TriggerConditions: []string{"15m close through level"},
			EntryStyle:        "limit_on_retest",
			Levels:            models.EntryLevels{Trigger: entry, RetestZoneLow: entry, RetestZoneHigh: entry},
		},
		Stop:        &models.Stop{Level: stop, Why: "below retest"},
		TakeProfits: []models.TakeProfit{{Level: tp1, Pct: 50}, {Level: further, Pct: 30}, {Level: further, Pct: 20}},
		Risk: &models.Risk{
			RiskPctEquity:       riskPct,
			MaxLossUSD:          sz.MaxLossUSD,
			RecommendedLeverage: sz.Leverage,
			PositionNotionalUSD: sz.NotionalUSD,
			MarginUsedUSD:       sz.MarginUSD,
			RRToTP1:             sz.RRToTP1,
		},
		Invalidations: []string{"acceptance back below level"},
	}
}

func noTradeSetup(rank int, asset string) models.Setup {
	return models.Setup{
		Rank:                rank,
		Asset:               asset,
		Direction:           models.DirectionNoTrade,
		Playbook:            "E",
		Confidence:          0,
		ConfidenceBreakdown: breakdown(0),
		Entry:               &models.Entry{},
		Stop:                &models.Stop{},
		Risk:                &models.Risk{},
	}
}

func validOutput() *models.LLMOutput {
	return &models.LLMOutput{
		Timestamp:  "2024-10-10T12:00:00Z",
		Regime:     "trend",
		RegimeNote: "higher highs on 1h",
		Setups: []models.Setup{
			tradeSetup(1, "BTC", models.DirectionLong, 66750, 66500, 67250, 1.0),
			tradeSetup(2, "ETH", models.DirectionShort, 2450, 2480, 2390, 0.5),
			noTradeSetup(3, "SOL"),
		},
	}
}

func encode(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestValidateAndCorrectInvalidJSON(t *testing.T) {
	v := New(testLimits)
	for _, raw := range []string{"", "{not json", "```json\n{}\n```"} {
		out, notes := v.ValidateAndCorrect(raw)
		assert.Nil(t, out)
		require.Len(t, notes, 1)
		assert.True(t, strings.HasPrefix(notes[0], "Invalid JSON: "), notes[0])
	}
}

func TestValidateAndCorrectCleanOutput(t *testing.T) {
	v := New(testLimits)
	out, notes := v.ValidateAndCorrect(encode(t, validOutput()))
	require.NotNil(t, out)
	assert.Empty(t, notes)

	btc := out.Setups[0].Risk
	assert.Equal(t, 6, btc.RecommendedLeverage)
	assert.Equal(t, 2.0, btc.RRToTP1)
	assert.Equal(t, "Liq ~16.7% from entry, stop at 0.37% (16.3% buffer)", btc.LiquidationBufferNote)
}

func TestSchemaFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(o *models.LLMOutput)
		want   string
	}{
		{"two setups", func(o *models.LLMOutput) { o.Setups = o.Setups[:2] },
			"setups: must contain exactly 3 items, got 2"},
		{"regime", func(o *models.LLMOutput) { o.Regime = "sideways" },
			"regime: must be one of"},
		{"direction", func(o *models.LLMOutput) { o.Setups[1].Direction = "flat" },
			"setups[1].direction"},
		{"playbook", func(o *models.LLMOutput) { o.Setups[0].Playbook = "F" },
			"setups[0].playbook"},
		{"confidence range", func(o *models.LLMOutput) { o.Setups[0].Confidence = 120 },
			"setups[0].confidence: must be at most 100"},
		{"criterion score", func(o *models.LLMOutput) { o.Setups[0].ConfidenceBreakdown[3].Score = 11 },
			"setups[0].confidence_breakdown[3].score: must be at most 10"},
		{"criteria count", func(o *models.LLMOutput) {
			o.Setups[0].ConfidenceBreakdown = o.Setups[0].ConfidenceBreakdown[:9]
		}, "setups[0].confidence_breakdown: must contain exactly 10 items, got 9"},
		{"missing stop", func(o *models.LLMOutput) { o.Setups[0].Stop = nil },
			"setups[0].stop: is required"},
		{"take-profit sum", func(o *models.LLMOutput) { o.Setups[0].TakeProfits[2].Pct = 10 },
			"setups[0].take_profits: take-profit percentages sum to 90"},
		{"missing timestamp", func(o *models.LLMOutput) { o.Timestamp = "" },
			"timestamp: is required"},
	}
	v := New(testLimits)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := validOutput()
			c.mutate(o)
			out, notes := v.ValidateAndCorrect(encode(t, o))
			assert.Nil(t, out)
			require.NotEmpty(t, notes)
			for _, n := range notes {
				assert.True(t, strings.HasPrefix(n, "Schema validation failed: "), n)
			}
			assert.Contains(t, strings.Join(notes, "\n"), c.want)
		})
	}
}

func TestSchemaTypeMismatchCarriesPath(t *testing.T) {
	raw := strings.Replace(encode(t, validOutput()), `"confidence":70`, `"confidence":"high"`, 1)
	out, notes := New(testLimits).ValidateAndCorrect(raw)
	assert.Nil(t, out)
	assert.Equal(t, []string{"Schema validation failed: setups[0].confidence: expected integer, got string"}, notes)
}

func TestSchemaReportsTypeAndRuleViolationsTogether(t *testing.T) {
	o := validOutput()
	o.Setups = o.Setups[:2]
	raw := strings.Replace(encode(t, o), `"confidence":70`, `"confidence":"high"`, 1)
	raw = strings.Replace(raw, `"score":7`, `"score":[7]`, 1)

	out, notes := New(testLimits).ValidateAndCorrect(raw)
	assert.Nil(t, out)
	joined := strings.Join(notes, "\n")
	assert.Contains(t, joined, "setups[0].confidence: expected integer, got string")
	assert.Contains(t, joined, "setups[0].confidence_breakdown[0].score: expected integer, got array")
	assert.Contains(t, joined, "setups: must contain exactly 3 items, got 2")
	assert.Len(t, notes, 3)
}

func TestIntegerFieldsAcceptIntegralNumbers(t *testing.T) {
	raw := encode(t, validOutput())
	raw = strings.Replace(raw, `"confidence":70,`, `"confidence":70.0,`, 1)
	raw = strings.Replace(raw, `"score":7,`, `"score":7.0,`, 1)
	raw = strings.Replace(raw, `"recommended_leverage":6,`, `"recommended_leverage":6.0,`, 1)
	require.Contains(t, raw, `"recommended_leverage":6.0,`)

	out, notes := New(testLimits).ValidateAndCorrect(raw)
	require.NotNil(t, out, notes)
	assert.Empty(t, notes)
	assert.Equal(t, 70, out.Setups[0].Confidence)
	assert.Equal(t, 7, out.Setups[0].ConfidenceBreakdown[0].Score)
	assert.Equal(t, 6, out.Setups[0].Risk.RecommendedLeverage)
}

func TestIntegerFieldsRejectFractions(t *testing.T) {
	raw := strings.Replace(encode(t, validOutput()), `"confidence":70,`, `"confidence":70.5,`, 1)
	out, notes := New(testLimits).ValidateAndCorrect(raw)
	assert.Nil(t, out)
	assert.Equal(t, []string{"Schema validation failed: setups[0].confidence: expected integer, got number 70.5"}, notes)
}

func TestSchemaRejectsNonObjectRoot(t *testing.T) {
	out, notes := New(testLimits).ValidateAndCorrect(`[1, 2, 3]`)
	assert.Nil(t, out)
	assert.Equal(t, []string{"Schema validation failed: (root): expected object, got array"}, notes)
}

func TestConfidenceWeightedSum(t *testing.T) {
	v := New(testLimits)

	t.Run("within tolerance", func(t *testing.T) {
		o := validOutput()
		o.Setups[0].Confidence = 72
		out, _ := v.ValidateAndCorrect(encode(t, o))
		assert.NotNil(t, out)
	})

	t.Run("weights applied in order", func(t *testing.T) {
		o := validOutput()
		bd := breakdown(0)
		bd[0].Score = 10 // weight 2.0
		bd[7].Score = 8  // weight 0.25
		o.Setups[0].ConfidenceBreakdown = bd
		o.Setups[0].Confidence = 22
		out, _ := v.ValidateAndCorrect(encode(t, o))
		assert.NotNil(t, out)
	})

	t.Run("mismatch rejects whole output", func(t *testing.T) {
		o := validOutput()
		o.Setups[0].Confidence = 80
		out, notes := v.ValidateAndCorrect(encode(t, o))
		assert.Nil(t, out)
		require.Len(t, notes, 1)
		assert.Contains(t, notes[0], "setups[0].confidence: confidence 80 does not match weighted breakdown sum 70")
	})
}

func TestNoTradeSkipsTakeProfitSum(t *testing.T) {
	o := validOutput()
	o.Setups[2].TakeProfits = []models.TakeProfit{{Level: 1, Pct: 10}}
	out, _ := New(testLimits).ValidateAndCorrect(encode(t, o))
	assert.NotNil(t, out)
}
