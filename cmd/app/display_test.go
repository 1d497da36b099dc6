package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"PerpDesk/internal/domain/models"
	"PerpDesk/pkg/util"
)

func init() {
	color.NoColor = true
}

func TestPrintSignalsGroupsByAsset(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	sigs := []models.Signal{
		{Timestamp: ts, Asset: "ETH", Event: models.EventLargeMoveDown, Price: 3000, Pct: util.Float(-1.25)},
		{Timestamp: ts, Asset: "BTC", Event: models.EventBrokeAbove, Level: models.LevelPriorDayHigh, LevelValue: util.Float(64000), Price: 64010},
		{Timestamp: ts, Asset: "BTC", Event: models.EventNewDayHigh, Price: 64100},
	}
	var buf bytes.Buffer
	printSignals(&buf, sigs, "logs/signals.jsonl", 1)

	out := buf.String()
	assert.Contains(t, out, "3 events today")
	assert.Contains(t, out, "09:30:00 UTC  large_move_down  -1.25%  @ 3000.00")
	assert.Contains(t, out, "broke_above prior_day_high (64000.00)  @ 64010.00")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("BTC:")), bytes.Index(buf.Bytes(), []byte("ETH:")))
}

func TestPrintSignalsEmpty(t *testing.T) {
	var buf bytes.Buffer
	printSignals(&buf, nil, "logs/signals.jsonl", 1.5)
	assert.Contains(t, buf.String(), "No signals detected today.")
	assert.Contains(t, buf.String(), ">1.5% moves")
}

func TestPrintSetups(t *testing.T) {
	out := &models.LLMOutput{
		Timestamp: "2024-03-01T10:00:00Z",
		Regime:    "trend",
		Setups: []models.Setup{
			{
				Rank: 1, Asset: "BTC", Direction: models.DirectionLong, Playbook: "A", Confidence: 72,
				TimeHorizonHours: []float64{2, 8},
				Entry:            &models.Entry{EntryStyle: "breakout", Levels: models.EntryLevels{Trigger: 65000}},
				Stop:             &models.Stop{Level: 64000, Why: "below range"},
				TakeProfits:      []models.TakeProfit{{Level: 67000, Pct: 50}, {Level: 68000, Pct: 50}},
				Risk:             &models.Risk{RiskPctEquity: 1, MaxLossUSD: 100, RecommendedLeverage: 2, RRToTP1: 2},
			},
			{Rank: 2, Asset: "ETH", Direction: models.DirectionNoTrade, Playbook: "E", RedFlags: []string{"thin book"}},
		},
	}
	var buf bytes.Buffer
	printSetups(&buf, out, []string{"capped leverage"}, nil)

	s := buf.String()
	assert.Contains(t, s, "#1  LONG BTC  playbook=A  conf=72/100")
	assert.Contains(t, s, "TP1=67000.00(50%)  TP2=68000.00(50%)")
	assert.Contains(t, s, "horizon=2-8h")
	assert.Contains(t, s, "#2  NO TRADE  ETH")
	assert.Contains(t, s, "Reason: thin book")
	assert.Contains(t, s, "AUTO-CORRECTIONS")
	assert.NotContains(t, s, "VALIDATION ISSUES")
}
