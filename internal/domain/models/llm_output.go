package models

// Setup directions.
const (
	DirectionLong    = "long"
	DirectionShort   = "short"
	DirectionNoTrade = "no_trade"
)

// ConfidenceWeights are applied to the ten breakdown scores, in order.
var ConfidenceWeights = [10]float64{2.0, 1.5, 1.5, 1.5, 1.0, 0.5, 0.5, 0.25, 0.25, 1.0}

// LLMOutput is the model's trade plan. Numeric risk fields are rewritten by
// the validator; qualitative text is never touched.
type LLMOutput struct {
	Timestamp     string  `json:"timestamp" validate:"required"`
	Regime        string  `json:"regime" validate:"oneof=trend range high_vol low_vol chop"`
	RegimeNote    string  `json:"regime_note"`
	Setups        []Setup `json:"setups" validate:"len=3,dive"`
	NoTradeReason string  `json:"no_trade_reason"`
}

type Setup struct {
	Rank                int                   `json:"rank"`
	Asset               string                `json:"asset" validate:"required"`
	Direction           string                `json:"direction" validate:"oneof=long short no_trade"`
	Playbook            string                `json:"playbook" validate:"oneof=A B C D E"`
	Confidence          int                   `json:"confidence" validate:"min=0,max=100"`
	ConfidenceBreakdown []ConfidenceCriterion `json:"confidence_breakdown" validate:"len=10,dive"`
	TimeHorizonHours    []float64             `json:"time_horizon_hours"`
	Entry               *Entry                `json:"entry" validate:"required"`
	Stop                *Stop                 `json:"stop" validate:"required"`
	TakeProfits         []TakeProfit          `json:"take_profits" validate:"dive"`
	Risk                *Risk                 `json:"risk" validate:"required"`
	Invalidations       []string              `json:"invalidations"`
	RedFlags            []string              `json:"red_flags"`
	IfNotTriggered      string                `json:"if_not_triggered"`
}

type ConfidenceCriterion struct {
	Criterion string `json:"criterion" validate:"required"`
	Score     int    `json:"score" validate:"min=0,max=10"`
}

type Entry struct {
	Type              string      `json:"type"`
	TriggerConditions []string    `json:"trigger_conditions"`
	EntryStyle        string      `json:"entry_style"`
	Levels            EntryLevels `json:"levels"`
}

type EntryLevels struct {
	Trigger        float64 `json:"trigger"`
	RetestZoneLow  float64 `json:"retest_zone_low"`
	RetestZoneHigh float64 `json:"retest_zone_high"`
}

type Stop struct {
	Level float64 `json:"level"`
	Why   string  `json:"why"`
}

type TakeProfit struct {
	Level float64 `json:"level"`
	Pct   float64 `json:"pct" validate:"min=0,max=100"`
}

type Risk struct {
	RiskPctEquity               float64 `json:"risk_pct_equity" validate:"min=0"`
	MaxLossUSD                  float64 `json:"max_loss_usd"`
	RecommendedLeverage         int     `json:"recommended_leverage"`
	PositionNotionalUSD         float64 `json:"position_notional_usd"`
	MarginUsedUSD               float64 `json:"margin_used_usd"`
	RRToTP1                     float64 `json:"rr_to_tp1"`
	CancelIfNotTriggeredMinutes int     `json:"cancel_if_not_triggered_minutes"`
	TimeStopMinutes             int     `json:"time_stop_minutes"`
	LiquidationBufferNote       string  `json:"liquidation_buffer_note"`
}

// Tradeable reports whether the setup proposes a position.
func (s *Setup) Tradeable() bool {
	return s.Direction != DirectionNoTrade
}

// WeightedConfidence combines the breakdown scores with ConfidenceWeights.
func (s *Setup) WeightedConfidence() float64 {
	var sum float64
	for i, c := range s.ConfidenceBreakdown {
		if i >= len(ConfidenceWeights) {
			break
		}
		sum += float64(c.Score) * ConfidenceWeights[i]
	}
	return sum
}

// TP1 returns the first take-profit level, or 0.
func (s *Setup) TP1() float64 {
	if len(s.TakeProfits) == 0 {
		return 0
	}
	return s.TakeProfits[0].Level
}
