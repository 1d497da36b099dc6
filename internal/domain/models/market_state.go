package models

import "time"

// Funding trend labels.
const (
	TrendExtremeLong  = "extreme_long"
	TrendExtremeShort = "extreme_short"
	TrendStable       = "stable"
	TrendRising       = "rising"
	TrendFalling      = "falling"
	TrendUnknown      = "unknown"
)

// FlowSourceImbalanceProxy marks flow figures derived from book imbalance
// rather than from executed trades.
const FlowSourceImbalanceProxy = "orderbook_imbalance_proxy"

type PriceData struct {
	Mark float64 `json:"mark"`
	Mid  float64 `json:"mid"`
	Last float64 `json:"last"`
}

type BarStats struct {
	Ret1m  *float64 `json:"ret_1m"`
	Ret5m  *float64 `json:"ret_5m"`
	Ret15m *float64 `json:"ret_15m"`
	Ret1h  *float64 `json:"ret_1h"`
	Ret4h  *float64 `json:"ret_4h"`
	ATR15m *float64 `json:"atr_15m"`
	ATR1h  *float64 `json:"atr_1h"`
	ATR4h  *float64 `json:"atr_4h"`
}

type KeyLevels struct {
	DayHigh       *float64 `json:"day_high"`
	DayLow        *float64 `json:"day_low"`
	PriorDayOpen  *float64 `json:"prior_day_open"`
	PriorDayHigh  *float64 `json:"prior_day_high"`
	PriorDayLow   *float64 `json:"prior_day_low"`
	PriorDayClose *float64 `json:"prior_day_close"`
	PivotPP       *float64 `json:"pivot_pp"`
	PivotR1       *float64 `json:"pivot_r1"`
	PivotR2       *float64 `json:"pivot_r2"`
	PivotS1       *float64 `json:"pivot_s1"`
	PivotS2       *float64 `json:"pivot_s2"`
	WeekHigh      *float64 `json:"week_high"`
	WeekLow       *float64 `json:"week_low"`
	VWAP          *float64 `json:"vwap"`
}

// OrderbookState is always populated. Placeholder is set when the book was
// missing or malformed and neutral values were substituted.
type OrderbookState struct {
	SpreadBps   float64 `json:"spread_bps"`
	BidDepth01  float64 `json:"bid_depth_0_1pct"`
	AskDepth01  float64 `json:"ask_depth_0_1pct"`
	BidDepth05  float64 `json:"bid_depth_0_5pct"`
	AskDepth05  float64 `json:"ask_depth_0_5pct"`
	Imbalance   float64 `json:"imbalance"`
	BestBid     float64 `json:"best_bid"`
	BestAsk     float64 `json:"best_ask"`
	Placeholder bool    `json:"placeholder,omitempty"`
}

type FlowData struct {
	BuyPressureRatio *float64 `json:"buy_pressure_ratio"`
	Source           string   `json:"source"`
}

type FundingOI struct {
	FundingRate    *float64 `json:"funding_rate"`
	OpenInterest   *float64 `json:"open_interest"`
	FundingDelta1h *float64 `json:"funding_delta_1h"`
	OIDelta1h      *float64 `json:"oi_delta_1h"`
	Trend          string   `json:"funding_trend"`
}

type AssetState struct {
	Symbol    string         `json:"symbol"`
	Price     PriceData      `json:"price"`
	Bars      BarStats       `json:"bar_stats"`
	Levels    KeyLevels      `json:"key_levels"`
	Orderbook OrderbookState `json:"orderbook"`
	Flow      FlowData       `json:"flow"`
	Funding   FundingOI      `json:"funding_oi"`
}

// MarketState is rebuilt for every analysis and never persisted directly.
type MarketState struct {
	Timestamp time.Time    `json:"timestamp"`
	Assets    []AssetState `json:"assets"`
	Risk      RiskContext  `json:"risk_context"`
}

// Asset returns the state for symbol, or nil.
func (m *MarketState) Asset(symbol string) *AssetState {
	for i := range m.Assets {
		if m.Assets[i].Symbol == symbol {
			return &m.Assets[i]
		}
	}
	return nil
}
