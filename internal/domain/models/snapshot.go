package models

import "time"

// Candle is one OHLCV bar. Hyperliquid returns prices as strings; the
// collector parses them before the candle is stored.
type Candle struct {
	OpenTime int64   `json:"t"`
	Open     float64 `json:"o"`
	High     float64 `json:"h"`
	Low      float64 `json:"l"`
	Close    float64 `json:"c"`
	Volume   float64 `json:"v"`
}

type BookLevel struct {
	Price float64 `json:"px"`
	Size  float64 `json:"sz"`
	Count int     `json:"n"`
}

// OrderBook holds levels best-first on each side.
type OrderBook struct {
	Bids []BookLevel `json:"bids"`
	Asks []BookLevel `json:"asks"`
}

// AssetSnapshot is the raw per-asset capture of one poll cycle.
// Nil pointers mean the exchange did not report the value.
type AssetSnapshot struct {
	Mid          *float64   `json:"mid"`
	Mark         *float64   `json:"mark"`
	Funding      *float64   `json:"funding"`
	OpenInterest *float64   `json:"open_interest"`
	DayNtlVlm    *float64   `json:"day_ntl_vlm"`
	PrevDayPx    *float64   `json:"prev_day_px"`
	OrderBook    *OrderBook `json:"orderbook,omitempty"`
	Candles15m   []Candle   `json:"candles_15m,omitempty"`
	Candles1h    []Candle   `json:"candles_1h,omitempty"`
	Candles4h    []Candle   `json:"candles_4h,omitempty"`
	Candles1d    []Candle   `json:"candles_1d,omitempty"`
}

// Snapshot is one timestamped capture of the asset universe.
type Snapshot struct {
	Timestamp time.Time                `json:"timestamp"`
	Assets    map[string]AssetSnapshot `json:"assets"`
}

// MidOf returns the mid of symbol, or nil when unknown or non-positive.
func (s *Snapshot) MidOf(symbol string) *float64 {
	if s == nil {
		return nil
	}
	a, ok := s.Assets[symbol]
	if !ok || a.Mid == nil || *a.Mid <= 0 {
		return nil
	}
	return a.Mid
}
