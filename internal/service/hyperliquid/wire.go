package hyperliquid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"PerpDesk/internal/domain/models"
)

// number decodes the exchange's decimal strings as well as plain JSON numbers.
// Null, empty or unparseable values leave it unset.
type number struct {
	v  float64
	ok bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return nil
	}
	n.v, n.ok = f, true
	return nil
}

func (n number) ptr() *float64 {
	if !n.ok {
		return nil
	}
	v := n.v
	return &v
}

type universeEntry struct {
	Name string `json:"name"`
}

type meta struct {
	Universe []universeEntry `json:"universe"`
}

type assetCtx struct {
	MarkPx       number `json:"markPx"`
	Funding      number `json:"funding"`
	OpenInterest number `json:"openInterest"`
	DayNtlVlm    number `json:"dayNtlVlm"`
	PrevDayPx    number `json:"prevDayPx"`
}

type wireLevel struct {
	Px number `json:"px"`
	Sz number `json:"sz"`
	N  int    `json:"n"`
}

type wireBook struct {
	Coin   string        `json:"coin"`
	Time   int64         `json:"time"`
	Levels [][]wireLevel `json:"levels"`
}

type wireCandle struct {
	OpenTime int64  `json:"t"`
	Open     number `json:"o"`
	High     number `json:"h"`
	Low      number `json:"l"`
	Close    number `json:"c"`
	Volume   number `json:"v"`
}

// decodeMetaAndCtxs splits the [meta, ctxs] pair into ctxs keyed by coin.
func decodeMetaAndCtxs(raw []json.RawMessage) (map[string]assetCtx, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("metaAndAssetCtxs: expected 2 elements, got %d", len(raw))
	}
	var m meta
	if err := json.Unmarshal(raw[0], &m); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	var ctxs []assetCtx
	if err := json.Unmarshal(raw[1], &ctxs); err != nil {
		return nil, fmt.Errorf("decode asset contexts: %w", err)
	}

	out := make(map[string]assetCtx, len(m.Universe))
	for i, u := range m.Universe {
		if i >= len(ctxs) {
			break
		}
		out[u.Name] = ctxs[i]
	}
	return out, nil
}

// toBook returns nil unless both sides are present.
func (b wireBook) toBook() *models.OrderBook {
	if len(b.Levels) < 2 {
		return nil
	}
	side := func(levels []wireLevel) []models.BookLevel {
		out := make([]models.BookLevel, 0, len(levels))
		for _, l := range levels {
			if !l.Px.ok || !l.Sz.ok {
				continue
			}
			out = append(out, models.BookLevel{Price: l.Px.v, Size: l.Sz.v, Count: l.N})
		}
		return out
	}
	return &models.OrderBook{Bids: side(b.Levels[0]), Asks: side(b.Levels[1])}
}

func toCandles(in []wireCandle) []models.Candle {
	out := make([]models.Candle, 0, len(in))
	for _, c := range in {
		out = append(out, models.Candle{
			OpenTime: c.OpenTime,
			Open:     c.Open.v,
			High:     c.High.v,
			Low:      c.Low.v,
			Close:    c.Close.v,
			Volume:   c.Volume.v,
		})
	}
	return out
}
