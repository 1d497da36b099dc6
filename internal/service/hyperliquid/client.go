// Package hyperliquid polls the Hyperliquid info endpoint into snapshots.
package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"PerpDesk/internal/domain/models"
	"PerpDesk/internal/service/ratelimit"
	xhttp "PerpDesk/pkg/http"
	applogger "PerpDesk/pkg/logger"
)

const (
	DefaultInfoURL = "https://api.hyperliquid.xyz/info"
	limiterKey     = "info"
)

// Lookback is the number of bars requested per interval.
type Lookback struct {
	Bars15m int
	Bars1h  int
	Bars4h  int
	Bars1d  int
}

type Config struct {
	InfoURL     string
	Timeout     time.Duration
	BookSigFigs int
	Lookback    Lookback
}

type interval struct {
	name string
	bars int
	size time.Duration
	set  func(*models.AssetSnapshot, []models.Candle)
}

// Client is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	now     func() time.Time
	logger  *applogger.Logger
}

func NewClient(cfg Config, limiter *ratelimit.Limiter, logger *applogger.Logger) *Client {
	if cfg.InfoURL == "" {
		cfg.InfoURL = DefaultInfoURL
	}
	if cfg.BookSigFigs == 0 {
		cfg.BookSigFigs = 5
	}
	lb := &cfg.Lookback
	lb.Bars15m = orDefault(lb.Bars15m, 20)
	lb.Bars1h = orDefault(lb.Bars1h, 24)
	lb.Bars4h = orDefault(lb.Bars4h, 30)
	lb.Bars1d = orDefault(lb.Bars1d, 7)

	if limiter == nil {
		limiter = ratelimit.New(0, 1)
	}
	return &Client{
		cfg:     cfg,
		http:    xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		limiter: limiter,
		now:     time.Now,
		logger:  applogger.OrNop(logger).With("hyperliquid"),
	}
}

func (c *Client) intervals() []interval {
	lb := c.cfg.Lookback
	return []interval{
		{"15m", lb.Bars15m, 15 * time.Minute, func(a *models.AssetSnapshot, cs []models.Candle) { a.Candles15m = cs }},
		{"1h", lb.Bars1h, time.Hour, func(a *models.AssetSnapshot, cs []models.Candle) { a.Candles1h = cs }},
		{"4h", lb.Bars4h, 4 * time.Hour, func(a *models.AssetSnapshot, cs []models.Candle) { a.Candles4h = cs }},
		{"1d", lb.Bars1d, 24 * time.Hour, func(a *models.AssetSnapshot, cs []models.Candle) { a.Candles1d = cs }},
	}
}

// CollectSnapshot captures one snapshot of assets. A failing universe or
// mids request fails the cycle; per-asset book and candle failures only
// leave those fields empty.
func (c *Client) CollectSnapshot(ctx context.Context, assets []string) (*models.Snapshot, error) {
	ts := c.now().UTC()

	ctxs, err := c.assetContexts(ctx)
	if err != nil {
		return nil, err
	}
	mids, err := c.AllMids(ctx)
	if err != nil {
		return nil, err
	}

	snap := &models.Snapshot{Timestamp: ts, Assets: make(map[string]models.AssetSnapshot, len(assets))}
	for _, symbol := range assets {
		ac, ok := ctxs[symbol]
		if !ok {
			c.logger.Warn("asset not in universe, skipping", applogger.String("asset", symbol))
			continue
		}

		a := models.AssetSnapshot{
			Mark:         ac.MarkPx.ptr(),
			Funding:      ac.Funding.ptr(),
			OpenInterest: ac.OpenInterest.ptr(),
			DayNtlVlm:    ac.DayNtlVlm.ptr(),
			PrevDayPx:    ac.PrevDayPx.ptr(),
		}
		if m, ok := mids[symbol]; ok {
			a.Mid = &m
		}

		book, err := c.L2Book(ctx, symbol)
		if err != nil {
			c.logger.Warn("l2 book failed", applogger.String("asset", symbol), applogger.Error(err))
		} else {
			a.OrderBook = book
		}

		end := ts
		for _, iv := range c.intervals() {
			start := end.Add(-time.Duration(iv.bars) * iv.size)
			candles, err := c.Candles(ctx, symbol, iv.name, start, end)
			if err != nil {
				c.logger.Warn("candles failed",
					applogger.String("asset", symbol),
					applogger.String("interval", iv.name),
					applogger.Error(err),
				)
				continue
			}
			iv.set(&a, candles)
		}

		snap.Assets[symbol] = a
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return snap, nil
}

// assetContexts returns mark, funding, OI and volume keyed by coin.
func (c *Client) assetContexts(ctx context.Context) (map[string]assetCtx, error) {
	var raw []json.RawMessage
	if err := c.post(ctx, map[string]interface{}{"type": "metaAndAssetCtxs"}, &raw); err != nil {
		return nil, fmt.Errorf("metaAndAssetCtxs: %w", err)
	}
	return decodeMetaAndCtxs(raw)
}

// AllMids returns the mid of every listed coin. Unparseable mids are dropped.
func (c *Client) AllMids(ctx context.Context) (map[string]float64, error) {
	var raw map[string]number
	if err := c.post(ctx, map[string]interface{}{"type": "allMids"}, &raw); err != nil {
		return nil, fmt.Errorf("allMids: %w", err)
	}
	mids := make(map[string]float64, len(raw))
	for coin, n := range raw {
		if n.ok {
			mids[coin] = n.v
		}
	}
	return mids, nil
}

func (c *Client) L2Book(ctx context.Context, coin string) (*models.OrderBook, error) {
	var wb wireBook
	req := map[string]interface{}{"type": "l2Book", "coin": coin, "nSigFigs": c.cfg.BookSigFigs}
	if err := c.post(ctx, req, &wb); err != nil {
		return nil, fmt.Errorf("l2Book %s: %w", coin, err)
	}
	return wb.toBook(), nil
}

// Candles returns bars of interval between start and end, oldest first.
func (c *Client) Candles(ctx context.Context, coin, interval string, start, end time.Time) ([]models.Candle, error) {
	req := map[string]interface{}{
		"type": "candleSnapshot",
		"req": map[string]interface{}{
			"coin":      coin,
			"interval":  interval,
			"startTime": start.UnixMilli(),
			"endTime":   end.UnixMilli(),
		},
	}
	var wc []wireCandle
	if err := c.post(ctx, req, &wc); err != nil {
		return nil, fmt.Errorf("candleSnapshot %s %s: %w", coin, interval, err)
	}
	return toCandles(wc), nil
}

func (c *Client) post(ctx context.Context, body, dest interface{}) error {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return c.http.PostJSON(ctx, c.cfg.InfoURL, nil, body, dest)
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
