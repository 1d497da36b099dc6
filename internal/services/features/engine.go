package features

import (
	"errors"
	"math"
	"time"

	"PerpDesk/internal/domain/models"
	applogger "PerpDesk/pkg/logger"
)

var (
	ErrNoSnapshots  = errors.New("features: no snapshots")
	ErrNoAssetState = errors.New("features: no asset produced a valid state")
)

// Engine turns a newest-first snapshot sequence into a MarketState.
// It holds only configuration and is safe for concurrent use.
type Engine struct {
	assets         []string
	risk           models.RiskLimits
	cadence        time.Duration
	atrPeriod      int
	intradayWindow int
	logger         *applogger.Logger
}

// Option configures Engine.
type Option func(*Engine)

// WithCadence sets the spacing between consecutive snapshots.
func WithCadence(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.cadence = d
		}
	}
}

// WithATRPeriod sets the ATR window in bars.
func WithATRPeriod(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.atrPeriod = n
		}
	}
}

// WithIntradayWindow sets how many 15m bars define the intraday high/low.
func WithIntradayWindow(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.intradayWindow = n
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(assets []string, risk models.RiskLimits, opts ...Option) *Engine {
	e := &Engine{
		assets:         assets,
		risk:           risk,
		cadence:        time.Minute,
		atrPeriod:      14,
		intradayWindow: 20,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = applogger.OrNop(e.logger)
	return e
}

// BuildMarketState builds one AssetState per configured asset present in the
// latest snapshot (snapshots[0]).
func (e *Engine) BuildMarketState(snapshots []models.Snapshot) (*models.MarketState, error) {
	if len(snapshots) == 0 {
		return nil, ErrNoSnapshots
	}
	latest := snapshots[0]

	state := &models.MarketState{
		Timestamp: latest.Timestamp,
		Risk:      e.risk.Context(),
	}
	for _, symbol := range e.assets {
		data, ok := latest.Assets[symbol]
		if !ok {
			e.logger.Warn("asset missing from latest snapshot", applogger.String("asset", symbol))
			continue
		}
		as, ok := e.buildAsset(symbol, data, snapshots)
		if !ok {
			e.logger.Warn("asset has no usable price", applogger.String("asset", symbol))
			continue
		}
		state.Assets = append(state.Assets, as)
	}

	if len(state.Assets) == 0 {
		return nil, ErrNoAssetState
	}
	return state, nil
}

func (e *Engine) buildAsset(symbol string, data models.AssetSnapshot, snapshots []models.Snapshot) (models.AssetState, bool) {
	mid, mark := priceOf(data.Mid), priceOf(data.Mark)
	if mid == 0 {
		mid = mark
	}
	if mark == 0 {
		mark = mid
	}
	if mid == 0 {
		return models.AssetState{}, false
	}

	ob := OrderbookFeatures(data.OrderBook, mid)
	return models.AssetState{
		Symbol:    symbol,
		Price:     models.PriceData{Mark: mark, Mid: mid, Last: mid},
		Bars:      e.barStats(symbol, data, snapshots),
		Levels:    keyLevels(data, e.intradayWindow),
		Orderbook: ob,
		Flow:      FlowProxy(ob),
		Funding:   fundingOI(symbol, snapshots, e.lag(time.Hour)),
	}, true
}

func (e *Engine) barStats(symbol string, data models.AssetSnapshot, snapshots []models.Snapshot) models.BarStats {
	return models.BarStats{
		Ret1m:  e.snapshotReturn(symbol, snapshots, time.Minute),
		Ret5m:  e.snapshotReturn(symbol, snapshots, 5*time.Minute),
		Ret15m: e.snapshotReturn(symbol, snapshots, 15*time.Minute),
		Ret1h:  CloseReturn(data.Candles1h),
		Ret4h:  CloseReturn(data.Candles4h),
		ATR15m: ATR(data.Candles15m, e.atrPeriod),
		ATR1h:  ATR(data.Candles1h, e.atrPeriod),
		ATR4h:  ATR(data.Candles4h, e.atrPeriod),
	}
}

// snapshotReturn compares the latest mid with the mid horizon/cadence
// snapshots back. Nil when the sequence does not reach that far.
func (e *Engine) snapshotReturn(symbol string, snapshots []models.Snapshot, horizon time.Duration) *float64 {
	idx := e.lag(horizon)
	if idx >= len(snapshots) {
		return nil
	}
	cur := snapshots[0].MidOf(symbol)
	ref := snapshots[idx].MidOf(symbol)
	if cur == nil || ref == nil {
		return nil
	}
	return PctChange(*cur, *ref)
}

// lag converts a horizon to a snapshot offset, at least 1.
func (e *Engine) lag(horizon time.Duration) int {
	n := int(math.Round(float64(horizon) / float64(e.cadence)))
	if n < 1 {
		return 1
	}
	return n
}

func priceOf(p *float64) float64 {
	if p == nil || *p <= 0 {
		return 0
	}
	return *p
}
