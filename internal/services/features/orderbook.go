package features

import (
	"math"

	"PerpDesk/internal/domain/models"
	"PerpDesk/pkg/util"
)

// Depth bands, in percent of the best price.
const (
	nearBandPct = 0.1
	wideBandPct = 0.5
)

// DepthWithin sums notional (price x size) of levels within pct percent of best.
func DepthWithin(levels []models.BookLevel, best, pct float64) float64 {
	if best <= 0 {
		return 0
	}
	var total float64
	for _, l := range levels {
		if l.Price <= 0 || l.Size <= 0 {
			continue
		}
		if math.Abs(l.Price-best)/best <= pct/100 {
			total += l.Price * l.Size
		}
	}
	return util.Round(total, 2)
}

// Imbalance is (bid-ask)/(bid+ask), 0 when both sides are empty.
func Imbalance(bidDepth, askDepth float64) float64 {
	total := bidDepth + askDepth
	if total <= 0 {
		return 0
	}
	return util.Round((bidDepth-askDepth)/total, 3)
}

// NeutralOrderbook is substituted when the book is missing or malformed.
func NeutralOrderbook(mid float64) models.OrderbookState {
	return models.OrderbookState{
		BestBid:     mid,
		BestAsk:     mid,
		Placeholder: true,
	}
}

// OrderbookFeatures derives spread, banded depth and imbalance from the
// latest book only.
func OrderbookFeatures(book *models.OrderBook, mid float64) models.OrderbookState {
	if book == nil || len(book.Bids) == 0 || len(book.Asks) == 0 {
		return NeutralOrderbook(mid)
	}
	bestBid := book.Bids[0].Price
	bestAsk := book.Asks[0].Price
	if bestBid <= 0 || bestAsk <= 0 || bestAsk < bestBid {
		return NeutralOrderbook(mid)
	}

	st := models.OrderbookState{
		SpreadBps:  util.Round((bestAsk-bestBid)/bestBid*10000, 2),
		BidDepth01: DepthWithin(book.Bids, bestBid, nearBandPct),
		AskDepth01: DepthWithin(book.Asks, bestAsk, nearBandPct),
		BidDepth05: DepthWithin(book.Bids, bestBid, wideBandPct),
		AskDepth05: DepthWithin(book.Asks, bestAsk, wideBandPct),
		BestBid:    bestBid,
		BestAsk:    bestAsk,
	}
	st.Imbalance = Imbalance(st.BidDepth01, st.AskDepth01)
	return st
}

// FlowProxy maps imbalance in [-1,1] to a buy-pressure ratio in [0,1].
// It is not a measurement of executed flow.
func FlowProxy(ob models.OrderbookState) models.FlowData {
	fd := models.FlowData{Source: models.FlowSourceImbalanceProxy}
	if ob.Placeholder {
		return fd
	}
	fd.BuyPressureRatio = util.RoundPtr(util.Clamp(0.5+ob.Imbalance*0.5, 0, 1), 3)
	return fd
}
