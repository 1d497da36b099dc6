package validation

import (
	"fmt"
	"math"
	"sort"

	"PerpDesk/internal/domain/models"
	applogger "PerpDesk/pkg/logger"
	"PerpDesk/pkg/util"
)

const (
	// driftThreshold is the relative deviation that earns a correction note.
	driftThreshold = 0.10
	// scaleEpsilon absorbs 4 dp rounding of each scaled risk percentage.
	scaleEpsilon = 0.00005
)

// Sizing is a position sized from first principles.
type Sizing struct {
	StopDistance float64 // fraction of entry
	MaxLossUSD   float64
	NotionalUSD  float64
	Leverage     int
	MarginUSD    float64
	RRToTP1      float64
	// Capped is set when the leverage ceiling shrank the notional.
	Capped bool
}

// Size derives loss, notional, leverage, margin and reward:risk for a setup
// risking riskPct of equity between entry and stop. Leverage is never raised
// above MaxLeverage to preserve a loss amount; the notional shrinks instead.
// Callers must ensure entry and stop are positive and distinct.
func Size(limits models.RiskLimits, riskPct, entry, stop, tp1 float64) Sizing {
	dist := math.Abs(entry-stop) / entry
	loss := limits.EquityUSD * riskPct / 100
	notional := loss / dist
	budget := limits.MarginBudgetUSD()

	sz := Sizing{StopDistance: dist}
	raw := math.Inf(1)
	if budget > 0 {
		raw = notional / budget
	}

	lev := int(math.Ceil(raw - 1e-9))
	if raw > float64(limits.MaxLeverage) {
		notional = budget * float64(limits.MaxLeverage)
		loss = notional * dist
		lev = limits.MaxLeverage
		sz.Capped = true
	}
	if lev < limits.MinLeverage {
		lev = limits.MinLeverage
	}
	if lev < 1 {
		lev = 1
	}

	sz.MaxLossUSD = util.Round(loss, 2)
	sz.NotionalUSD = util.Round(notional, 2)
	sz.Leverage = lev
	sz.MarginUSD = util.Round(notional/float64(lev), 2)
	if tp1 > 0 {
		sz.RRToTP1 = util.Round(math.Abs(tp1-entry)/math.Abs(entry-stop), 2)
	}
	return sz
}

// LiquidationNote approximates liquidation distance as 100/leverage percent.
func LiquidationNote(leverage int, stopDistance float64) string {
	liq := 100 / float64(leverage)
	stopPct := stopDistance * 100
	return fmt.Sprintf("Liq ~%.1f%% from entry, stop at %.2f%% (%.1f%% buffer)", liq, stopPct, liq-stopPct)
}

// CorrectRisk caps each tradeable setup's risk percentage and re-derives its
// sizing in place. It is a fixed point: a second call on its own output
// returns no correction notes.
func (v *Validator) CorrectRisk(out *models.LLMOutput) []string {
	if out == nil {
		return nil
	}
	var notes noteList
	v.correctRisk(out, rankOrder(out.Setups), &notes)
	return notes.ordered()
}

// Correct applies risk correction, the reward:risk gate and the total-risk
// gate to out in place. Scaling by the total-risk gate changes the risk
// percentage, so a later CorrectRisk may re-size the scaled setups once.
func (v *Validator) Correct(out *models.LLMOutput) []string {
	var notes noteList
	if out == nil {
		return nil
	}

	order := rankOrder(out.Setups)
	v.correctRisk(out, order, &notes)
	for _, i := range order {
		s := &out.Setups[i]
		if !s.Tradeable() || s.Risk == nil {
			continue
		}
		if s.Risk.RRToTP1 < v.limits.MinRewardRisk {
			notes.issue(fmt.Sprintf("Setup %d (%s): R:R to TP1 = %.2f (< %.2f minimum). Consider no_trade or wider targets.",
				s.Rank, s.Asset, s.Risk.RRToTP1, v.limits.MinRewardRisk))
		}
	}
	v.totalRiskGate(out, order, &notes)

	if len(notes.corrections) > 0 {
		v.logger.Info("auto-corrections applied", applogger.Int("count", len(notes.corrections)))
	}
	if len(notes.issues) > 0 {
		v.logger.Warn("residual validation issues", applogger.Int("count", len(notes.issues)))
	}
	return notes.ordered()
}

func (v *Validator) correctRisk(out *models.LLMOutput, order []int, notes *noteList) {
	for _, i := range order {
		if s := &out.Setups[i]; s.Tradeable() {
			v.correctSetup(s, notes)
		}
	}
}

func (v *Validator) correctSetup(s *models.Setup, notes *noteList) {
	if s.Risk == nil || s.Entry == nil || s.Stop == nil {
		notes.issue(fmt.Sprintf("Setup %d (%s): missing entry, stop or risk block", s.Rank, s.Asset))
		return
	}
	r := s.Risk

	if limit := v.limits.MaxRiskPerTradePct; r.RiskPctEquity > limit {
		notes.correct(fmt.Sprintf("Setup %d (%s): capped risk_pct_equity %.2f%% to %.2f%%", s.Rank, s.Asset, r.RiskPctEquity, limit))
		r.RiskPctEquity = limit
	}

	entry, stop := s.Entry.Levels.Trigger, s.Stop.Level
	if entry <= 0 || stop <= 0 || entry == stop {
		notes.issue(fmt.Sprintf("Setup %d (%s): entry %v and stop %v cannot size a position; risk figures left as supplied",
			s.Rank, s.Asset, entry, stop))
		return
	}

	sz := Size(v.limits, r.RiskPctEquity, entry, stop, s.TP1())
	v.noteDrift(s, sz, notes)

	r.MaxLossUSD = sz.MaxLossUSD
	r.PositionNotionalUSD = sz.NotionalUSD
	r.RecommendedLeverage = sz.Leverage
	r.MarginUsedUSD = sz.MarginUSD
	r.RRToTP1 = sz.RRToTP1
	r.LiquidationBufferNote = LiquidationNote(sz.Leverage, sz.StopDistance)
}

// noteDrift records where the stated figures differ from the sized ones.
func (v *Validator) noteDrift(s *models.Setup, sz Sizing, notes *noteList) {
	r := s.Risk
	tag := fmt.Sprintf("Setup %d (%s)", s.Rank, s.Asset)

	if sz.Capped && (r.PositionNotionalUSD != sz.NotionalUSD || r.RecommendedLeverage != sz.Leverage) {
		notes.correct(fmt.Sprintf("%s: leverage capped at %dx, notional reduced to $%.0f, max_loss=$%.2f",
			tag, sz.Leverage, sz.NotionalUSD, sz.MaxLossUSD))
	}
	if drifted(r.PositionNotionalUSD, sz.NotionalUSD) {
		notes.correct(fmt.Sprintf("%s: corrected notional $%.0f -> $%.0f", tag, r.PositionNotionalUSD, sz.NotionalUSD))
	}
	if drifted(r.MaxLossUSD, sz.MaxLossUSD) {
		notes.correct(fmt.Sprintf("%s: corrected max_loss $%.2f -> $%.2f", tag, r.MaxLossUSD, sz.MaxLossUSD))
	}
	if r.RecommendedLeverage != sz.Leverage {
		notes.correct(fmt.Sprintf("%s: corrected leverage %dx -> %dx (range %d-%dx)",
			tag, r.RecommendedLeverage, sz.Leverage, v.limits.MinLeverage, v.limits.MaxLeverage))
	}
	if r.RRToTP1 > 0 && drifted(r.RRToTP1, sz.RRToTP1) {
		notes.correct(fmt.Sprintf("%s: corrected R:R %.2f -> %.2f", tag, r.RRToTP1, sz.RRToTP1))
	}
}

// drifted reports a relative deviation above driftThreshold, or a value
// computed where none was stated.
func drifted(stated, computed float64) bool {
	if stated <= 0 {
		return computed > 0
	}
	return math.Abs(computed-stated)/stated > driftThreshold
}

func (v *Validator) totalRiskGate(out *models.LLMOutput, order []int, notes *noteList) {
	var (
		sum float64
		n   int
	)
	for _, i := range order {
		s := &out.Setups[i]
		if s.Tradeable() && s.Risk != nil {
			sum += s.Risk.RiskPctEquity
			n++
		}
	}
	ceiling := v.limits.MaxTotalRiskPct
	if n == 0 || sum <= ceiling+float64(n)*scaleEpsilon {
		return
	}

	scale := ceiling / sum
	for _, i := range order {
		s := &out.Setups[i]
		if !s.Tradeable() || s.Risk == nil {
			continue
		}
		r := s.Risk
		old := r.RiskPctEquity
		r.RiskPctEquity = util.Round(old*scale, 4)
		r.MaxLossUSD = util.Round(r.MaxLossUSD*scale, 2)

		if v.resizeOnScale && s.Entry != nil && s.Stop != nil {
			entry, stop := s.Entry.Levels.Trigger, s.Stop.Level
			if entry > 0 && stop > 0 && entry != stop {
				sz := Size(v.limits, r.RiskPctEquity, entry, stop, s.TP1())
				r.MaxLossUSD = sz.MaxLossUSD
				r.PositionNotionalUSD = sz.NotionalUSD
				r.RecommendedLeverage = sz.Leverage
				r.MarginUsedUSD = sz.MarginUSD
				r.LiquidationBufferNote = LiquidationNote(sz.Leverage, sz.StopDistance)
			}
		}
		notes.correct(fmt.Sprintf("Setup %d (%s): scaled risk %.2f%% -> %.4f%% (total risk cap %.2f%%)",
			s.Rank, s.Asset, old, r.RiskPctEquity, ceiling))
	}
}

// rankOrder returns setup indices sorted by rank, stable for ties.
func rankOrder(setups []models.Setup) []int {
	idx := make([]int, len(setups))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return setups[idx[a]].Rank < setups[idx[b]].Rank
	})
	return idx
}
