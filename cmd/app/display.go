package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"PerpDesk/internal/domain/models"
	"PerpDesk/internal/usecase"
)

var rule = strings.Repeat("=", 64)

var (
	longText  = color.New(color.FgGreen, color.Bold).SprintFunc()
	shortText = color.New(color.FgRed, color.Bold).SprintFunc()
	warnText  = color.New(color.FgYellow).SprintFunc()
	errText   = color.New(color.FgRed).SprintFunc()
)

func directionText(dir string) string {
	d := strings.ToUpper(dir)
	if d == "SHORT" {
		return shortText(d)
	}
	return longText(d)
}

func printCycle(w io.Writer, c *usecase.Cycle) {
	assets := make([]string, 0, len(c.Snapshot.Assets))
	for a := range c.Snapshot.Assets {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	fmt.Fprintf(w, "#%d %s", c.Count, c.Snapshot.Timestamp.UTC().Format("15:04:05"))
	for _, a := range assets {
		if mid := c.Snapshot.Assets[a].Mid; mid != nil {
			fmt.Fprintf(w, "  %s=%.2f", a, *mid)
		}
	}
	fmt.Fprintf(w, "  (%d signals, %s)\n", len(c.Signals), c.Elapsed.Round(time.Millisecond))
}

func printMarketState(w io.Writer, s *models.MarketState) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "\n%s\n  MARKET STATE  |  %s\n%s\n", rule, s.Timestamp.UTC().Format(time.RFC3339), rule)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, a := range s.Assets {
		fmt.Fprintf(tw, "  %s\tmid=%.2f\tmark=%.2f\tspread=%.1fbps\timb=%+.2f\n",
			a.Symbol, a.Price.Mid, a.Price.Mark, a.Orderbook.SpreadBps, a.Orderbook.Imbalance)
		fmt.Fprintf(tw, "\tdayH=%s\tdayL=%s\tvwap=%s\t\n",
			num(a.Levels.DayHigh), num(a.Levels.DayLow), num(a.Levels.VWAP))
		fmt.Fprintf(tw, "\tret1m=%s\tret5m=%s\tret15m=%s\tatr15m=%s\n",
			pct(a.Bars.Ret1m), pct(a.Bars.Ret5m), pct(a.Bars.Ret15m), num(a.Bars.ATR15m))
		fmt.Fprintf(tw, "\tfunding=%s\tOI=%s\tOId1h=%s\ttrend=%s\n",
			rate(a.Funding.FundingRate), num(a.Funding.OpenInterest), num(a.Funding.OIDelta1h), a.Funding.Trend)
	}
	_ = tw.Flush()

	rc := s.Risk
	fmt.Fprintf(w, "\n  Risk: equity=$%.0f  max/trade=$%.0f  max/total=$%.0f  lev=%d-%dx\n%s\n\n",
		rc.EquityUSD, rc.MaxLossPerTradeUSD, rc.MaxTotalRiskUSD, rc.MinLeverage, rc.MaxLeverage, rule)
}

func printSetups(w io.Writer, out *models.LLMOutput, corrections, issues []string) {
	if out == nil {
		return
	}
	fmt.Fprintf(w, "\n%s\n  TRADE PLAN  |  %s\n  Regime: %s (%s)\n%s\n", rule, out.Timestamp, out.Regime, out.RegimeNote, rule)
	if out.NoTradeReason != "" {
		fmt.Fprintf(w, "\n  %s: %s\n", warnText("NO TRADE"), out.NoTradeReason)
	}
	for i := range out.Setups {
		printSetup(w, &out.Setups[i])
	}
	printNotes(w, warnText("AUTO-CORRECTIONS"), corrections)
	printNotes(w, errText("VALIDATION ISSUES"), issues)
	fmt.Fprintln(w)
}

func printSetup(w io.Writer, s *models.Setup) {
	if !s.Tradeable() {
		fmt.Fprintf(w, "\n  #%d  %s  %s  playbook=%s  conf=%d/100\n", s.Rank, warnText("NO TRADE"), s.Asset, s.Playbook, s.Confidence)
		if len(s.RedFlags) > 0 {
			fmt.Fprintf(w, "    Reason: %s\n", strings.Join(s.RedFlags, "; "))
		}
		return
	}

	fmt.Fprintf(w, "\n  #%d  %s %s  playbook=%s  conf=%d/100\n", s.Rank, directionText(s.Direction), s.Asset, s.Playbook, s.Confidence)
	if s.Entry != nil {
		lv := s.Entry.Levels
		fmt.Fprintf(w, "    Entry: %s @ trigger=%.2f  zone=[%.2f, %.2f]\n", s.Entry.EntryStyle, lv.Trigger, lv.RetestZoneLow, lv.RetestZoneHigh)
	}
	if s.Stop != nil {
		fmt.Fprintf(w, "    Stop:  %.2f (%s)\n", s.Stop.Level, s.Stop.Why)
	}
	tps := make([]string, len(s.TakeProfits))
	for i, tp := range s.TakeProfits {
		tps[i] = fmt.Sprintf("TP%d=%.2f(%g%%)", i+1, tp.Level, tp.Pct)
	}
	fmt.Fprintf(w, "    TPs:   %s\n", strings.Join(tps, "  "))
	if r := s.Risk; r != nil {
		fmt.Fprintf(w, "    Risk:  %.2f%% equity  maxloss=$%.0f  lev=%dx  notional=$%.0f  margin=$%.0f  R:R=%.2f\n",
			r.RiskPctEquity, r.MaxLossUSD, r.RecommendedLeverage, r.PositionNotionalUSD, r.MarginUsedUSD, r.RRToTP1)
		fmt.Fprintf(w, "    Time:  cancel=%dmin  stop=%dmin  horizon=%s\n",
			r.CancelIfNotTriggeredMinutes, r.TimeStopMinutes, horizon(s.TimeHorizonHours))
	}
	if len(s.Invalidations) > 0 {
		fmt.Fprintf(w, "    Invalidations: %s\n", strings.Join(head(s.Invalidations, 3), "; "))
	}
	if len(s.RedFlags) > 0 {
		fmt.Fprintf(w, "    %s %s\n", warnText("Red flags:"), strings.Join(head(s.RedFlags, 3), "; "))
	}
}

func printNotes(w io.Writer, title string, notes []string) {
	if len(notes) == 0 {
		return
	}
	fmt.Fprintf(w, "\n  %s:\n", title)
	for _, n := range notes {
		fmt.Fprintf(w, "    - %s\n", n)
	}
}

func printStatus(w io.Writer, rep *usecase.StatusReport, dbPath string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Snapshots:\t%d\n", rep.Snapshots)
	if rep.LatestSnapshot != nil {
		fmt.Fprintf(tw, "Latest:\t%s (%s)\n", rep.LatestSnapshot.UTC().Format(time.RFC3339), rep.SnapshotAge)
	}
	if rep.LastAnalysis != nil {
		fmt.Fprintf(tw, "Last analysis:\t%s\n", rep.LastAnalysis.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintf(tw, "Last analysis:\tnone\n")
	}
	fmt.Fprintf(tw, "Signals today:\t%d\n", rep.SignalsToday)
	fmt.Fprintf(tw, "Assets:\t%s\n", strings.Join(rep.Assets, ", "))
	fmt.Fprintf(tw, "DB:\t%s\n", dbPath)
	_ = tw.Flush()
}

func printSignals(w io.Writer, sigs []models.Signal, path string, largeMovePct float64) {
	if len(sigs) == 0 {
		fmt.Fprintln(w, "\nNo signals detected today.")
		fmt.Fprintln(w, "Signals fire when price crosses key levels (prior day high/low/close,")
		fmt.Fprintf(w, "new intraday high/low, or >%g%% moves between snapshots).\n", largeMovePct)
		fmt.Fprintf(w, "\nSignals file: %s\n", path)
		return
	}

	byAsset := make(map[string][]models.Signal)
	for _, s := range sigs {
		byAsset[s.Asset] = append(byAsset[s.Asset], s)
	}
	assets := make([]string, 0, len(byAsset))
	for a := range byAsset {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	fmt.Fprintf(w, "\n%s\n  INTRADAY SIGNALS  |  %d events today\n%s\n", rule, len(sigs), rule)
	for _, a := range assets {
		fmt.Fprintf(w, "\n  %s:\n", a)
		for _, s := range byAsset[a] {
			ts := s.Timestamp.UTC().Format("15:04:05 UTC")
			switch {
			case s.Pct != nil:
				fmt.Fprintf(w, "    %s  %s  %+.2f%%  @ %s\n", ts, s.Event, *s.Pct, fmtPrice(s.Price))
			case s.Level != "":
				fmt.Fprintf(w, "    %s  %s %s (%s)  @ %s\n", ts, s.Event, s.Level, num(s.LevelValue), fmtPrice(s.Price))
			default:
				fmt.Fprintf(w, "    %s  %s  @ %s\n", ts, s.Event, fmtPrice(s.Price))
			}
		}
	}
	fmt.Fprintf(w, "\n  File: %s\n\n", path)
}

func num(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmtPrice(*v)
}

func fmtPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func pct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.3f%%", *v)
}

func rate(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.6f", *v)
}

func horizon(h []float64) string {
	if len(h) < 2 {
		return "n/a"
	}
	return fmt.Sprintf("%g-%gh", h[0], h[1])
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
