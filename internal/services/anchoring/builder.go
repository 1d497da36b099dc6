// Package anchoring condenses the previous analysis into a short digest that
// biases the next one, and drops it once it has gone stale.
package anchoring

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"PerpDesk/internal/domain/models"
	applogger "PerpDesk/pkg/logger"
)

// Staleness thresholds in minutes.
const (
	SoftStaleMinutes = 45
	HardStaleMinutes = 90
)

const (
	maxInvalidations   = 2
	maxInvalidationLen = 100
)

// Strength is how firmly the next analysis should hold the previous thesis.
type Strength string

const (
	StrengthStrong   Strength = "STRONG"
	StrengthModerate Strength = "MODERATE"
	StrengthWeak     Strength = "WEAK"
)

var strengthText = map[Strength]string{
	StrengthStrong: "recent analysis. Maintain unless a key level was breached or an invalidation condition was met.",
	StrengthModerate: "thesis is aging but the market has been active. " +
		"Check whether signals confirm or contradict the previous thesis.",
	StrengthWeak: "analysis is aging with no confirming signals. " +
		"Re-evaluate from scratch and only maintain it if the data still strongly supports it.",
}

// Classify maps age and the number of signals since the previous analysis to
// a strength. A negative age (clock skew) counts as fresh.
func Classify(ageMinutes float64, signalsSince int) Strength {
	switch {
	case ageMinutes <= SoftStaleMinutes:
		return StrengthStrong
	case signalsSince > 0:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// Builder is safe for concurrent use.
type Builder struct {
	now    func() time.Time
	logger *applogger.Logger
}

type Option func(*Builder)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

func WithLogger(l *applogger.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = applogger.OrNop(b.logger)
	return b
}

// priorPlan is read loosely so that a record written by an older schema
// still anchors.
type priorPlan struct {
	Regime     string `json:"regime"`
	RegimeNote string `json:"regime_note"`
	Setups     []struct {
		Asset      string  `json:"asset"`
		Direction  string  `json:"direction"`
		Playbook   string  `json:"playbook"`
		Confidence float64 `json:"confidence"`
		Entry      struct {
			Levels struct {
				Trigger float64 `json:"trigger"`
			} `json:"levels"`
		} `json:"entry"`
		Stop struct {
			Level float64 `json:"level"`
		} `json:"stop"`
		TakeProfits []struct {
			Level float64 `json:"level"`
		} `json:"take_profits"`
		Invalidations []string `json:"invalidations"`
	} `json:"setups"`
}

// Build returns the anchoring digest for prev, or false when there is nothing
// worth anchoring to.
func (b *Builder) Build(prev *models.AnalysisRecord, signals []models.Signal) (string, bool) {
	if prev == nil || prev.Timestamp.IsZero() {
		return "", false
	}

	age := b.now().Sub(prev.Timestamp).Minutes()
	since := signalsAfter(signals, prev.Timestamp)

	if age > HardStaleMinutes && len(since) == 0 {
		b.logger.Info("dropping stale anchor",
			applogger.Float64("age_minutes", age),
			applogger.Int("signals_since", 0),
		)
		return "", false
	}

	var plan priorPlan
	if err := json.Unmarshal([]byte(prev.Raw), &plan); err != nil {
		b.logger.Warn("previous analysis is unreadable", applogger.Error(err))
		return "", false
	}

	regime := plan.Regime
	if regime == "" {
		regime = "unknown"
	}
	strength := Classify(age, len(since))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Previous regime: %s (%s)\n", regime, plan.RegimeNote)
	fmt.Fprintf(&sb, "Age: %.0f minutes ago | Signals since: %d\n", age, len(since))
	fmt.Fprintf(&sb, "ANCHOR STRENGTH: %s - %s\n", strength, strengthText[strength])

	for _, s := range plan.Setups {
		if s.Direction == models.DirectionNoTrade {
			fmt.Fprintf(&sb, "  - %s: NO_TRADE (playbook %s)\n", s.Asset, s.Playbook)
			continue
		}
		tp1 := 0.0
		if len(s.TakeProfits) > 0 {
			tp1 = s.TakeProfits[0].Level
		}
		fmt.Fprintf(&sb, "  - %s %s (playbook %s, conf=%s): trigger=%s, stop=%s, TP1=%s\n",
			s.Asset, strings.ToUpper(s.Direction), s.Playbook, num(s.Confidence),
			num(s.Entry.Levels.Trigger), num(s.Stop.Level), num(tp1))
		fmt.Fprintf(&sb, "    Invalidated if: %s\n", invalidations(s.Invalidations))
	}

	if summary := Summarize(since); len(summary) > 0 {
		sb.WriteString("  Signals since previous analysis:\n")
		for _, line := range summary {
			fmt.Fprintf(&sb, "    %s\n", line)
		}
	}

	return strings.TrimRight(sb.String(), "\n"), true
}

// Summarize keeps the latest signal per (asset, event, level) and renders one
// line each, sorted by that key.
func Summarize(signals []models.Signal) []string {
	latest := make(map[string]models.Signal, len(signals))
	for _, s := range signals {
		if cur, ok := latest[s.Key()]; ok && cur.Timestamp.After(s.Timestamp) {
			continue
		}
		latest[s.Key()] = s
	}

	keys := make([]string, 0, len(latest))
	for k := range latest {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		s := latest[k]
		switch {
		case s.Pct != nil:
			lines = append(lines, fmt.Sprintf("%s: %s %+.2f%% @ %s", s.Asset, s.Event, *s.Pct, num(s.Price)))
		case s.Level != "":
			lv := "?"
			if s.LevelValue != nil {
				lv = num(*s.LevelValue)
			}
			lines = append(lines, fmt.Sprintf("%s: %s %s (%s) @ %s", s.Asset, s.Event, s.Level, lv, num(s.Price)))
		default:
			lines = append(lines, fmt.Sprintf("%s: %s @ %s", s.Asset, s.Event, num(s.Price)))
		}
	}
	return lines
}

func signalsAfter(signals []models.Signal, t time.Time) []models.Signal {
	var out []models.Signal
	for _, s := range signals {
		if s.Timestamp.After(t) {
			out = append(out, s)
		}
	}
	return out
}

func invalidations(items []string) string {
	if len(items) == 0 {
		return "none specified"
	}
	if len(items) > maxInvalidations {
		items = items[:maxInvalidations]
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = truncate(it, maxInvalidationLen)
	}
	return strings.Join(out, "; ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
