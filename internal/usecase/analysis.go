package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"PerpDesk/internal/domain/models"
	drepo "PerpDesk/internal/domain/repository"
	dsvc "PerpDesk/internal/domain/service"
	"PerpDesk/internal/services/llm"
	"PerpDesk/internal/services/validation"
	"PerpDesk/pkg/cache"
	applogger "PerpDesk/pkg/logger"
)

// Cache keys shared with the HTTP layer.
var (
	KeyLatestState    = cache.Key("state", "latest")
	KeyLatestAnalysis = cache.Key("analysis", "latest")
	keyAnalysisLock   = cache.Key("analysis", "lock")
)

// AnalysisDeps groups the collaborators of an Analysis.
type AnalysisDeps struct {
	Store     drepo.SnapshotStore
	Signals   drepo.SignalLog
	Analyses  drepo.AnalysisLog
	Builder   dsvc.StateBuilder
	Validator dsvc.OutputValidator
	Anchor    dsvc.AnchorBuilder
	// LLM may be nil; only dry runs and validation work then.
	LLM       dsvc.Analyzer
	Cache     cache.Service
	Publisher drepo.EventPublisher
	Sink      drepo.FeatureSink
	Metrics   drepo.Metrics
	Logger    *applogger.Logger
}

// AnalysisConfig tunes an Analysis.
type AnalysisConfig struct {
	Window     int
	Cooldown   time.Duration
	MaxSignals int
	LockTTL    time.Duration
	StateTTL   time.Duration
	Provider   string
	Model      string
}

type AnalyzeOptions struct {
	DryRun bool
}

// AnalysisResult is everything an analysis produced, for display or the API.
type AnalysisResult struct {
	State           *models.MarketState    `json:"market_state"`
	Output          *models.LLMOutput      `json:"output,omitempty"`
	Corrections     []string               `json:"corrections,omitempty"`
	Issues          []string               `json:"issues,omitempty"`
	Raw             string                 `json:"raw,omitempty"`
	Record          *models.AnalysisRecord `json:"record,omitempty"`
	Anchored        bool                   `json:"anchored"`
	Signals         int                    `json:"signals"`
	CooldownWarning string                 `json:"cooldown_warning,omitempty"`
	DryRun          bool                   `json:"dry_run"`
}

// Analysis turns stored snapshots into a validated trade plan.
type Analysis struct {
	deps AnalysisDeps
	cfg  AnalysisConfig
	now  func() time.Time
	l    *applogger.Logger
}

func NewAnalysis(deps AnalysisDeps, cfg AnalysisConfig) *Analysis {
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Sink == nil {
		deps.Sink = nopSink{}
	}
	if cfg.Window <= 0 {
		cfg.Window = 60
	}
	if cfg.MaxSignals <= 0 {
		cfg.MaxSignals = 30
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	return &Analysis{deps: deps, cfg: cfg, now: time.Now, l: applogger.OrNop(deps.Logger).With("analysis")}
}

// SetClock overrides the clock (tests).
func (a *Analysis) SetClock(now func() time.Time) { a.now = now }

// Run builds the market state and, unless opts.DryRun, asks the model for a
// plan, validates it and records it. A plan that fails validation returns the
// partial result together with ErrValidationFailed.
func (a *Analysis) Run(ctx context.Context, opts AnalyzeOptions) (*AnalysisResult, error) {
	start := time.Now()
	state, err := a.buildState(ctx)
	if err != nil {
		return nil, err
	}
	res := &AnalysisResult{State: state, DryRun: opts.DryRun}

	prev, err := a.deps.Analyses.Last(ctx)
	if err != nil {
		a.l.Warn("could not load previous analysis", applogger.Error(err))
		prev = nil
	}
	if prev != nil && !opts.DryRun {
		if age := a.now().Sub(prev.Timestamp); age < a.cfg.Cooldown {
			res.CooldownWarning = fmt.Sprintf("Last analysis was %.0fmin ago. Consider waiting for more data.", age.Minutes())
			a.l.Warn(res.CooldownWarning)
		}
	}

	if opts.DryRun {
		return res, nil
	}
	if a.deps.LLM == nil {
		return nil, fmt.Errorf("analyze: %w", llm.ErrMissingAPIKey)
	}
	if err := a.deps.Sink.Store(ctx, state); err != nil {
		a.l.Warn("feature archive failed", applogger.Error(err))
	}

	sigs, err := a.deps.Signals.Today(ctx, a.cfg.MaxSignals)
	if err != nil {
		a.l.Warn("could not load signals", applogger.Error(err))
		sigs = nil
	}
	res.Signals = len(sigs)

	anchor, anchored := a.deps.Anchor.Build(prev, sigs)
	if !anchored {
		a.l.Info("no anchoring context, fresh analysis")
	}
	res.Anchored = anchored

	stateJSON, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal market state: %w", err)
	}
	prompt := llm.BuildUserPrompt(string(stateJSON), sigs, anchor)

	locked, err := a.deps.Cache.TryLock(ctx, keyAnalysisLock, a.cfg.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire analysis lock: %w", err)
	}
	if !locked {
		return nil, ErrAnalysisInProgress
	}
	defer func() {
		// the caller's context may be gone by now
		if err := a.deps.Cache.Unlock(context.WithoutCancel(ctx), keyAnalysisLock); err != nil {
			a.l.Warn("release analysis lock failed", applogger.Error(err))
		}
	}()

	llmStart := time.Now()
	raw, err := a.deps.LLM.Analyze(ctx, prompt, llm.SystemPrompt)
	a.deps.Metrics.RecordLLMLatency(a.cfg.Provider, time.Since(llmStart).Seconds())
	if err != nil {
		a.deps.Metrics.RecordAnalysis("llm_error", 0, 0)
		return nil, fmt.Errorf("llm call: %w", err)
	}
	res.Raw = raw

	out, notes := a.deps.Validator.ValidateAndCorrect(raw)
	res.Corrections, res.Issues = validation.SplitNotes(notes)
	if out == nil {
		a.deps.Metrics.RecordAnalysis("invalid", 0, len(res.Issues))
		a.l.Warn("model output failed validation", applogger.Strings("issues", res.Issues))
		return res, ErrValidationFailed
	}
	res.Output = out

	rec := models.AnalysisRecord{
		ID:        uuid.NewString(),
		Timestamp: a.now().UTC(),
		Provider:  a.cfg.Provider,
		Model:     a.cfg.Model,
		Raw:       raw,
		Output:    out,
		Issues:    notes,
	}
	if err := a.deps.Analyses.Append(ctx, rec); err != nil {
		return nil, fmt.Errorf("record analysis: %w", err)
	}
	res.Record = &rec

	if err := a.deps.Cache.Set(ctx, KeyLatestAnalysis, rec, 0); err != nil {
		a.l.Warn("cache analysis failed", applogger.Error(err))
	}
	if err := a.deps.Publisher.PublishAnalysis(ctx, rec); err != nil {
		a.l.Warn("publish analysis failed", applogger.Error(err))
	}

	a.deps.Metrics.RecordAnalysis("ok", len(res.Corrections), len(res.Issues))
	a.deps.Metrics.RecordLatency("analyze", time.Since(start).Seconds())
	a.l.Info("analysis recorded",
		applogger.String("id", rec.ID),
		applogger.String("regime", out.Regime),
		applogger.Any("setups", setupSummary(out.Setups)),
		applogger.Int("corrections", len(res.Corrections)),
		applogger.Int("issues", len(res.Issues)),
		applogger.Bool("anchored", anchored),
	)
	return res, nil
}

type setupLine struct {
	Rank       int    `json:"rank"`
	Asset      string `json:"asset"`
	Direction  string `json:"direction"`
	Playbook   string `json:"playbook"`
	Confidence int    `json:"confidence"`
}

func setupSummary(setups []models.Setup) []setupLine {
	out := make([]setupLine, len(setups))
	for i, s := range setups {
		out[i] = setupLine{Rank: s.Rank, Asset: s.Asset, Direction: s.Direction, Playbook: s.Playbook, Confidence: s.Confidence}
	}
	return out
}

// State returns the cached market state, rebuilding it when the cache is cold.
func (a *Analysis) State(ctx context.Context) (*models.MarketState, error) {
	var state models.MarketState
	err := a.deps.Cache.Get(ctx, KeyLatestState, &state)
	if err == nil {
		return &state, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		a.l.Warn("state cache read failed", applogger.Error(err))
	}
	return a.buildState(ctx)
}

// Latest returns the last recorded analysis, or nil.
func (a *Analysis) Latest(ctx context.Context) (*models.AnalysisRecord, error) {
	var rec models.AnalysisRecord
	if err := a.deps.Cache.Get(ctx, KeyLatestAnalysis, &rec); err == nil {
		return &rec, nil
	}
	return a.deps.Analyses.Last(ctx)
}

// Validate runs the validator over a raw answer without recording anything.
func (a *Analysis) Validate(raw string) (out *models.LLMOutput, corrections, issues []string) {
	out, notes := a.deps.Validator.ValidateAndCorrect(raw)
	corrections, issues = validation.SplitNotes(notes)
	return out, corrections, issues
}

func (a *Analysis) buildState(ctx context.Context) (*models.MarketState, error) {
	n, err := a.deps.Store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count snapshots: %w", err)
	}
	if n == 0 {
		return nil, ErrNoSnapshots
	}
	snaps, err := a.deps.Store.Latest(ctx, a.cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	state, err := a.deps.Builder.BuildMarketState(snaps)
	if err != nil {
		return nil, fmt.Errorf("build market state: %w", err)
	}
	if err := a.deps.Cache.Set(ctx, KeyLatestState, state, a.cfg.StateTTL); err != nil {
		a.l.Warn("cache state failed", applogger.Error(err))
	}
	return state, nil
}
