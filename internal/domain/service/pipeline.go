package service

import (
	"context"

	"PerpDesk/internal/domain/models"
)

// StateBuilder derives the market state from recent snapshots, oldest first.
type StateBuilder interface {
	BuildMarketState(snapshots []models.Snapshot) (*models.MarketState, error)
}

// OutputValidator parses and corrects a raw model answer.
type OutputValidator interface {
	ValidateAndCorrect(raw string) (*models.LLMOutput, []string)
}

// AnchorBuilder renders the previous analysis as prompt context.
type AnchorBuilder interface {
	Build(prev *models.AnalysisRecord, signals []models.Signal) (string, bool)
}

// SignalTracker diffs consecutive snapshots into signals.
type SignalTracker interface {
	Track(curr, prev *models.Snapshot) []models.Signal
}

// SnapshotSource captures one snapshot of the given assets.
type SnapshotSource interface {
	CollectSnapshot(ctx context.Context, assets []string) (*models.Snapshot, error)
}

// Analyzer sends a prompt to a language model and returns its raw answer.
type Analyzer interface {
	Analyze(ctx context.Context, prompt, system string) (string, error)
}
