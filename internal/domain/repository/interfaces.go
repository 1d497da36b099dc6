package repository

import (
	"context"
	"errors"
	"time"

	"PerpDesk/internal/domain/models"
)

// ErrOutOfOrder is returned when a snapshot is not newer than the latest stored one.
var ErrOutOfOrder = errors.New("snapshot timestamp not after latest")

// SnapshotStore is the append-only snapshot history.
type SnapshotStore interface {
	Init(ctx context.Context) error // ensure schema
	Append(ctx context.Context, s *models.Snapshot) error
	// Latest returns up to n snapshots, newest first.
	Latest(ctx context.Context, n int) ([]models.Snapshot, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// SignalLog persists the signals of the current UTC day.
type SignalLog interface {
	Append(ctx context.Context, signals ...models.Signal) error
	Since(ctx context.Context, t time.Time) ([]models.Signal, error)
	// Today returns the last limit signals of the day, oldest first. limit <= 0 means all.
	Today(ctx context.Context, limit int) ([]models.Signal, error)
	Reset(ctx context.Context) error
}

// AnalysisLog persists validated analyses.
type AnalysisLog interface {
	Append(ctx context.Context, rec models.AnalysisRecord) error
	// Last returns nil, nil when nothing was recorded yet.
	Last(ctx context.Context) (*models.AnalysisRecord, error)
	Since(ctx context.Context, t time.Time) ([]models.AnalysisRecord, error)
}

// EventPublisher fans signals and analyses out to downstream consumers.
type EventPublisher interface {
	PublishSignals(ctx context.Context, signals []models.Signal) error
	PublishAnalysis(ctx context.Context, rec models.AnalysisRecord) error
	Close() error
}

// FeatureSink archives derived market states for offline study.
type FeatureSink interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, state *models.MarketState) error
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordSnapshot(assets int)
	RecordCollectError(kind string)
	RecordSignal(asset, event string)
	RecordLastMid(symbol string, mid float64)
	RecordAnalysis(outcome string, corrections, issues int)
	RecordLLMLatency(provider string, seconds float64)
	RecordLatency(op string, seconds float64)
}
