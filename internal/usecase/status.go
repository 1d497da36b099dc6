package usecase

import (
	"context"
	"fmt"
	"time"

	drepo "PerpDesk/internal/domain/repository"
)

// StatusReport summarises what has been collected and analysed.
type StatusReport struct {
	Snapshots      int        `json:"snapshots"`
	LatestSnapshot *time.Time `json:"latest_snapshot,omitempty"`
	SnapshotAge    string     `json:"snapshot_age,omitempty"`
	LastAnalysis   *time.Time `json:"last_analysis,omitempty"`
	SignalsToday   int        `json:"signals_today"`
	Assets         []string   `json:"assets"`
}

type Status struct {
	store    drepo.SnapshotStore
	signals  drepo.SignalLog
	analyses drepo.AnalysisLog
	assets   []string
	now      func() time.Time
}

func NewStatus(store drepo.SnapshotStore, signals drepo.SignalLog, analyses drepo.AnalysisLog, assets []string) *Status {
	return &Status{store: store, signals: signals, analyses: analyses, assets: assets, now: time.Now}
}

func (s *Status) Report(ctx context.Context) (*StatusReport, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count snapshots: %w", err)
	}
	rep := &StatusReport{Snapshots: n, Assets: s.assets}

	if n > 0 {
		latest, err := s.store.Latest(ctx, 1)
		if err != nil {
			return nil, fmt.Errorf("latest snapshot: %w", err)
		}
		if len(latest) == 1 {
			ts := latest[0].Timestamp
			rep.LatestSnapshot = &ts
			rep.SnapshotAge = formatAge(s.now().Sub(ts))
		}
	}

	last, err := s.analyses.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("last analysis: %w", err)
	}
	if last != nil {
		ts := last.Timestamp
		rep.LastAnalysis = &ts
	}

	today, err := s.signals.Today(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("signals: %w", err)
	}
	rep.SignalsToday = len(today)
	return rep, nil
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%.0fs ago", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%.0fm ago", d.Minutes())
	default:
		return fmt.Sprintf("%.1fh ago", d.Hours())
	}
}
