package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"PerpDesk/internal/domain/models"
	drepo "PerpDesk/internal/domain/repository"
)

type memStore struct {
	mu    sync.Mutex
	snaps []models.Snapshot
}

func (m *memStore) Init(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) Append(_ context.Context, s *models.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.snaps); n > 0 && !s.Timestamp.After(m.snaps[n-1].Timestamp) {
		return drepo.ErrOutOfOrder
	}
	m.snaps = append(m.snaps, *s)
	return nil
}

func (m *memStore) Latest(_ context.Context, n int) ([]models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Snapshot, 0, n)
	for i := len(m.snaps) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.snaps[i])
	}
	return out, nil
}

func (m *memStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snaps), nil
}

type memSignals struct {
	sigs   []models.Signal
	resets int
}

func (m *memSignals) Append(_ context.Context, s ...models.Signal) error {
	m.sigs = append(m.sigs, s...)
	return nil
}

func (m *memSignals) Since(_ context.Context, t time.Time) ([]models.Signal, error) {
	var out []models.Signal
	for _, s := range m.sigs {
		if !s.Timestamp.Before(t) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSignals) Today(_ context.Context, limit int) ([]models.Signal, error) {
	out := m.sigs
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]models.Signal(nil), out...), nil
}

func (m *memSignals) Reset(context.Context) error {
	m.sigs = nil
	m.resets++
	return nil
}

type memAnalyses struct {
	recs []models.AnalysisRecord
}

func (m *memAnalyses) Append(_ context.Context, r models.AnalysisRecord) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memAnalyses) Last(context.Context) (*models.AnalysisRecord, error) {
	if len(m.recs) == 0 {
		return nil, nil
	}
	r := m.recs[len(m.recs)-1]
	return &r, nil
}

func (m *memAnalyses) Since(_ context.Context, t time.Time) ([]models.AnalysisRecord, error) {
	var out []models.AnalysisRecord
	for _, r := range m.recs {
		if !r.Timestamp.Before(t) {
			out = append(out, r)
		}
	}
	return out, nil
}

type scriptedSource struct {
	mu       sync.Mutex
	mids     []float64
	at       []time.Time
	i        int
	attempts int
	err      error
}

func (s *scriptedSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *scriptedSource) CollectSnapshot(context.Context, []string) (*models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.err != nil {
		return nil, s.err
	}
	if s.i >= len(s.mids) {
		return nil, errors.New("script exhausted")
	}
	mid := s.mids[s.i]
	snap := &models.Snapshot{
		Timestamp: s.at[s.i],
		Assets:    map[string]models.AssetSnapshot{"BTC": {Mid: &mid}},
	}
	s.i++
	return snap, nil
}

type fakeLLM struct {
	answer string
	err    error
	calls  int
	prompt string
}

func (f *fakeLLM) Analyze(_ context.Context, prompt, _ string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.answer, f.err
}

type fixedBuilder struct{}

func (fixedBuilder) BuildMarketState(snaps []models.Snapshot) (*models.MarketState, error) {
	latest := snaps[0]
	return &models.MarketState{
		Timestamp: latest.Timestamp,
		Assets:    []models.AssetState{{Symbol: "BTC", Price: models.PriceData{Mid: *latest.Assets["BTC"].Mid}}},
	}, nil
}

type recordingPublisher struct {
	signals  int
	analyses int
}

func (r *recordingPublisher) PublishSignals(_ context.Context, s []models.Signal) error {
	r.signals += len(s)
	return nil
}

func (r *recordingPublisher) PublishAnalysis(context.Context, models.AnalysisRecord) error {
	r.analyses++
	return nil
}

func (r *recordingPublisher) Close() error { return nil }
