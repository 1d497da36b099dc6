package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"PerpDesk/internal/domain/models"
	drepo "PerpDesk/internal/domain/repository"
	dsvc "PerpDesk/internal/domain/service"
	"PerpDesk/internal/services/signals"
	applogger "PerpDesk/pkg/logger"
	"PerpDesk/pkg/util"
)

// CollectorDeps groups the collaborators of a Collector.
type CollectorDeps struct {
	Source    dsvc.SnapshotSource
	Store     drepo.SnapshotStore
	Signals   drepo.SignalLog
	Tracker   dsvc.SignalTracker
	Publisher drepo.EventPublisher
	Metrics   drepo.Metrics
	Logger    *applogger.Logger
}

// Cycle is the outcome of one collection pass.
type Cycle struct {
	Snapshot *models.Snapshot
	Signals  []models.Signal
	Count    int
	Rotated  bool
	Elapsed  time.Duration
}

// Collector polls the exchange, stores snapshots and records signals.
type Collector struct {
	deps     CollectorDeps
	assets   []string
	interval time.Duration
	now      func() time.Time
	l        *applogger.Logger

	mu   sync.Mutex
	prev *models.Snapshot
	day  time.Time
}

func NewCollector(deps CollectorDeps, assets []string, interval time.Duration) *Collector {
	if deps.Publisher == nil {
		deps.Publisher = nopPublisher{}
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &Collector{
		deps:     deps,
		assets:   assets,
		interval: interval,
		now:      time.Now,
		l:        applogger.OrNop(deps.Logger).With("collector"),
	}
}

// SetClock overrides the clock (tests).
func (c *Collector) SetClock(now func() time.Time) { c.now = now }

// Run collects every interval until ctx is cancelled. Cycle errors are
// logged and the loop carries on.
func (c *Collector) Run(ctx context.Context) error {
	c.l.Info("collector started",
		applogger.Strings("assets", c.assets),
		applogger.Duration("interval", c.interval),
	)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if _, err := c.RunOnce(ctx); err != nil && ctx.Err() == nil {
			c.l.Error("collection cycle failed", applogger.Error(err))
		}
		select {
		case <-ctx.Done():
			c.l.Info("collector stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single collection cycle.
func (c *Collector) RunOnce(ctx context.Context) (*Cycle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	rotated, err := c.rotate(ctx)
	if err != nil {
		c.deps.Metrics.RecordCollectError("rotate")
		return nil, err
	}

	snap, err := c.deps.Source.CollectSnapshot(ctx, c.assets)
	if err != nil {
		c.deps.Metrics.RecordCollectError("fetch")
		return nil, fmt.Errorf("collect snapshot: %w", err)
	}

	prev, err := c.previous(ctx)
	if err != nil {
		c.deps.Metrics.RecordCollectError("store")
		return nil, err
	}
	if err := c.deps.Store.Append(ctx, snap); err != nil {
		kind := "store"
		if errors.Is(err, drepo.ErrOutOfOrder) {
			kind = "out_of_order"
		}
		c.deps.Metrics.RecordCollectError(kind)
		return nil, fmt.Errorf("store snapshot: %w", err)
	}
	c.deps.Metrics.RecordSnapshot(len(snap.Assets))

	var sigs []models.Signal
	if prev != nil {
		sigs = c.deps.Tracker.Track(snap, prev)
	}
	c.prev = snap

	if len(sigs) > 0 {
		if err := c.deps.Signals.Append(ctx, sigs...); err != nil {
			c.deps.Metrics.RecordCollectError("signal_log")
			c.l.Error("append signals failed", applogger.Error(err))
		}
		if err := c.deps.Publisher.PublishSignals(ctx, sigs); err != nil {
			c.deps.Metrics.RecordCollectError("publish")
			c.l.Warn("publish signals failed", applogger.Error(err))
		}
		for _, s := range sigs {
			c.deps.Metrics.RecordSignal(s.Asset, s.Event)
		}
	}

	count, err := c.deps.Store.Count(ctx)
	if err != nil {
		c.l.Warn("snapshot count failed", applogger.Error(err))
	}
	elapsed := time.Since(start)
	c.deps.Metrics.RecordLatency("collect", elapsed.Seconds())

	for _, sym := range c.assets {
		if mid := snap.MidOf(sym); mid != nil {
			c.deps.Metrics.RecordLastMid(sym, *mid)
		}
	}
	c.l.Info(fmt.Sprintf("#%d %s", count, priceLine(snap, c.assets)),
		applogger.Int("signals", len(sigs)),
		applogger.Duration("elapsed", elapsed),
	)

	return &Cycle{Snapshot: snap, Signals: sigs, Count: count, Rotated: rotated, Elapsed: elapsed}, nil
}

// rotate clears the signal log when the UTC day has changed since the last
// recorded signal or cycle.
func (c *Collector) rotate(ctx context.Context) (bool, error) {
	now := c.now().UTC()
	if c.day.IsZero() {
		last, err := c.deps.Signals.Today(ctx, 1)
		if err != nil {
			return false, fmt.Errorf("read signal log: %w", err)
		}
		if len(last) == 0 {
			c.day = util.StartOfUTCDay(now)
			return false, nil
		}
		c.day = util.StartOfUTCDay(last[0].Timestamp)
	}
	if !signals.RotationDue(now, c.day) {
		return false, nil
	}
	if err := c.deps.Signals.Reset(ctx); err != nil {
		return false, fmt.Errorf("reset signal log: %w", err)
	}
	c.day = util.StartOfUTCDay(now)
	c.l.Info("new UTC day, intraday signals reset", applogger.String("day", util.UTCDay(now)))
	return true, nil
}

func (c *Collector) previous(ctx context.Context) (*models.Snapshot, error) {
	if c.prev != nil {
		return c.prev, nil
	}
	last, err := c.deps.Store.Latest(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("load previous snapshot: %w", err)
	}
	if len(last) == 0 {
		return nil, nil
	}
	return &last[0], nil
}

func priceLine(s *models.Snapshot, assets []string) string {
	parts := make([]string, 0, len(assets))
	for _, sym := range assets {
		mid := "?"
		if m := s.MidOf(sym); m != nil {
			mid = util.FormatFloat(*m)
		}
		parts = append(parts, sym+"="+mid)
	}
	return strings.Join(parts, "  ")
}
