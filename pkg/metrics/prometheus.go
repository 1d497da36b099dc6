package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	snapshots     prometheus.Counter
	snapshotSize  prometheus.Gauge
	collectErrors *prometheus.CounterVec
	signals       *prometheus.CounterVec
	lastMid       *prometheus.GaugeVec
	analyses      *prometheus.CounterVec
	corrections   prometheus.Counter
	issues        prometheus.Counter
	llmLatency    *prometheus.HistogramVec
	latency       *prometheus.HistogramVec
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// Default returns the process-wide recorder registered with the default registry.
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = New(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// New creates a recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perpdesk_snapshots_total",
			Help: "Snapshots collected and stored",
		}),
		snapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "perpdesk_snapshot_assets",
			Help: "Assets present in the latest snapshot",
		}),
		collectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpdesk_collect_errors_total",
			Help: "Collection cycle errors by kind",
		}, []string{"kind"}),
		signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpdesk_signals_total",
			Help: "Signals emitted by asset and event",
		}, []string{"asset", "event"}),
		lastMid: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perpdesk_last_mid",
			Help: "Last collected mid price",
		}, []string{"asset"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "perpdesk_analyses_total",
			Help: "Analyses by outcome",
		}, []string{"outcome"}),
		corrections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perpdesk_validator_corrections_total",
			Help: "Risk fields rewritten by the validator",
		}),
		issues: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "perpdesk_validator_issues_total",
			Help: "Validation issues reported",
		}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpdesk_llm_request_seconds",
			Help:    "Language model request latency",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 180},
		}, []string{"provider"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpdesk_operation_duration_seconds",
			Help:    "Duration of operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(r.snapshots, r.snapshotSize, r.collectErrors, r.signals, r.lastMid,
			r.analyses, r.corrections, r.issues, r.llmLatency, r.latency)
	}
	return r
}

func (r *Recorder) RecordSnapshot(assets int) {
	r.snapshots.Inc()
	r.snapshotSize.Set(float64(assets))
}

func (r *Recorder) RecordCollectError(kind string) {
	r.collectErrors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordSignal(asset, event string) {
	r.signals.WithLabelValues(asset, event).Inc()
}

func (r *Recorder) RecordLastMid(asset string, mid float64) {
	r.lastMid.WithLabelValues(asset).Set(mid)
}

// RecordAnalysis counts one analysis and the validator notes it produced.
func (r *Recorder) RecordAnalysis(outcome string, corrections, issues int) {
	r.analyses.WithLabelValues(outcome).Inc()
	r.corrections.Add(float64(corrections))
	r.issues.Add(float64(issues))
}

func (r *Recorder) RecordLLMLatency(provider string, seconds float64) {
	r.llmLatency.WithLabelValues(provider).Observe(seconds)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
