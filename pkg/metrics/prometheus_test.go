package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordSnapshot(2)
	r.RecordSnapshot(3)
	r.RecordSignal("BTC", "new_day_high")
	r.RecordSignal("BTC", "new_day_high")
	r.RecordAnalysis("ok", 4, 1)
	r.RecordLastMid("ETH", 3000)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.snapshots))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.snapshotSize))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.signals.WithLabelValues("BTC", "new_day_high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.analyses.WithLabelValues("ok")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.corrections))
	assert.Equal(t, 3000.0, testutil.ToFloat64(r.lastMid.WithLabelValues("ETH")))
}
