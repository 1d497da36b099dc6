package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PerpDesk/internal/domain/models"
	pkgkafka "PerpDesk/pkg/kafka"
)

type sent struct {
	topic string
	msgs  []pkgkafka.Message
}

type fakeWriter struct {
	sent   []sent
	closed bool
}

func (f *fakeWriter) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.sent = append(f.sent, sent{topic: topic, msgs: []pkgkafka.Message{{Key: key, Value: value}}})
	return nil
}

func (f *fakeWriter) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	f.sent = append(f.sent, sent{topic: topic, msgs: msgs})
	return nil
}

func (f *fakeWriter) Close() error { f.closed = true; return nil }

func TestKafkaPublisherKeysSignalsByAsset(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, "sig", "ana")
	ctx := context.Background()

	require.NoError(t, p.PublishSignals(ctx, nil))
	assert.Empty(t, w.sent)

	require.NoError(t, p.PublishSignals(ctx, []models.Signal{
		{Asset: "BTC", Event: models.EventLargeMoveUp},
		{Asset: "ETH", Event: models.EventNewDayLow},
	}))
	require.Len(t, w.sent, 1)
	assert.Equal(t, "sig", w.sent[0].topic)
	assert.Equal(t, "BTC", string(w.sent[0].msgs[0].Key))
	assert.Equal(t, "ETH", string(w.sent[0].msgs[1].Key))

	rec := models.AnalysisRecord{ID: "id-1", Timestamp: time.Unix(0, 0), Raw: "{}"}
	require.NoError(t, p.PublishAnalysis(ctx, rec))
	require.Len(t, w.sent, 2)
	assert.Equal(t, "ana", w.sent[1].topic)
	assert.Equal(t, "id-1", string(w.sent[1].msgs[0].Key))
	ev, ok := w.sent[1].msgs[0].Value.(analysisEvent)
	require.True(t, ok)
	assert.Equal(t, "{}", ev.Output)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
