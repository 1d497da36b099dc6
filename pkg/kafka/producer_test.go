package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	require.Error(t, err)
}

func TestNewProducerAppliesOptions(t *testing.T) {
	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("zstd"), WithHashByKey(false))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, kafka.Zstd, p.writer.Compression)
	assert.IsType(t, &kafka.LeastBytes{}, p.writer.Balancer)
	assert.Equal(t, "zstd", p.comp)
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue("raw")
	require.NoError(t, err)
	assert.Equal(t, "raw", string(b))

	b, err = encodeValue(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(b))

	_, err = encodeValue(make(chan int))
	assert.Error(t, err)
}
