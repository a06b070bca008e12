package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducerPublish(t *testing.T) {
	w := &memWriter{}
	p, err := NewProducer(WithWriter(w))
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "reports", []byte("k"), map[string]int{"n": 1}))
	require.NoError(t, p.Publish(context.Background(), "reports", nil, "raw"))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "reports", w.msgs[0].Topic)
	assert.Equal(t, []byte("k"), w.msgs[0].Key)
	assert.JSONEq(t, `{"n":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerPublishError(t *testing.T) {
	boom := errors.New("leader not available")
	p, err := NewProducer(WithWriter(&memWriter{err: boom}))
	require.NoError(t, err)

	err = p.Publish(context.Background(), "reports", nil, "x")
	assert.ErrorIs(t, err, boom)

	err = p.Publish(context.Background(), "reports", nil, func() {})
	assert.Error(t, err)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("zstd"))
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Lz4, parseCompression("lz4"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}
