package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendPulse/internal/domain/models"
	pkgkafka "TrendPulse/pkg/kafka"
)

type memWriter struct{ msgs []kafka.Message }

func (w *memWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestKafkaPublisher(t *testing.T) {
	w := &memWriter{}
	producer, err := pkgkafka.NewProducer(pkgkafka.WithWriter(w))
	require.NoError(t, err)
	pub := NewKafkaPublisher(producer, "trendpulse.reports")

	report := models.TrendReport{
		Keyword:     "cricket",
		Growth:      models.GrowthResult{CurrentMean: 20, PreviousMean: 10, GrowthPercent: 100},
		Display:     models.DisplayPayload{Keyword: "cricket", Volume: "20", Growth: "+100%"},
		GeneratedAt: time.Date(2024, 10, 15, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.Publish(context.Background(), report))
	require.NoError(t, pub.Close())

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "trendpulse.reports", msg.Topic)
	assert.Equal(t, "cricket", string(msg.Key))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "cricket", got["keyword"])
	assert.Equal(t, "+100%", got["display"].(map[string]interface{})["growth"])
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.Publish(context.Background(), models.TrendReport{}))
	assert.NoError(t, p.Close())
}
