package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/storm-ensemble-da/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"obtype":"temp"}`),
		Topic:     "surface-observations",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("metar")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"obtype":"temp"}`, string(raw.Value))
	assert.Equal(t, "surface-observations", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "metar", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestMapMessageToRawEvent_NoHeaders(t *testing.T) {
	raw := mapMessageToRawEvent(kafkago.Message{Value: []byte(`{}`)})
	assert.Empty(t, raw.Headers)
	assert.NotNil(t, raw.Headers)
}

func TestToMessage(t *testing.T) {
	now := time.Date(2015, 6, 1, 12, 0, 0, 0, time.UTC)
	value := 19.5
	ob := domain.Observation{
		ID:          "temp-abc",
		Value:       &value,
		ObType:      "temp",
		Time:        now,
		Location:    "KLGB",
		ProcessedAt: now,
	}
	event, err := domain.SerializeObservation(ob)
	require.NoError(t, err)

	msg := toMessage(event)

	assert.Equal(t, []byte("temp-abc"), msg.Key)
	assert.Contains(t, string(msg.Value), `"obtype":"temp"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "obtype", msg.Headers[0].Key)
	assert.Equal(t, []byte("temp"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}
