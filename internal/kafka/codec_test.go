package kafka

import (
	"testing"
	"time"

	"go-errorhandler/pkg/models"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage(t *testing.T) {
	ts := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	msg := &models.Message{
		ID:        "msg-1",
		Key:       "order-1",
		Body:      []byte(`{"id":1}`),
		Timestamp: ts,
		Headers: map[string]interface{}{
			models.HeaderRetryCount:       2,
			models.HeaderHTTPResponseCode: 409,
			"dropped":                     nil,
		},
	}

	record := encodeMessage("responses", msg)

	assert.Equal(t, "responses", record.Topic)
	assert.Equal(t, []byte("order-1"), record.Key)
	assert.Equal(t, []byte(`{"id":1}`), record.Value)
	assert.Equal(t, ts, record.Time)
	assert.Equal(t, []kafka.Header{
		{Key: models.HeaderHTTPResponseCode, Value: []byte("409")},
		{Key: models.HeaderMessageID, Value: []byte("msg-1")},
		{Key: models.HeaderRetryCount, Value: []byte("2")},
	}, record.Headers)
}

func TestEncodeMessage_KeepsExplicitMessageIDHeader(t *testing.T) {
	msg := models.NewMessage("k", nil)
	msg.ID = "from-field"
	msg.SetHeader(models.HeaderMessageID, "from-header")

	record := encodeMessage("t", msg)

	assert.Equal(t, "from-header", headerMap(record.Headers)[models.HeaderMessageID])
	assert.False(t, record.Time.IsZero())
}

func TestEncodeMessage_NoHeaders(t *testing.T) {
	record := encodeMessage("t", &models.Message{Key: "k"})

	assert.Nil(t, record.Headers)
	assert.False(t, record.Time.IsZero())
}

func TestDecodeMessage(t *testing.T) {
	msg := decodeMessage(kafka.Message{
		Topic: "orders",
		Key:   []byte("k"),
		Value: []byte("v"),
		Headers: []kafka.Header{
			{Key: models.HeaderMessageID, Value: []byte("id-1")},
			{Key: models.HeaderRetryCount, Value: []byte("1")},
		},
	})

	assert.Equal(t, "id-1", msg.ID)
	assert.Equal(t, "k", msg.Key)
	assert.Equal(t, []byte("v"), msg.Body)
	assert.Equal(t, "orders", msg.Headers[models.HeaderOriginalTopic])

	retries, ok := msg.HeaderInt(models.HeaderRetryCount)
	require.True(t, ok)
	assert.Equal(t, 1, retries)
}

func TestDecodeMessage_KeepsOriginalTopicHeader(t *testing.T) {
	msg := decodeMessage(kafka.Message{
		Topic:   "requests-retry-1",
		Headers: []kafka.Header{{Key: models.HeaderOriginalTopic, Value: []byte("requests")}},
	})

	assert.Equal(t, "requests", msg.Headers[models.HeaderOriginalTopic])
	assert.Empty(t, msg.ID)
}
