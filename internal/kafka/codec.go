package kafka

import (
	"sort"
	"time"

	"go-errorhandler/pkg/models"

	kafka "github.com/segmentio/kafka-go"
)

// encodeMessage maps a route message onto a Kafka record. Headers are
// flattened to strings and sorted by key; the message ID is carried in the
// message-id header when the message does not already set one.
func encodeMessage(topic string, msg *models.Message) kafka.Message {
	headers := msg.StringHeaders()
	if _, ok := headers[models.HeaderMessageID]; !ok && msg.ID != "" {
		headers[models.HeaderMessageID] = msg.ID
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	record := kafka.Message{
		Topic: topic,
		Key:   []byte(msg.Key),
		Value: msg.Body,
		Time:  msg.Timestamp,
	}
	if record.Time.IsZero() {
		record.Time = time.Now()
	}
	if len(keys) > 0 {
		record.Headers = make([]kafka.Header, 0, len(keys))
		for _, k := range keys {
			record.Headers = append(record.Headers, kafka.Header{Key: k, Value: []byte(headers[k])})
		}
	}
	return record
}

// decodeMessage maps a consumed Kafka record onto a route message
func decodeMessage(record kafka.Message) *models.Message {
	headers := make(map[string]interface{}, len(record.Headers)+1)
	for _, h := range record.Headers {
		headers[h.Key] = string(h.Value)
	}
	if _, ok := headers[models.HeaderOriginalTopic]; !ok && record.Topic != "" {
		headers[models.HeaderOriginalTopic] = record.Topic
	}

	msg := &models.Message{
		Key:       string(record.Key),
		Body:      record.Value,
		Headers:   headers,
		Timestamp: record.Time,
	}
	msg.ID, _ = msg.HeaderString(models.HeaderMessageID)
	return msg
}

func headerMap(headers []kafka.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[h.Key] = string(h.Value)
	}
	return m
}
