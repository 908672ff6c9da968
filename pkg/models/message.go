package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Message represents a message flowing through a route
type Message struct {
	ID        string                 `json:"id"`
	Key       string                 `json:"key"`
	Body      []byte                 `json:"body"`
	Headers   map[string]interface{} `json:"headers"`
	Timestamp time.Time              `json:"timestamp"`
}

// MessageHeader constants
const (
	HeaderMessageID     = "message-id"
	HeaderRetryCount    = "retry-count"
	HeaderRetryAttempt  = "retry-attempt"
	HeaderOriginalTopic = "original-topic"
	HeaderFailureReason = "failure-reason"
	HeaderProcessedAt   = "processed-at"

	// HeaderHTTPResponseCode is read by response renderers to pick the status line.
	HeaderHTTPResponseCode = "http-response-code"
)

func NewMessage(key string, body []byte) *Message {
	return &Message{
		Key:       key,
		Body:      body,
		Headers:   make(map[string]interface{}),
		Timestamp: time.Now(),
	}
}

// Header returns the header value and whether it is present
func (m *Message) Header(key string) (interface{}, bool) {
	v, ok := m.Headers[key]
	return v, ok
}

// SetHeader stores value under key. A nil value removes the header.
func (m *Message) SetHeader(key string, value interface{}) {
	if value == nil {
		m.RemoveHeader(key)
		return
	}
	if m.Headers == nil {
		m.Headers = make(map[string]interface{})
	}
	m.Headers[key] = value
}

func (m *Message) RemoveHeader(key string) {
	delete(m.Headers, key)
}

// HeaderInt reads an integer header. Decimal strings are accepted since
// headers coming off the wire are untyped.
func (m *Message) HeaderInt(key string) (int, bool) {
	v, ok := m.Headers[key]
	if !ok {
		return 0, false
	}

	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	case []byte:
		i, err := strconv.Atoi(strings.TrimSpace(string(n)))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// HeaderString returns the header formatted as a string
func (m *Message) HeaderString(key string) (string, bool) {
	v, ok := m.Headers[key]
	if !ok || v == nil {
		return "", false
	}
	return headerToString(v), true
}

// StringHeaders flattens headers for transports that only carry strings
func (m *Message) StringHeaders() map[string]string {
	result := make(map[string]string, len(m.Headers))
	for k, v := range m.Headers {
		if v == nil {
			continue
		}
		result[k] = headerToString(v)
	}
	return result
}

func headerToString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
