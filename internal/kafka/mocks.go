package kafka

import (
	"context"
	"fmt"
	"sync"

	"go-errorhandler/pkg/models"

	kafka "github.com/segmentio/kafka-go"
)

// MockProducer is a mock implementation of ProducerClient for testing.
// Messages are recorded the way Producer would write them.
type MockProducer struct {
	mu                sync.RWMutex
	PublishedMessages []PublishedMessage
	PublishFunc       func(ctx context.Context, topic string, msg *models.Message) error
	CloseFunc         func() error
	FailCount         int
	failureCounter    int
}

type PublishedMessage struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

func NewMockProducer() *MockProducer {
	return &MockProducer{
		PublishedMessages: make([]PublishedMessage, 0),
	}
}

func (m *MockProducer) Publish(ctx context.Context, topic string, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, topic, msg)
	}

	if m.FailCount > 0 {
		m.failureCounter++
		if m.failureCounter <= m.FailCount {
			return fmt.Errorf("simulated publish failure %d", m.failureCounter)
		}
	}

	record := encodeMessage(topic, msg)
	m.PublishedMessages = append(m.PublishedMessages, PublishedMessage{
		Topic:   record.Topic,
		Key:     string(record.Key),
		Value:   record.Value,
		Headers: headerMap(record.Headers),
	})

	return nil
}

func (m *MockProducer) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockProducer) GetPublishedMessages() []PublishedMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := make([]PublishedMessage, len(m.PublishedMessages))
	copy(messages, m.PublishedMessages)
	return messages
}

func (m *MockProducer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PublishedMessages = make([]PublishedMessage, 0)
	m.failureCounter = 0
}

// MockDedupeStore is a mock implementation of DedupeStore for testing
type MockDedupeStore struct {
	mu          sync.RWMutex
	ExistsFunc  func(messageID string) bool
	AddFunc     func(messageID string) error
	existingIDs map[string]bool
}

func NewMockDedupeStore() *MockDedupeStore {
	return &MockDedupeStore{
		existingIDs: make(map[string]bool),
	}
}

func (m *MockDedupeStore) Exists(messageID string) bool {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(messageID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.existingIDs[messageID]
}

func (m *MockDedupeStore) Add(messageID string) error {
	if m.AddFunc != nil {
		return m.AddFunc(messageID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.existingIDs[messageID] = true
	return nil
}

func (m *MockDedupeStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existingIDs = make(map[string]bool)
}

// MockReader is a mock implementation of MessageReader for testing
type MockReader struct {
	mu        sync.Mutex
	FetchFunc func(ctx context.Context) (kafka.Message, error)
	committed []kafka.Message
	closed    bool
}

func NewMockReader() *MockReader {
	return &MockReader{}
}

func (m *MockReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx)
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (m *MockReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, msgs...)
	return nil
}

func (m *MockReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockReader) GetCommitted() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := make([]kafka.Message, len(m.committed))
	copy(msgs, m.committed)
	return msgs
}

func (m *MockReader) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockWriter is a mock implementation of MessageWriter for testing
type MockWriter struct {
	mu        sync.Mutex
	WriteFunc func(ctx context.Context, msgs ...kafka.Message) error
	written   []kafka.Message
	calls     int
	closed    bool
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.WriteFunc != nil {
		if err := m.WriteFunc(ctx, msgs...); err != nil {
			return err
		}
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *MockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *MockWriter) Written() []kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	msgs := make([]kafka.Message, len(m.written))
	copy(msgs, m.written)
	return msgs
}

func (m *MockWriter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
