package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-errorhandler/internal/observability"
	"go-errorhandler/pkg/models"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// MessageHandler runs a consumed message through a route. A nil error means
// the message completed or its failure was handled; an error sends the
// message down the retry/DLQ path.
type MessageHandler func(ctx context.Context, ex *models.Exchange) error

// ConsumerClient defines the interface for Kafka consumer operations
type ConsumerClient interface {
	Start(ctx context.Context, handler MessageHandler) error
	Close() error
}

// MessageReader is the subset of *kafka.Reader the consumer uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer implements ConsumerClient with worker pool and retry/DLQ logic
type Consumer struct {
	reader           MessageReader
	producer         ProducerClient
	logger           *logrus.Entry
	metrics          observability.MetricsCollector
	workers          int
	retryMax         int
	retryTopicPrefix string
	dlqTopic         string
	replyTopic       string
	dedupeStore      DedupeStore
	wg               sync.WaitGroup
}

type ConsumerConfig struct {
	Brokers          []string
	Topic            string
	GroupID          string
	Workers          int
	RetryMax         int
	FetchMinBytes    int
	FetchMaxBytes    int
	RetryTopicPrefix string
	DLQTopic         string
	// ReplyTopic receives completed and handled messages; empty disables replies
	ReplyTopic  string
	Metrics     observability.MetricsCollector
	DedupeStore DedupeStore
	Logger      *logrus.Entry
	// Reader overrides the kafka.Reader built from the config
	Reader MessageReader
}

// DedupeStore provides interface for message deduplication
type DedupeStore interface {
	Exists(messageID string) bool
	Add(messageID string) error
}

// InMemoryDedupeStore is a simple in-memory implementation
type InMemoryDedupeStore struct {
	mu    sync.RWMutex
	store map[string]time.Time
	ttl   time.Duration
}

func NewInMemoryDedupeStore(ttl time.Duration) *InMemoryDedupeStore {
	store := &InMemoryDedupeStore{
		store: make(map[string]time.Time),
		ttl:   ttl,
	}
	go store.cleanup()
	return store
}

func (s *InMemoryDedupeStore) Exists(messageID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	expiry, exists := s.store[messageID]
	return exists && time.Now().Before(expiry)
}

func (s *InMemoryDedupeStore) Add(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[messageID] = time.Now().Add(s.ttl)
	return nil
}

func (s *InMemoryDedupeStore) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for id, expiry := range s.store {
			if now.After(expiry) {
				delete(s.store, id)
			}
		}
		s.mu.Unlock()
	}
}

func NewConsumer(cfg ConsumerConfig, producer ProducerClient) *Consumer {
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.DedupeStore == nil {
		cfg.DedupeStore = NewInMemoryDedupeStore(1 * time.Hour)
	}
	if cfg.Workers == 0 {
		cfg.Workers = 5
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.WithComponent("consumer")
	}
	if cfg.Reader == nil {
		cfg.Reader = kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          cfg.Topic,
			GroupID:        cfg.GroupID,
			MinBytes:       cfg.FetchMinBytes,
			MaxBytes:       cfg.FetchMaxBytes,
			CommitInterval: 0, // Manual commits
			StartOffset:    kafka.LastOffset,
		})
	}

	return &Consumer{
		reader:           cfg.Reader,
		producer:         producer,
		logger:           cfg.Logger,
		metrics:          cfg.Metrics,
		workers:          cfg.Workers,
		retryMax:         cfg.RetryMax,
		retryTopicPrefix: cfg.RetryTopicPrefix,
		dlqTopic:         cfg.DLQTopic,
		replyTopic:       cfg.ReplyTopic,
		dedupeStore:      cfg.DedupeStore,
	}
}

// Start begins consuming messages with worker pool
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) error {
	c.logger.WithField("workers", c.workers).Info("Starting consumer")

	// Create worker pool
	msgChan := make(chan kafka.Message, c.workers*2)

	// Start workers
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgChan, handler)
	}

	// Start message fetcher
	c.wg.Add(1)
	go c.fetcher(ctx, msgChan)

	// Wait for all workers to finish
	c.wg.Wait()
	return nil
}

// fetcher reads messages from Kafka and sends to worker pool
func (c *Consumer) fetcher(ctx context.Context, msgChan chan<- kafka.Message) {
	defer c.wg.Done()
	defer close(msgChan)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Fetcher stopping due to context cancellation")
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			c.logger.WithError(err).Error("Failed to fetch message")
			continue
		}

		c.metrics.IncReceived()

		select {
		case msgChan <- msg:
		case <-ctx.Done():
			return
		}
	}
}

// worker processes messages from the channel
func (c *Consumer) worker(ctx context.Context, id int, msgChan <-chan kafka.Message, handler MessageHandler) {
	defer c.wg.Done()
	c.logger.WithField("worker_id", id).Info("Worker started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Worker stopping due to context cancellation")
			return
		case msg, ok := <-msgChan:
			if !ok {
				c.logger.Info("Worker stopping - channel closed")
				return
			}

			c.processMessage(ctx, msg, handler, id)
		}
	}
}

// processMessage runs one message through the handler and applies the reply,
// retry and DLQ logic to the outcome
func (c *Consumer) processMessage(ctx context.Context, kafkaMsg kafka.Message, handler MessageHandler, workerID int) {
	msg := decodeMessage(kafkaMsg)

	logger := c.logger.WithFields(logrus.Fields{
		"topic":      kafkaMsg.Topic,
		"partition":  kafkaMsg.Partition,
		"offset":     kafkaMsg.Offset,
		"message_id": msg.ID,
		"worker_id":  workerID,
	})

	// Check for duplicates using message ID
	if msg.ID != "" && c.dedupeStore.Exists(msg.ID) {
		logger.Info("Duplicate message detected, skipping")
		c.commitMessage(kafkaMsg)
		return
	}

	retryCount := c.getRetryCount(msg)

	ex := models.NewExchange(msg)
	err := handler(ctx, ex)
	if err == nil {
		c.metrics.IncProcessed()
		if ex.Failed() {
			logger.WithError(ex.Err()).Warn("Message failure handled by route")
		} else {
			logger.Debug("Message processed successfully")
		}

		if msg.ID != "" {
			if err := c.dedupeStore.Add(msg.ID); err != nil {
				logger.WithError(err).Warn("Failed to record message in dedupe store")
			}
		}

		c.sendReply(ctx, msg)
		c.commitMessage(kafkaMsg)
		return
	}

	// Processing failed
	c.metrics.IncFailed()
	logger.WithError(err).Error("Message processing failed")

	// Check if we should retry or send to DLQ
	if retryCount < c.retryMax {
		c.sendToRetry(ctx, msg, retryCount+1, err)
	} else {
		c.sendToDLQ(ctx, msg, err)
	}
	c.commitMessage(kafkaMsg) // Commit original message
}

// commitMessage commits the message offset
func (c *Consumer) commitMessage(msg kafka.Message) {
	if err := c.reader.CommitMessages(context.Background(), msg); err != nil {
		c.logger.WithError(err).Error("Failed to commit message")
	}
}

// sendReply publishes the route's resulting message to the reply topic
func (c *Consumer) sendReply(ctx context.Context, msg *models.Message) {
	if c.replyTopic == "" {
		return
	}

	err := c.producer.Publish(ctx, c.replyTopic, msg)
	if err != nil {
		c.logger.WithError(err).WithField("topic", c.replyTopic).Error("Failed to send reply")
	}
}

// sendToRetry sends message to retry topic
func (c *Consumer) sendToRetry(ctx context.Context, msg *models.Message, retryCount int, failureErr error) {
	c.metrics.IncRetried()

	retryTopic := fmt.Sprintf("%s-%d", c.retryTopicPrefix, retryCount)

	// Add retry metadata to headers
	msg.SetHeader(models.HeaderRetryCount, retryCount)
	msg.SetHeader(models.HeaderRetryAttempt, retryCount)
	msg.SetHeader(models.HeaderFailureReason, failureErr.Error())

	logger := c.logger.WithFields(logrus.Fields{
		"topic":       retryTopic,
		"retry_count": retryCount,
	})

	err := c.producer.Publish(ctx, retryTopic, msg)
	if err != nil {
		logger.WithError(err).Error("Failed to send message to retry topic")
	} else {
		logger.Info("Message sent to retry topic")
	}
}

// sendToDLQ sends message to dead letter queue
func (c *Consumer) sendToDLQ(ctx context.Context, msg *models.Message, failureErr error) {
	c.metrics.IncSentToDLQ()

	// Add DLQ metadata to headers
	msg.SetHeader(models.HeaderFailureReason, failureErr.Error())
	msg.SetHeader(models.HeaderProcessedAt, time.Now().Format(time.RFC3339))

	logger := c.logger.WithField("topic", c.dlqTopic)

	err := c.producer.Publish(ctx, c.dlqTopic, msg)
	if err != nil {
		logger.WithError(err).Error("Failed to send message to DLQ")
	} else {
		logger.Info("Message sent to DLQ")
	}
}

// getRetryCount extracts retry count from message headers
func (c *Consumer) getRetryCount(msg *models.Message) int {
	if count, ok := msg.HeaderInt(models.HeaderRetryCount); ok {
		return count
	}
	return 0
}

// Close gracefully shuts down the consumer
func (c *Consumer) Close() error {
	c.logger.Info("Closing consumer")
	if err := c.reader.Close(); err != nil {
		return fmt.Errorf("failed to close consumer: %w", err)
	}
	return nil
}
