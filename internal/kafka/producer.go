package kafka

import (
	"context"
	"fmt"
	"time"

	"go-errorhandler/internal/observability"
	"go-errorhandler/pkg/models"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// ProducerClient publishes route messages to Kafka topics
type ProducerClient interface {
	Publish(ctx context.Context, topic string, msg *models.Message) error
	Close() error
}

// MessageWriter is the subset of *kafka.Writer the producer uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes route messages synchronously, retrying failed writes with
// capped exponential backoff on top of the writer's own attempts.
type Producer struct {
	writer  MessageWriter
	logger  *logrus.Entry
	metrics observability.MetricsCollector
	retries int
	backoff func(attempt int) time.Duration
}

type ProducerConfig struct {
	Brokers    []string
	Acks       int // -1 for all, 0 for none, 1 for leader
	Retries    int // attempts made by the kafka.Writer per write
	Idempotent bool
	// MaxRetries is how often a failed write is repeated, 3 when zero
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Metrics     observability.MetricsCollector
	Logger      *logrus.Entry
	// Writer overrides the kafka.Writer built from the config
	Writer MessageWriter
}

func NewProducer(cfg ProducerConfig) *Producer {
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewInMemoryMetrics()
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.WithComponent("producer")
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.Writer == nil {
		cfg.Writer = newWriter(cfg)
	}

	return &Producer{
		writer:  cfg.Writer,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		retries: cfg.MaxRetries,
		backoff: exponentialBackoff(cfg.BaseBackoff, cfg.MaxBackoff),
	}
}

func newWriter(cfg ProducerConfig) *kafka.Writer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.Acks),
		MaxAttempts:  cfg.Retries,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	// acks=all with extra attempts; kafka-go has no idempotent writer
	if cfg.Idempotent {
		w.RequiredAcks = kafka.RequireAll
		w.MaxAttempts = 10
	}
	return w
}

// exponentialBackoff doubles base per attempt, starting at attempt 1
func exponentialBackoff(base, max time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		if d > max {
			return max
		}
		return d
	}
}

// Publish writes msg to topic. Replies, retries and DLQ copies all go
// through here, so the record layout is decided by encodeMessage alone.
func (p *Producer) Publish(ctx context.Context, topic string, msg *models.Message) error {
	record := encodeMessage(topic, msg)
	logger := p.logger.WithFields(logrus.Fields{
		"topic":      topic,
		"key":        msg.Key,
		"message_id": msg.ID,
	})

	var err error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			wait := p.backoff(attempt)
			logger.WithFields(logrus.Fields{"attempt": attempt, "backoff": wait}).Info("Retrying publish")

			select {
			case <-ctx.Done():
				p.metrics.IncPublishFailed()
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		if err = p.writer.WriteMessages(ctx, record); err == nil {
			p.metrics.IncPublished()
			logger.WithField("attempts", attempt+1).Debug("Message published")
			return nil
		}
		logger.WithError(err).WithField("attempt", attempt+1).Warn("Publish failed")

		if ctx.Err() != nil {
			break
		}
	}

	p.metrics.IncPublishFailed()
	return fmt.Errorf("failed to publish to %s: %w", topic, err)
}

// Close flushes and closes the writer
func (p *Producer) Close() error {
	p.logger.Info("Closing producer")
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	return nil
}
