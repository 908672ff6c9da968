package kafka

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"go-errorhandler/internal/observability"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// BrokerMonitor tracks broker reachability for readiness reporting. When the
// brokers drop it re-checks with exponential backoff; kafka-go readers and
// writers redial on their own, so nothing has to be rebuilt.
type BrokerMonitor struct {
	brokers     []string
	logger      *logrus.Entry
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	dial        func(ctx context.Context, broker string) error
	healthy     atomic.Bool
}

func NewBrokerMonitor(brokers []string, maxRetries int) *BrokerMonitor {
	return &BrokerMonitor{
		brokers:     brokers,
		logger:      observability.WithComponent("broker-monitor"),
		maxRetries:  maxRetries,
		baseBackoff: 1 * time.Second,
		maxBackoff:  30 * time.Second,
		dial:        dialBroker,
	}
}

func dialBroker(ctx context.Context, broker string) error {
	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(); err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}
	return nil
}

// Check dials the brokers in order and succeeds on the first reachable one
func (m *BrokerMonitor) Check(ctx context.Context) error {
	if len(m.brokers) == 0 {
		return fmt.Errorf("no brokers configured")
	}

	var lastErr error
	for _, broker := range m.brokers {
		if lastErr = m.dial(ctx, broker); lastErr == nil {
			m.healthy.Store(true)
			return nil
		}
	}

	m.healthy.Store(false)
	return lastErr
}

// Healthy reports the result of the most recent check
func (m *BrokerMonitor) Healthy() bool {
	return m.healthy.Load()
}

// Ready reports the cached check result without dialing, for health endpoints
func (m *BrokerMonitor) Ready(context.Context) error {
	if !m.Healthy() {
		return fmt.Errorf("kafka brokers unreachable")
	}
	return nil
}

// Run checks the brokers immediately and then every interval until ctx is done
func (m *BrokerMonitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := m.Check(ctx); err != nil && ctx.Err() == nil {
			m.logger.WithError(err).Warn("Broker check failed, attempting reconnection")
			if err := m.reconnect(ctx); err != nil {
				m.logger.WithError(err).Error("Reconnection failed")
			}
		}

		select {
		case <-ctx.Done():
			m.logger.Info("Broker monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

func (m *BrokerMonitor) backoff(attempt int) time.Duration {
	return time.Duration(math.Min(
		float64(m.baseBackoff)*math.Pow(2, float64(attempt)),
		float64(m.maxBackoff),
	))
}

func (m *BrokerMonitor) reconnect(ctx context.Context) error {
	for attempt := 0; attempt < m.maxRetries; attempt++ {
		wait := m.backoff(attempt)
		m.logger.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"backoff": wait,
		}).Info("Attempting reconnection")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := m.Check(ctx); err != nil {
			m.logger.WithError(err).Warn("Reconnection attempt failed")
			continue
		}

		m.logger.WithField("brokers", m.brokers).Info("Reconnection successful")
		return nil
	}

	return fmt.Errorf("failed to reconnect after %d attempts", m.maxRetries)
}
