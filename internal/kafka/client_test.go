package kafka

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerMonitor_CheckFallsThroughBrokers(t *testing.T) {
	m := NewBrokerMonitor([]string{"down:9092", "up:9092"}, 1)

	var dialed []string
	m.dial = func(ctx context.Context, broker string) error {
		dialed = append(dialed, broker)
		if broker == "down:9092" {
			return fmt.Errorf("connection refused")
		}
		return nil
	}

	require.NoError(t, m.Check(context.Background()))
	assert.Equal(t, []string{"down:9092", "up:9092"}, dialed)
	assert.True(t, m.Healthy())
}

func TestBrokerMonitor_CheckAllDown(t *testing.T) {
	m := NewBrokerMonitor([]string{"a:9092", "b:9092"}, 1)
	m.dial = func(ctx context.Context, broker string) error {
		return fmt.Errorf("%s unreachable", broker)
	}

	err := m.Check(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "b:9092")
	assert.False(t, m.Healthy())
}

func TestBrokerMonitor_NoBrokers(t *testing.T) {
	m := NewBrokerMonitor(nil, 1)
	assert.Error(t, m.Check(context.Background()))
}

func TestBrokerMonitor_ReconnectRetriesUntilReachable(t *testing.T) {
	m := NewBrokerMonitor([]string{"a:9092"}, 3)
	m.baseBackoff = time.Millisecond
	m.maxBackoff = 2 * time.Millisecond

	var calls atomic.Int32
	m.dial = func(ctx context.Context, broker string) error {
		if calls.Add(1) < 2 {
			return fmt.Errorf("still down")
		}
		return nil
	}

	require.NoError(t, m.reconnect(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
	assert.True(t, m.Healthy())
}

func TestBrokerMonitor_RunChecksImmediately(t *testing.T) {
	m := NewBrokerMonitor([]string{"a:9092"}, 1)
	m.dial = func(ctx context.Context, broker string) error { return nil }

	require.Error(t, m.Ready(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Hour)
		close(done)
	}()

	assert.Eventually(t, m.Healthy, time.Second, 5*time.Millisecond)
	assert.NoError(t, m.Ready(context.Background()))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop after cancellation")
	}
}

func TestBrokerMonitor_ReadyReflectsLastCheck(t *testing.T) {
	m := NewBrokerMonitor([]string{"a:9092"}, 1)
	up := true
	m.dial = func(ctx context.Context, broker string) error {
		if up {
			return nil
		}
		return fmt.Errorf("down")
	}

	require.NoError(t, m.Check(context.Background()))
	assert.NoError(t, m.Ready(context.Background()))

	up = false
	require.Error(t, m.Check(context.Background()))
	assert.Error(t, m.Ready(context.Background()))
}

func TestBrokerMonitor_ReconnectGivesUp(t *testing.T) {
	m := NewBrokerMonitor([]string{"a:9092"}, 2)
	m.baseBackoff = time.Millisecond
	m.dial = func(ctx context.Context, broker string) error {
		return fmt.Errorf("down")
	}

	err := m.reconnect(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestBrokerMonitor_Backoff(t *testing.T) {
	m := NewBrokerMonitor(nil, 0)

	assert.Equal(t, time.Second, m.backoff(0))
	assert.Equal(t, 4*time.Second, m.backoff(2))
	assert.Equal(t, 30*time.Second, m.backoff(10))
}
