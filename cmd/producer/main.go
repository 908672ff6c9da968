// Command producer publishes a request onto the requests topic.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go-errorhandler/internal/config"
	"go-errorhandler/internal/kafka"
	"go-errorhandler/internal/observability"
	"go-errorhandler/pkg/models"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		key   string
		body  string
		topic string
	)

	cmd := &cobra.Command{
		Use:          "producer",
		Short:        "Publish a request message",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if topic == "" {
				topic = cfg.Producer.Topic
			}
			if key == "" {
				key = uuid.NewString()
			}

			payload := []byte(body)
			if body == "" {
				var err error
				if payload, err = sampleOrder(); err != nil {
					return err
				}
			}
			return publish(cmd.Context(), cfg, topic, key, payload)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "message key (random UUID when empty)")
	cmd.Flags().StringVar(&body, "body", "", "raw message body; a sample order when empty")
	cmd.Flags().StringVar(&topic, "topic", "", "target topic (overrides KAFKA_PRODUCER_TOPIC)")

	return cmd
}

func publish(ctx context.Context, cfg *config.Config, topic, key string, payload []byte) error {
	observability.InitLogger(cfg.Logging.Level)
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:    cfg.Kafka.Brokers,
		Acks:       cfg.Producer.Acks,
		Retries:    cfg.Producer.Retries,
		Idempotent: cfg.Producer.Idempotent,
		MaxRetries: 5,
	})
	defer producer.Close()

	msg := models.NewMessage(key, payload)
	msg.ID = uuid.NewString()

	if err := producer.Publish(ctx, topic, msg); err != nil {
		return fmt.Errorf("failed to publish request: %w", err)
	}

	observability.WithFields(map[string]interface{}{
		"topic":      topic,
		"key":        key,
		"message_id": msg.ID,
	}).Info("Request published")
	return nil
}

func sampleOrder() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event_type":  "order_created",
		"order_id":    "ORD-2025-001234",
		"customer_id": "CUST-567890",
		"items": []map[string]interface{}{
			{"product_id": "PROD-111", "quantity": 1, "price": 42900.00},
			{"product_id": "PROD-222", "quantity": 1, "price": 8990.00},
		},
		"total_amount": "51890.00",
		"currency":     "THB",
		"status":       "pending",
	})
}
