// Command consumer runs Kafka requests through the error-handled route and
// publishes the results to the reply topic.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-errorhandler/internal/app"
	"go-errorhandler/internal/config"
	"go-errorhandler/internal/gateway"
	"go-errorhandler/internal/kafka"
	"go-errorhandler/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		groupID string
		opsAddr string
	)

	cmd := &cobra.Command{
		Use:          "consumer",
		Short:        "Consume requests from Kafka and resolve route failures into status responses",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if groupID != "" {
				cfg.Consumer.GroupID = groupID
			}
			return run(cmd.Context(), cfg, opsAddr)
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "consumer group ID (overrides KAFKA_CONSUMER_GROUP_ID)")
	cmd.Flags().StringVar(&opsAddr, "ops-addr", ":9102", "address for /metrics and /healthz, empty to disable")

	return cmd
}

func run(parent context.Context, cfg *config.Config, opsAddr string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	observability.InitLogger(cfg.Logging.Level)
	logger := observability.WithComponent("consumer-cmd")

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewPrometheusMetrics(prometheus.DefaultRegisterer)

	application, err := app.New(cfg, metrics)
	if err != nil {
		return err
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:    cfg.Kafka.Brokers,
		Acks:       cfg.Producer.Acks,
		Retries:    cfg.Producer.Retries,
		Idempotent: cfg.Producer.Idempotent,
		Metrics:    metrics,
	})
	defer producer.Close()

	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:          cfg.Kafka.Brokers,
		Topic:            cfg.Consumer.Topic,
		GroupID:          cfg.Consumer.GroupID,
		Workers:          cfg.Consumer.Workers,
		RetryMax:         cfg.Consumer.RetryMax,
		FetchMinBytes:    cfg.Consumer.FetchMinBytes,
		FetchMaxBytes:    cfg.Consumer.FetchMaxBytes,
		RetryTopicPrefix: cfg.Consumer.RetryTopicPrefix,
		DLQTopic:         cfg.Consumer.DLQTopic,
		ReplyTopic:       cfg.Consumer.ReplyTopic,
		Metrics:          metrics,
	}, producer)
	defer consumer.Close()

	monitor := kafka.NewBrokerMonitor(cfg.Kafka.Brokers, 5)
	go monitor.Run(ctx, 30*time.Second)

	if opsAddr != "" {
		gin.SetMode(gin.ReleaseMode)
		srv := &http.Server{
			Addr:              opsAddr,
			Handler:           gateway.NewRouter(gateway.Options{Health: monitor.Ready}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("Ops server stopped")
			}
		}()
		defer srv.Close()
	}

	logger.WithField("topic", cfg.Consumer.Topic).
		WithField("status_code", cfg.ErrorHandling.StatusCode).
		Info("Starting consumer")

	return consumer.Start(ctx, application.Routes.Handler(app.RequestsRoute))
}
