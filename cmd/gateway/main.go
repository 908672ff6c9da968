// Command gateway serves the error-handled route over HTTP.
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
		addr         string
		checkBrokers bool
	)

	cmd := &cobra.Command{
		Use:          "gateway",
		Short:        "Serve routes over HTTP, answering failed requests with the configured status code",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			return run(cmd.Context(), cfg, checkBrokers)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	cmd.Flags().BoolVar(&checkBrokers, "check-brokers", false, "report Kafka broker reachability on /healthz")

	return cmd
}

func run(parent context.Context, cfg *config.Config, checkBrokers bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	observability.InitLogger(cfg.Logging.Level)
	logger := observability.WithComponent("gateway-cmd")
	gin.SetMode(gin.ReleaseMode)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, observability.NewPrometheusMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}

	opts := gateway.Options{Routes: application.Routes}
	if checkBrokers {
		opts.Health = kafka.NewBrokerMonitor(cfg.Kafka.Brokers, 1).Check
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           gateway.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTP.Addr).Info("Gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Shutting down gateway")
	return srv.Shutdown(shutdownCtx)
}
