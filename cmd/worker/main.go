package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freshbasket/checkout/internal/config"
	"github.com/freshbasket/checkout/internal/messaging"
	"github.com/freshbasket/checkout/internal/notifier"
	"github.com/freshbasket/checkout/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}
	if cfg.EmailServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(context.Background(), "worker", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	createdConsumer := messaging.NewConsumer(cfg.KafkaBrokers, "order.created", "notification-worker")
	defer func() { _ = createdConsumer.Close() }()

	statusConsumer := messaging.NewConsumer(cfg.KafkaBrokers, "order.status", "notification-worker")
	defer func() { _ = statusConsumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	handler := notifier.NewHandler(cfg.EmailServiceURL, httpClient, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting notification worker", "brokers", cfg.KafkaBrokers)

	errs := make(chan error, 2)
	go func() {
		errs <- createdConsumer.Consume(ctx, handler.HandleOrderCreated)
	}()
	go func() {
		errs <- statusConsumer.Consume(ctx, handler.HandleOrderStatus)
	}()

	if err := <-errs; err != nil {
		if ctx.Err() == context.Canceled {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
