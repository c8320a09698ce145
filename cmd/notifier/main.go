package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/patas-storefront/internal/config"
	"github.com/joao-fontenele/patas-storefront/internal/messaging"
	"github.com/joao-fontenele/patas-storefront/internal/notify"
	"github.com/joao-fontenele/patas-storefront/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.ValidateNotifier(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry.SetPropagator()
	if cfg.TracingEnabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, "notifier", "0.1.0", cfg.OTLPEndpoint)
		if err != nil {
			logger.Error("failed to initialize tracer", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, cfg.OrderCreatedTopic, cfg.ConsumerGroup, logger)
	defer func() { _ = consumer.Close() }()

	httpClient := telemetry.NewHTTPClient(&http.Client{Timeout: 10 * time.Second})
	confirmations := notify.NewConfirmationHandler(cfg.MailerURL, httpClient, logger)

	logger.Info("starting notifier", "brokers", cfg.KafkaBrokers, "topic", cfg.OrderCreatedTopic)

	if err := consumer.Consume(ctx, confirmations.Handle); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
