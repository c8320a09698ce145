package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/patas-storefront/internal/accounts"
	"github.com/joao-fontenele/patas-storefront/internal/auth"
	"github.com/joao-fontenele/patas-storefront/internal/catalog"
	"github.com/joao-fontenele/patas-storefront/internal/config"
	"github.com/joao-fontenele/patas-storefront/internal/httpapi"
	"github.com/joao-fontenele/patas-storefront/internal/messaging"
	"github.com/joao-fontenele/patas-storefront/internal/orders"
	"github.com/joao-fontenele/patas-storefront/internal/telemetry"
)

const serviceVersion = "0.1.0"

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.ValidateStorefront(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	telemetry.SetPropagator()
	if cfg.TracingEnabled {
		shutdownTracer, err := telemetry.InitTracerProvider(ctx, "storefront", serviceVersion, cfg.OTLPEndpoint)
		if err != nil {
			logger.Error("failed to initialize tracer", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdownTracer(ctx) }()
	}

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("storefront", serviceVersion)
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := telemetry.OpenDB(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	var publisher orders.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		producer := messaging.NewProducer(cfg.KafkaBrokers, cfg.OrderCreatedTopic)
		defer func() { _ = producer.Close() }()
		publisher = producer
	} else {
		logger.Info("KAFKA_BROKERS not set, order events will not be published")
	}

	engine, err := orders.NewEngine(orders.NewOrderRepository(db), logger)
	if err != nil {
		logger.Error("failed to create order engine", "error", err)
		os.Exit(1)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	router := httpapi.NewRouter(httpapi.Deps{
		Logger:           logger,
		Auth:             auth.NewMiddleware(tokens, logger),
		Accounts:         accounts.NewHandler(accounts.NewUserRepository(db), tokens, logger),
		Catalog:          catalog.NewHandler(catalog.NewProductRepository(db), logger),
		Orders:           orders.NewHandler(engine, publisher, logger),
		Ping:             db.PingContext,
		Metrics:          metricsHandler,
		StaticDir:        cfg.StaticDir,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting storefront", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
