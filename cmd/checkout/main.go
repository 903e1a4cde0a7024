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
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/freshbasket/checkout/internal/addresses"
	"github.com/freshbasket/checkout/internal/cart"
	"github.com/freshbasket/checkout/internal/catalog"
	"github.com/freshbasket/checkout/internal/checkout"
	"github.com/freshbasket/checkout/internal/config"
	"github.com/freshbasket/checkout/internal/messaging"
	"github.com/freshbasket/checkout/internal/orders"
	"github.com/freshbasket/checkout/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.PostgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "checkout", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("checkout", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	if err := otelruntime.Start(); err != nil {
		logger.Error("failed to start runtime instrumentation", "error", err)
		os.Exit(1)
	}

	checkoutMetrics, err := telemetry.NewCheckoutMetrics()
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var createdProducer *messaging.Producer
	var statusProducer *messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		createdProducer = messaging.NewProducer(cfg.KafkaBrokers, "order.created")
		defer func() { _ = createdProducer.Close() }()
		statusProducer = messaging.NewProducer(cfg.KafkaBrokers, "order.status")
		defer func() { _ = statusProducer.Close() }()
	}

	catalogRepo := catalog.NewRepository(db)
	cartRepo := cart.NewRepository(db)
	addressRepo := addresses.NewRepository(db)
	orderRepo := orders.NewRepository(db)

	policy := checkout.Policy{
		FreeDeliveryThreshold: cfg.Pricing.FreeDeliveryThreshold,
		DeliveryFee:           cfg.Pricing.DeliveryFee,
		TaxRateBps:            cfg.Pricing.TaxRateBps,
	}
	engine := checkout.NewEngine(checkout.NewSQLStore(db), policy, publisher(createdProducer), logger)

	catalogHandler := catalog.NewHandler(catalogRepo, logger)
	cartHandler := cart.NewHandler(cartRepo, logger)
	addressHandler := addresses.NewHandler(addressRepo, logger)
	checkoutHandler := checkout.NewHandler(engine, cartRepo, checkoutMetrics, logger)
	orderHandler := orders.NewHandler(orderRepo, publisher(statusProducer), checkoutMetrics, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(catalogHandler.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(catalogHandler.HandleGet))
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(cartHandler.HandleList))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleAddLine))
	mux.HandleFunc("PATCH /cart/items/{id}", telemetry.WithHTTPRoute(cartHandler.HandleUpdateLine))
	mux.HandleFunc("DELETE /cart/items/{id}", telemetry.WithHTTPRoute(cartHandler.HandleRemoveLine))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(cartHandler.HandleClear))
	mux.HandleFunc("GET /addresses", telemetry.WithHTTPRoute(addressHandler.HandleList))
	mux.HandleFunc("POST /addresses", telemetry.WithHTTPRoute(addressHandler.HandleCreate))
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(checkoutHandler.HandleCreate))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("POST /orders/{id}/cancel", telemetry.WithHTTPRoute(orderHandler.HandleCancel))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(orderHandler.HandleUpdateStatus))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(mux, "checkout",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting checkout service", "port", cfg.Port)
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

// publisher returns nil as the interface value when the producer is nil, so
// the engine and handlers can treat an unset Kafka config as "no publisher".
func publisher(p *messaging.Producer) checkout.Publisher {
	if p == nil {
		return nil
	}
	return p
}
