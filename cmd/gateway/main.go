package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/freshbasket/checkout/internal/gateway"
	"github.com/freshbasket/checkout/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	checkoutServiceURL := os.Getenv("CHECKOUT_SERVICE_URL")
	if checkoutServiceURL == "" {
		logger.Error("CHECKOUT_SERVICE_URL is required")
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	checkoutProxy := gateway.NewServiceProxy(checkoutServiceURL, httpClient)
	handler := gateway.NewHandler(checkoutProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("PATCH /cart/items/{id}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("DELETE /cart/items/{id}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /addresses", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("POST /addresses", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("POST /orders/{id}/cancel", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(handler.HandleCheckout))

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "gateway",
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
		logger.Info("starting gateway service", "port", port)
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
