package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// CheckoutMetrics are the domain counters for the order engine. A nil
// receiver is a no-op so handlers can run unmetered in tests.
type CheckoutMetrics struct {
	ordersCreated  metric.Int64Counter
	ordersCanceled metric.Int64Counter
	rejections     metric.Int64Counter
}

func NewCheckoutMetrics() (*CheckoutMetrics, error) {
	meter := otel.Meter("checkout")

	ordersCreated, err := meter.Int64Counter("checkout.orders.created",
		metric.WithDescription("Orders successfully committed"))
	if err != nil {
		return nil, err
	}

	ordersCanceled, err := meter.Int64Counter("checkout.orders.canceled",
		metric.WithDescription("Orders canceled with stock restored"))
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter("checkout.rejections",
		metric.WithDescription("Checkout attempts rejected, by reason"))
	if err != nil {
		return nil, err
	}

	return &CheckoutMetrics{
		ordersCreated:  ordersCreated,
		ordersCanceled: ordersCanceled,
		rejections:     rejections,
	}, nil
}

func (m *CheckoutMetrics) OrderCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersCreated.Add(ctx, 1)
}

func (m *CheckoutMetrics) OrderCanceled(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersCanceled.Add(ctx, 1)
}

func (m *CheckoutMetrics) Rejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
