// Package observability wires OpenTelemetry metrics and tracing for the
// docsmill daemon. The CLI skips it entirely; its invocations are too
// short-lived to be worth instrumenting.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics sets the global meter provider backed by a Prometheus
// exporter, so the queue counters registered through otel.Meter surface on
// the daemon's /metrics endpoint. Returns that endpoint's handler and a
// shutdown function to flush the provider on exit.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}
