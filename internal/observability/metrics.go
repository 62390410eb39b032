package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the OpenTelemetry instrumentation scope for the sync
// engine's remote clients.
const meterName = "github.com/oculairmedia/huly-vibe-sync/remoteclients"

// slowCallThreshold is the ceiling above which a remote call is logged
// as slow.
const slowCallThreshold = 5 * time.Second

// Metrics records per-call latency(component, operation, ms) and error
// counts for every remote-client operation.
type Metrics struct {
	log     *slog.Logger
	latency metric.Float64Histogram
	calls   metric.Int64Counter
	errors  metric.Int64Counter
}

// NewMetrics builds a Metrics instance from the global MeterProvider. Call
// otel.SetMeterProvider once at process start (see cmd/syncd/main.go)
// before constructing any client.
func NewMetrics(log *slog.Logger) (*Metrics, error) {
	meter := otel.Meter(meterName)

	latency, err := meter.Float64Histogram(
		"sync_remote_call_latency_ms",
		metric.WithDescription("Latency of RemoteClients operations"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	calls, err := meter.Int64Counter(
		"sync_remote_calls_total",
		metric.WithDescription("Total RemoteClients operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter(
		"sync_remote_call_errors_total",
		metric.WithDescription("Total RemoteClients operation errors, by classified kind"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{log: log, latency: latency, calls: calls, errors: errs}, nil
}

// RecordLatency records one call's duration and, above the slow-call
// threshold, logs a warning.
func (m *Metrics) RecordLatency(ctx context.Context, component, operation string, d time.Duration) {
	attrs := metric.WithAttributes(
		componentAttr(component),
		operationAttr(operation),
	)
	m.latency.Record(ctx, float64(d.Milliseconds()), attrs)
	m.calls.Add(ctx, 1, attrs)

	if d > slowCallThreshold {
		m.log.WarnContext(ctx, "slow remote call",
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", d),
		)
	}
}

// RecordError increments the error counter for a classified error kind.
func (m *Metrics) RecordError(ctx context.Context, component, operation, kind string) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		componentAttr(component),
		operationAttr(operation),
		kindAttr(kind),
	))
}

// Timer returns a function that, when called, records the elapsed time
// since Timer was invoked as a single RemoteClients call.
func (m *Metrics) Timer(ctx context.Context, component, operation string) func() {
	start := time.Now()
	return func() {
		m.RecordLatency(ctx, component, operation, time.Since(start))
	}
}
