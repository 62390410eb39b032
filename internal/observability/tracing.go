package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope for phase spans.
const tracerName = "github.com/oculairmedia/huly-vibe-sync/phaseengine"

// StartPhaseSpan opens a span covering one phase of a project's cycle.
// With no TracerProvider installed the returned span is a no-op, so the
// Phase Engine can call this unconditionally.
func StartPhaseSpan(ctx context.Context, project, phase string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "sync.phase",
		trace.WithAttributes(
			attribute.String("project", project),
			attribute.String("phase", phase),
		),
	)
}
