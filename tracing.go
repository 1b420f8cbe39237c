package ensemble

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/lguibr/ensemble")

// traceDispatch wraps one Receive invocation in a span named
// "ensemble.dispatch" when tracing is enabled in Config. Disabled by
// default: most deployments of an in-process runtime care about
// throughput, not a span per message, so this stays opt-in.
func traceDispatch(enabled bool, kindName string, id any) (context.Context, trace.Span) {
	if !enabled {
		return context.Background(), trace.SpanFromContext(context.Background())
	}

	ctx, span := tracer.Start(context.Background(), "ensemble.dispatch",
		trace.WithAttributes(
			attribute.String("ensemble.kind", kindName),
			attribute.String("ensemble.id", idString(id)),
		),
	)
	return ctx, span
}

func idString(id any) string {
	if s, ok := id.(interface{ String() string }); ok {
		return s.String()
	}
	return fmt.Sprint(id)
}
