// Package tracing wraps one otel tracer to emit a span per cycle phase
// boundary (Preprocess/Hypothesis/Plan/Run/Analyze/Improve/Replan),
// attached to the same context threaded through every component call, so
// a trace backend can reconstruct one cycle's timeline without the
// engine itself depending on any particular exporter.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/richard-devbot/chaoshunter"

// Tracer emits one span per phase, scoped to a single cycle via a
// work_dir attribute set on every span it opens.
type Tracer struct {
	tracer  trace.Tracer
	workDir string
}

// New returns a Tracer using the globally configured otel TracerProvider.
// Callers that never configure an exporter still get a no-op tracer —
// otel's default provider discards every span, so tracing is always safe
// to wire in.
func New(workDir string) *Tracer {
	return &Tracer{tracer: otel.Tracer(tracerName), workDir: workDir}
}

// StartPhase opens a span named phase, returning the derived context and
// an end function the caller must invoke with the phase's terminal error
// (nil on success).
func (t *Tracer) StartPhase(ctx context.Context, phase string) (context.Context, func(err error)) {
	ctx, span := t.tracer.Start(ctx, phase, trace.WithAttributes(
		attribute.String("chaoshunter.work_dir", t.workDir),
		attribute.String("chaoshunter.phase", phase),
	))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
