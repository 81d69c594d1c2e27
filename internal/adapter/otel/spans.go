package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "session-buddy"

// StartStoreSpan starts a span for a memory store operation.
func StartStoreSpan(ctx context.Context, op, collection string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "memory."+op,
		trace.WithAttributes(
			attribute.String("memory.op", op),
			attribute.String("memory.collection", collection),
		),
	)
}

// StartTaskSpan starts a span for a pool task execution.
func StartTaskSpan(ctx context.Context, poolID, taskID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pool.task",
		trace.WithAttributes(
			attribute.String("pool.id", poolID),
			attribute.String("task.id", taskID),
		),
	)
}

// StartSyncSpan starts a span for a sync orchestration run.
func StartSyncSpan(ctx context.Context, forceMethod string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "sync.run",
		trace.WithAttributes(
			attribute.String("sync.force_method", forceMethod),
		),
	)
}

// StartEvolutionSpan starts a span for a category evolution pass.
func StartEvolutionSpan(ctx context.Context, category string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "evolution.category",
		trace.WithAttributes(
			attribute.String("evolution.category", category),
		),
	)
}
