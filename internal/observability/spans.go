package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ideaboard"

var globalTracer trace.Tracer

// InitGlobalTracer binds the package tracer to the current global provider.
func InitGlobalTracer() {
	globalTracer = otel.Tracer(tracerName)
}

// GetGlobalTracer returns the global tracer instance for the client.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		globalTracer = otel.Tracer(tracerName)
	}
	return globalTracer
}

// TraceFunction starts a new span named "<component>.<function>".
func TraceFunction(ctx context.Context, component, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	spanName := fmt.Sprintf("%s.%s", component, functionName)
	return GetGlobalTracer().Start(ctx, spanName, trace.WithAttributes(attributes...))
}

// TraceSessionFunction starts a new span for a session operation.
func TraceSessionFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "session", functionName, attributes...)
}

// TraceIdeaFunction starts a new span for an idea board operation.
func TraceIdeaFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "ideas", functionName, attributes...)
}

// TraceFormFunction starts a new span for a form configuration or submission operation.
func TraceFormFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "form", functionName, attributes...)
}

// TraceAdminFunction starts a new span for a user-management operation.
func TraceAdminFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "admin", functionName, attributes...)
}

// TraceWorkerFunction starts a new span for a background worker tick.
func TraceWorkerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "worker", functionName, attributes...)
}

// TraceStorageFunction starts a new span for a state file operation.
func TraceStorageFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "storage", functionName, attributes...)
}

// FinishSpan ends a span and records any error pointed to by errPtr.
// Use with a named error return: `defer observability.FinishSpan(span, &err)`
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	if errPtr != nil && *errPtr != nil {
		span.RecordError(*errPtr, trace.WithStackTrace(true))
		span.SetStatus(codes.Error, (*errPtr).Error())
	}
	span.End()
}

// AttributeIdeaID returns a tracing attribute for an idea ID.
func AttributeIdeaID(id int) attribute.KeyValue {
	return attribute.Int("idea.id", id)
}

// AttributeUserID returns a tracing attribute for a user ID.
func AttributeUserID(id int) attribute.KeyValue {
	return attribute.Int("user.id", id)
}

// AttributeRole returns a tracing attribute for a session role.
func AttributeRole(role string) attribute.KeyValue {
	return attribute.String("user.role", role)
}

// AttributeReaction returns a tracing attribute for a reaction type.
func AttributeReaction(reaction string) attribute.KeyValue {
	return attribute.String("reaction.type", reaction)
}

// AttributeStatus returns a tracing attribute for an idea status.
func AttributeStatus(status string) attribute.KeyValue {
	return attribute.String("idea.status", status)
}

// AttributeSearch returns a tracing attribute for a search value.
func AttributeSearch(search string) attribute.KeyValue {
	return attribute.String("search", search)
}

// AttributeGeneration returns a tracing attribute for a list fetch generation.
func AttributeGeneration(gen uint64) attribute.KeyValue {
	return attribute.Int64("fetch.generation", int64(gen))
}
