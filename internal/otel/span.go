// Package otel provides span helpers shared by the refresh pipeline and the API.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on extguard spans
const (
	AttrSourceName    = attribute.Key("source.name")
	AttrSourceFormat  = attribute.Key("source.format")
	AttrRefreshForced = attribute.Key("refresh.forced")
	AttrRefreshReason = attribute.Key("refresh.reason")
	AttrRunID         = attribute.Key("refresh.run_id")
	AttrRecordCount   = attribute.Key("result.count")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns the
// span already in ctx (a no-op span when there is none).
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records err on span and marks the span failed.
// The status description stays generic; the error itself is kept in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
