package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	billID := uuid.New()

	_, span := telemetry.StartServiceSpan(context.Background(), "bill", "approve",
		telemetry.WithAttribute(telemetry.SpanAttrBillID, billID.String()),
		telemetry.WithSpanKind(trace.SpanKindServer),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "bill.approve", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
	assert.Equal(t, telemetry.TracerName, spans[0].InstrumentationScope().Name)
	assert.Equal(t, billID.String(), attrMap(spans[0])[telemetry.SpanAttrBillID].AsString())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	billID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "bill.pay")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrBillNumber, "BILL-202401-00001",
		"count", 3,
		42, "non-string key",
		"dangling",
	)
	telemetry.SetAttribute(span, telemetry.SpanAttrBillID, billID)
	span.End()

	attrs := attrMap(sr.Ended()[0])
	assert.Equal(t, "BILL-202401-00001", attrs[telemetry.SpanAttrBillNumber].AsString())
	assert.Equal(t, int64(3), attrs["count"].AsInt64())
	assert.Equal(t, billID.String(), attrs[telemetry.SpanAttrBillID].AsString())
	assert.NotContains(t, attrs, attribute.Key("dangling"))
	assert.Len(t, attrs, 3)
}

func TestAttributeTypes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "types")
	telemetry.SetAttributes(span,
		"int64", int64(7),
		"float", 1.5,
		"bool", true,
		"strings", []string{"a", "b"},
		"other", struct{ N int }{N: 1},
	)
	span.End()

	attrs := attrMap(sr.Ended()[0])
	assert.Equal(t, int64(7), attrs["int64"].AsInt64())
	assert.Equal(t, 1.5, attrs["float"].AsFloat64())
	assert.True(t, attrs["bool"].AsBool())
	assert.Equal(t, []string{"a", "b"}, attrs["strings"].AsStringSlice())
	assert.Equal(t, "{1}", attrs["other"].AsString())
}

func TestRecordErrorAndSetOK(t *testing.T) {
	sr := setupTestTracer(t)

	_, failed := telemetry.StartSpan(context.Background(), "failed")
	telemetry.RecordError(failed, errors.New("version conflict"))
	failed.End()

	_, ok := telemetry.StartSpan(context.Background(), "ok")
	telemetry.RecordError(ok, nil)
	telemetry.SetOK(ok)
	ok.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "version conflict", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, codes.Ok, spans[1].Status().Code)
	assert.Empty(t, spans[1].Events())
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "rebate.accrue")
	telemetry.AddEvent(span, "receivable_updated", telemetry.SpanAttrAmount, "120.50")
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "receivable_updated", events[0].Name)
	assert.Equal(t, "120.50", events[0].Attributes[0].Value.AsString())
}

func TestNilSpanHelpers(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.SetAttribute(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.SetOK(nil)
		telemetry.AddEvent(nil, "e")
	})
}

func TestTraceAndSpanIDs(t *testing.T) {
	setupTestTracer(t)
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))

	ctx, parent := telemetry.StartSpan(context.Background(), "parent")
	defer parent.End()
	childCtx, child := telemetry.StartSpan(ctx, "child")
	defer child.End()

	assert.Equal(t, parent.SpanContext().TraceID().String(), telemetry.GetTraceID(childCtx))
	assert.Equal(t, child.SpanContext().SpanID().String(), telemetry.GetSpanID(childCtx))
	assert.NotEqual(t, telemetry.GetSpanID(ctx), telemetry.GetSpanID(childCtx))
}
