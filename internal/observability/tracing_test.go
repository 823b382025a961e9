package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewTracerFromProvider(tp, "test"), recorder
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestNewTracerWithoutEndpoint(t *testing.T) {
	tracer, shutdown := NewTracer(TraceConfig{})
	defer func() { _ = shutdown(context.Background()) }()
	if tracer == nil || tracer.tracer == nil {
		t.Fatal("NewTracer returned an unusable tracer")
	}
	if tracer.config.ServiceName != DefaultServiceName {
		t.Fatalf("service name = %q", tracer.config.ServiceName)
	}
	_, span := tracer.Start(context.Background(), "noop")
	span.End()
}

func TestNilTracerStarts(t *testing.T) {
	var tracer *Tracer
	_, span := tracer.TraceToolExecution(context.Background(), "read_file")
	tracer.RecordError(span, errors.New("boom"))
	span.End()
}

func TestTraceHelpers(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)
	ctx := context.Background()

	roundCtx, round := tracer.TraceRound(ctx, "run-1", 2)
	if GetTraceID(roundCtx) == "" {
		t.Fatal("expected trace id in round context")
	}
	_, stream := tracer.TraceProviderStream(roundCtx, "anthropic", "claude")
	stream.End()
	_, tool := tracer.TraceToolExecution(roundCtx, "read_file")
	tracer.SetAttributes(tool, "tool.status", "ok", 42, "ignored")
	tool.End()
	round.End()

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("ended spans = %d, want 3", len(spans))
	}
	names := map[string]sdktrace.ReadOnlySpan{}
	for _, s := range spans {
		names[s.Name()] = s
	}
	r, ok := names["agent.round"]
	if !ok {
		t.Fatal("missing agent.round span")
	}
	if v, _ := attrValue(r.Attributes(), "agent.round"); v.AsInt64() != 2 {
		t.Errorf("agent.round = %v", v.AsInt64())
	}
	if _, ok := names["llm.anthropic"]; !ok {
		t.Error("missing llm.anthropic span")
	}
	tl := names["tool.read_file"]
	if tl == nil {
		t.Fatal("missing tool span")
	}
	if v, ok := attrValue(tl.Attributes(), "tool.status"); !ok || v.AsString() != "ok" {
		t.Errorf("tool.status = %v", v)
	}
	if tl.Parent().SpanID() != r.SpanContext().SpanID() {
		t.Error("tool span should be a child of the round span")
	}
}

func TestTracerRecordError(t *testing.T) {
	tracer, recorder := newRecordingTracer(t)
	_, span := tracer.Start(context.Background(), "failing")
	tracer.RecordError(span, nil)
	tracer.RecordError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended = %d", len(ended))
	}
	if ended[0].Status().Code != codes.Error || ended[0].Status().Description != "boom" {
		t.Fatalf("status = %+v", ended[0].Status())
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
	}
	for _, tt := range tests {
		if got := samplerFor(tt.rate).Description(); got != tt.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tt.rate, got, tt.want)
		}
	}
}

func TestAttributeFromValue(t *testing.T) {
	if v := attributeFromValue("k", 3).Value.AsInt64(); v != 3 {
		t.Errorf("int = %v", v)
	}
	if v := attributeFromValue("k", struct{}{}).Value.AsString(); v != "{}" {
		t.Errorf("fallback = %q", v)
	}
}
