// Package observability provides structured logging, Prometheus metrics and
// OpenTelemetry tracing for the agent loop, provider streams and tool
// executor.
//
// Logging is log/slog with a redacting handler:
//
//	logger := observability.NewLogger(observability.LogConfig{Level: "debug", Format: "json"})
//	logger.InfoContext(observability.AddRunID(ctx, runID), "round started", "round", 0)
//
// Metrics register against a caller-supplied registerer so tests can use an
// isolated prometheus.NewRegistry:
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	metrics.RecordToolExecution("read_file", "ok", time.Since(start).Seconds())
//
// Tracing exports over OTLP gRPC when an endpoint is configured and is a
// no-op otherwise:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{Endpoint: "localhost:4317"})
//	defer shutdown(ctx)
//	ctx, span := tracer.TraceToolExecution(ctx, "read_file")
//	defer span.End()
package observability
