package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for rounds, provider streams and tool
// executions. A nil *Metrics records nothing.
//
// Usage:
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	metrics.RecordToolExecution("read_file", "ok", time.Since(start).Seconds())
type Metrics struct {
	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (ok|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// ToolRejectionCounter counts calls refused before dispatch.
	// Labels: tool_name, reason (unknown_tool|rate_limited|missing_parameters)
	ToolRejectionCounter *prometheus.CounterVec

	// ProviderStreamDuration measures streaming completion latency in seconds.
	// Labels: provider, model
	ProviderStreamDuration *prometheus.HistogramVec

	// ProviderStreamCounter counts streaming completions.
	// Labels: provider, model, status (ok|error)
	ProviderStreamCounter *prometheus.CounterVec

	// RoundCounter counts orchestrator rounds.
	// Labels: outcome (tools|final|max_rounds|error)
	RoundCounter *prometheus.CounterVec

	// ErrorCounter tracks errors by component and type.
	// Labels: component (agent|provider|tool), error_type
	ErrorCounter *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// uses the default registerer. Call once per registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ToolExecutionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostline_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ghostline_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		ToolRejectionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostline_tool_rejections_total",
				Help: "Total number of tool calls refused before dispatch",
			},
			[]string{"tool_name", "reason"},
		),

		ProviderStreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ghostline_provider_stream_duration_seconds",
				Help:    "Duration of streaming completions in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider", "model"},
		),

		ProviderStreamCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostline_provider_streams_total",
				Help: "Total number of streaming completions by provider, model and status",
			},
			[]string{"provider", "model", "status"},
		),

		RoundCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostline_agent_rounds_total",
				Help: "Total number of orchestrator rounds by outcome",
			},
			[]string{"outcome"},
		),

		ErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ghostline_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),
	}
}

// RecordToolExecution records one dispatched tool call.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordToolRejection records a call refused before its handler ran.
func (m *Metrics) RecordToolRejection(toolName, reason string) {
	if m == nil {
		return
	}
	m.ToolRejectionCounter.WithLabelValues(toolName, reason).Inc()
}

// RecordProviderStream records one finished provider stream.
func (m *Metrics) RecordProviderStream(provider, model, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderStreamCounter.WithLabelValues(provider, model, status).Inc()
	m.ProviderStreamDuration.WithLabelValues(provider, model).Observe(durationSeconds)
}

// RecordRound records how an orchestrator round ended.
func (m *Metrics) RecordRound(outcome string) {
	if m == nil {
		return
	}
	m.RoundCounter.WithLabelValues(outcome).Inc()
}

// RecordError increments the error counter.
//
// Example:
//
//	metrics.RecordError("provider", "rate_limit")
func (m *Metrics) RecordError(component, errorType string) {
	if m == nil {
		return
	}
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}
