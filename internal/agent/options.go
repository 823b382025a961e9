package agent

import (
	"log/slog"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/observability"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// DefaultMaxRounds bounds model round trips per Stream call.
const DefaultMaxRounds = 4

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxRounds sets the round budget. Values below one are ignored.
func WithMaxRounds(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRounds = n
		}
	}
}

// WithTools replaces the tool definitions offered to the model.
func WithTools(defs []catalog.Definition) Option {
	return func(o *Orchestrator) {
		o.tools = append([]catalog.Definition(nil), defs...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics enables Prometheus round metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = metrics
	}
}

// WithTracer enables round spans.
func WithTracer(tracer *observability.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}
