// Package providers adapts vendor streaming APIs to agent.Provider.
//
// Each adapter translates the vendor-neutral conversation into the vendor's
// wire shape, streams the reply, and reassembles fragmented tool calls into
// complete agent.ToolCall events followed by exactly one agent.Done.
//
// Example:
//
//	provider, err := providers.New(providers.Config{
//	    Provider: "anthropic",
//	    Model:    "claude-sonnet-4-20250514",
//	    APIKey:   os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	if err != nil {
//	    return err
//	}
//	chunks, err := provider.Stream(ctx, conversation, catalog.Definitions())
package providers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent/toolconv"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/observability"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

const (
	// DefaultTemperature is sent when Config.Temperature is nil.
	DefaultTemperature = 0.2

	// DefaultMaxTokens bounds Anthropic replies, which require a limit.
	DefaultMaxTokens = 4096

	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultOllamaModel    = "llama3.1"
)

// Config selects and configures a provider.
type Config struct {
	// Provider is anthropic, openai or ollama, case-insensitive.
	Provider string
	Model    string
	APIKey   string
	BaseURL  string

	// Temperature defaults to DefaultTemperature when nil.
	Temperature *float64

	// MaxTokens defaults to DefaultMaxTokens. Anthropic only.
	MaxTokens int

	// Timeout bounds a whole HTTP exchange, including the stream.
	Timeout time.Duration

	// MaxRetries re-attempts opening a stream after a retryable failure.
	// Zero never retries. RetryDelay is the first backoff step.
	MaxRetries int
	RetryDelay time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

func (c Config) temperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

func (c Config) maxTokens() int {
	if c.MaxTokens <= 0 {
		return DefaultMaxTokens
	}
	return c.MaxTokens
}

func (c Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &http.Client{Timeout: timeout}
}

// New builds the provider named by cfg.Provider. Unknown names yield a
// *toolconv.UnsupportedProviderError. When cfg carries metrics or a
// tracer the provider is instrumented.
func New(cfg Config) (agent.Provider, error) {
	vendor, err := toolconv.ParseVendor(cfg.Provider)
	if err != nil {
		return nil, err
	}

	var (
		provider agent.Provider
		model    string
	)
	switch vendor {
	case toolconv.Anthropic:
		p, err := NewAnthropicProvider(cfg)
		if err != nil {
			return nil, err
		}
		provider, model = p, p.model
	case toolconv.OpenAI:
		p, err := NewOpenAIProvider(cfg)
		if err != nil {
			return nil, err
		}
		provider, model = p, p.model
	case toolconv.Ollama:
		p := NewOllamaProvider(cfg)
		provider, model = p, p.model
	}

	if cfg.Metrics == nil && cfg.Tracer == nil {
		return provider, nil
	}
	return &instrumented{Provider: provider, model: model, metrics: cfg.Metrics, tracer: cfg.Tracer}, nil
}

// instrumented records a span and stream metrics around each Stream call.
type instrumented struct {
	agent.Provider
	model   string
	metrics *observability.Metrics
	tracer  *observability.Tracer
}

func (p *instrumented) Stream(ctx context.Context, conversation []agent.Message, defs []catalog.Definition) (<-chan agent.StreamChunk, error) {
	ctx, span := p.tracer.TraceProviderStream(ctx, p.Name(), p.model)
	start := time.Now()

	in, err := p.Provider.Stream(ctx, conversation, defs)
	if err != nil {
		p.tracer.RecordError(span, err)
		span.End()
		p.metrics.RecordProviderStream(p.Name(), p.model, "error", time.Since(start).Seconds())
		p.metrics.RecordError("provider", string(ClassifyError(err)))
		return nil, err
	}

	out := make(chan agent.StreamChunk)
	go func() {
		defer close(out)
		defer span.End()
		status := "ok"
		defer func() {
			p.metrics.RecordProviderStream(p.Name(), p.model, status, time.Since(start).Seconds())
		}()
		for chunk := range in {
			if chunk.Err != nil {
				status = "error"
				p.tracer.RecordError(span, chunk.Err)
				p.metrics.RecordError("provider", string(ClassifyError(chunk.Err)))
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				status = "cancelled"
				return
			}
		}
	}()
	return out, nil
}

// emitter writes to an unbuffered stream channel until ctx ends.
type emitter struct {
	ctx context.Context
	out chan<- agent.StreamChunk
}

func (e emitter) event(ev agent.Event) bool {
	select {
	case e.out <- agent.StreamChunk{Event: ev}:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e emitter) fail(err error) {
	select {
	case e.out <- agent.StreamChunk{Err: err}:
	case <-e.ctx.Done():
	}
}

// finish emits the accumulated calls and the closing Done.
func (e emitter) finish(acc *callAccumulator, text, stopReason string) {
	for _, call := range acc.flush() {
		if !e.event(call) {
			return
		}
	}
	e.event(agent.Done{Text: text, StopReason: stopReason})
}
