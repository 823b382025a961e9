package agent

import (
	"context"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// Provider streams one model turn from a vendor backend.
//
// Stream returns a finite channel that the producer closes. Each chunk
// carries either an Event or a terminal transport error. Exactly one Done
// event ends a successful stream. The channel is unbuffered, so the
// network read only advances as the caller drains it. Cancel ctx to
// abandon the stream early; the producer then exits without leaking.
//
// Implementations must not mutate the conversation slice.
//
// See Also:
//   - providers.AnthropicProvider
//   - providers.OpenAIProvider
//   - providers.OllamaProvider
type Provider interface {
	Name() string
	Stream(ctx context.Context, conversation []Message, defs []catalog.Definition) (<-chan StreamChunk, error)
}

// StreamChunk is one item on a provider or orchestrator channel.
type StreamChunk struct {
	Event Event
	Err   error
}

// ToolExecutor runs tool calls. It never fails: errors are reported in the
// result's output text.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) tools.Result
}
