package providers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent/toolconv"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// maxEmptyStreamEvents is the number of consecutive events without output
// after which a stream is treated as malformed.
const maxEmptyStreamEvents = 300

// AnthropicProvider streams Claude replies through the Messages API.
//
// Tool calls arrive as a tool_use content block start carrying the id and
// name, followed by input_json_delta fragments for the same block index.
// Fragments are accumulated until the message stops.
//
// Thread Safety:
// AnthropicProvider is safe for concurrent use. Each Stream call owns its
// own HTTP stream and goroutine.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

var _ agent.Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider creates an Anthropic adapter. An API key is
// required. Retries happen inside the SDK and only when MaxRetries is set.
func NewAnthropicProvider(cfg Config) (*AnthropicProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}

	options := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(cfg.httpClient()),
		option.WithMaxRetries(max(cfg.MaxRetries, 0)),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		options = append(options, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicProvider{
		client:      anthropic.NewClient(options...),
		model:       model,
		temperature: cfg.temperature(),
		maxTokens:   cfg.maxTokens(),
		logger:      cfg.logger().With("provider", "anthropic"),
	}, nil
}

// Name returns "anthropic".
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Stream opens a streaming Messages request. Request and HTTP status
// failures are returned directly as a *ProviderError.
func (p *AnthropicProvider) Stream(ctx context.Context, conversation []agent.Message, defs []catalog.Definition) (<-chan agent.StreamChunk, error) {
	system, messages := anthropicMessages(conversation)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		Messages:    messages,
		MaxTokens:   int64(p.maxTokens),
		Temperature: anthropic.Float(p.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(defs) > 0 {
		params.Tools = toolconv.ToAnthropicTools(defs)
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, p.wrapError(err)
	}

	out := make(chan agent.StreamChunk)
	go p.processStream(ctx, stream, out)
	return out, nil
}

func (p *AnthropicProvider) processStream(ctx context.Context, stream *ssestream.Stream[anthropic.MessageStreamEventUnion], out chan<- agent.StreamChunk) {
	defer close(out)
	defer stream.Close()

	emit := emitter{ctx: ctx, out: out}
	acc := newCallAccumulator("anthropic", p.logger)
	var (
		text       strings.Builder
		stopReason string
		emptyCount int
	)

	for stream.Next() {
		event := stream.Current()
		processed := true

		switch event.Type {
		case "content_block_start":
			block := event.ContentBlock
			if block.Type == "tool_use" {
				index := int(event.Index)
				acc.add(block.ID, &index, block.Name, "")
			}

		case "content_block_delta":
			index := int(event.Index)
			switch event.Delta.Type {
			case "text_delta":
				if event.Delta.Text == "" {
					processed = false
					break
				}
				text.WriteString(event.Delta.Text)
				if !emit.event(agent.TextDelta{Text: event.Delta.Text}) {
					return
				}
			case "input_json_delta":
				acc.add("", &index, "", event.Delta.PartialJSON)
			default:
				processed = false
			}

		case "message_delta":
			if reason := string(event.Delta.StopReason); reason != "" {
				stopReason = reason
			}

		case "message_stop":
			emit.finish(acc, text.String(), stopReason)
			return

		case "message_start", "content_block_stop":

		default:
			processed = false
		}

		if processed {
			emptyCount = 0
			continue
		}
		emptyCount++
		if emptyCount >= maxEmptyStreamEvents {
			emit.fail(p.wrapError(errors.New("stream appears malformed: too many consecutive empty events")))
			return
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		emit.fail(p.wrapError(err))
		return
	}
	emit.finish(acc, text.String(), stopReason)
}

// anthropicMessages splits out the system prompt and converts the rest.
// Consecutive tool messages merge into one user turn of tool_result blocks.
func anthropicMessages(conversation []agent.Message) (string, []anthropic.MessageParam) {
	var (
		system   []string
		messages []anthropic.MessageParam
		results  []anthropic.ContentBlockParamUnion
	)
	flushResults := func() {
		if len(results) > 0 {
			messages = append(messages, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, msg := range conversation {
		if msg.Role == agent.RoleTool {
			results = append(results, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
			continue
		}
		flushResults()

		switch msg.Role {
		case agent.RoleSystem:
			if msg.Content != "" {
				system = append(system, msg.Content)
			}
		case agent.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, call.DecodeArguments(), call.Name))
			}
			if len(blocks) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	flushResults()
	return strings.Join(system, "\n\n"), messages
}

type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (p *AnthropicProvider) wrapError(err error) error {
	if err == nil || IsProviderError(err) {
		return err
	}

	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return NewProviderError("anthropic", p.model, err)
	}

	providerErr := NewProviderError("anthropic", p.model, err).WithStatus(apiErr.StatusCode)
	providerErr.Message = "anthropic request failed"
	requestID := apiErr.RequestID

	var payload anthropicErrorPayload
	if raw := apiErr.RawJSON(); raw != "" && json.Unmarshal([]byte(raw), &payload) == nil {
		if payload.Error.Message != "" {
			providerErr = providerErr.WithMessage(payload.Error.Message)
		}
		if payload.Error.Type != "" {
			providerErr = providerErr.WithCode(payload.Error.Type)
		}
		if payload.RequestID != "" {
			requestID = payload.RequestID
		}
	}
	if requestID != "" {
		providerErr = providerErr.WithRequestID(requestID)
	}
	return providerErr
}
