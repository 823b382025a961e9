package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent/toolconv"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// OpenAIProvider streams chat completions from OpenAI or any compatible
// endpoint reachable through BaseURL.
//
// Tool calls stream as choices[0].delta.tool_calls fragments. The first
// fragment of a call usually carries id, index and name. Later fragments
// carry only the index and an arguments piece, so the index is aliased to
// the id for the rest of the stream.
type OpenAIProvider struct {
	BaseProvider
	client      *openai.Client
	model       string
	temperature float64
	logger      *slog.Logger
}

var _ agent.Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates an OpenAI adapter. An API key is required.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: API key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	clientCfg.HTTPClient = cfg.httpClient()

	return &OpenAIProvider{
		BaseProvider: NewBaseProvider("openai", cfg.MaxRetries, cfg.RetryDelay),
		client:       openai.NewClientWithConfig(clientCfg),
		model:        model,
		temperature:  cfg.temperature(),
		logger:       cfg.logger().With("provider", "openai"),
	}, nil
}

// Stream opens a streaming chat completion, retrying transient failures.
func (p *OpenAIProvider) Stream(ctx context.Context, conversation []agent.Message, defs []catalog.Definition) (<-chan agent.StreamChunk, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    openAIMessages(conversation),
		Stream:      true,
		Temperature: float32(p.temperature),
	}
	if len(defs) > 0 {
		req.Tools = toolconv.ToOpenAITools(defs)
	}

	var stream *openai.ChatCompletionStream
	err := p.Retry(ctx, func() error {
		var err error
		stream, err = p.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			return p.wrapError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(chan agent.StreamChunk)
	go p.processStream(ctx, stream, out)
	return out, nil
}

func (p *OpenAIProvider) processStream(ctx context.Context, stream *openai.ChatCompletionStream, out chan<- agent.StreamChunk) {
	defer close(out)
	defer stream.Close()

	emit := emitter{ctx: ctx, out: out}
	acc := newCallAccumulator("openai", p.logger)
	var (
		text         strings.Builder
		finishReason string
	)

	for {
		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			emit.finish(acc, text.String(), finishReason)
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			emit.fail(p.wrapError(err))
			return
		}
		if len(response.Choices) == 0 {
			continue
		}

		choice := response.Choices[0]
		if reason := string(choice.FinishReason); reason != "" {
			finishReason = reason
		}
		if content := choice.Delta.Content; content != "" {
			text.WriteString(content)
			if !emit.event(agent.TextDelta{Text: content}) {
				return
			}
		}
		for _, tc := range choice.Delta.ToolCalls {
			acc.add(tc.ID, tc.Index, tc.Function.Name, tc.Function.Arguments)
		}
	}
}

// openAIMessages converts the conversation. System messages are forwarded
// natively.
func openAIMessages(conversation []agent.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(conversation))
	for _, msg := range conversation {
		oaiMsg := openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		switch msg.Role {
		case agent.RoleTool:
			oaiMsg.ToolCallID = msg.ToolCallID
			oaiMsg.Name = msg.Name
		case agent.RoleAssistant:
			for _, call := range msg.ToolCalls {
				args := string(call.Arguments)
				if args == "" {
					args = "{}"
				}
				oaiMsg.ToolCalls = append(oaiMsg.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: args,
					},
				})
			}
		case "":
			oaiMsg.Role = openai.ChatMessageRoleUser
		}
		out = append(out, oaiMsg)
	}
	return out
}

func (p *OpenAIProvider) wrapError(err error) error {
	if err == nil || IsProviderError(err) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		providerErr := NewProviderError("openai", p.model, err).WithStatus(apiErr.HTTPStatusCode)
		if apiErr.Message != "" {
			providerErr = providerErr.WithMessage(apiErr.Message)
		}
		if code := apiErrorCode(apiErr); code != "" {
			providerErr = providerErr.WithCode(code)
		}
		return providerErr
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewProviderError("openai", p.model, err).WithStatus(reqErr.HTTPStatusCode)
	}
	return NewProviderError("openai", p.model, err)
}

func apiErrorCode(apiErr *openai.APIError) string {
	switch code := apiErr.Code.(type) {
	case string:
		if code != "" {
			return code
		}
	case nil:
	default:
		return fmt.Sprint(code)
	}
	return apiErr.Type
}
