package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent/toolconv"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// DefaultOllamaURL is used when Config.BaseURL is empty.
const DefaultOllamaURL = "http://localhost:11434"

// OllamaProvider streams NDJSON chat replies from a local Ollama server.
//
// Before offering tools the provider asks /api/show whether the model
// advertises tool support and caches the answer per model. Models without
// it are called without tools.
type OllamaProvider struct {
	BaseProvider
	client      *http.Client
	baseURL     string
	model       string
	temperature float64
	logger      *slog.Logger

	mu          sync.Mutex
	toolSupport map[string]bool
}

var _ agent.Provider = (*OllamaProvider)(nil)

// NewOllamaProvider creates an Ollama adapter. No API key is needed.
func NewOllamaProvider(cfg Config) *OllamaProvider {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		BaseProvider: NewBaseProvider("ollama", cfg.MaxRetries, cfg.RetryDelay),
		client:       cfg.httpClient(),
		baseURL:      baseURL,
		model:        model,
		temperature:  cfg.temperature(),
		logger:       cfg.logger().With("provider", "ollama"),
		toolSupport:  map[string]bool{},
	}
}

// Stream sends a streaming /api/chat request.
func (p *OllamaProvider) Stream(ctx context.Context, conversation []agent.Message, defs []catalog.Definition) (<-chan agent.StreamChunk, error) {
	payload := ollamaChatRequest{
		Model:    p.model,
		Stream:   true,
		Messages: ollamaMessages(conversation),
		Options:  map[string]any{"temperature": p.temperature},
	}
	if len(defs) > 0 && p.SupportsTools(ctx) {
		payload.Tools = toolconv.ToOpenAITools(defs)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewProviderError("ollama", p.model, fmt.Errorf("marshal request: %w", err))
	}

	var resp *http.Response
	err = p.Retry(ctx, func() error {
		var err error
		resp, err = p.post(ctx, "/api/chat", body)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make(chan agent.StreamChunk)
	go p.streamResponse(ctx, resp.Body, out)
	return out, nil
}

// SupportsTools reports whether the model advertises tool calling. The
// answer, including a failed lookup, is cached per model.
func (p *OllamaProvider) SupportsTools(ctx context.Context) bool {
	p.mu.Lock()
	supported, ok := p.toolSupport[p.model]
	p.mu.Unlock()
	if ok {
		return supported
	}

	supported, err := p.lookupToolSupport(ctx)
	if err != nil {
		p.logger.Warn("tool capability lookup failed; sending no tools", "model", p.model, "error", err)
	}
	p.mu.Lock()
	p.toolSupport[p.model] = supported
	p.mu.Unlock()
	return supported
}

func (p *OllamaProvider) lookupToolSupport(ctx context.Context) (bool, error) {
	body, err := json.Marshal(map[string]string{"model": p.model})
	if err != nil {
		return false, err
	}
	resp, err := p.post(ctx, "/api/show", body)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var show ollamaShowResponse
	if err := json.NewDecoder(resp.Body).Decode(&show); err != nil {
		return false, NewProviderError("ollama", p.model, fmt.Errorf("decode show response: %w", err))
	}
	for _, raw := range []json.RawMessage{show.Capabilities, show.ModelInfo.Capabilities, show.Details.Capabilities} {
		if hasToolCapability(raw) {
			return true, nil
		}
	}
	return false, nil
}

// hasToolCapability accepts either a list of capability names or an
// object of capability flags.
func hasToolCapability(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		for _, c := range list {
			if c == "tools" || c == "tool_calls" {
				return true
			}
		}
		return false
	}
	var flags map[string]any
	if json.Unmarshal(raw, &flags) == nil {
		return truthy(flags["tools"]) || truthy(flags["tool_calls"])
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return v != nil
	}
}

func (p *OllamaProvider) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, NewProviderError("ollama", p.model, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, NewProviderError("ollama", p.model, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		errBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		if err != nil {
			return nil, NewProviderError("ollama", p.model, fmt.Errorf("ollama status %d (read body failed: %w)", resp.StatusCode, err)).WithStatus(resp.StatusCode)
		}
		return nil, NewProviderError("ollama", p.model, fmt.Errorf("ollama status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))).WithStatus(resp.StatusCode)
	}
	return resp, nil
}

func (p *OllamaProvider) streamResponse(ctx context.Context, body io.ReadCloser, out chan<- agent.StreamChunk) {
	defer close(out)
	defer body.Close()

	emit := emitter{ctx: ctx, out: out}
	acc := newCallAccumulator("ollama", p.logger)
	var text strings.Builder

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp ollamaChatResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			emit.fail(NewProviderError("ollama", p.model, fmt.Errorf("decode response: %w", err)))
			return
		}
		if resp.Error != "" {
			emit.fail(NewProviderError("ollama", p.model, errors.New(resp.Error)))
			return
		}
		if resp.Message != nil {
			if content := resp.Message.Content; content != "" {
				text.WriteString(content)
				if !emit.event(agent.TextDelta{Text: content}) {
					return
				}
			}
			for _, tc := range resp.Message.ToolCalls {
				acc.add(tc.ID, tc.Function.Index, tc.Function.Name, argumentFragment(tc.Function.Arguments))
			}
		}
		if resp.Done {
			emit.finish(acc, text.String(), ollamaStopReason(resp.DoneReason, acc))
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		emit.fail(NewProviderError("ollama", p.model, err))
		return
	}
	emit.finish(acc, text.String(), ollamaStopReason("", acc))
}

func ollamaStopReason(doneReason string, acc *callAccumulator) string {
	if doneReason != "" {
		return doneReason
	}
	if acc.pending() > 0 {
		return agent.StopReasonToolCalls
	}
	return ""
}

// argumentFragment returns the text to append for one arguments value.
// Ollama normally sends a complete object but some models stream a string.
func argumentFragment(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return string(raw)
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Tools    []openai.Tool       `json:"tools,omitempty"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaChatResponse struct {
	Message    *ollamaChatMessage `json:"message"`
	Done       bool               `json:"done"`
	DoneReason string             `json:"done_reason"`
	Error      string             `json:"error"`
}

type ollamaToolCall struct {
	ID       string             `json:"id,omitempty"`
	Type     string             `json:"type,omitempty"`
	Function ollamaToolFunction `json:"function"`
}

type ollamaToolFunction struct {
	Index     *int            `json:"index,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type ollamaShowResponse struct {
	Capabilities json.RawMessage `json:"capabilities"`
	ModelInfo    struct {
		Capabilities json.RawMessage `json:"capabilities"`
	} `json:"model_info"`
	Details struct {
		Capabilities json.RawMessage `json:"capabilities"`
	} `json:"details"`
}

func ollamaMessages(conversation []agent.Message) []ollamaChatMessage {
	messages := make([]ollamaChatMessage, 0, len(conversation))
	for _, msg := range conversation {
		role := string(msg.Role)
		if role == "" {
			role = string(agent.RoleUser)
		}
		entry := ollamaChatMessage{Role: role, Content: msg.Content}
		switch msg.Role {
		case agent.RoleAssistant:
			for _, call := range msg.ToolCalls {
				args := call.Arguments
				if len(args) == 0 {
					args = json.RawMessage(`{}`)
				}
				entry.ToolCalls = append(entry.ToolCalls, ollamaToolCall{
					ID:   call.ID,
					Type: "function",
					Function: ollamaToolFunction{
						Name:      call.Name,
						Arguments: args,
					},
				})
			}
		case agent.RoleTool:
			entry.ToolName = msg.Name
		}
		messages = append(messages, entry)
	}
	return messages
}
