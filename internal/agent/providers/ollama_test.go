package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

const (
	ollamaChatPath = "/api/chat"
	ollamaShowPath = "/api/show"
	ndjson         = "application/x-ndjson"
)

func newTestOllama(t *testing.T, server *streamServer) *OllamaProvider {
	t.Helper()
	return NewOllamaProvider(Config{BaseURL: server.URL + "/", Model: "qwen2.5", RetryDelay: time.Millisecond})
}

func TestNewOllamaProviderDefaults(t *testing.T) {
	p := NewOllamaProvider(Config{})
	if p.baseURL != DefaultOllamaURL || p.model != DefaultOllamaModel || p.Name() != "ollama" {
		t.Fatalf("baseURL=%q model=%q name=%q", p.baseURL, p.model, p.Name())
	}
}

func TestOllamaStreamsTextAndToolCalls(t *testing.T) {
	server := newStreamServer(t, map[string]http.HandlerFunc{
		ollamaShowPath: respondStatus(http.StatusOK, `{"capabilities":["completion","tools"]}`),
		ollamaChatPath: replay(ndjson,
			`{"message":{"role":"assistant","content":"Let me check."},"done":false}`,
			`{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"read_file","arguments":{"path":"a.py"}}}]},"done":false}`,
			`{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`,
		),
	})
	p := newTestOllama(t, server)

	ch, err := p.Stream(context.Background(), []agent.Message{agent.UserMessage("read a.py")}, catalog.Definitions())
	if err != nil {
		t.Fatal(err)
	}
	got, err := agent.Collect(ch)
	if err != nil {
		t.Fatalf("stream error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("events = %+v", got)
	}
	if diff := cmp.Diff(agent.TextDelta{Text: "Let me check."}, got[0]); diff != "" {
		t.Fatalf("text mismatch (-want +got):\n%s", diff)
	}
	call, ok := got[1].(agent.ToolCall)
	if !ok || call.Name != "read_file" || !strings.HasPrefix(call.CallID, "call_") {
		t.Fatalf("tool call = %+v", got[1])
	}
	if diff := cmp.Diff(map[string]any{"path": "a.py"}, call.Arguments); diff != "" {
		t.Fatalf("arguments mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(agent.Done{Text: "Let me check.", StopReason: "stop"}, got[2]); diff != "" {
		t.Fatalf("done mismatch (-want +got):\n%s", diff)
	}

	var req ollamaChatRequest
	if err := json.Unmarshal(server.lastRequest(ollamaChatPath), &req); err != nil {
		t.Fatal(err)
	}
	if req.Model != "qwen2.5" || !req.Stream || len(req.Tools) != len(catalog.Names()) {
		t.Fatalf("model=%q stream=%v tools=%d", req.Model, req.Stream, len(req.Tools))
	}
	if req.Options["temperature"] != DefaultTemperature {
		t.Fatalf("options = %+v", req.Options)
	}
}

func TestOllamaToolSupportIsCached(t *testing.T) {
	server := newStreamServer(t, map[string]http.HandlerFunc{
		ollamaShowPath: respondStatus(http.StatusOK, `{"details":{"capabilities":{"tools":true}}}`),
		ollamaChatPath: replay(ndjson, `{"done":true}`),
	})
	p := newTestOllama(t, server)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ch, err := p.Stream(ctx, []agent.Message{agent.UserMessage("hi")}, catalog.Definitions())
		if err != nil {
			t.Fatal(err)
		}
		if _, err := agent.Collect(ch); err != nil {
			t.Fatal(err)
		}
	}
	if n := server.count(ollamaShowPath); n != 1 {
		t.Fatalf("capability requests = %d, want 1", n)
	}
	if n := server.count(ollamaChatPath); n != 3 {
		t.Fatalf("chat requests = %d, want 3", n)
	}
}

func TestOllamaOmitsToolsWithoutSupport(t *testing.T) {
	tests := []struct {
		name string
		show http.HandlerFunc
	}{
		{"no capability", respondStatus(http.StatusOK, `{"capabilities":["completion"]}`)},
		{"lookup fails", respondStatus(http.StatusNotFound, `{"error":"model not found"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newStreamServer(t, map[string]http.HandlerFunc{
				ollamaShowPath: tt.show,
				ollamaChatPath: replay(ndjson, `{"message":{"role":"assistant","content":"hi"},"done":true}`),
			})
			logger, logs := bufferLogger()
			p := NewOllamaProvider(Config{BaseURL: server.URL, Logger: logger})

			ch, err := p.Stream(context.Background(), []agent.Message{agent.UserMessage("hi")}, catalog.Definitions())
			if err != nil {
				t.Fatal(err)
			}
			if _, err := agent.Collect(ch); err != nil {
				t.Fatal(err)
			}
			var req map[string]any
			if err := json.Unmarshal(server.lastRequest(ollamaChatPath), &req); err != nil {
				t.Fatal(err)
			}
			if _, ok := req["tools"]; ok {
				t.Fatal("tools must be omitted for models without tool support")
			}
			if p.SupportsTools(context.Background()) {
				t.Fatal("cached answer should be false")
			}
			if tt.name == "lookup fails" && !strings.Contains(logs.String(), "tool capability lookup failed") {
				t.Fatalf("expected lookup warning, got %q", logs.String())
			}
		})
	}
}

func TestOllamaStringArgumentsAndInferredStopReason(t *testing.T) {
	server := newStreamServer(t, map[string]http.HandlerFunc{
		ollamaChatPath: replay(ndjson,
			`{"message":{"role":"assistant","content":"","tool_calls":[{"id":"t1","function":{"index":0,"name":"search_code","arguments":"{\"query\":"}}]},"done":false}`,
			`{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"index":0,"arguments":"\"TODO\"}"}}]},"done":false}`,
		),
	})
	p := newTestOllama(t, server)

	got, err := collect(t, p, []agent.Message{agent.UserMessage("find todos")})
	if err != nil {
		t.Fatal(err)
	}
	want := []agent.Event{
		agent.ToolCall{CallID: "t1", Name: "search_code", Arguments: map[string]any{"query": "TODO"}},
		agent.Done{StopReason: agent.StopReasonToolCalls},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestOllamaErrorLine(t *testing.T) {
	server := newStreamServer(t, map[string]http.HandlerFunc{
		ollamaChatPath: replay(ndjson,
			`{"message":{"role":"assistant","content":"par"},"done":false}`,
			`{"error":"model runner has unexpectedly stopped"}`,
		),
	})
	p := newTestOllama(t, server)

	got, err := collect(t, p, []agent.Message{agent.UserMessage("hi")})
	if !IsProviderError(err) || !strings.Contains(err.Error(), "unexpectedly stopped") {
		t.Fatalf("error = %v", err)
	}
	if diff := cmp.Diff([]agent.Event{agent.TextDelta{Text: "par"}}, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestOllamaHTTPStatusError(t *testing.T) {
	server := newStreamServer(t, map[string]http.HandlerFunc{
		ollamaChatPath: respondStatus(http.StatusBadRequest, `{"error":"invalid model"}`),
	})
	p := newTestOllama(t, server)

	_, err := p.Stream(context.Background(), []agent.Message{agent.UserMessage("hi")}, nil)
	providerErr, ok := GetProviderError(err)
	if !ok || providerErr.Status != http.StatusBadRequest {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(providerErr.Error(), "invalid model") {
		t.Fatalf("error = %v", providerErr)
	}
	if n := server.count(ollamaChatPath); n != 1 {
		t.Fatalf("attempts = %d, want 1", n)
	}
}

func TestOllamaMessages(t *testing.T) {
	conversation := []agent.Message{
		agent.SystemMessage("sys"),
		{Content: "no role"},
		agent.AssistantToolCallMessage("", []agent.ToolCall{{CallID: "c1", Name: "list_directory"}}),
		agent.ToolMessage("c1", "list_directory", "a.txt"),
	}
	got := ollamaMessages(conversation)
	if len(got) != 4 {
		t.Fatalf("messages = %d", len(got))
	}
	if got[0].Role != "system" || got[1].Role != "user" {
		t.Fatalf("roles = %q, %q", got[0].Role, got[1].Role)
	}
	calls := got[2].ToolCalls
	if len(calls) != 1 || calls[0].Function.Name != "list_directory" || string(calls[0].Function.Arguments) != "{}" {
		t.Fatalf("assistant tool calls = %+v", calls)
	}
	if got[3].Role != "tool" || got[3].ToolName != "list_directory" || got[3].Content != "a.txt" {
		t.Fatalf("tool message = %+v", got[3])
	}
}

func TestHasToolCapability(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{``, false},
		{`["completion","tools"]`, true},
		{`["tool_calls"]`, true},
		{`["vision"]`, false},
		{`{"tools":true}`, true},
		{`{"tools":false}`, false},
		{`{"tool_calls":"yes"}`, true},
		{`{"tools":0}`, false},
		{`"tools"`, false},
	}
	for _, tt := range tests {
		if got := hasToolCapability(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("hasToolCapability(%s) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestArgumentFragment(t *testing.T) {
	tests := map[string]string{
		``:          "",
		`null`:      "",
		`{"a":1}`:   `{"a":1}`,
		`"{\"a\":"`: `{"a":`,
		` "plain" `: "plain",
	}
	for raw, want := range tests {
		if got := argumentFragment(json.RawMessage(raw)); got != want {
			t.Errorf("argumentFragment(%q) = %q, want %q", raw, got, want)
		}
	}
}
