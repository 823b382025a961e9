package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent/toolconv"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := buildRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"run", "tools", "sandbox", "config", "version"} {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestToolsCommand(t *testing.T) {
	tests := []struct {
		provider string
		key      string
	}{
		{"anthropic", "input_schema"},
		{"openai", "function"},
		{"ollama", "function"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			out, err := execute(t, "", "tools", "--provider", tt.provider)
			if err != nil {
				t.Fatalf("tools error = %v", err)
			}
			var schemas []map[string]any
			if err := json.Unmarshal([]byte(out), &schemas); err != nil {
				t.Fatalf("output is not JSON: %v\n%s", err, out)
			}
			if len(schemas) != len(catalog.Names()) {
				t.Fatalf("schemas = %d, want %d", len(schemas), len(catalog.Names()))
			}
			if _, ok := schemas[0][tt.key]; !ok {
				t.Fatalf("first schema lacks %q: %v", tt.key, schemas[0])
			}
		})
	}
}

func TestToolsCommandUnsupportedProvider(t *testing.T) {
	_, err := execute(t, "", "tools", "--provider", "gemini")
	var unsupported *toolconv.UnsupportedProviderError
	if !errors.As(err, &unsupported) {
		t.Fatalf("error = %v, want UnsupportedProviderError", err)
	}
}

func TestSandboxCommand(t *testing.T) {
	out, err := execute(t, "", "sandbox", "--", "git", "status", "--short")
	if err != nil {
		t.Fatalf("sandbox error = %v", err)
	}
	if !strings.Contains(out, `allowed: ["git","status","--short"]`) {
		t.Fatalf("output = %q", out)
	}

	out, err = execute(t, "", "sandbox", "ls && rm -rf /")
	if !errors.Is(err, errRejected) {
		t.Fatalf("error = %v, want errRejected", err)
	}
	if !strings.Contains(out, "Command chaining is not allowed") {
		t.Fatalf("output = %q", out)
	}

	out, err = execute(t, "", "sandbox", "--json", "--allow", "make", "make test")
	if err != nil {
		t.Fatalf("sandbox error = %v", err)
	}
	var verdict sandboxVerdict
	if err := json.Unmarshal([]byte(out), &verdict); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(sandboxVerdict{Allowed: true, Argv: []string{"make", "test"}, Timeout: "1m0s"}, verdict); diff != "" {
		t.Fatalf("verdict mismatch (-want +got):\n%s", diff)
	}
}

func TestReadPrompt(t *testing.T) {
	got, err := readPrompt(strings.NewReader("ignored"), []string{"list", "files"})
	if err != nil || got != "list files" {
		t.Fatalf("readPrompt(args) = %q, %v", got, err)
	}
	got, err = readPrompt(strings.NewReader("  from stdin\n"), []string{"-"})
	if err != nil || got != "from stdin" {
		t.Fatalf("readPrompt(-) = %q, %v", got, err)
	}
	if _, err := readPrompt(strings.NewReader(" "), nil); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestLoadConfigProviderOverrideDropsForeignKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "openai-env")
	dir := t.TempDir()
	path := filepath.Join(dir, "ghostline.yaml")
	body := "provider:\n  name: anthropic\n  api_key: anthropic-file\n  model: claude-x\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(runOptions{configPath: path, provider: "openai", maxRounds: 2, workspace: dir})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider.Name != "openai" || cfg.Provider.APIKey != "openai-env" || cfg.Provider.Model != "" {
		t.Fatalf("provider = %+v", cfg.Provider)
	}
	if cfg.Agent.MaxRounds != 2 || cfg.Workspace != dir {
		t.Fatalf("agent=%+v workspace=%q", cfg.Agent, cfg.Workspace)
	}
}

func TestRendererText(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false)
	events := []agent.Event{
		agent.TextDelta{Text: "Let me "},
		agent.TextDelta{Text: "look."},
		agent.ToolCall{CallID: "c1", Name: "read_file", Arguments: map[string]any{"path": "a.py"}},
		agent.Done{Text: "Let me look.", StopReason: "tool_use"},
		agent.ToolResult{CallID: "c1", Name: "read_file", Output: "print(1)\n"},
		agent.Done{Text: "It prints 1.", StopReason: "end_turn"},
	}
	for _, ev := range events {
		if err := r.Event(ev); err != nil {
			t.Fatal(err)
		}
	}
	want := "Let me look.\n" +
		"→ 📖 Reading: a.py [c1]\n" +
		"— stop: tool_use\n" +
		"← read_file\n" +
		"  print(1)\n" +
		"It prints 1.\n" +
		"— stop: end_turn\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestRendererJSON(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, true)
	_ = r.Event(agent.ToolCall{CallID: "c1", Name: "list_directory", Arguments: map[string]any{}})
	_ = r.Event(agent.Done{Text: "ok", StopReason: "stop"})
	_ = r.Error(errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first["type"] != "tool_call" || first["call_id"] != "c1" || first["name"] != "list_directory" {
		t.Fatalf("first = %v", first)
	}
	if !strings.Contains(lines[2], `"type":"error"`) {
		t.Fatalf("error line = %s", lines[2])
	}
}

func TestRendererJSONLoopError(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, true)
	loopErr := &agent.LoopError{Phase: agent.PhaseAwaitingModel, Round: 2, Cause: errors.New("reset")}
	if err := r.Error(fmt.Errorf("stream: %w", loopErr)); err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["phase"] != "awaiting_model" || got["round"] != float64(2) {
		t.Fatalf("error event = %v", got)
	}
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("line\n", 12)
	got := preview(long, 3)
	if got != "line\nline\nline\n… 9 more lines" {
		t.Fatalf("preview = %q", got)
	}
}

// ollamaServer answers the capability lookup and scripts one chat reply per
// request.
func ollamaServer(t *testing.T, replies ...[]string) *httptest.Server {
	t.Helper()
	var n int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/show":
			fmt.Fprint(w, `{"capabilities":["tools"]}`)
		case "/api/chat":
			i := int(atomic.AddInt32(&n, 1)) - 1
			if i >= len(replies) {
				i = len(replies) - 1
			}
			w.Header().Set("Content-Type", "application/x-ndjson")
			for _, line := range replies[i] {
				fmt.Fprintln(w, line)
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunCommandEndToEnd(t *testing.T) {
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	server := ollamaServer(t,
		[]string{
			`{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"list_directory","arguments":{}}}]},"done":true}`,
		},
		[]string{
			`{"message":{"role":"assistant","content":"There is one file."},"done":true,"done_reason":"stop"}`,
		},
	)

	out, err := execute(t, "", "run",
		"--provider", "ollama",
		"--base-url", server.URL,
		"--workspace", workspace,
		"--json",
		"what is here?",
	)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}

	var types []string
	var result map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var ev map[string]any
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		types = append(types, ev["type"].(string))
		if ev["type"] == "tool_result" {
			result = ev
		}
	}
	want := []string{"tool_call", "done", "tool_result", "text_delta", "done"}
	if diff := cmp.Diff(want, types); diff != "" {
		t.Fatalf("event types mismatch (-want +got):\n%s", diff)
	}
	if result["output"] != "notes.txt" {
		t.Fatalf("tool result = %v", result)
	}
}

func TestRunCommandMaxRounds(t *testing.T) {
	server := ollamaServer(t, []string{
		`{"message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"list_directory","arguments":{}}}]},"done":true}`,
	})
	out, err := execute(t, "", "run", "--provider", "ollama", "--base-url", server.URL,
		"--workspace", t.TempDir(), "--max-rounds", "1", "loop forever")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.HasSuffix(out, "— stop: max_rounds\n") {
		t.Fatalf("output = %q", out)
	}
}

func TestRunCommandMissingWorkspace(t *testing.T) {
	_, err := execute(t, "", "run", "--provider", "ollama", "--workspace", filepath.Join(t.TempDir(), "missing"), "hi")
	if err == nil || !strings.Contains(err.Error(), "workspace") {
		t.Fatalf("error = %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-secret")
	t.Setenv("GHOSTLINE_CONFIG", "")
	out, err := execute(t, "", "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "sk-ant-secret") || !strings.Contains(out, "max_rounds: 4") {
		t.Fatalf("config show = %s", out)
	}

	out, err = execute(t, "", "config", "schema")
	if err != nil || !strings.Contains(out, `"provider"`) {
		t.Fatalf("config schema = %s, %v", out, err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil || !strings.HasPrefix(out, "ghostline dev") {
		t.Fatalf("version = %q, %v", out, err)
	}
}
