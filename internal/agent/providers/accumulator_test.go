package providers

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
)

func intPtr(i int) *int { return &i }

func TestDecodeArguments(t *testing.T) {
	tests := []struct {
		name string
		buf  string
		ok   bool
		want map[string]any
	}{
		{"empty", "", true, map[string]any{}},
		{"whitespace", " \n\t", true, map[string]any{}},
		{"object", `{"path":"a.py","recursive":true}`, true, map[string]any{"path": "a.py", "recursive": true}},
		{"empty object", `{}`, true, map[string]any{}},
		{"truncated", `{"path":`, false, map[string]any{"raw": `{"path":`}},
		{"array", `[1,2]`, false, map[string]any{"raw": `[1,2]`}},
		{"string", `"a.py"`, false, map[string]any{"raw": `"a.py"`}},
		{"null", `null`, false, map[string]any{"raw": `null`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := DecodeArguments(tt.buf)
			if res.OK != tt.ok {
				t.Fatalf("OK = %v, want %v (err %v)", res.OK, tt.ok, res.Err)
			}
			if !res.OK && res.Err == nil {
				t.Fatal("failed decode must carry an error")
			}
			if diff := cmp.Diff(tt.want, res.Arguments()); diff != "" {
				t.Fatalf("arguments mismatch (-want +got):\n%s", diff)
			}
		})
	}
	if res := DecodeArguments(`[1]`); !errors.Is(res.Err, errNotObject) {
		t.Fatalf("non-object error = %v", res.Err)
	}
}

func TestAccumulatorAliasesIndexToID(t *testing.T) {
	acc := newCallAccumulator("test", nil)
	acc.add("call_a", intPtr(0), "read_file", `{"pa`)
	acc.add("", intPtr(1), "write_file", `{"path":"b",`)
	acc.add("", intPtr(0), "", `th":"a"}`)
	acc.add("", intPtr(1), "", `"content":"x"}`)

	if acc.pending() != 2 {
		t.Fatalf("pending = %d", acc.pending())
	}
	got := acc.flush()
	want := []agent.ToolCall{
		{CallID: "call_a", Name: "read_file", Arguments: map[string]any{"path": "a"}},
		{CallID: "1", Name: "write_file", Arguments: map[string]any{"path": "b", "content": "x"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if acc.pending() != 0 {
		t.Fatal("flush must reset the accumulator")
	}
}

func TestAccumulatorLaterNameWins(t *testing.T) {
	acc := newCallAccumulator("test", nil)
	acc.add("c1", nil, "read", "")
	acc.add("c1", nil, "read_file", `{}`)
	got := acc.flush()
	if len(got) != 1 || got[0].Name != "read_file" {
		t.Fatalf("calls = %+v", got)
	}
}

func TestAccumulatorWithoutIDOrIndex(t *testing.T) {
	acc := newCallAccumulator("test", nil)
	acc.add("", nil, "list_directory", `{}`)
	acc.add("", nil, "list_directory", `{}`)
	got := acc.flush()
	if len(got) != 2 {
		t.Fatalf("calls = %+v", got)
	}
	if got[0].CallID == got[1].CallID || !strings.HasPrefix(got[0].CallID, "call_") {
		t.Fatalf("synthetic ids = %q, %q", got[0].CallID, got[1].CallID)
	}
}

func TestAccumulatorLogging(t *testing.T) {
	logger, logs := bufferLogger()
	acc := newCallAccumulator("openai", logger)
	acc.add("nameless", nil, "", `{"a":1}`)
	acc.add("broken", nil, "read_file", `{"path":`)
	acc.add("empty", nil, "list_directory", "")

	got := acc.flush()
	want := []agent.ToolCall{
		{CallID: "broken", Name: "read_file", Arguments: map[string]any{"raw": `{"path":`}},
		{CallID: "empty", Name: "list_directory", Arguments: map[string]any{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}

	out := logs.String()
	for _, msg := range []string{
		"dropping tool call without a name",
		"tool call arguments are not a JSON object",
		"tool call decoded to empty arguments",
	} {
		if !strings.Contains(out, msg) {
			t.Errorf("log missing %q:\n%s", msg, out)
		}
	}
	if !strings.Contains(out, "level=DEBUG msg=\"tool call decoded to empty arguments\"") {
		t.Errorf("empty arguments should log at debug:\n%s", out)
	}
}
