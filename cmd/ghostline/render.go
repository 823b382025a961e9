package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
)

const (
	ansiReset = "\033[0m"
	ansiDim   = "\033[2m"
	ansiCyan  = "\033[36m"
	ansiGreen = "\033[32m"
	ansiRed   = "\033[31m"

	// resultPreviewLines bounds how much of a tool result is echoed.
	resultPreviewLines = 8
)

// renderer prints orchestrator events. Text mode streams deltas inline and
// prints tool traffic as labelled blocks. JSON mode prints one object per
// event.
type renderer struct {
	out      io.Writer
	json     *json.Encoder
	color    bool
	midLine  bool
	streamed bool
}

func newRenderer(out io.Writer, jsonMode bool) *renderer {
	r := &renderer{out: out}
	if jsonMode {
		r.json = json.NewEncoder(out)
		return r
	}
	r.color = isTerminal(out)
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (r *renderer) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + ansiReset
}

// Event renders one event.
func (r *renderer) Event(ev agent.Event) error {
	if r.json != nil {
		return r.json.Encode(jsonEvent(ev))
	}

	var err error
	switch e := ev.(type) {
	case agent.TextDelta:
		r.streamed = true
		_, err = io.WriteString(r.out, e.Text)
		r.midLine = !strings.HasSuffix(e.Text, "\n")
	case agent.ToolCall:
		r.newline()
		summary := tools.FormatToolSummary(tools.ResolveToolDisplay(e.Name, e.Arguments))
		_, err = fmt.Fprintf(r.out, "%s %s\n", r.paint(ansiCyan, "→ "+summary), r.paint(ansiDim, "["+e.CallID+"]"))
	case agent.ToolResult:
		r.newline()
		code := ansiGreen
		if strings.HasPrefix(e.Output, "Error") {
			code = ansiRed
		}
		_, err = fmt.Fprintf(r.out, "%s\n%s", r.paint(code, "← "+e.Name), indent(preview(e.Output, resultPreviewLines)))
	case agent.Done:
		if !r.streamed && e.Text != "" {
			if _, err = io.WriteString(r.out, e.Text); err != nil {
				return err
			}
			r.midLine = !strings.HasSuffix(e.Text, "\n")
		}
		r.newline()
		reason := e.StopReason
		if reason == "" {
			reason = "unknown"
		}
		_, err = fmt.Fprintln(r.out, r.paint(ansiDim, "— stop: "+reason))
		r.streamed = false
	}
	return err
}

// Error renders a terminal stream error.
func (r *renderer) Error(err error) error {
	if r.json != nil {
		out := map[string]any{"type": "error", "error": err.Error()}
		if loopErr, ok := agent.GetLoopError(err); ok {
			out["phase"] = loopErr.Phase
			out["round"] = loopErr.Round
		}
		return r.json.Encode(out)
	}
	r.newline()
	_, werr := fmt.Fprintln(r.out, r.paint(ansiRed, "error: "+err.Error()))
	return werr
}

func (r *renderer) newline() {
	if r.midLine {
		fmt.Fprintln(r.out)
		r.midLine = false
	}
}

// jsonEvent flattens an event into {"type": ..., fields...}.
func jsonEvent(ev agent.Event) map[string]any {
	out := map[string]any{"type": ev.Type()}
	switch e := ev.(type) {
	case agent.TextDelta:
		out["text"] = e.Text
	case agent.ToolCall:
		out["call_id"] = e.CallID
		out["name"] = e.Name
		out["arguments"] = e.Arguments
	case agent.ToolResult:
		out["call_id"] = e.CallID
		out["name"] = e.Name
		out["output"] = e.Output
		if len(e.Metadata) > 0 {
			out["metadata"] = e.Metadata
		}
	case agent.Done:
		out["text"] = e.Text
		out["stop_reason"] = e.StopReason
	}
	return out
}

func preview(s string, maxLines int) string {
	s = strings.TrimRight(s, "\n")
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n") + fmt.Sprintf("\n… %d more lines", len(lines)-maxLines)
}

func indent(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
