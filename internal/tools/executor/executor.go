// Package executor dispatches model-issued tool calls to the workspace tools.
//
// Execute never returns a Go error: unknown tools, missing parameters, rate
// limiting, sandbox rejections and I/O failures all surface as "Error: ..."
// output so the model can read them and recover.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/observability"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
	toolexec "github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/exec"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/files"
	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/search"
)

// Result is the outcome of one Execute call.
type Result = tools.Result

const (
	// MaxHistory bounds the invocation log.
	MaxHistory = 200
	// previewLength bounds history previews and sanitized argument strings.
	previewLength = 200

	rateLimitedOutput = "Error: Tool rate limit exceeded; please wait before sending more tool calls."
	missingParamsHint = " Try using list_directory or search_code to find the right path " +
		"before retrying path-dependent tools like read_file."
)

// Config configures an Executor.
type Config struct {
	Workspace    string
	AllowedRoots []string
	// AllowedBinaries overrides the sandbox's default binary allow-list.
	AllowedBinaries []string
	// MaxCallsPerMinute enables rate limiting when positive.
	MaxCallsPerMinute int
	// OutputBudget caps total output characters across calls when positive.
	OutputBudget int
	// CommandTimeout overrides the 60s process timeout when positive.
	CommandTimeout time.Duration
	PythonBinary   string
	// Ripgrep overrides rg discovery; "-" forces the native search walker.
	Ripgrep string

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// HistoryEntry records one Execute call.
type HistoryEntry struct {
	Tool          string         `json:"tool"`
	Args          map[string]any `json:"args"`
	Timestamp     time.Time      `json:"timestamp"`
	Status        string         `json:"status"`
	OutputPreview string         `json:"output_preview"`
}

// Executor owns the dispatch table and the shared per-session state.
type Executor struct {
	handlers  map[catalog.Name]tools.Handler
	schemas   *catalog.Schemas
	workspace *files.Workspace
	limiter   *tools.Limiter

	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  *observability.Tracer

	mu      sync.Mutex
	rate    *rate.Limiter
	history []HistoryEntry
	now     func() time.Time
}

// New builds an executor for cfg.Workspace.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limiter := tools.NewLimiter(cfg.OutputBudget)
	ws := files.NewWorkspace(files.Config{
		Workspace:    cfg.Workspace,
		AllowedRoots: cfg.AllowedRoots,
		Limiter:      limiter,
	})
	searcher := search.New(search.Config{Workspace: ws, Limiter: limiter, Ripgrep: cfg.Ripgrep})

	var handlers []tools.Handler
	handlers = append(handlers, ws.Handlers()...)
	handlers = append(handlers, searcher.Handlers()...)
	handlers = append(handlers, toolexec.Handlers(toolexec.Config{
		Resolver:        ws.Resolver(),
		Limiter:         limiter,
		AllowedBinaries: cfg.AllowedBinaries,
		Timeout:         cfg.CommandTimeout,
		PythonBinary:    cfg.PythonBinary,
	})...)

	table := make(map[catalog.Name]tools.Handler, len(handlers))
	for _, h := range handlers {
		table[h.Name()] = h
	}

	schemas, err := catalog.Compile(catalog.Definitions())
	if err != nil {
		logger.Warn("tool schemas did not compile; advisory validation disabled", "error", err)
		schemas = nil
	}

	e := &Executor{
		handlers:  table,
		schemas:   schemas,
		workspace: ws,
		limiter:   limiter,
		logger:    logger.With("component", "executor"),
		metrics:   cfg.Metrics,
		tracer:    cfg.Tracer,
		now:       time.Now,
	}
	if cfg.MaxCallsPerMinute > 0 {
		n := cfg.MaxCallsPerMinute
		e.rate = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
	return e
}

// Execute runs one tool call.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) Result {
	if args == nil {
		args = map[string]any{}
	}
	toolName := catalog.Name(name)

	handler, ok := e.handlers[toolName]
	if !ok {
		e.metrics.RecordToolRejection(name, "unknown_tool")
		return e.record(ctx, name, args, Result{Name: name, Output: fmt.Sprintf("Error: Unknown tool '%s'", name)})
	}

	if !e.rateAvailable() {
		e.metrics.RecordToolRejection(name, "rate_limited")
		return e.record(ctx, name, args, Result{Name: name, Output: rateLimitedOutput})
	}

	if missing := missingParams(handler.Required(), args); len(missing) > 0 {
		e.metrics.RecordToolRejection(name, "missing_parameters")
		e.logger.WarnContext(ctx, "tool call missing required parameters",
			"tool", name,
			"missing", missing,
			"args", args,
		)
		output := fmt.Sprintf("Error: Missing required parameter(s) for %s: %s", name, strings.Join(missing, ", "))
		return e.record(ctx, name, args, Result{
			Name:   name,
			Output: output + missingParamsHint,
			Metadata: map[string]any{
				"missing_parameters": missing,
				"provided_args":      sanitizeArgs(args),
			},
		})
	}

	e.consumeRate()

	if err := e.schemas.Validate(toolName, args); err != nil {
		e.logger.WarnContext(ctx, "tool arguments do not match schema", "tool", name, "error", err)
	}

	ctx, span := e.tracer.TraceToolExecution(ctx, name)
	defer span.End()

	start := time.Now()
	res := e.run(ctx, handler, args)
	elapsed := time.Since(start)

	status := statusOf(res)
	span.SetAttributes(attribute.String("tool.status", status))
	e.metrics.RecordToolExecution(name, status, elapsed.Seconds())
	e.logger.DebugContext(ctx, "tool executed", "tool", name, "status", status, "duration", elapsed)
	return e.record(ctx, name, args, res)
}

// run invokes the handler and converts a panic into an error result.
func (e *Executor) run(ctx context.Context, handler tools.Handler, args map[string]any) (res Result) {
	name := string(handler.Name())
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "tool panicked", "tool", name, "panic", r)
			res = Result{Name: name, Output: fmt.Sprintf("Error executing %s: %v", name, r)}
		}
	}()
	res = handler.Run(ctx, tools.Args(args))
	if res.Name == "" {
		res.Name = name
	}
	return res
}

// Undo restores the previous content recorded in a write, edit or delete
// result's metadata.
func (e *Executor) Undo(ctx context.Context, metadata map[string]any) Result {
	return e.workspace.Undo(ctx, metadata)
}

// History returns a copy of the invocation log, oldest first.
func (e *Executor) History() []HistoryEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}

// RemainingBudget reports the unspent output budget.
func (e *Executor) RemainingBudget() (int, bool) {
	return e.limiter.Remaining()
}

func (e *Executor) rateAvailable() bool {
	if e.rate == nil {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate.TokensAt(e.now()) >= 1
}

func (e *Executor) consumeRate() {
	if e.rate == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate.AllowN(e.now(), 1)
}

// record appends a history entry. Logs go through ctx so a run id stored
// with observability.AddRunID reaches the handler.
func (e *Executor) record(ctx context.Context, name string, args map[string]any, res Result) Result {
	entry := HistoryEntry{
		Tool:          name,
		Args:          sanitizeArgs(args),
		Timestamp:     e.now().UTC(),
		Status:        statusOf(res),
		OutputPreview: firstRunes(res.Output, previewLength),
	}

	e.mu.Lock()
	e.history = append(e.history, entry)
	if over := len(e.history) - MaxHistory; over > 0 {
		e.history = append(e.history[:0:0], e.history[over:]...)
	}
	e.mu.Unlock()

	if res.IsError() {
		e.logger.ErrorContext(ctx, "tool failed", "tool", name, "args", entry.Args, "output", res.Output)
	}
	return res
}

func statusOf(res Result) string {
	if res.IsError() {
		return "error"
	}
	return "ok"
}

// missingParams lists required names absent from args or null, in order.
func missingParams(required []string, args map[string]any) []string {
	var missing []string
	for _, name := range required {
		if v, ok := args[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

func sanitizeArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && len([]rune(s)) > previewLength {
			out[k] = firstRunes(s, previewLength) + "..."
			continue
		}
		out[k] = v
	}
	return out
}

func firstRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
