// Package tools defines the shared handler contract for workspace tools.
package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/tools/catalog"
)

// Result is the outcome of a tool invocation. Failures are carried in Output
// as "Error: ..." text rather than as Go errors.
type Result struct {
	Name     string         `json:"name"`
	Output   string         `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsError reports whether the output describes a failure.
func (r Result) IsError() bool {
	return strings.HasPrefix(r.Output, "Error")
}

// Errorf builds an error result for the named tool.
func Errorf(name catalog.Name, format string, args ...any) Result {
	return Result{Name: string(name), Output: "Error: " + fmt.Sprintf(format, args...)}
}

// Handler implements one tool behind the executor's dispatch table.
type Handler interface {
	Name() catalog.Name
	// Required lists parameter names that must be present and non-null,
	// in declaration order.
	Required() []string
	Run(ctx context.Context, args Args) Result
}

// RequiredFor returns the catalog's required parameter names for a tool.
func RequiredFor(name catalog.Name) []string {
	def, ok := catalog.Lookup(name)
	if !ok {
		return nil
	}
	out := make([]string, len(def.Required))
	copy(out, def.Required)
	return out
}

// Args are decoded model-supplied arguments.
type Args map[string]any

// Present reports whether key exists with a non-null value.
func (a Args) Present(key string) bool {
	v, ok := a[key]
	return ok && v != nil
}

// String returns the value for key as a string, or def when absent or null.
func (a Args) String(key, def string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return def
	}
	switch typed := v.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return fmt.Sprint(typed)
	}
}

// Bool returns the value for key as a bool, or def when absent or unparseable.
func (a Args) Bool(key string, def bool) bool {
	v, ok := a[key]
	if !ok || v == nil {
		return def
	}
	switch typed := v.(type) {
	case bool:
		return typed
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return def
		}
		return b
	case float64:
		return typed != 0
	case int:
		return typed != 0
	default:
		return def
	}
}

const (
	// MaxOutputLength caps any single tool output, in characters.
	MaxOutputLength = 4000
	// TruncatedMarker is appended when output is cut.
	TruncatedMarker = "\n\n[truncated]"
	// BudgetExhaustedOutput replaces output once the budget is spent.
	BudgetExhaustedOutput = "[output suppressed: token budget exhausted]"
)

// Limiter truncates outputs and tracks an optional running budget of
// characters shared by every tool of one executor.
type Limiter struct {
	mu        sync.Mutex
	max       int
	budgeted  bool
	remaining int
}

// NewLimiter creates a limiter. A budget of zero or less disables budgeting.
func NewLimiter(budget int) *Limiter {
	l := &Limiter{max: MaxOutputLength}
	if budget > 0 {
		l.budgeted = true
		l.remaining = budget
	}
	return l
}

// Limit truncates text to the current allowance and consumes budget.
func (l *Limiter) Limit(text string) string {
	if l == nil {
		return text
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := l.max
	if l.budgeted {
		allowed = min(allowed, max(l.remaining, 0))
	}
	if allowed <= 0 {
		return BudgetExhaustedOutput
	}

	runes := []rune(text)
	if len(runes) > allowed {
		text = string(runes[:allowed]) + TruncatedMarker
	}
	if l.budgeted {
		l.remaining = max(l.remaining-len([]rune(text)), 0)
	}
	return text
}

// Remaining returns the unspent budget and whether budgeting is enabled.
func (l *Limiter) Remaining() (int, bool) {
	if l == nil {
		return 0, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining, l.budgeted
}
