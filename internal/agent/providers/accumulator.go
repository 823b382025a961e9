package providers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cowboydaniel/Ghostline-Studio-sub000/internal/agent"
)

var errNotObject = errors.New("arguments are not a JSON object")

// DecodeResult is the outcome of decoding an accumulated argument buffer.
// Exactly one of Value (OK) or Raw (!OK) is meaningful.
type DecodeResult struct {
	OK    bool
	Value map[string]any
	Raw   string
	Err   error
}

// DecodeArguments decodes a tool-call argument buffer. An empty buffer
// decodes to an empty object. Anything that is not a JSON object fails.
func DecodeArguments(buf string) DecodeResult {
	if strings.TrimSpace(buf) == "" {
		return DecodeResult{OK: true, Value: map[string]any{}}
	}
	var value any
	if err := json.Unmarshal([]byte(buf), &value); err != nil {
		return DecodeResult{Raw: buf, Err: err}
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return DecodeResult{Raw: buf, Err: errNotObject}
	}
	return DecodeResult{OK: true, Value: obj}
}

// Arguments returns the decoded object, or {"raw": buffer} on failure.
func (r DecodeResult) Arguments() map[string]any {
	if r.OK {
		if r.Value == nil {
			return map[string]any{}
		}
		return r.Value
	}
	return map[string]any{"raw": r.Raw}
}

type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// callAccumulator reassembles streamed tool-call fragments. Calls are kept
// in first-seen order. A fragment without an id is keyed by its index, and
// an index seen together with an id aliases later id-less fragments for the
// same index onto that call.
type callAccumulator struct {
	provider string
	logger   *slog.Logger

	order   []string
	calls   map[string]*pendingCall
	aliases map[int]string
}

func newCallAccumulator(provider string, logger *slog.Logger) *callAccumulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &callAccumulator{
		provider: provider,
		logger:   logger,
		calls:    map[string]*pendingCall{},
		aliases:  map[int]string{},
	}
}

// key resolves the accumulator key for a fragment. A fragment with neither
// id nor index starts a new call under a synthetic id.
func (a *callAccumulator) key(id string, index *int) string {
	id = strings.TrimSpace(id)
	switch {
	case id != "":
		if index != nil {
			if _, ok := a.aliases[*index]; !ok {
				a.aliases[*index] = id
			}
		}
		return id
	case index != nil:
		if aliased, ok := a.aliases[*index]; ok {
			return aliased
		}
		key := strconv.Itoa(*index)
		a.aliases[*index] = key
		return key
	default:
		return "call_" + uuid.NewString()
	}
}

// add records one fragment. A non-empty name replaces the stored one.
func (a *callAccumulator) add(id string, index *int, name, fragment string) {
	key := a.key(id, index)
	call, ok := a.calls[key]
	if !ok {
		call = &pendingCall{id: key}
		a.calls[key] = call
		a.order = append(a.order, key)
	}
	if name = strings.TrimSpace(name); name != "" {
		call.name = name
	}
	call.args.WriteString(fragment)
}

func (a *callAccumulator) pending() int {
	return len(a.order)
}

// flush decodes every call in first-seen order. Nameless calls are
// dropped with a warning.
func (a *callAccumulator) flush() []agent.ToolCall {
	out := make([]agent.ToolCall, 0, len(a.order))
	for _, key := range a.order {
		call := a.calls[key]
		buf := call.args.String()
		if call.name == "" {
			a.logger.Warn("dropping tool call without a name",
				"provider", a.provider,
				"call_id", call.id,
				"arguments", buf,
			)
			continue
		}
		res := DecodeArguments(buf)
		if !res.OK {
			a.logger.Warn("tool call arguments are not a JSON object",
				"provider", a.provider,
				"tool", call.name,
				"call_id", call.id,
				"error", res.Err,
			)
		} else if len(res.Value) == 0 {
			a.logger.Debug("tool call decoded to empty arguments",
				"provider", a.provider,
				"tool", call.name,
				"call_id", call.id,
				"buffer", buf,
			)
		}
		out = append(out, agent.ToolCall{CallID: call.id, Name: call.name, Arguments: res.Arguments()})
	}
	a.order = nil
	a.calls = map[string]*pendingCall{}
	a.aliases = map[int]string{}
	return out
}
