package agent

// EventType tags the concrete kind of an Event.
type EventType string

const (
	EventTextDelta  EventType = "text_delta"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
)

// Stop reasons produced by the orchestrator itself. Vendor reasons such as
// "end_turn" or "tool_calls" are passed through unchanged.
const (
	StopReasonStop      = "stop"
	StopReasonMaxRounds = "max_rounds"
	StopReasonToolCalls = "tool_calls"
)

// Event is one item of a provider or orchestrator stream. The set of
// implementations is closed: TextDelta, ToolCall, ToolResult and Done.
// Events are values and are never mutated after construction.
type Event interface {
	Type() EventType
	isEvent()
}

// TextDelta is an incremental piece of assistant text.
type TextDelta struct {
	Text string `json:"text"`
}

// ToolCall is a fully reassembled tool invocation requested by the model.
type ToolCall struct {
	CallID    string         `json:"call_id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the executor's answer to a ToolCall.
type ToolResult struct {
	CallID   string         `json:"call_id"`
	Name     string         `json:"name"`
	Output   string         `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Done ends a provider stream or an orchestration. An empty StopReason
// means the vendor did not report one.
type Done struct {
	Text       string `json:"text"`
	StopReason string `json:"stop_reason"`
}

func (TextDelta) Type() EventType { return EventTextDelta }
func (ToolCall) Type() EventType { return EventToolCall }
func (ToolResult) Type() EventType { return EventToolResult }
func (Done) Type() EventType { return EventDone }

func (TextDelta) isEvent() {}
func (ToolCall) isEvent() {}
func (ToolResult) isEvent() {}
func (Done) isEvent() {}
