package agent

import (
	"encoding/json"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one vendor-neutral conversation entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []ToolCallDescriptor `json:"tool_calls,omitempty"`

	// ToolCallID and Name are set on tool messages and echo the call.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// ToolCallDescriptor records a tool call inside an assistant message.
type ToolCallDescriptor struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// SystemMessage builds a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ToolMessage builds the conversation entry that answers a tool call.
func ToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}

// AssistantToolCallMessage builds the assistant turn that requested calls.
// Arguments that fail to encode are recorded as an empty object.
func AssistantToolCallMessage(text string, calls []ToolCall) Message {
	descriptors := make([]ToolCallDescriptor, 0, len(calls))
	for _, call := range calls {
		args := call.Arguments
		if args == nil {
			args = map[string]any{}
		}
		raw, err := json.Marshal(args)
		if err != nil {
			raw = json.RawMessage(`{}`)
		}
		descriptors = append(descriptors, ToolCallDescriptor{ID: call.CallID, Name: call.Name, Arguments: raw})
	}
	return Message{Role: RoleAssistant, Content: text, ToolCalls: descriptors}
}

// DecodeArguments decodes a descriptor's arguments into a map. Invalid or
// empty payloads decode to an empty map.
func (d ToolCallDescriptor) DecodeArguments() map[string]any {
	out := map[string]any{}
	if len(d.Arguments) == 0 {
		return out
	}
	if err := json.Unmarshal(d.Arguments, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// CloneMessages copies a conversation so callers can hand it to a provider
// without sharing the backing array.
func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	copy(out, in)
	return out
}
