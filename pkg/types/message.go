// Package types provides the shared conversation and wire types used by the
// gateway client, the orchestrator, and the HTTP layer.
package types

import "encoding/json"

// MessageRole defines the role of a message in a conversation.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem is an instruction message.
	RoleUser      MessageRole = "user"      // RoleUser is input from the user.
	RoleAssistant MessageRole = "assistant" // RoleAssistant is model output.
	RoleFunction  MessageRole = "function"  // RoleFunction carries a tool result back to the model.
)

// Message is a single conversation entry in the chat-completions wire format.
//
// Assistant messages may carry ToolCalls (current format) or FunctionCall
// (legacy single-call format); both must survive a round trip back to the
// provider unchanged. Function-role messages carry the serialized ActionResult
// of an executed tool call, with Name set to the tool name.
type Message struct {
	Role         MessageRole   `json:"role"`
	Content      string        `json:"content"`
	Name         string        `json:"name,omitempty"`
	ToolCalls    []ToolCall    `json:"tool_calls,omitempty"`
	FunctionCall *FunctionCall `json:"function_call,omitempty"`
}

// ToolCall is a model-proposed tool invocation.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and its serialized JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ParseArguments decodes the serialized argument payload into a map.
// Invalid or empty JSON yields an empty map, never an error: malformed
// arguments from the model are tolerated, not fatal.
func (f *FunctionCall) ParseArguments() map[string]any {
	args := make(map[string]any)
	if f == nil || f.Arguments == "" {
		return args
	}
	if err := json.Unmarshal([]byte(f.Arguments), &args); err != nil {
		return make(map[string]any)
	}
	return args
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// NewFunctionMessage creates a function-role message carrying a tool result.
func NewFunctionMessage(name, content string) *Message {
	return &Message{Role: RoleFunction, Name: name, Content: content}
}

// TokenUsage contains token accounting from a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
