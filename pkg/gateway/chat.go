package gateway

import (
	"context"
	"net/http"

	"github.com/openai/openai-go"

	"github.com/entrhq/surf/pkg/types"
)

const (
	// DefaultTemperature is applied when the request does not set one.
	DefaultTemperature = 0.7

	// DefaultMaxTokens bounds completion length when the request does not
	// set one.
	DefaultMaxTokens = 2048
)

// ToolDefinition is a provider-neutral tool schema. The client translates it
// into the aggregator's function-tool wire format.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest describes one chat-completions call.
type ChatRequest struct {
	// Model overrides the client's default model when non-empty.
	Model string

	Messages []*types.Message
	Tools    []ToolDefinition

	// ToolChoice is "auto" by default when tools are present.
	ToolChoice string

	// Temperature overrides the default sampling temperature when set.
	// A nil pointer means the default; an explicit zero is sent as zero.
	Temperature *float64
	MaxTokens   int
}

// ChatChoice is a single completion candidate.
type ChatChoice struct {
	Message      types.Message `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

// ChatResponse is the parsed non-streaming completion response.
type ChatResponse struct {
	ID      string            `json:"id"`
	Model   string            `json:"model"`
	Choices []ChatChoice      `json:"choices"`
	Usage   *types.TokenUsage `json:"usage,omitempty"`
}

// Message returns the first choice's message, or nil if the provider returned
// no choices.
func (r *ChatResponse) Message() *types.Message {
	if len(r.Choices) == 0 {
		return nil
	}
	return &r.Choices[0].Message
}

// wireChatRequest is the serialized request body.
type wireChatRequest struct {
	Model       string                           `json:"model"`
	Messages    []*types.Message                 `json:"messages"`
	Tools       []openai.ChatCompletionToolParam `json:"tools,omitempty"`
	ToolChoice  string                           `json:"tool_choice,omitempty"`
	Temperature float64                          `json:"temperature"`
	MaxTokens   int                              `json:"max_tokens"`
	Stream      bool                             `json:"stream,omitempty"`
}

// buildWireRequest applies defaults and translates tool definitions into the
// provider's function-tool format.
func (c *Client) buildWireRequest(req *ChatRequest, stream bool) *wireChatRequest {
	wire := &wireChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: DefaultTemperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if req.Temperature != nil {
		wire.Temperature = *req.Temperature
	}
	if wire.Model == "" {
		wire.Model = c.model
	}
	if wire.MaxTokens == 0 {
		wire.MaxTokens = DefaultMaxTokens
	}

	if len(req.Tools) > 0 {
		wire.Tools = make([]openai.ChatCompletionToolParam, 0, len(req.Tools))
		for _, tool := range req.Tools {
			wire.Tools = append(wire.Tools, openai.ChatCompletionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        tool.Name,
					Description: openai.String(tool.Description),
					Parameters:  openai.FunctionParameters(tool.Parameters),
				},
			})
		}
		wire.ToolChoice = req.ToolChoice
		if wire.ToolChoice == "" {
			wire.ToolChoice = "auto"
		}
	}

	return wire
}

// Chat sends one non-streaming chat-completions request. The response includes
// any tool calls the model proposed and usage accounting when the provider
// reports it. Non-2xx responses surface as *APIError.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", c.buildWireRequest(req, false))
	if err != nil {
		return nil, err
	}

	var resp ChatResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
