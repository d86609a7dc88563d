// Package agent implements the tool-calling orchestrator: it drives the
// conversation with the model gateway, dispatches proposed tool calls to the
// automation executor, and folds each result back into the conversation as a
// function-role message.
package agent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/entrhq/surf/pkg/automation"
	"github.com/entrhq/surf/pkg/gateway"
	"github.com/entrhq/surf/pkg/logging"
	"github.com/entrhq/surf/pkg/tabcontext"
	"github.com/entrhq/surf/pkg/types"
)

// maxToolRoundTrips caps the model round trips per user turn, bounding cost
// and preventing runaway tool-call chains.
const maxToolRoundTrips = 3

// Gateway is the slice of the model gateway client the agent depends on.
type Gateway interface {
	Chat(ctx context.Context, req *gateway.ChatRequest) (*gateway.ChatResponse, error)
	ChatStream(ctx context.Context, req *gateway.ChatRequest, onDelta func(string), onUsage func(types.TokenUsage)) error
}

// Executor dispatches one automation action and always returns a Result,
// never an error.
type Executor interface {
	Execute(ctx context.Context, name string, args map[string]any) automation.Result
}

// Event is one orchestrator notification for the UI layer: an executed
// action with its result and synthesized status line, or a final answer.
type Event struct {
	Kind   EventKind          `json:"kind"`
	Status string             `json:"status,omitempty"`
	Result *automation.Result `json:"result,omitempty"`
	Text   string             `json:"text,omitempty"`
}

// EventKind discriminates Event payloads.
type EventKind string

const (
	EventAction EventKind = "action" // a tool call was executed
	EventAnswer EventKind = "answer" // the turn produced its final answer
)

// TurnResult is the outcome of one orchestrated user turn.
type TurnResult struct {
	// Answer is the assistant's final content. When the round-trip cap was
	// reached without a final answer it is the last assistant content,
	// possibly empty.
	Answer string `json:"answer"`

	// Statuses are the per-action one-line status messages, in execution
	// order.
	Statuses []string `json:"statuses,omitempty"`

	// Actions are the raw results of every executed tool call.
	Actions []automation.Result `json:"actions,omitempty"`

	// RoundTrips is the number of gateway calls the turn consumed.
	RoundTrips int `json:"roundTrips"`

	// Usage is accumulated token accounting across the turn's gateway
	// calls, estimated locally when the provider reports none.
	Usage types.TokenUsage `json:"usage"`
}

// Agent orchestrates user turns. One Agent holds one conversation history;
// construct per session.
type Agent struct {
	gateway  Gateway
	executor Executor
	tabs     *tabcontext.Store
	log      *logging.Logger

	mu      sync.Mutex
	history []*types.Message

	onEvent   func(Event)
	estimator *Estimator
}

// Option configures an Agent.
type Option func(*Agent)

// WithEventHandler registers a callback invoked for every orchestrator
// event. The callback runs on the turn's goroutine and must not block.
func WithEventHandler(fn func(Event)) Option {
	return func(a *Agent) { a.onEvent = fn }
}

// WithLogger sets the agent's logger.
func WithLogger(log *logging.Logger) Option {
	return func(a *Agent) { a.log = log }
}

// New creates an orchestrator over a gateway, an executor, and the tab
// context store. tabs may be nil when no tab tracking is wired.
func New(gw Gateway, executor Executor, tabs *tabcontext.Store, opts ...Option) *Agent {
	a := &Agent{
		gateway:   gw,
		executor:  executor,
		tabs:      tabs,
		estimator: NewEstimator(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// History returns a copy of the conversation history.
func (a *Agent) History() []*types.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*types.Message(nil), a.history...)
}

// Reset clears the conversation history.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = nil
}

func (a *Agent) emitEvent(ev Event) {
	if a.onEvent != nil {
		a.onEvent(ev)
	}
}

func (a *Agent) appendHistory(msgs ...*types.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, msgs...)
}

// RunTurn runs one tool-calling turn. Gateway transport failures are the only
// errors it returns; every automation failure is folded into the conversation
// as a failed ActionResult instead.
func (a *Agent) RunTurn(ctx context.Context, userText string) (*TurnResult, error) {
	a.appendHistory(types.NewUserMessage(userText))

	turn := &TurnResult{}
	lastContent := ""

	for turn.RoundTrips < maxToolRoundTrips {
		resp, err := a.gateway.Chat(ctx, &gateway.ChatRequest{
			Messages: a.requestMessages(),
			Tools:    Catalog(),
		})
		if err != nil {
			return nil, err
		}
		turn.RoundTrips++
		a.accumulateUsage(turn, resp.Usage)

		msg := resp.Message()
		if msg == nil {
			break
		}
		a.appendHistory(msg)
		lastContent = msg.Content

		calls := proposedCalls(msg)
		if len(calls) == 0 {
			turn.Answer = msg.Content
			a.emitEvent(Event{Kind: EventAnswer, Text: turn.Answer})
			return turn, nil
		}

		for _, call := range calls {
			a.runToolCall(ctx, call, turn)
		}
	}

	// Cap reached without a final answer: surface whatever content the
	// model last produced.
	turn.Answer = lastContent
	a.emitEvent(Event{Kind: EventAnswer, Text: turn.Answer})
	return turn, nil
}

// runToolCall executes one proposed call and appends its result to the
// conversation.
func (a *Agent) runToolCall(ctx context.Context, call types.FunctionCall, turn *TurnResult) {
	args := call.ParseArguments()
	if _, ok := args["tabId"]; !ok && a.tabs != nil {
		if active := a.tabs.ActiveID(); active != 0 {
			args["tabId"] = active
		}
	}

	result := a.executor.Execute(ctx, call.Name, args)
	status := statusLine(call.Name, args, result)

	if a.log != nil {
		a.log.Infof("action %s success=%t: %s", call.Name, result.Success, status)
	}

	turn.Actions = append(turn.Actions, result)
	turn.Statuses = append(turn.Statuses, status)
	a.emitEvent(Event{Kind: EventAction, Status: status, Result: &result})

	raw, err := json.Marshal(result)
	if err != nil {
		raw = []byte(`{"success":false,"action":"` + call.Name + `","error":"unserializable result"}`)
	}
	a.appendHistory(types.NewFunctionMessage(call.Name, string(raw)))
}

// StreamTurn streams one turn's answer token by token. Streaming bypasses
// tool calling entirely; no automation runs in this mode. When the provider
// sends no usage frame, usage is estimated locally.
func (a *Agent) StreamTurn(ctx context.Context, userText string, onChunk func(string)) (*TurnResult, error) {
	a.appendHistory(types.NewUserMessage(userText))

	var answer []byte
	turn := &TurnResult{RoundTrips: 1}
	sawUsage := false
	promptMsgs := a.requestMessages()

	err := a.gateway.ChatStream(ctx, &gateway.ChatRequest{Messages: promptMsgs},
		func(delta string) {
			answer = append(answer, delta...)
			if onChunk != nil {
				onChunk(delta)
			}
		},
		func(usage types.TokenUsage) {
			sawUsage = true
			turn.Usage = usage
		},
	)
	if err != nil {
		return nil, err
	}

	turn.Answer = string(answer)
	a.appendHistory(types.NewAssistantMessage(turn.Answer))

	if !sawUsage {
		turn.Usage = a.estimator.EstimateUsage(promptMsgs, turn.Answer)
	}

	a.emitEvent(Event{Kind: EventAnswer, Text: turn.Answer})
	return turn, nil
}

// requestMessages prepends the system prompt to the conversation history.
func (a *Agent) requestMessages() []*types.Message {
	a.mu.Lock()
	history := append([]*types.Message(nil), a.history...)
	a.mu.Unlock()

	msgs := make([]*types.Message, 0, len(history)+1)
	msgs = append(msgs, types.NewSystemMessage(a.systemPrompt()))
	return append(msgs, history...)
}

func (a *Agent) accumulateUsage(turn *TurnResult, usage *types.TokenUsage) {
	if usage == nil {
		return
	}
	turn.Usage.PromptTokens += usage.PromptTokens
	turn.Usage.CompletionTokens += usage.CompletionTokens
	turn.Usage.TotalTokens += usage.TotalTokens
}

// proposedCalls extracts the tool calls from an assistant message, supporting
// both the structured tool-call array and the legacy single-function-call
// field.
func proposedCalls(msg *types.Message) []types.FunctionCall {
	if len(msg.ToolCalls) > 0 {
		calls := make([]types.FunctionCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			calls = append(calls, tc.Function)
		}
		return calls
	}
	if msg.FunctionCall != nil {
		return []types.FunctionCall{*msg.FunctionCall}
	}
	return nil
}
