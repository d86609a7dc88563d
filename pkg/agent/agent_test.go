package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surf/pkg/automation"
	"github.com/entrhq/surf/pkg/gateway"
	"github.com/entrhq/surf/pkg/tabcontext"
	"github.com/entrhq/surf/pkg/types"
)

// scriptedGateway replays a fixed sequence of responses and records every
// request it saw.
type scriptedGateway struct {
	responses []*gateway.ChatResponse
	requests  []*gateway.ChatRequest
	chatErr   error

	streamChunks []string
	streamUsage  *types.TokenUsage
	streamErr    error
}

func (g *scriptedGateway) Chat(_ context.Context, req *gateway.ChatRequest) (*gateway.ChatResponse, error) {
	g.requests = append(g.requests, req)
	if g.chatErr != nil {
		return nil, g.chatErr
	}
	if len(g.responses) == 0 {
		return nil, errors.New("scripted gateway exhausted")
	}
	resp := g.responses[0]
	g.responses = g.responses[1:]
	return resp, nil
}

func (g *scriptedGateway) ChatStream(_ context.Context, req *gateway.ChatRequest, onDelta func(string), onUsage func(types.TokenUsage)) error {
	g.requests = append(g.requests, req)
	if g.streamErr != nil {
		return g.streamErr
	}
	for _, chunk := range g.streamChunks {
		onDelta(chunk)
	}
	if g.streamUsage != nil && onUsage != nil {
		onUsage(*g.streamUsage)
	}
	return nil
}

// recordingExecutor records dispatched calls and succeeds every one.
type recordingExecutor struct {
	calls []executedCall
}

type executedCall struct {
	name string
	args map[string]any
}

func (e *recordingExecutor) Execute(_ context.Context, name string, args map[string]any) automation.Result {
	e.calls = append(e.calls, executedCall{name: name, args: args})
	return automation.Result{Success: true, Action: name, Params: args, Data: true}
}

func assistantAnswer(content string) *gateway.ChatResponse {
	return &gateway.ChatResponse{Choices: []gateway.ChatChoice{{
		Message: types.Message{Role: types.RoleAssistant, Content: content},
	}}}
}

func assistantToolCall(name, arguments string) *gateway.ChatResponse {
	return &gateway.ChatResponse{Choices: []gateway.ChatChoice{{
		Message: types.Message{
			Role: types.RoleAssistant,
			ToolCalls: []types.ToolCall{{
				ID:       "call-1",
				Type:     "function",
				Function: types.FunctionCall{Name: name, Arguments: arguments},
			}},
		},
	}}}
}

func functionMessages(history []*types.Message) []*types.Message {
	out := []*types.Message{}
	for _, msg := range history {
		if msg.Role == types.RoleFunction {
			out = append(out, msg)
		}
	}
	return out
}

func TestRunTurnSingleToolCallThenAnswer(t *testing.T) {
	gw := &scriptedGateway{responses: []*gateway.ChatResponse{
		assistantToolCall("click_element", `{"selector":"#buy"}`),
		assistantAnswer("Done, I clicked the buy button."),
	}}
	exec := &recordingExecutor{}
	a := New(gw, exec, nil)

	turn, err := a.RunTurn(context.Background(), "click the buy button")
	require.NoError(t, err)

	assert.Equal(t, "Done, I clicked the buy button.", turn.Answer)
	assert.Equal(t, 2, turn.RoundTrips)

	// Exactly one automation action ran, and exactly one function-role
	// message carries its raw result JSON.
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "click_element", exec.calls[0].name)
	assert.Equal(t, "#buy", exec.calls[0].args["selector"])

	fnMsgs := functionMessages(a.History())
	require.Len(t, fnMsgs, 1)
	assert.Equal(t, "click_element", fnMsgs[0].Name)
	assert.Contains(t, fnMsgs[0].Content, `"success":true`)
	assert.Contains(t, fnMsgs[0].Content, `"action":"click_element"`)

	require.Len(t, turn.Statuses, 1)
	assert.Equal(t, "Clicked #buy", turn.Statuses[0])
}

func TestRunTurnCapsAtThreeRoundTrips(t *testing.T) {
	gw := &scriptedGateway{responses: []*gateway.ChatResponse{
		assistantToolCall("get_page_content", `{}`),
		assistantToolCall("get_page_content", `{}`),
		assistantToolCall("get_page_content", `{}`),
		assistantToolCall("get_page_content", `{}`),
	}}
	exec := &recordingExecutor{}
	a := New(gw, exec, nil)

	turn, err := a.RunTurn(context.Background(), "keep reading")
	require.NoError(t, err)

	// Never a fourth round trip, even though the model kept proposing
	// tool calls.
	assert.Equal(t, 3, turn.RoundTrips)
	assert.Len(t, gw.requests, 3)
	assert.Len(t, exec.calls, 3)
	assert.Equal(t, "", turn.Answer)
}

func TestRunTurnLegacyFunctionCall(t *testing.T) {
	gw := &scriptedGateway{responses: []*gateway.ChatResponse{
		{Choices: []gateway.ChatChoice{{
			Message: types.Message{
				Role:         types.RoleAssistant,
				FunctionCall: &types.FunctionCall{Name: "open_url", Arguments: `{"url":"https://example.com/docs"}`},
			},
		}}},
		assistantAnswer("Opened it."),
	}}
	exec := &recordingExecutor{}
	a := New(gw, exec, nil)

	turn, err := a.RunTurn(context.Background(), "open the docs")
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "open_url", exec.calls[0].name)
	assert.Equal(t, "Opened it.", turn.Answer)
	assert.Equal(t, "Opened example.com/docs", turn.Statuses[0])
}

func TestRunTurnMalformedArgumentsBecomeEmpty(t *testing.T) {
	gw := &scriptedGateway{responses: []*gateway.ChatResponse{
		assistantToolCall("get_page_content", `{not json`),
		assistantAnswer("ok"),
	}}
	exec := &recordingExecutor{}
	a := New(gw, exec, nil)

	_, err := a.RunTurn(context.Background(), "read the page")
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)
	assert.Empty(t, exec.calls[0].args)
}

func TestRunTurnResolvesOmittedTabIDToActiveTab(t *testing.T) {
	tabs := tabcontext.NewStore(nil)
	tabs.Update(7, automation.PageContent{Title: "Docs", URL: "https://example.com"})
	tabs.SetActive(7)

	gw := &scriptedGateway{responses: []*gateway.ChatResponse{
		assistantToolCall("click_element", `{"selector":"#save"}`),
		assistantAnswer("saved"),
	}}
	exec := &recordingExecutor{}
	a := New(gw, exec, tabs)

	_, err := a.RunTurn(context.Background(), "save it")
	require.NoError(t, err)
	require.Len(t, exec.calls, 1)
	assert.Equal(t, 7, exec.calls[0].args["tabId"])
}

func TestRunTurnSendsToolCatalog(t *testing.T) {
	gw := &scriptedGateway{responses: []*gateway.ChatResponse{assistantAnswer("hi")}}
	a := New(gw, &recordingExecutor{}, nil)

	_, err := a.RunTurn(context.Background(), "hello")
	require.NoError(t, err)

	require.Len(t, gw.requests, 1)
	req := gw.requests[0]
	assert.Len(t, req.Tools, len(automation.Kinds()))
	assert.Equal(t, types.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, types.RoleUser, req.Messages[1].Role)
}

func TestRunTurnTransportErrorPropagates(t *testing.T) {
	gw := &scriptedGateway{chatErr: &gateway.APIError{Status: 502, Body: "bad gateway"}}
	a := New(gw, &recordingExecutor{}, nil)

	_, err := a.RunTurn(context.Background(), "hello")
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 502, apiErr.Status)
}

func TestRunTurnEmitsEvents(t *testing.T) {
	gw := &scriptedGateway{responses: []*gateway.ChatResponse{
		assistantToolCall("click_element", `{"selector":"#a"}`),
		assistantAnswer("done"),
	}}
	var events []Event
	a := New(gw, &recordingExecutor{}, nil, WithEventHandler(func(ev Event) { events = append(events, ev) }))

	_, err := a.RunTurn(context.Background(), "go")
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, EventAction, events[0].Kind)
	assert.Equal(t, "Clicked #a", events[0].Status)
	require.NotNil(t, events[0].Result)
	assert.True(t, events[0].Result.Success)
	assert.Equal(t, EventAnswer, events[1].Kind)
	assert.Equal(t, "done", events[1].Text)
}

func TestStreamTurnBypassesTools(t *testing.T) {
	gw := &scriptedGateway{
		streamChunks: []string{"Hel", "lo ", "there"},
		streamUsage:  &types.TokenUsage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	}
	exec := &recordingExecutor{}
	a := New(gw, exec, nil)

	var got string
	turn, err := a.StreamTurn(context.Background(), "hi", func(chunk string) { got += chunk })
	require.NoError(t, err)

	assert.Equal(t, "Hello there", turn.Answer)
	assert.Equal(t, "Hello there", got)
	assert.Empty(t, exec.calls)
	assert.Equal(t, 15, turn.Usage.TotalTokens)

	// No tools on the streaming request.
	require.Len(t, gw.requests, 1)
	assert.Empty(t, gw.requests[0].Tools)

	// The streamed answer lands in history for the next turn.
	history := a.History()
	require.Len(t, history, 2)
	assert.Equal(t, types.RoleAssistant, history[1].Role)
	assert.Equal(t, "Hello there", history[1].Content)
}

func TestStreamTurnEstimatesUsageWithoutFrame(t *testing.T) {
	gw := &scriptedGateway{streamChunks: []string{"short answer"}}
	a := New(gw, &recordingExecutor{}, nil)

	turn, err := a.StreamTurn(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Greater(t, turn.Usage.PromptTokens, 0)
	assert.Greater(t, turn.Usage.CompletionTokens, 0)
	assert.Equal(t, turn.Usage.PromptTokens+turn.Usage.CompletionTokens, turn.Usage.TotalTokens)
}

func TestStreamTurnTransportErrorPropagates(t *testing.T) {
	gw := &scriptedGateway{streamErr: errors.New("connection reset")}
	a := New(gw, &recordingExecutor{}, nil)

	_, err := a.StreamTurn(context.Background(), "hi", nil)
	assert.Error(t, err)
}

func TestSystemPromptIncludesTabSummaries(t *testing.T) {
	tabs := tabcontext.NewStore(nil)
	tabs.Update(1, automation.PageContent{Title: "News", URL: "https://example.com/news", Text: "Top stories today."})
	tabs.SetActive(1)

	a := New(&scriptedGateway{}, &recordingExecutor{}, tabs)
	prompt := a.systemPrompt()
	assert.Contains(t, prompt, "tab 1 (active): News (https://example.com/news)")
	assert.Contains(t, prompt, "Top stories today.")
}

func TestReset(t *testing.T) {
	gw := &scriptedGateway{responses: []*gateway.ChatResponse{assistantAnswer("hi")}}
	a := New(gw, &recordingExecutor{}, nil)

	_, err := a.RunTurn(context.Background(), "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, a.History())

	a.Reset()
	assert.Empty(t, a.History())
}
