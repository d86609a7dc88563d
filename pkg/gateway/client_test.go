package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surf/pkg/types"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient("test-key", WithBaseURL(server.URL), WithModel("test/model"))
	require.NoError(t, err)
	return client, server
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Setenv("SURF_API_KEY", "")
	_, err := NewClient("")
	assert.Error(t, err)
}

func TestChatSendsWireFormat(t *testing.T) {
	var captured map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		fmt.Fprint(w, `{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12}}`)
	}))

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []*types.Message{types.NewUserMessage("hello")},
		Tools: []ToolDefinition{{
			Name:        "click_element",
			Description: "Click an element",
			Parameters:  map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, "test/model", captured["model"])
	assert.Equal(t, "auto", captured["tool_choice"])
	assert.Equal(t, DefaultTemperature, captured["temperature"])

	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	tool := tools[0].(map[string]any)
	assert.Equal(t, "function", tool["type"])
	fn := tool["function"].(map[string]any)
	assert.Equal(t, "click_element", fn["name"])

	require.NotNil(t, resp.Message())
	assert.Equal(t, "hi", resp.Message().Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestChatSendsExplicitZeroTemperature(t *testing.T) {
	var captured map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`)
	}))

	zero := 0.0
	_, err := client.Chat(context.Background(), &ChatRequest{
		Messages:    []*types.Message{types.NewUserMessage("hello")},
		Temperature: &zero,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.0, captured["temperature"])
}

func TestChatParsesToolCalls(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[{"id":"call_1","type":"function","function":{"name":"open_url","arguments":"{\"url\":\"https://example.com\"}"}}]},"finish_reason":"tool_calls"}]}`)
	}))

	resp, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []*types.Message{types.NewUserMessage("open example.com")},
	})
	require.NoError(t, err)

	msg := resp.Message()
	require.NotNil(t, msg)
	require.Len(t, msg.ToolCalls, 1)
	assert.Equal(t, "open_url", msg.ToolCalls[0].Function.Name)
	args := msg.ToolCalls[0].Function.ParseArguments()
	assert.Equal(t, "https://example.com", args["url"])
}

func TestChatNonSuccessStatusIsTypedError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"insufficient credits"}}`)
	}))

	_, err := client.Chat(context.Background(), &ChatRequest{
		Messages: []*types.Message{types.NewUserMessage("hi")},
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.Status)
	assert.Contains(t, apiErr.Body, "insufficient credits")
}

func TestChatStreamDecodesFrames(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])
		assert.NotContains(t, body, "tools")

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\",\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":2,\"total_tokens\":7}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))

	var content string
	var usage *types.TokenUsage
	err := client.ChatStream(context.Background(), &ChatRequest{
		Messages: []*types.Message{types.NewUserMessage("hi")},
		Tools:    []ToolDefinition{{Name: "ignored"}},
	}, func(delta string) {
		content += delta
	}, func(u types.TokenUsage) {
		usage = &u
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello", content)
	require.NotNil(t, usage)
	assert.Equal(t, 7, usage.TotalTokens)
}

func TestChatStreamErrorStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, "bad key")
	}))

	err := client.ChatStream(context.Background(), &ChatRequest{
		Messages: []*types.Message{types.NewUserMessage("hi")},
	}, nil, nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestListModelsCaches(t *testing.T) {
	var calls int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/models", r.URL.Path)
		fmt.Fprint(w, `{"data":[{"id":"openai/gpt-4o","name":"GPT-4o","context_length":128000}]}`)
	}))

	for i := 0; i < 3; i++ {
		models, err := client.ListModels(context.Background())
		require.NoError(t, err)
		require.Len(t, models, 1)
		assert.Equal(t, "openai/gpt-4o", models[0].ID)
	}
	assert.Equal(t, 1, calls)
}

func TestCreditsNormalizes(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/credits", r.URL.Path)
		fmt.Fprint(w, `{"data":{"total_credits":10.5,"total_usage":2.25}}`)
	}))

	credits, err := client.Credits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10.5, credits.TotalCredits)
	assert.Equal(t, 2.25, credits.TotalUsage)
	assert.InDelta(t, 8.25, credits.Remaining, 1e-9)
}
