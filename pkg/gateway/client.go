// Package gateway provides the client for the hosted LLM aggregator's
// chat-completions API, including tool-call support, SSE streaming, the model
// catalog, and credit accounting.
//
// Example usage:
//
//	client, err := gateway.NewClient(
//	    os.Getenv("SURF_API_KEY"),
//	    gateway.WithBaseURL("https://openrouter.ai/api/v1"),
//	    gateway.WithModel("openai/gpt-4o-mini"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//
//	resp, err := client.Chat(ctx, &gateway.ChatRequest{
//	    Messages: []*types.Message{types.NewUserMessage("Hello!")},
//	})
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
)

// DefaultBaseURL is the default aggregator API base URL.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string

	modelsMu    sync.Mutex
	modelsCache []ModelInfo
}

// Option configures a Client.
type Option func(*Client)

// WithModel sets the default model for completions.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithBaseURL sets a custom API base URL for OpenAI-compatible aggregators.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient sets the HTTP client used for all requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// NewClient creates a gateway client with the given API key.
//
// If apiKey is empty it falls back to the SURF_API_KEY environment variable.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("SURF_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gateway API key is required (provide via parameter or SURF_API_KEY environment variable)")
	}

	c := &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		model:      "openai/gpt-4o-mini",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Model returns the default model identifier.
func (c *Client) Model() string { return c.model }

// BaseURL returns the API base URL in use.
func (c *Client) BaseURL() string { return c.baseURL }

// APIError is the typed failure raised for any non-success HTTP status.
// It carries the status code and the raw response body text so callers can
// surface the provider's own error message.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway request failed with status %d: %s", e.Status, e.Body)
}

// newRequest builds an authenticated JSON request against the API.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

// do executes the request and decodes a JSON response into out, converting
// non-2xx statuses into *APIError.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
