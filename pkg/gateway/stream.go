package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/entrhq/surf/pkg/types"
)

// streamFrame is one decoded SSE data frame from the completions stream.
type streamFrame struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *types.TokenUsage `json:"usage"`
}

// ChatStream issues a streaming chat-completions request and decodes the SSE
// frames incrementally. onDelta is invoked with each non-empty content delta;
// onUsage is invoked at most once if a usage frame is observed (it may be nil).
//
// Tool schemas are deliberately not sent: streaming mode bypasses tool calling
// and produces plain assistant content only.
func (c *Client) ChatStream(ctx context.Context, req *ChatRequest, onDelta func(string), onUsage func(types.TokenUsage)) error {
	wire := c.buildWireRequest(req, true)
	wire.Tools = nil
	wire.ToolChoice = ""

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/chat/completions", wire)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: string(body)}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Text()
		if !isSSEDataLine(line) {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return nil
		}

		frame, ok := decodeStreamFrame(data)
		if !ok {
			// Skip malformed frames silently; aggregators occasionally
			// interleave keep-alive or vendor-specific payloads.
			continue
		}

		if frame.Usage != nil && onUsage != nil {
			usage := *frame.Usage
			onUsage(usage)
			onUsage = nil
		}
		if len(frame.Choices) > 0 && frame.Choices[0].Delta.Content != "" && onDelta != nil {
			onDelta(frame.Choices[0].Delta.Content)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("stream read error: %w", err)
	}
	return nil
}

// isSSEDataLine reports whether a line is a data frame rather than a comment
// or blank keep-alive line.
func isSSEDataLine(line string) bool {
	return line != "" && !strings.HasPrefix(line, ":") && strings.HasPrefix(line, "data: ")
}

func decodeStreamFrame(data string) (*streamFrame, bool) {
	var frame streamFrame
	if err := json.Unmarshal([]byte(data), &frame); err != nil {
		return nil, false
	}
	return &frame, true
}
