package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entrhq/surf/pkg/automation"
)

func TestStatusLine(t *testing.T) {
	ok := automation.Result{Success: true}
	failed := func(msg string) automation.Result { return automation.Result{Success: false, Error: msg} }

	tests := []struct {
		name   string
		action string
		args   map[string]any
		result automation.Result
		want   string
	}{
		{
			name:   "open url success",
			action: "open_url",
			args:   map[string]any{"url": "https://example.com/pricing?ref=x"},
			result: ok,
			want:   "Opened example.com/pricing",
		},
		{
			name:   "click failure",
			action: "click_element",
			args:   map[string]any{"selector": "#buy"},
			result: failed("Element not found"),
			want:   "Click failed for #buy: Element not found",
		},
		{
			name:   "type success",
			action: "type_text",
			args:   map[string]any{"selector": "input#q"},
			result: ok,
			want:   "Typed into input#q",
		},
		{
			name:   "wait failure",
			action: "wait_for_element",
			args:   map[string]any{"selector": ".spinner"},
			result: failed("Timeout waiting for element"),
			want:   "Wait failed for .spinner: Timeout waiting for element",
		},
		{
			name:   "ebay success",
			action: "ebay_search",
			args:   map[string]any{"query": "vintage camera"},
			result: ok,
			want:   `Searched eBay for "vintage camera"`,
		},
		{
			name:   "fetch prices failure",
			action: "fetch_prices",
			args:   map[string]any{"query": "widget"},
			result: failed("Rate limit exceeded"),
			want:   `Price fetch failed for "widget": Rate limit exceeded`,
		},
		{
			name:   "upc success",
			action: "upc_lookup",
			args:   map[string]any{"query": "012345678905"},
			result: ok,
			want:   `Looked up "012345678905" in the UPC database`,
		},
		{
			name:   "unknown action fallback",
			action: "mystery_action",
			args:   nil,
			result: failed("Unknown action: mystery_action"),
			want:   "mystery_action failed: Unknown action: mystery_action",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusLine(tt.action, tt.args, tt.result))
		})
	}
}
