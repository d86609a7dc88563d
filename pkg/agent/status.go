package agent

import (
	"fmt"
	"net/url"

	"github.com/entrhq/surf/pkg/automation"
)

// statusLine synthesizes the one-line user-facing status for an executed
// action. These strings appear in the sidepanel's action log verbatim.
func statusLine(action string, args map[string]any, result automation.Result) string {
	switch action {
	case "open_url":
		target := stringFrom(args, "url")
		if result.Success {
			return "Opened " + hostPath(target)
		}
		return fmt.Sprintf("Open failed for %s: %s", hostPath(target), result.Error)

	case "click_element":
		selector := stringFrom(args, "selector")
		if result.Success {
			return "Clicked " + selector
		}
		return fmt.Sprintf("Click failed for %s: %s", selector, result.Error)

	case "type_text":
		selector := stringFrom(args, "selector")
		if result.Success {
			return "Typed into " + selector
		}
		return fmt.Sprintf("Typing failed for %s: %s", selector, result.Error)

	case "get_page_content":
		if result.Success {
			return "Read page content"
		}
		return "Reading page failed: " + result.Error

	case "wait_for_element":
		selector := stringFrom(args, "selector")
		if result.Success {
			return "Found " + selector
		}
		return fmt.Sprintf("Wait failed for %s: %s", selector, result.Error)

	case "wait_for_any_selector":
		if result.Success {
			return "Found a matching element"
		}
		return "Wait failed: " + result.Error

	case "ebay_search":
		query := stringFrom(args, "query")
		if result.Success {
			return fmt.Sprintf("Searched eBay for %q", query)
		}
		return fmt.Sprintf("eBay search failed for %q: %s", query, result.Error)

	case "fetch_prices":
		query := stringFrom(args, "query")
		if result.Success {
			return fmt.Sprintf("Fetched prices for %q", query)
		}
		return fmt.Sprintf("Price fetch failed for %q: %s", query, result.Error)

	case "upc_lookup":
		query := stringFrom(args, "query")
		if result.Success {
			return fmt.Sprintf("Looked up %q in the UPC database", query)
		}
		return fmt.Sprintf("UPC lookup failed for %q: %s", query, result.Error)
	}

	if result.Success {
		return action + " succeeded"
	}
	return fmt.Sprintf("%s failed: %s", action, result.Error)
}

// hostPath renders a URL as "<host><path>" for status lines.
func hostPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host + u.Path
}

func stringFrom(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
