package automation

import (
	"fmt"
	"time"
)

// Argument coercion at the dispatch boundary. Tool arguments arrive as an
// untyped map decoded from the model's JSON; each action validates and
// coerces them into a typed param struct here. A missing or ill-typed
// required field yields a structured failure Result, never a crash.

// argError marks an argument validation failure.
type argError struct {
	msg string
}

func (e *argError) Error() string { return e.msg }

func missingArg(name string) *argError {
	return &argError{msg: fmt.Sprintf("Invalid arguments: missing required parameter %q", name)}
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func boolArg(args map[string]any, key string, def bool) bool {
	v, ok := args[key]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

// intArg tolerates the float64 that encoding/json produces for all numbers as
// well as genuine ints.
func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}

func stringSliceArg(args map[string]any, key string) []string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// OpenURLParams parametrizes open_url.
type OpenURLParams struct {
	URL    string
	NewTab bool
}

func parseOpenURLParams(args map[string]any) (OpenURLParams, error) {
	u, ok := stringArg(args, "url")
	if !ok {
		return OpenURLParams{}, missingArg("url")
	}
	return OpenURLParams{URL: u, NewTab: boolArg(args, "newTab", false)}, nil
}

// ClickParams parametrizes click_element.
type ClickParams struct {
	Selector string
	TabID    int
}

func parseClickParams(args map[string]any) (ClickParams, error) {
	sel, ok := stringArg(args, "selector")
	if !ok {
		return ClickParams{}, missingArg("selector")
	}
	return ClickParams{Selector: sel, TabID: intArg(args, "tabId", 0)}, nil
}

// TypeTextParams parametrizes type_text.
type TypeTextParams struct {
	Selector string
	Text     string
	TabID    int
}

func parseTypeTextParams(args map[string]any) (TypeTextParams, error) {
	sel, ok := stringArg(args, "selector")
	if !ok {
		return TypeTextParams{}, missingArg("selector")
	}
	text, _ := args["text"].(string)
	return TypeTextParams{Selector: sel, Text: text, TabID: intArg(args, "tabId", 0)}, nil
}

// PageContentParams parametrizes get_page_content.
type PageContentParams struct {
	TabID        int
	IncludeForms bool
}

func parsePageContentParams(args map[string]any) (PageContentParams, error) {
	return PageContentParams{
		TabID:        intArg(args, "tabId", 0),
		IncludeForms: boolArg(args, "includeForms", true),
	}, nil
}

// WaitParams parametrizes wait_for_element.
type WaitParams struct {
	Selector string
	TabID    int
	Timeout  time.Duration
}

func parseWaitParams(args map[string]any) (WaitParams, error) {
	sel, ok := stringArg(args, "selector")
	if !ok {
		return WaitParams{}, missingArg("selector")
	}
	return WaitParams{
		Selector: sel,
		TabID:    intArg(args, "tabId", 0),
		Timeout:  time.Duration(intArg(args, "timeout", 10000)) * time.Millisecond,
	}, nil
}

// WaitAnyParams parametrizes wait_for_any_selector.
type WaitAnyParams struct {
	Selectors []string
	TabID     int
	Timeout   time.Duration
}

func parseWaitAnyParams(args map[string]any) (WaitAnyParams, error) {
	selectors := stringSliceArg(args, "selectors")
	if len(selectors) == 0 {
		return WaitAnyParams{}, missingArg("selectors")
	}
	return WaitAnyParams{
		Selectors: selectors,
		TabID:     intArg(args, "tabId", 0),
		Timeout:   time.Duration(intArg(args, "timeout", 10000)) * time.Millisecond,
	}, nil
}

// EbaySearchParams parametrizes the ebay_search compound flow.
type EbaySearchParams struct {
	Query     string
	SoldOnly  bool
	Condition string
	NewTab    bool
}

func parseEbaySearchParams(args map[string]any) (EbaySearchParams, error) {
	query, ok := stringArg(args, "query")
	if !ok {
		return EbaySearchParams{}, missingArg("query")
	}
	condition, _ := args["condition"].(string)
	return EbaySearchParams{
		Query:     query,
		SoldOnly:  boolArg(args, "soldOnly", false),
		Condition: condition,
		NewTab:    boolArg(args, "newTab", false),
	}, nil
}

// FetchPricesParams parametrizes fetch_prices.
type FetchPricesParams struct {
	Query        string
	MaxResults   int
	Sources      []string
	MaxPerSource int
	NewTab       bool
	IncludeUsed  bool
}

func parseFetchPricesParams(args map[string]any) (FetchPricesParams, error) {
	query, ok := stringArg(args, "query")
	if !ok {
		return FetchPricesParams{}, missingArg("query")
	}
	sources := stringSliceArg(args, "sources")
	if len(sources) == 0 {
		sources = DefaultOfferSources()
	}
	return FetchPricesParams{
		Query:        query,
		MaxResults:   intArg(args, "maxResults", 10),
		Sources:      sources,
		MaxPerSource: intArg(args, "maxPerSource", 5),
		NewTab:       boolArg(args, "newTab", false),
		IncludeUsed:  boolArg(args, "includeUsed", false),
	}, nil
}

// UPCLookupParams parametrizes upc_lookup.
type UPCLookupParams struct {
	Query      string
	MaxResults int
	NewTab     bool
}

func parseUPCLookupParams(args map[string]any) (UPCLookupParams, error) {
	query, ok := stringArg(args, "query")
	if !ok {
		return UPCLookupParams{}, missingArg("query")
	}
	return UPCLookupParams{
		Query:      query,
		MaxResults: intArg(args, "maxResults", 5),
		NewTab:     boolArg(args, "newTab", false),
	}, nil
}
