// Package automation implements the browser-automation action catalog and the
// admission-control policy that gates it. Every action runs against one target
// tab through scripted injection and returns a uniform Result envelope; no
// action ever propagates a panic or an unwrapped error to its caller.
package automation

// ActionKind is the closed set of automation actions. Dispatch is an
// exhaustive switch over this enum, so adding or removing an action is a
// compile-time-checked change.
type ActionKind int

const (
	ActionOpenURL ActionKind = iota
	ActionClickElement
	ActionTypeText
	ActionGetPageContent
	ActionWaitForElement
	ActionWaitForAnySelector
	ActionEbaySearch
	ActionFetchPrices
	ActionUPCLookup
)

// actionNames maps each kind to its wire name, the identifier exposed to the
// model in tool schemas.
var actionNames = map[ActionKind]string{
	ActionOpenURL:            "open_url",
	ActionClickElement:       "click_element",
	ActionTypeText:           "type_text",
	ActionGetPageContent:     "get_page_content",
	ActionWaitForElement:     "wait_for_element",
	ActionWaitForAnySelector: "wait_for_any_selector",
	ActionEbaySearch:         "ebay_search",
	ActionFetchPrices:        "fetch_prices",
	ActionUPCLookup:          "upc_lookup",
}

// Name returns the action's wire name.
func (k ActionKind) Name() string {
	return actionNames[k]
}

// KindFromName resolves a wire name back to its ActionKind.
func KindFromName(name string) (ActionKind, bool) {
	for kind, n := range actionNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// Kinds returns all action kinds in catalog order.
func Kinds() []ActionKind {
	return []ActionKind{
		ActionOpenURL,
		ActionClickElement,
		ActionTypeText,
		ActionGetPageContent,
		ActionWaitForElement,
		ActionWaitForAnySelector,
		ActionEbaySearch,
		ActionFetchPrices,
		ActionUPCLookup,
	}
}

// Result is the uniform envelope returned by every automation action.
// A failed Result always carries a human-readable Error and never carries
// Data. Serialized as JSON it is the wire format fed back to the model as a
// function-role message, so its shape must stay stable.
type Result struct {
	Success bool           `json:"success"`
	Action  string         `json:"action"`
	Params  map[string]any `json:"params,omitempty"`
	Data    any            `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// succeed builds a success Result for the given action.
func succeed(kind ActionKind, params map[string]any, data any) Result {
	return Result{
		Success: true,
		Action:  kind.Name(),
		Params:  params,
		Data:    data,
	}
}

// fail builds a failure Result. Data is intentionally not accepted: failures
// never carry data.
func fail(kind ActionKind, params map[string]any, message string) Result {
	return Result{
		Success: false,
		Action:  kind.Name(),
		Params:  params,
		Error:   message,
	}
}
