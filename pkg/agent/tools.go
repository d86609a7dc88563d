package agent

import "github.com/entrhq/surf/pkg/gateway"

// Catalog is the automation tool catalog presented to the model. Parameter
// schemas mirror the executor's argument contract exactly: the model may omit
// optional fields and the executor applies the documented defaults.
func Catalog() []gateway.ToolDefinition {
	return []gateway.ToolDefinition{
		{
			Name:        "open_url",
			Description: "Open a URL in the active tab, or in a new tab when newTab is true.",
			Parameters: objectSchema(map[string]any{
				"url":    prop("string", "Absolute http(s) URL to open."),
				"newTab": prop("boolean", "Open in a new tab instead of navigating the active one."),
			}, "url"),
		},
		{
			Name:        "click_element",
			Description: "Click the first element matching a CSS selector.",
			Parameters: objectSchema(map[string]any{
				"selector": prop("string", "CSS selector of the element to click."),
				"tabId":    prop("integer", "Target tab id; defaults to the active tab."),
			}, "selector"),
		},
		{
			Name:        "type_text",
			Description: "Type text into an input, textarea, or content-editable element.",
			Parameters: objectSchema(map[string]any{
				"selector": prop("string", "CSS selector of the input element."),
				"text":     prop("string", "Text to enter."),
				"tabId":    prop("integer", "Target tab id; defaults to the active tab."),
			}, "selector"),
		},
		{
			Name:        "get_page_content",
			Description: "Extract the page's title, visible text, heading outline, and optionally form fields. Output is sanitized.",
			Parameters: objectSchema(map[string]any{
				"tabId":        prop("integer", "Target tab id; defaults to the active tab."),
				"includeForms": prop("boolean", "Include form control descriptors (default true)."),
			}),
		},
		{
			Name:        "wait_for_element",
			Description: "Wait until a CSS selector matches an element, or time out.",
			Parameters: objectSchema(map[string]any{
				"selector": prop("string", "CSS selector to wait for."),
				"tabId":    prop("integer", "Target tab id; defaults to the active tab."),
				"timeout":  prop("integer", "Timeout in milliseconds (default 10000)."),
			}, "selector"),
		},
		{
			Name:        "wait_for_any_selector",
			Description: "Wait until any of several CSS selectors matches, or time out.",
			Parameters: objectSchema(map[string]any{
				"selectors": arrayProp("string", "CSS selectors; the first to match wins."),
				"tabId":     prop("integer", "Target tab id; defaults to the active tab."),
				"timeout":   prop("integer", "Timeout in milliseconds (default 10000)."),
			}, "selectors"),
		},
		{
			Name:        "ebay_search",
			Description: "Run an eBay search with optional sold-items and condition refinements.",
			Parameters: objectSchema(map[string]any{
				"query":     prop("string", "Search query."),
				"soldOnly":  prop("boolean", "Refine to sold listings."),
				"condition": prop("string", "Condition filter label, e.g. New or Used."),
				"newTab":    prop("boolean", "Run the search in a new tab."),
			}, "query"),
		},
		{
			Name:        "fetch_prices",
			Description: "Search retailer sites for a product and return structured offers sorted by price.",
			Parameters: objectSchema(map[string]any{
				"query":        prop("string", "Product search query."),
				"maxResults":   prop("integer", "Maximum merged offers to return (default 10)."),
				"sources":      arrayProp("string", "Retailer source ids; defaults to the full catalog."),
				"maxPerSource": prop("integer", "Maximum offers kept per retailer (default 5)."),
				"newTab":       prop("boolean", "Use a new tab for the searches."),
				"includeUsed":  prop("boolean", "Include used and refurbished listings."),
			}, "query"),
		},
		{
			Name:        "upc_lookup",
			Description: "Look up a product or barcode in a UPC database and return matching codes.",
			Parameters: objectSchema(map[string]any{
				"query":      prop("string", "Product name or barcode digits."),
				"maxResults": prop("integer", "Maximum items to return (default 5)."),
				"newTab":     prop("boolean", "Use a new tab for the lookup."),
			}, "query"),
		},
	}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func arrayProp(itemType, description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": itemType},
		"description": description,
	}
}
