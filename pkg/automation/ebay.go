package automation

import (
	"context"
	"fmt"
)

// waitStep is waitForElement with the flow's step timeout, used between
// compound-flow steps. A timeout here aborts the whole flow.
func (e *Executor) waitStep(ctx context.Context, tab Tab, selector string) Result {
	p := map[string]any{"selector": selector, "tabId": tab.ID(), "timeout": e.cfg.StepTimeout.Milliseconds()}

	if msg := e.admit(ActionWaitForElement, tab, ""); msg != "" {
		return fail(ActionWaitForElement, p, msg)
	}
	if matched := e.pollSelectors(ctx, tab, []string{selector}, e.cfg.StepTimeout, e.cfg.ElementPollInterval); matched == "" {
		return fail(ActionWaitForElement, p, "Timeout waiting for element")
	}
	return succeed(ActionWaitForElement, p, true)
}

// clickByText clicks the first clickable element whose trimmed visible text
// equals needle, case-insensitively. eBay's refinement labels have no stable
// selectors, so text is the only durable handle.
func (e *Executor) clickByText(ctx context.Context, tab Tab, scope, needle string) Result {
	p := map[string]any{"text": needle, "tabId": tab.ID()}

	if msg := e.admit(ActionClickElement, tab, ""); msg != "" {
		return fail(ActionClickElement, p, msg)
	}

	script := fmt.Sprintf(`(() => {
		const needle = %s.trim().toLowerCase();
		const nodes = document.querySelectorAll(%s);
		for (const el of nodes) {
			const text = (el.textContent || '').trim().toLowerCase();
			if (text === needle || text.includes(needle)) {
				(el.closest('a, button, label') || el).click();
				return true;
			}
		}
		return false;
	})()`, jsString(needle), jsString(scope))

	var clicked bool
	if err := tab.Eval(ctx, script, &clicked); err != nil {
		return fail(ActionClickElement, p, err.Error())
	}
	if !clicked {
		return fail(ActionClickElement, p, "Element not found")
	}
	return succeed(ActionClickElement, p, true)
}

// ebaySearch runs the scripted eBay search flow: open the home page, type the
// query, submit, wait for results, then apply the optional sold-items and
// condition refinements. Every step short-circuits the flow with its own
// failed Result, except the condition filter, which degrades to unfiltered
// results with a note.
func (e *Executor) ebaySearch(ctx context.Context, args map[string]any) Result {
	params, err := parseEbaySearchParams(args)
	if err != nil {
		return fail(ActionEbaySearch, args, err.Error())
	}
	p := map[string]any{
		"query":     params.Query,
		"soldOnly":  params.SoldOnly,
		"condition": params.Condition,
		"newTab":    params.NewTab,
	}

	flow := ebayFlow()

	tab, msg := e.acquireTab(ctx, ActionEbaySearch, flow.HomeURL, params.NewTab)
	if msg != "" {
		return fail(ActionEbaySearch, p, msg)
	}
	tabID := tab.ID()

	if step := e.waitStep(ctx, tab, flow.SearchBox); !step.Success {
		return step
	}
	if step := e.typeIntoSelector(ctx, flow.SearchBox, params.Query, tabID); !step.Success {
		return step
	}
	if step := e.clickSelector(ctx, flow.SearchButton, tabID); !step.Success {
		return step
	}
	if step := e.waitStep(ctx, tab, flow.Results); !step.Success {
		return step
	}

	if params.SoldOnly {
		if step := e.clickByText(ctx, tab, "a, button, label, span", flow.SoldItemsLabel); !step.Success {
			return step
		}
		if step := e.waitStep(ctx, tab, flow.Results); !step.Success {
			return step
		}
	}

	conditionApplied := false
	note := ""
	if params.Condition != "" {
		// The menu may already be expanded; a missed click here is not a
		// flow failure.
		_ = e.clickSelector(ctx, flow.ConditionMenu, tabID)

		if step := e.clickByText(ctx, tab, flow.ConditionOptions, params.Condition); step.Success {
			conditionApplied = true
			if step := e.waitStep(ctx, tab, flow.Results); !step.Success {
				return step
			}
		} else {
			note = fmt.Sprintf("Condition filter %q unavailable; results are unfiltered", params.Condition)
		}
	}

	data := map[string]any{
		"tabId":            tabID,
		"url":              tab.URL(),
		"soldOnly":         params.SoldOnly,
		"conditionApplied": conditionApplied,
	}
	if note != "" {
		data["note"] = note
	}
	return succeed(ActionEbaySearch, p, data)
}
