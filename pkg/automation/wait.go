package automation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// pollSelectors polls the tab until any of the selectors matches or the
// timeout elapses. Returns the first matching selector, or "" on timeout.
// Eval errors during polling are treated as "not matched yet": the page may
// still be navigating.
//
// State machine: Polling -> {Found, TimedOut}. No retries beyond the timeout
// window and no external cancellation other than ctx.
func (e *Executor) pollSelectors(ctx context.Context, tab Tab, selectors []string, timeout, interval time.Duration) string {
	quoted := make([]string, len(selectors))
	for i, sel := range selectors {
		quoted[i] = jsString(sel)
	}
	script := fmt.Sprintf(`(() => {
		const selectors = [%s];
		for (const sel of selectors) {
			try {
				if (document.querySelector(sel)) return sel;
			} catch (e) {}
		}
		return "";
	})()`, strings.Join(quoted, ", "))

	deadline := time.Now().Add(timeout)
	for {
		var matched string
		if err := tab.Eval(ctx, script, &matched); err == nil && matched != "" {
			return matched
		}
		if time.Now().After(deadline) {
			return ""
		}
		select {
		case <-ctx.Done():
			return ""
		case <-time.After(interval):
		}
	}
}

func (e *Executor) waitForElement(ctx context.Context, args map[string]any) Result {
	params, err := parseWaitParams(args)
	if err != nil {
		return fail(ActionWaitForElement, args, err.Error())
	}
	p := map[string]any{"selector": params.Selector, "tabId": params.TabID, "timeout": params.Timeout.Milliseconds()}

	tab, err := e.resolveTab(params.TabID)
	if err != nil {
		return fail(ActionWaitForElement, p, err.Error())
	}
	if msg := e.admit(ActionWaitForElement, tab, ""); msg != "" {
		return fail(ActionWaitForElement, p, msg)
	}

	if matched := e.pollSelectors(ctx, tab, []string{params.Selector}, params.Timeout, e.cfg.ElementPollInterval); matched == "" {
		return fail(ActionWaitForElement, p, "Timeout waiting for element")
	}
	return succeed(ActionWaitForElement, p, true)
}

func (e *Executor) waitForAnySelector(ctx context.Context, args map[string]any) Result {
	params, err := parseWaitAnyParams(args)
	if err != nil {
		return fail(ActionWaitForAnySelector, args, err.Error())
	}
	p := map[string]any{"selectors": params.Selectors, "tabId": params.TabID, "timeout": params.Timeout.Milliseconds()}

	tab, err := e.resolveTab(params.TabID)
	if err != nil {
		return fail(ActionWaitForAnySelector, p, err.Error())
	}
	if msg := e.admit(ActionWaitForAnySelector, tab, ""); msg != "" {
		return fail(ActionWaitForAnySelector, p, msg)
	}

	matched := e.pollSelectors(ctx, tab, params.Selectors, params.Timeout, e.cfg.AnyPollInterval)
	if matched == "" {
		return fail(ActionWaitForAnySelector, p, "Timeout waiting for any selector")
	}
	return succeed(ActionWaitForAnySelector, p, map[string]any{"matched": matched})
}
