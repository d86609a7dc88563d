package automation

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"
)

// acquireTab returns a tab navigated to target. When newTab is true or no tab
// exists yet, a fresh tab is created (exempt from per-tab policy since there
// is no prior tab context to police); otherwise the active tab is
// policy-checked against the target URL and navigated in place.
func (e *Executor) acquireTab(ctx context.Context, kind ActionKind, target string, newTab bool) (Tab, string) {
	if !newTab {
		if tab, ok := e.browser.ActiveTab(); ok {
			if msg := e.navigateTab(ctx, kind, tab, target); msg != "" {
				return nil, msg
			}
			return tab, ""
		}
	}
	tab, err := e.browser.OpenTab(ctx, target)
	if err != nil {
		return nil, err.Error()
	}
	return tab, ""
}

// navigateTab policy-checks and navigates an existing tab.
func (e *Executor) navigateTab(ctx context.Context, kind ActionKind, tab Tab, target string) string {
	if guardErr := e.guard.Authorize(tab.ID(), kind.Name(), target); guardErr != nil {
		return guardErr.Message
	}
	if err := tab.Navigate(ctx, target); err != nil {
		return err.Error()
	}
	return ""
}

// waitForOffersReady repeatedly extracts offers from the tab until at least
// minCount are found or the timeout elapses, absorbing client-side-rendered
// search results. Returns the last extraction either way.
func (e *Executor) waitForOffersReady(ctx context.Context, tab Tab, source string, opts OfferOptions, minCount int, timeout time.Duration) []Offer {
	if minCount <= 0 {
		minCount = 1
	}
	deadline := time.Now().Add(timeout)

	var offers []Offer
	for {
		if htmlText, err := tab.Content(ctx); err == nil {
			offers = ExtractOffers(htmlText, source, opts)
			if len(offers) >= minCount {
				return offers
			}
		}
		if time.Now().After(deadline) {
			return offers
		}
		select {
		case <-ctx.Done():
			return offers
		case <-time.After(e.cfg.OfferPollInterval):
		}
	}
}

func (e *Executor) fetchPrices(ctx context.Context, args map[string]any) Result {
	params, err := parseFetchPricesParams(args)
	if err != nil {
		return fail(ActionFetchPrices, args, err.Error())
	}
	p := map[string]any{
		"query":       params.Query,
		"sources":     params.Sources,
		"maxResults":  params.MaxResults,
		"includeUsed": params.IncludeUsed,
	}

	opts := OfferOptions{IncludeUsed: params.IncludeUsed, MaxResults: params.MaxPerSource}

	var tab Tab
	all := make([]Offer, 0)
	for _, source := range params.Sources {
		spec, ok := OfferSource(source)
		if !ok {
			// Unknown retailers contribute an empty result set, not an
			// error.
			continue
		}
		target := fmt.Sprintf(spec.SearchURL, url.QueryEscape(params.Query))

		if tab == nil {
			var msg string
			tab, msg = e.acquireTab(ctx, ActionFetchPrices, target, params.NewTab)
			if msg != "" {
				return fail(ActionFetchPrices, p, msg)
			}
		} else if msg := e.navigateTab(ctx, ActionFetchPrices, tab, target); msg != "" {
			return fail(ActionFetchPrices, p, msg)
		}

		all = append(all, e.waitForOffersReady(ctx, tab, source, opts, 1, e.cfg.OfferReadyTimeout)...)
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Price < all[j].Price })
	if params.MaxResults > 0 && len(all) > params.MaxResults {
		all = all[:params.MaxResults]
	}

	return succeed(ActionFetchPrices, p, map[string]any{
		"query":  params.Query,
		"count":  len(all),
		"offers": all,
	})
}

func (e *Executor) upcLookup(ctx context.Context, args map[string]any) Result {
	params, err := parseUPCLookupParams(args)
	if err != nil {
		return fail(ActionUPCLookup, args, err.Error())
	}
	p := map[string]any{"query": params.Query, "maxResults": params.MaxResults}

	spec := upcSpec()
	target := fmt.Sprintf(spec.SearchURL, url.QueryEscape(params.Query))

	tab, msg := e.acquireTab(ctx, ActionUPCLookup, target, params.NewTab)
	if msg != "" {
		return fail(ActionUPCLookup, p, msg)
	}

	if matched := e.pollSelectors(ctx, tab, spec.Containers, e.cfg.StepTimeout, e.cfg.AnyPollInterval); matched == "" {
		return fail(ActionUPCLookup, p, "Timeout waiting for results")
	}

	htmlText, err2 := tab.Content(ctx)
	if err2 != nil {
		return fail(ActionUPCLookup, p, err2.Error())
	}

	items := ExtractUPCItems(htmlText, params.MaxResults)
	return succeed(ActionUPCLookup, p, map[string]any{
		"query": params.Query,
		"count": len(items),
		"items": items,
	})
}
