package automation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const amazonResultsPage = `<div class="s-result-item" data-component-type="s-search-result">
	<h2><a href="https://www.amazon.com/dp/B01"><span>Widget Basic</span></a></h2>
	<span class="a-price"><span class="a-offscreen">$25.00</span></span>
</div>`

const ebayResultsPage = `<ul class="srp-results">
	<li class="s-item">
		<div class="s-item__title">Widget Cheap</div>
		<span class="s-item__price">$15.00</span>
		<a class="s-item__link" href="https://www.ebay.com/itm/1"></a>
	</li>
	<li class="s-item">
		<div class="s-item__title">Widget Deluxe</div>
		<span class="s-item__price">$35.00</span>
		<a class="s-item__link" href="https://www.ebay.com/itm/2"></a>
	</li>
</ul>`

func TestEbaySearchFullFlow(t *testing.T) {
	tab := &fakeTab{id: 1, url: "https://www.ebay.com/"}
	tab.evalFn = func(script string) (any, error) {
		if isPollScript(script) {
			return "match", nil
		}
		return true, nil
	}
	e := newTestExecutor(newFakeBrowser(tab), permissiveGuard())

	result := e.Execute(context.Background(), "ebay_search", map[string]any{
		"query":     "vintage camera",
		"soldOnly":  true,
		"condition": "Used",
	})
	require.True(t, result.Success, result.Error)
	assert.Equal(t, "ebay_search", result.Action)

	data := result.Data.(map[string]any)
	assert.Equal(t, 1, data["tabId"])
	assert.Equal(t, true, data["soldOnly"])
	assert.Equal(t, true, data["conditionApplied"])
	assert.NotContains(t, data, "note")

	require.NotEmpty(t, tab.navigations)
	assert.Equal(t, "https://www.ebay.com", tab.navigations[0])
}

func TestEbaySearchConditionFilterDegradesToNote(t *testing.T) {
	tab := &fakeTab{id: 1, url: "https://www.ebay.com/"}
	tab.evalFn = func(script string) (any, error) {
		switch {
		case isPollScript(script):
			return "match", nil
		case strings.Contains(script, "x-refine"):
			// Neither the condition menu nor its options exist on this
			// results page.
			return false, nil
		default:
			return true, nil
		}
	}
	e := newTestExecutor(newFakeBrowser(tab), permissiveGuard())

	result := e.Execute(context.Background(), "ebay_search", map[string]any{
		"query":     "vintage camera",
		"condition": "New",
	})
	require.True(t, result.Success, result.Error)

	data := result.Data.(map[string]any)
	assert.Equal(t, false, data["conditionApplied"])
	assert.Contains(t, data["note"], "unavailable")
}

func TestEbaySearchStepFailureShortCircuits(t *testing.T) {
	tab := &fakeTab{id: 1, url: "https://www.ebay.com/"}
	tab.evalFn = func(script string) (any, error) {
		if isPollScript(script) {
			return "", nil
		}
		return true, nil
	}
	e := newTestExecutor(newFakeBrowser(tab), permissiveGuard())

	result := e.Execute(context.Background(), "ebay_search", map[string]any{"query": "vintage camera"})
	assert.False(t, result.Success)
	// The failing step's result comes back unchanged.
	assert.Equal(t, "wait_for_element", result.Action)
	assert.Equal(t, "Timeout waiting for element", result.Error)
}

func TestEbaySearchMissingQuery(t *testing.T) {
	e := newTestExecutor(newFakeBrowser(nil), permissiveGuard())

	result := e.Execute(context.Background(), "ebay_search", map[string]any{})
	assert.False(t, result.Success)
	assert.Equal(t, `Invalid arguments: missing required parameter "query"`, result.Error)
}

func TestFetchPricesMergesAndSortsAcrossSources(t *testing.T) {
	tab := &fakeTab{id: 1, url: "https://www.example.com/"}
	tab.contentFn = func() (string, error) {
		if strings.Contains(tab.url, "amazon") {
			return amazonResultsPage, nil
		}
		return ebayResultsPage, nil
	}
	e := newTestExecutor(newFakeBrowser(tab), permissiveGuard())

	result := e.Execute(context.Background(), "fetch_prices", map[string]any{
		"query":   "widget",
		"sources": []any{"amazon", "ebay"},
	})
	require.True(t, result.Success, result.Error)

	data := result.Data.(map[string]any)
	assert.Equal(t, 3, data["count"])

	offers := data["offers"].([]Offer)
	require.Len(t, offers, 3)
	assert.Equal(t, []float64{15, 25, 35}, []float64{offers[0].Price, offers[1].Price, offers[2].Price})
	assert.Equal(t, "ebay", offers[0].Source)
	assert.Equal(t, "amazon", offers[1].Source)

	// One tab is reused: the query is escaped into each source's search URL.
	require.Len(t, tab.navigations, 2)
	assert.Equal(t, "https://www.amazon.com/s?k=widget", tab.navigations[0])
	assert.Equal(t, "https://www.ebay.com/sch/i.html?_nkw=widget", tab.navigations[1])
}

func TestFetchPricesMaxResultsTruncatesAfterMerge(t *testing.T) {
	tab := &fakeTab{id: 1, url: "https://www.example.com/"}
	tab.contentFn = func() (string, error) { return ebayResultsPage, nil }
	e := newTestExecutor(newFakeBrowser(tab), permissiveGuard())

	result := e.Execute(context.Background(), "fetch_prices", map[string]any{
		"query":      "widget",
		"sources":    []any{"ebay"},
		"maxResults": float64(1),
	})
	require.True(t, result.Success, result.Error)

	data := result.Data.(map[string]any)
	offers := data["offers"].([]Offer)
	require.Len(t, offers, 1)
	assert.Equal(t, 15.0, offers[0].Price)
}

func TestFetchPricesUnknownSourcesYieldEmptyResults(t *testing.T) {
	tab := &fakeTab{id: 1, url: "https://www.example.com/"}
	e := newTestExecutor(newFakeBrowser(tab), permissiveGuard())

	result := e.Execute(context.Background(), "fetch_prices", map[string]any{
		"query":   "widget",
		"sources": []any{"sears_catalog"},
	})
	require.True(t, result.Success, result.Error)

	data := result.Data.(map[string]any)
	assert.Equal(t, 0, data["count"])
	assert.Empty(t, tab.navigations)
}

func TestFetchPricesBlockedByDomainPolicy(t *testing.T) {
	tab := &fakeTab{id: 1, url: "https://example.com/"}
	e := newTestExecutor(newFakeBrowser(tab), whitelistGuard("example.com"))

	result := e.Execute(context.Background(), "fetch_prices", map[string]any{
		"query":   "widget",
		"sources": []any{"amazon"},
	})
	assert.False(t, result.Success)
	assert.Equal(t, "fetch_prices", result.Action)
	assert.Equal(t, "Domain not allowed: www.amazon.com", result.Error)
}

func TestFetchPricesNewTab(t *testing.T) {
	browser := newFakeBrowser(nil)
	browser.openFn = func(url string) *fakeTab {
		browser.nextID++
		return &fakeTab{
			id:        browser.nextID,
			url:       url,
			contentFn: func() (string, error) { return ebayResultsPage, nil },
		}
	}
	e := newTestExecutor(browser, permissiveGuard())

	result := e.Execute(context.Background(), "fetch_prices", map[string]any{
		"query":   "widget",
		"sources": []any{"ebay"},
		"newTab":  true,
	})
	require.True(t, result.Success, result.Error)
	require.Len(t, browser.openTabs, 1)

	data := result.Data.(map[string]any)
	assert.Equal(t, 2, data["count"])
}

func TestUPCLookup(t *testing.T) {
	tab := &fakeTab{id: 1, url: "https://example.com/"}
	tab.evalFn = func(script string) (any, error) {
		if isPollScript(script) {
			return "table.detail-list", nil
		}
		return true, nil
	}
	tab.contentFn = func() (string, error) { return upcResultsPage, nil }
	e := newTestExecutor(newFakeBrowser(tab), permissiveGuard())

	result := e.Execute(context.Background(), "upc_lookup", map[string]any{"query": "acme widget"})
	require.True(t, result.Success, result.Error)

	require.Len(t, tab.navigations, 1)
	assert.Equal(t, "https://www.upcitemdb.com/query?search=acme+widget", tab.navigations[0])

	data := result.Data.(map[string]any)
	assert.Equal(t, 2, data["count"])

	items := data["items"].([]UPCItem)
	require.Len(t, items, 2)
	assert.Equal(t, "012345678905", items[0].Code)
	assert.Equal(t, "UPC-A", items[0].Format)
}

func TestUPCLookupTimeout(t *testing.T) {
	tab := &fakeTab{id: 1, url: "https://example.com/"}
	tab.evalFn = func(script string) (any, error) { return "", nil }
	e := newTestExecutor(newFakeBrowser(tab), permissiveGuard())

	result := e.Execute(context.Background(), "upc_lookup", map[string]any{"query": "acme"})
	assert.False(t, result.Success)
	assert.Equal(t, "Timeout waiting for results", result.Error)
}
