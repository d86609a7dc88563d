package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/entrhq/surf/pkg/logging"
)

// Config exposes the executor's polling cadence and bounded-wait defaults so
// tests can run against a compressed clock.
type Config struct {
	// ElementPollInterval is the cadence for wait_for_element checks.
	ElementPollInterval time.Duration

	// AnyPollInterval is the cadence for wait_for_any_selector checks.
	AnyPollInterval time.Duration

	// OfferPollInterval is the cadence for offer-readiness checks.
	OfferPollInterval time.Duration

	// OfferReadyTimeout bounds how long fetch_prices waits for a source's
	// client-side-rendered results.
	OfferReadyTimeout time.Duration

	// StepTimeout bounds each element wait inside compound flows.
	StepTimeout time.Duration
}

// DefaultConfig returns the production polling configuration.
func DefaultConfig() Config {
	return Config{
		ElementPollInterval: 200 * time.Millisecond,
		AnyPollInterval:     250 * time.Millisecond,
		OfferPollInterval:   400 * time.Millisecond,
		OfferReadyTimeout:   8 * time.Second,
		StepTimeout:         10 * time.Second,
	}
}

// Executor runs the automation action catalog against live tabs. It owns no
// tab state itself: tabs come from the Browser, admission decisions from the
// Guard.
type Executor struct {
	browser Browser
	guard   *Guard
	cfg     Config
	log     *logging.Logger
}

// NewExecutor creates an executor. log may be nil.
func NewExecutor(browser Browser, guard *Guard, cfg Config, log *logging.Logger) *Executor {
	if cfg.ElementPollInterval <= 0 {
		cfg = DefaultConfig()
	}
	return &Executor{browser: browser, guard: guard, cfg: cfg, log: log}
}

// Execute dispatches one named action with untyped arguments, returning the
// uniform Result envelope. Unknown actions and internal failures surface as
// failed Results; Execute never panics and never returns an error.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Success: false, Action: name, Error: fmt.Sprint(r)}
		}
	}()

	kind, ok := KindFromName(name)
	if !ok {
		return Result{Success: false, Action: name, Error: fmt.Sprintf("Unknown action: %s", name)}
	}

	if e.log != nil {
		e.log.Debugf("executing %s args=%v", name, args)
	}

	switch kind {
	case ActionOpenURL:
		return e.openURL(ctx, args)
	case ActionClickElement:
		return e.clickElement(ctx, args)
	case ActionTypeText:
		return e.typeText(ctx, args)
	case ActionGetPageContent:
		return e.getPageContent(ctx, args)
	case ActionWaitForElement:
		return e.waitForElement(ctx, args)
	case ActionWaitForAnySelector:
		return e.waitForAnySelector(ctx, args)
	case ActionEbaySearch:
		return e.ebaySearch(ctx, args)
	case ActionFetchPrices:
		return e.fetchPrices(ctx, args)
	case ActionUPCLookup:
		return e.upcLookup(ctx, args)
	}
	// Unreachable: the switch above covers every ActionKind.
	return Result{Success: false, Action: name, Error: "Unknown action"}
}

// resolveTab picks the target tab: an explicit id when given, otherwise the
// active tab.
func (e *Executor) resolveTab(tabID int) (Tab, error) {
	if tabID != 0 {
		tab, ok := e.browser.Tab(tabID)
		if !ok {
			return nil, fmt.Errorf("Tab %d not found", tabID)
		}
		return tab, nil
	}
	tab, ok := e.browser.ActiveTab()
	if !ok {
		return nil, fmt.Errorf("No target tab available")
	}
	return tab, nil
}

// admit runs the injectability predicate and the policy guard for an action
// against a tab. Returns a failure message, or "" when admitted.
func (e *Executor) admit(kind ActionKind, tab Tab, urlHint string) string {
	pageURL := tab.URL()
	if pageURL == "" {
		pageURL = urlHint
	}
	if !IsInjectableURL(pageURL) {
		return fmt.Sprintf("Cannot automate restricted page: %s", pageURL)
	}
	if err := e.guard.Authorize(tab.ID(), kind.Name(), pageURL); err != nil {
		return err.Message
	}
	return ""
}

// jsString renders a Go string as a JS string literal for script injection.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func (e *Executor) openURL(ctx context.Context, args map[string]any) Result {
	params, err := parseOpenURLParams(args)
	if err != nil {
		return fail(ActionOpenURL, args, err.Error())
	}
	p := map[string]any{"url": params.URL, "newTab": params.NewTab}

	if !IsInjectableURL(params.URL) {
		return fail(ActionOpenURL, p, fmt.Sprintf("Cannot automate restricted page: %s", params.URL))
	}

	if params.NewTab {
		// No prior tab context to police: creating a tab is exempt from
		// the per-tab policy check.
		tab, err := e.browser.OpenTab(ctx, params.URL)
		if err != nil {
			return fail(ActionOpenURL, p, err.Error())
		}
		return succeed(ActionOpenURL, p, map[string]any{"tabId": tab.ID(), "url": params.URL})
	}

	tab, err := e.resolveTab(0)
	if err != nil {
		return fail(ActionOpenURL, p, err.Error())
	}
	// Policy is checked against the navigation target, not the page being
	// left behind.
	if guardErr := e.guard.Authorize(tab.ID(), ActionOpenURL.Name(), params.URL); guardErr != nil {
		return fail(ActionOpenURL, p, guardErr.Message)
	}
	if err := tab.Navigate(ctx, params.URL); err != nil {
		return fail(ActionOpenURL, p, err.Error())
	}
	return succeed(ActionOpenURL, p, map[string]any{"tabId": tab.ID(), "url": params.URL})
}

func (e *Executor) clickElement(ctx context.Context, args map[string]any) Result {
	params, err := parseClickParams(args)
	if err != nil {
		return fail(ActionClickElement, args, err.Error())
	}
	return e.clickSelector(ctx, params.Selector, params.TabID)
}

// clickSelector is the shared implementation behind click_element and the
// compound flows' click steps.
func (e *Executor) clickSelector(ctx context.Context, selector string, tabID int) Result {
	p := map[string]any{"selector": selector, "tabId": tabID}

	tab, err := e.resolveTab(tabID)
	if err != nil {
		return fail(ActionClickElement, p, err.Error())
	}
	if msg := e.admit(ActionClickElement, tab, ""); msg != "" {
		return fail(ActionClickElement, p, msg)
	}

	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		el.click();
		return true;
	})()`, jsString(selector))

	var clicked bool
	if err := tab.Eval(ctx, script, &clicked); err != nil {
		return fail(ActionClickElement, p, err.Error())
	}
	if !clicked {
		return fail(ActionClickElement, p, "Element not found")
	}
	return succeed(ActionClickElement, p, true)
}

func (e *Executor) typeText(ctx context.Context, args map[string]any) Result {
	params, err := parseTypeTextParams(args)
	if err != nil {
		return fail(ActionTypeText, args, err.Error())
	}
	return e.typeIntoSelector(ctx, params.Selector, params.Text, params.TabID)
}

func (e *Executor) typeIntoSelector(ctx context.Context, selector, text string, tabID int) Result {
	p := map[string]any{"selector": selector, "tabId": tabID}

	tab, err := e.resolveTab(tabID)
	if err != nil {
		return fail(ActionTypeText, p, err.Error())
	}
	if msg := e.admit(ActionTypeText, tab, ""); msg != "" {
		return fail(ActionTypeText, p, msg)
	}

	// The element must accept text input; dispatching input/change keeps
	// framework-bound pages in sync with the new value.
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%s);
		if (!el) return false;
		const tag = el.tagName ? el.tagName.toLowerCase() : '';
		if (tag !== 'input' && tag !== 'textarea' && !el.isContentEditable) return false;
		if (el.isContentEditable) {
			el.textContent = %s;
		} else {
			el.value = %s;
		}
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	})()`, jsString(selector), jsString(text), jsString(text))

	var typed bool
	if err := tab.Eval(ctx, script, &typed); err != nil {
		return fail(ActionTypeText, p, err.Error())
	}
	if !typed {
		return fail(ActionTypeText, p, "Element not found or not inputable")
	}
	return succeed(ActionTypeText, p, true)
}

func (e *Executor) getPageContent(ctx context.Context, args map[string]any) Result {
	params, err := parsePageContentParams(args)
	if err != nil {
		return fail(ActionGetPageContent, args, err.Error())
	}
	p := map[string]any{"tabId": params.TabID, "includeForms": params.IncludeForms}

	tab, err := e.resolveTab(params.TabID)
	if err != nil {
		return fail(ActionGetPageContent, p, err.Error())
	}
	if msg := e.admit(ActionGetPageContent, tab, ""); msg != "" {
		return fail(ActionGetPageContent, p, msg)
	}

	htmlText, err := tab.Content(ctx)
	if err != nil {
		return fail(ActionGetPageContent, p, err.Error())
	}

	content := ExtractPageContent(htmlText, tab.URL(), params.IncludeForms)
	if content.Title == "" {
		if title, err := tab.Title(ctx); err == nil {
			content.Title = title
		}
	}
	return succeed(ActionGetPageContent, p, content)
}
