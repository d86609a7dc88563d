package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// tab adapts one playwright page to automation.Tab. Playwright owns its own
// timeouts, so the context parameters gate nothing beyond early bailout.
type tab struct {
	id   int
	page playwright.Page
}

func (t *tab) ID() int { return t.id }

func (t *tab) URL() string { return t.page.URL() }

func (t *tab) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Eval runs a script in the page context and decodes its JSON-compatible
// return value into out. out may be nil when the result is irrelevant.
func (t *tab) Eval(ctx context.Context, script string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result, err := t.page.Evaluate(script)
	if err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return decodeEvalResult(result, out)
}

func (t *tab) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.page.Content()
}

func (t *tab) Title(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return t.page.Title()
}

// decodeEvalResult converts playwright's loosely-typed evaluate result into
// the caller's typed destination through a JSON round trip.
func decodeEvalResult(v any, out any) error {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("unencodable script result: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unexpected script result shape: %w", err)
	}
	return nil
}
