package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/surf/pkg/automation"
	"github.com/entrhq/surf/pkg/config"
	"github.com/entrhq/surf/pkg/tabcontext"
)

type hookTab struct {
	id      int
	url     string
	html    string
	htmlErr error
}

func (t *hookTab) ID() int                                 { return t.id }
func (t *hookTab) URL() string                             { return t.url }
func (t *hookTab) Navigate(context.Context, string) error  { return nil }
func (t *hookTab) Eval(context.Context, string, any) error { return nil }
func (t *hookTab) Content(context.Context) (string, error) { return t.html, t.htmlErr }
func (t *hookTab) Title(context.Context) (string, error)   { return "", nil }

func newHookFixture() (*tabcontext.Store, *automation.Guard) {
	tabs := tabcontext.NewStore(nil)
	guard := automation.NewGuard(func() config.Automation {
		return config.Automation{AllowAllAutomation: true, RateLimitPer30s: 20}
	}, nil)
	return tabs, guard
}

func TestBrowserHooksOnLoadStoresPageContent(t *testing.T) {
	tabs, guard := newHookFixture()
	hooks := newBrowserHooks(tabs, guard, nil)

	hooks.OnLoad(&hookTab{
		id:   4,
		url:  "https://example.com/docs",
		html: `<html><head><title>Docs</title></head><body><p>Read me.</p></body></html>`,
	})

	ctx, ok := tabs.Get(4)
	require.True(t, ok)
	assert.Equal(t, "Docs", ctx.Content.Title)
	assert.Equal(t, "https://example.com/docs", ctx.Content.URL)
}

func TestBrowserHooksOnLoadSkipsRestrictedAndFailedTabs(t *testing.T) {
	tabs, guard := newHookFixture()
	hooks := newBrowserHooks(tabs, guard, nil)

	hooks.OnLoad(&hookTab{id: 1, url: "chrome://settings"})
	hooks.OnLoad(&hookTab{id: 2, url: "https://example.com", htmlErr: errors.New("detached")})

	_, ok := tabs.Get(1)
	assert.False(t, ok)
	_, ok = tabs.Get(2)
	assert.False(t, ok)
}

func TestBrowserHooksLifecycle(t *testing.T) {
	tabs, guard := newHookFixture()
	hooks := newBrowserHooks(tabs, guard, nil)

	hooks.OnLoad(&hookTab{id: 4, url: "https://example.com", html: "<html><body>hi</body></html>"})
	hooks.OnActivate(4)
	assert.Equal(t, 4, tabs.ActiveID())

	hooks.OnClose(4)
	_, ok := tabs.Get(4)
	assert.False(t, ok)
	assert.Equal(t, 0, tabs.ActiveID())
}
