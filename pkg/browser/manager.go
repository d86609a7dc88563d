// Package browser owns the playwright lifecycle and exposes pages as
// integer-id tabs implementing the automation capability surface.
package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/surf/pkg/automation"
	"github.com/entrhq/surf/pkg/logging"
)

// Defaults for the browser context.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
	DefaultNavTimeoutMs   = 30000
)

// Config controls the launched browser.
type Config struct {
	Headless       bool
	ViewportWidth  int
	ViewportHeight int

	// NavTimeoutMs is the page default timeout in milliseconds.
	NavTimeoutMs float64
}

// Hooks receive tab lifecycle notifications. All callbacks run on
// playwright's event dispatch goroutine and must not block.
type Hooks struct {
	// OnLoad fires when a tab finishes loading. The receiver decides
	// whether the URL is injectable before extracting anything.
	OnLoad func(tab automation.Tab)

	// OnClose fires after a tab is removed.
	OnClose func(tabID int)

	// OnActivate fires when a tab becomes the active one.
	OnActivate func(tabID int)
}

// Manager owns one Chromium browser context and its tabs. It implements
// automation.Browser.
type Manager struct {
	cfg   Config
	hooks Hooks
	log   *logging.Logger

	mu       sync.RWMutex
	pw       *playwright.Playwright
	browser  playwright.Browser
	context  playwright.BrowserContext
	tabs     map[int]*tab
	activeID int
	nextID   int
	started  bool
}

// NewManager creates an unstarted manager. log may be nil.
func NewManager(cfg Config, hooks Hooks, log *logging.Logger) *Manager {
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = DefaultViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = DefaultViewportHeight
	}
	if cfg.NavTimeoutMs <= 0 {
		cfg.NavTimeoutMs = DefaultNavTimeoutMs
	}
	return &Manager{
		cfg:   cfg,
		hooks: hooks,
		log:   log,
		tabs:  make(map[int]*tab),
	}
}

// Start installs the playwright driver if needed, launches Chromium, and
// creates the browser context. Idempotent.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	// Driver output would interleave with our own logging.
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.cfg.Headless),
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.cfg.ViewportWidth,
			Height: m.cfg.ViewportHeight,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	m.pw = pw
	m.browser = browser
	m.context = bctx
	m.started = true
	return nil
}

// Stop closes every tab, the browser, and the driver.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}

	for id, t := range m.tabs {
		_ = t.page.Close()
		delete(m.tabs, id)
	}
	_ = m.context.Close()
	_ = m.browser.Close()
	err := m.pw.Stop()

	m.started = false
	m.activeID = 0
	return err
}

// OpenTab creates a new tab already navigated to url and makes it active.
func (m *Manager) OpenTab(ctx context.Context, url string) (automation.Tab, error) {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil, fmt.Errorf("browser manager not started")
	}

	page, err := m.context.NewPage()
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(m.cfg.NavTimeoutMs)

	m.nextID++
	t := &tab{id: m.nextID, page: page}
	m.tabs[t.id] = t
	m.activeID = t.id
	m.mu.Unlock()

	m.watchPage(t)
	if m.hooks.OnActivate != nil {
		m.hooks.OnActivate(t.id)
	}

	if err := t.Navigate(ctx, url); err != nil {
		m.removeTab(t.id)
		_ = page.Close()
		return nil, err
	}
	return t, nil
}

// Tab resolves a tab by id.
func (m *Manager) Tab(id int) (automation.Tab, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tabs[id]
	if !ok {
		return nil, false
	}
	return t, true
}

// ActiveTab returns the most recently activated tab.
func (m *Manager) ActiveTab() (automation.Tab, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tabs[m.activeID]
	if !ok {
		return nil, false
	}
	return t, true
}

// Activate marks a tab as the active one and notifies the hook.
func (m *Manager) Activate(id int) error {
	m.mu.Lock()
	if _, ok := m.tabs[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("tab %d not found", id)
	}
	m.activeID = id
	m.mu.Unlock()

	if m.hooks.OnActivate != nil {
		m.hooks.OnActivate(id)
	}
	return nil
}

// CloseTab closes a tab's page; removal and the close hook run through the
// page close event.
func (m *Manager) CloseTab(id int) error {
	m.mu.RLock()
	t, ok := m.tabs[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("tab %d not found", id)
	}
	return t.page.Close()
}

// TabIDs returns the open tab ids in ascending order.
func (m *Manager) TabIDs() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]int, 0, len(m.tabs))
	for id := range m.tabs {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	return ids
}

// watchPage registers load and close listeners for a tab.
func (m *Manager) watchPage(t *tab) {
	t.page.OnLoad(func(playwright.Page) {
		if m.log != nil {
			m.log.Debugf("tab %d loaded %s", t.id, t.URL())
		}
		if m.hooks.OnLoad != nil {
			m.hooks.OnLoad(t)
		}
	})
	t.page.OnClose(func(playwright.Page) {
		m.removeTab(t.id)
		if m.hooks.OnClose != nil {
			m.hooks.OnClose(t.id)
		}
	})
}

func (m *Manager) removeTab(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tabs, id)
	if m.activeID == id {
		m.activeID = 0
		// Fall back to the highest remaining id.
		for remaining := range m.tabs {
			if remaining > m.activeID {
				m.activeID = remaining
			}
		}
	}
}
