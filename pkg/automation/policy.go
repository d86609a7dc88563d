package automation

import (
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/entrhq/surf/pkg/config"
)

// rateWindowLength is the sliding-window span for per-tab rate limiting.
const rateWindowLength = 30 * time.Second

// Policy failure messages. These are part of the contract surfaced to the
// model and the UI; tests pin them.
const (
	errUnverifiableDomain = "Unable to verify domain policy"
	errRateLimited        = "Rate limit exceeded"
)

// PolicyError is a structured admission-control failure. It is always
// recoverable: it is surfaced as a failed Result for the offending action and
// never aborts the session.
type PolicyError struct {
	Action  string
	Message string
}

func (e *PolicyError) Error() string { return e.Message }

// SettingsSource returns the current automation policy. The guard calls it
// before every action so settings changes apply immediately.
type SettingsSource func() config.Automation

// rateWindow tracks one tab's action count within the current window.
// Mutated only by the guard; reset once the window has elapsed.
type rateWindow struct {
	count       int
	windowStart time.Time
}

// Guard is the per-action admission control: domain allow-listing plus
// sliding-window rate limiting per tab. One Guard is constructed at startup
// and shared by the whole executor.
type Guard struct {
	mu       sync.Mutex
	settings SettingsSource
	now      func() time.Time
	windows  map[int]*rateWindow
}

// NewGuard creates a guard reading policy from settings. now may be nil, in
// which case time.Now is used; tests inject a virtual clock.
func NewGuard(settings SettingsSource, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{
		settings: settings,
		now:      now,
		windows:  make(map[int]*rateWindow),
	}
}

// Authorize admits or rejects one action against one tab. pageURL is the
// tab's current URL or, when the tab has not resolved yet, the caller's URL
// hint. A nil return means the action is admitted.
//
// The rate counter is incremented before the limit check, so the action that
// trips the limit both fails and consumes a slot: exactly `limit` actions
// succeed per window.
func (g *Guard) Authorize(tabID int, action, pageURL string) *PolicyError {
	settings := g.settings()

	if !settings.AllowAllAutomation {
		domain := hostnameOf(pageURL)
		if domain == "" {
			return &PolicyError{Action: action, Message: errUnverifiableDomain}
		}
		if len(settings.DomainWhitelist) > 0 && !domainAllowed(domain, settings.DomainWhitelist) {
			return &PolicyError{Action: action, Message: "Domain not allowed: " + domain}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	window, ok := g.windows[tabID]
	if !ok {
		window = &rateWindow{windowStart: now}
		g.windows[tabID] = window
	}
	if now.Sub(window.windowStart) > rateWindowLength {
		window.count = 0
		window.windowStart = now
	}
	window.count++
	if window.count > settings.RateLimitPer30s {
		return &PolicyError{Action: action, Message: errRateLimited}
	}

	return nil
}

// Forget drops rate-limit state for a closed tab.
func (g *Guard) Forget(tabID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.windows, tabID)
}

// hostnameOf extracts a lowercase hostname from a URL, or "" when it cannot
// be determined.
func hostnameOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// domainAllowed reports whether domain matches any whitelist entry. Plain
// entries match the exact host or any subdomain of it; entries containing
// glob metacharacters are matched as glob patterns.
func domainAllowed(domain string, whitelist []string) bool {
	for _, entry := range whitelist {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.ContainsAny(entry, "*?[") {
			g, err := glob.Compile(entry)
			if err != nil {
				continue
			}
			if g.Match(domain) {
				return true
			}
			continue
		}
		if domain == entry || strings.HasSuffix(domain, "."+entry) {
			return true
		}
	}
	return false
}
