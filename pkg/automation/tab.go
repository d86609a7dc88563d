package automation

import (
	"context"
	"net/url"
	"strings"
)

// Tab is the capability surface an action needs from one browser tab.
// pkg/browser provides the live playwright-backed implementation; tests use
// fakes. Eval runs a script inside the tab's page context and decodes its
// return value into out; it is the scripted-injection round trip every
// interactive action is built on.
type Tab interface {
	ID() int
	URL() string
	Navigate(ctx context.Context, url string) error
	Eval(ctx context.Context, script string, out any) error
	Content(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
}

// Browser resolves and creates tabs for the executor.
type Browser interface {
	// OpenTab creates a new tab already navigated to url.
	OpenTab(ctx context.Context, url string) (Tab, error)

	// Tab resolves a tab by id.
	Tab(id int) (Tab, bool)

	// ActiveTab returns the most recently focused tab, if any.
	ActiveTab() (Tab, bool)
}

// restrictedSchemes are URL schemes that never accept scripted injection:
// browser-internal pages, extension pages, devtools, inline data and local
// files.
var restrictedSchemes = []string{
	"chrome:",
	"chrome-extension:",
	"chrome-untrusted:",
	"edge:",
	"about:",
	"devtools:",
	"view-source:",
	"data:",
	"file:",
	"javascript:",
}

// IsInjectableURL reports whether a page URL is eligible for script-based
// automation. Only http and https pages qualify.
func IsInjectableURL(raw string) bool {
	if raw == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, scheme := range restrictedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
