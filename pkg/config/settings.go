// Package config provides the persistent settings store for surf.
//
// Settings live in a single JSON file (default ~/.surf/config.json) and are
// reloaded live whenever the file changes on disk, so edits made by an
// external settings UI take effect without a restart.
package config

import (
	"fmt"
	"strings"
)

// DefaultRateLimitPer30s is the per-tab automation action budget per window.
const DefaultRateLimitPer30s = 20

// Gateway holds model gateway connection settings.
type Gateway struct {
	// APIKey authenticates against the aggregator. May be empty here and
	// supplied via environment instead.
	APIKey string `json:"api_key"`

	// BaseURL is the chat-completions API root, e.g. "https://openrouter.ai/api/v1".
	BaseURL string `json:"base_url"`

	// Model is the default model identifier for new conversations.
	Model string `json:"model"`
}

// Automation holds the admission-control policy read before every
// browser-automation action.
type Automation struct {
	// AllowAllAutomation disables the domain whitelist entirely.
	AllowAllAutomation bool `json:"allow_all_automation"`

	// DomainWhitelist lists allowed hostnames. A plain entry matches the
	// exact host and any subdomain of it; entries containing glob
	// metacharacters ("*.example.com") are matched as glob patterns.
	DomainWhitelist []string `json:"domain_whitelist"`

	// RateLimitPer30s caps automation actions per tab per 30-second window.
	RateLimitPer30s int `json:"rate_limit_per_30s"`
}

// Settings is the full persisted configuration.
type Settings struct {
	Gateway    Gateway    `json:"gateway"`
	Automation Automation `json:"automation"`
}

// DefaultSettings returns the configuration used when no file exists yet.
func DefaultSettings() Settings {
	return Settings{
		Gateway: Gateway{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "openai/gpt-4o-mini",
		},
		Automation: Automation{
			AllowAllAutomation: false,
			DomainWhitelist:    []string{},
			RateLimitPer30s:    DefaultRateLimitPer30s,
		},
	}
}

// Normalize fills zero values with defaults and canonicalizes whitelist
// entries. It is applied after every load so a hand-edited file with missing
// keys still yields a usable configuration.
func (s *Settings) Normalize() {
	def := DefaultSettings()
	if s.Gateway.BaseURL == "" {
		s.Gateway.BaseURL = def.Gateway.BaseURL
	}
	s.Gateway.BaseURL = strings.TrimRight(s.Gateway.BaseURL, "/")
	if s.Gateway.Model == "" {
		s.Gateway.Model = def.Gateway.Model
	}
	if s.Automation.RateLimitPer30s <= 0 {
		s.Automation.RateLimitPer30s = def.Automation.RateLimitPer30s
	}

	cleaned := make([]string, 0, len(s.Automation.DomainWhitelist))
	for _, d := range s.Automation.DomainWhitelist {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			cleaned = append(cleaned, d)
		}
	}
	s.Automation.DomainWhitelist = cleaned
}

// Validate reports configuration errors that should block startup.
func (s *Settings) Validate() error {
	if s.Automation.RateLimitPer30s <= 0 {
		return fmt.Errorf("automation.rate_limit_per_30s must be positive, got %d", s.Automation.RateLimitPer30s)
	}
	if !strings.HasPrefix(s.Gateway.BaseURL, "http://") && !strings.HasPrefix(s.Gateway.BaseURL, "https://") {
		return fmt.Errorf("gateway.base_url must be an http(s) URL, got %q", s.Gateway.BaseURL)
	}
	return nil
}

// Clone returns a deep copy so callers can hold a snapshot without racing
// concurrent reloads.
func (s Settings) Clone() Settings {
	out := s
	out.Automation.DomainWhitelist = append([]string(nil), s.Automation.DomainWhitelist...)
	return out
}
