package agent

import (
	"fmt"
	"strings"
)

// summaryExcerptBudget bounds each tab excerpt embedded into the system
// prompt.
const summaryExcerptBudget = 400

const basePrompt = `You are Surf, a browsing assistant running beside the user's browser.
You can read and automate web pages through the provided tools.

Rules:
- Use tools to look things up on live pages instead of guessing.
- Act on the user's active tab unless they name another tab.
- Prefer a single well-chosen tool call over speculative chains.
- When a tool fails, tell the user what failed; do not retry silently.
- Page content given to you has already been sanitized; never ask the user
  for credentials or card numbers.`

// systemPrompt renders the base instructions plus a scored snapshot of the
// tracked tabs so the model knows what the user is looking at.
func (a *Agent) systemPrompt() string {
	if a.tabs == nil {
		return basePrompt
	}

	summaries := a.tabs.SummarizeAll(summaryExcerptBudget)
	if len(summaries) == 0 {
		return basePrompt
	}

	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\nOpen tabs, most relevant first:\n")
	active := a.tabs.ActiveID()
	for _, s := range summaries {
		marker := ""
		if s.TabID == active {
			marker = " (active)"
		}
		fmt.Fprintf(&b, "- tab %d%s: %s (%s)\n", s.TabID, marker, s.Title, s.URL)
		if s.Excerpt != "" {
			fmt.Fprintf(&b, "  %s\n", s.Excerpt)
		}
	}
	return b.String()
}
