package tabcontext

import (
	"sort"
	"strings"
)

// Scoring weights and normalization constants. Recency decays linearly to
// zero over five minutes; selection activity saturates at five selections;
// content length saturates at 5000 characters.
const (
	recencyWeight   = 0.5
	selectionWeight = 0.3
	lengthWeight    = 0.2

	recencyHorizonMs    = 300000
	selectionSaturation = 5
	lengthSaturation    = 5000

	topHeadingCount = 3
	ellipsis        = "…"
)

// Summary is a derived, ephemeral view of one tab's context, scored for
// relevance. Never persisted.
type Summary struct {
	TabID        int      `json:"tabId"`
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	WordCount    int      `json:"wordCount"`
	SectionCount int      `json:"sectionCount"`
	TopHeadings  []string `json:"topHeadings,omitempty"`
	Excerpt      string   `json:"excerpt"`
	Score        float64  `json:"score"`
}

// Summarize computes a scored summary of one tab's context with the excerpt
// truncated to budget characters.
func (s *Store) Summarize(tabID int, budget int) (Summary, bool) {
	ctx, ok := s.Get(tabID)
	if !ok {
		return Summary{}, false
	}
	return s.summarize(ctx, budget), true
}

// SummarizeAll summarizes every tracked tab, most relevant first.
func (s *Store) SummarizeAll(budget int) []Summary {
	contexts := s.All()
	out := make([]Summary, 0, len(contexts))
	for _, ctx := range contexts {
		out = append(out, s.summarize(ctx, budget))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func (s *Store) summarize(ctx Context, budget int) Summary {
	text := collapseWhitespace(ctx.Content.Text)

	headings := make([]string, 0, topHeadingCount)
	for _, h := range ctx.Content.Headings {
		if len(headings) == topHeadingCount {
			break
		}
		headings = append(headings, h.Text)
	}

	return Summary{
		TabID:        ctx.TabID,
		Title:        ctx.Content.Title,
		URL:          ctx.Content.URL,
		WordCount:    len(strings.Fields(text)),
		SectionCount: len(ctx.Content.Headings),
		TopHeadings:  headings,
		Excerpt:      excerpt(text, budget),
		Score:        s.score(ctx, text),
	}
}

// score combines recency, selection activity, and content length into [0,1].
func (s *Store) score(ctx Context, text string) float64 {
	ageMs := float64(s.now().Sub(ctx.LastUpdated).Milliseconds())
	recency := 1 - ageMs/recencyHorizonMs
	if recency < 0 {
		recency = 0
	}

	selectionDensity := float64(len(ctx.Selections)) / selectionSaturation
	if selectionDensity > 1 {
		selectionDensity = 1
	}

	lengthDensity := float64(len(text)) / lengthSaturation
	if lengthDensity > 1 {
		lengthDensity = 1
	}

	return recencyWeight*recency + selectionWeight*selectionDensity + lengthWeight*lengthDensity
}

// excerpt truncates text to a character budget, preferring to cut at the
// last sentence boundary past 60% of the budget, else hard-cutting, and
// appends an ellipsis when anything was dropped.
func excerpt(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}

	// Cut on a rune boundary so multi-byte text stays valid UTF-8.
	cut := string(runes[:budget])
	floor := len(cut) * 60 / 100
	if idx := strings.LastIndexAny(cut, ".!?"); idx >= floor {
		cut = cut[:idx+1]
	}
	return strings.TrimSpace(cut) + ellipsis
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
