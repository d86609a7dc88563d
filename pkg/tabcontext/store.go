// Package tabcontext tracks per-tab page context: extracted content, recent
// text selections, and activation state. One Store is constructed at startup
// and shared by handle; it is the only component that mutates tab context.
package tabcontext

import (
	"sort"
	"sync"
	"time"

	"github.com/entrhq/surf/pkg/automation"
)

// maxSelections bounds the per-tab selection history; older selections fall
// off the end.
const maxSelections = 10

// Selection is one recorded text selection.
type Selection struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Context is the stored state for one tab. Content is the sanitized
// page-content extraction from the tab's most recent load.
type Context struct {
	TabID       int                    `json:"tabId"`
	Content     automation.PageContent `json:"content"`
	Selections  []Selection            `json:"selections,omitempty"`
	LastUpdated time.Time              `json:"lastUpdated"`
}

// Store is the mutex-guarded tab context map plus active-tab tracking.
type Store struct {
	mu       sync.RWMutex
	contexts map[int]*Context
	activeID int
	now      func() time.Time
}

// NewStore creates an empty store. now may be nil, in which case time.Now is
// used; tests inject a virtual clock.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		contexts: make(map[int]*Context),
		now:      now,
	}
}

// Update overwrites or inserts the context for a tab with a fresh
// lastUpdated timestamp. A page load replaces the whole context, including
// selections made on the previous document.
func (s *Store) Update(tabID int, content automation.PageContent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[tabID] = &Context{
		TabID:       tabID,
		Content:     content,
		LastUpdated: s.now(),
	}
}

// Get returns a copy of a tab's context.
func (s *Store) Get(tabID int) (Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, ok := s.contexts[tabID]
	if !ok {
		return Context{}, false
	}
	return copyContext(ctx), true
}

// All returns copies of every tracked context, ordered by tab id.
func (s *Store) All() []Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Context, 0, len(s.contexts))
	for _, ctx := range s.contexts {
		out = append(out, copyContext(ctx))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TabID < out[j].TabID })
	return out
}

// Remove drops a closed tab's context and clears activation if it pointed at
// the tab.
func (s *Store) Remove(tabID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, tabID)
	if s.activeID == tabID {
		s.activeID = 0
	}
}

// SetActive records the most recently focused tab.
func (s *Store) SetActive(tabID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = tabID
}

// ActiveID returns the most recently focused tab id, or 0 when none is
// known.
func (s *Store) ActiveID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// AddSelection prepends a text selection to a tab's bounded selection
// history. Selections on untracked tabs are dropped.
func (s *Store) AddSelection(tabID int, text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.contexts[tabID]
	if !ok {
		return
	}
	ctx.Selections = append([]Selection{{Text: text, At: s.now()}}, ctx.Selections...)
	if len(ctx.Selections) > maxSelections {
		ctx.Selections = ctx.Selections[:maxSelections]
	}
}

func copyContext(ctx *Context) Context {
	out := *ctx
	out.Selections = append([]Selection(nil), ctx.Selections...)
	return out
}
