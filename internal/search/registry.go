// Package search federates searchable items across every table and entry
// of a plan.
//
// Each table or single-entry view registers a Source whose GetItems callback
// lists its current items. A query pulls every source afresh, so results
// always reflect the data the sources hold at call time. A failing source is
// logged and skipped; it never hides the results of other sources.
package search

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// DefaultPreviewSize is the number of matches shown under the search box.
const DefaultPreviewSize = 10

// Item is one searchable thing: a table row or a single entry.
type Item struct {
	ID           string `json:"id"`
	SectionID    string `json:"sectionId"`
	SectionLabel string `json:"sectionLabel"`
	GroupID      string `json:"groupId"`
	GroupLabel   string `json:"groupLabel"`
	Label        string `json:"label"`
	Description  string `json:"description,omitempty"`
	Target       string `json:"target,omitempty"` // Where navigation leads, e.g. an API path
	SearchText   string `json:"-"`
	OnNavigate   func() `json:"-"`
}

// Source supplies the current items of one table or entry.
type Source struct {
	ID       string
	GetItems func() ([]Item, error)
}

// Match is an item that matched the current term.
// MatchIndex is its position in the flattened, unfiltered item list.
type Match struct {
	Item
	MatchIndex int `json:"matchIndex"`
}

type registration struct {
	source Source
	gen    uint64
}

// Registry holds the registered sources and the latest result set.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	order   []string
	sources map[string]registration
	gen     uint64

	term    string
	matches []Match

	previewSize int
	logger      *slog.Logger
	onChange    func([]Match)
}

// Option configures a Registry.
type Option func(*Registry)

// WithPreviewSize sets how many matches Preview returns.
func WithPreviewSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.previewSize = n
		}
	}
}

// WithLogger sets the logger used to report failing sources.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithOnChange registers a callback invoked whenever the result set changes.
func WithOnChange(fn func([]Match)) Option {
	return func(r *Registry) {
		r.onChange = fn
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sources:     make(map[string]registration),
		previewSize: DefaultPreviewSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores src under its ID and recomputes the current term.
// Registering an existing ID replaces the earlier source in place.
// The returned function unregisters this registration only; it does
// nothing once the ID has been registered again.
func (r *Registry) Register(src Source) (unregister func()) {
	r.mu.Lock()
	r.gen++
	gen := r.gen
	if _, exists := r.sources[src.ID]; !exists {
		r.order = append(r.order, src.ID)
	}
	r.sources[src.ID] = registration{source: src, gen: gen}
	term := r.term
	r.mu.Unlock()

	r.Recompute(term)

	var once sync.Once
	return func() {
		once.Do(func() { r.unregister(src.ID, gen) })
	}
}

func (r *Registry) unregister(id string, gen uint64) {
	r.mu.Lock()
	reg, ok := r.sources[id]
	if !ok || reg.gen != gen {
		r.mu.Unlock()
		return
	}
	delete(r.sources, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	term := r.term
	r.mu.Unlock()

	r.Recompute(term)
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sources)
}

// Term returns the term of the current result set.
func (r *Registry) Term() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.term
}

// Recompute pulls every source and filters their items by term.
// Matching is a case-insensitive substring test against SearchText.
// A blank term yields no matches. Returns the current matches.
func (r *Registry) Recompute(term string) []Match {
	r.mu.Lock()
	sources := make([]Source, 0, len(r.order))
	for _, id := range r.order {
		sources = append(sources, r.sources[id].source)
	}
	r.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(term))

	var next []Match
	if needle != "" {
		idx := 0
		for _, src := range sources {
			items := r.pull(src)
			for _, item := range items {
				if strings.Contains(strings.ToLower(item.SearchText), needle) {
					next = append(next, Match{Item: item, MatchIndex: idx})
				}
				idx++
			}
		}
	}

	r.mu.Lock()
	r.term = term
	changed := !sameMatches(r.matches, next)
	if changed {
		r.matches = next
	}
	current := r.matches
	onChange := r.onChange
	r.mu.Unlock()

	if changed && onChange != nil {
		onChange(current)
	}
	return current
}

// pull calls one source, isolating errors and panics.
func (r *Registry) pull(src Source) (items []Item) {
	if src.GetItems == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("search source panicked", "source", src.ID, "panic", fmt.Sprint(p))
			items = nil
		}
	}()

	items, err := src.GetItems()
	if err != nil {
		r.logger.Warn("search source failed", "source", src.ID, "error", err)
		return nil
	}
	return items
}

// sameMatches compares results by identity and position only.
func sameMatches(a, b []Match) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID ||
			a[i].SectionID != b[i].SectionID ||
			a[i].GroupID != b[i].GroupID ||
			a[i].MatchIndex != b[i].MatchIndex {
			return false
		}
	}
	return true
}

// Matches returns the full current result set.
func (r *Registry) Matches() []Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Match(nil), r.matches...)
}

// Preview returns the first matches shown inline under the search box.
func (r *Registry) Preview() []Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := min(len(r.matches), r.previewSize)
	return append([]Match(nil), r.matches[:n]...)
}

// Navigate invokes OnNavigate of the current match with the given item id.
// Reports whether a match was found.
func (r *Registry) Navigate(id string) bool {
	r.mu.Lock()
	var target func()
	found := false
	for _, m := range r.matches {
		if m.ID == id {
			target = m.OnNavigate
			found = true
			break
		}
	}
	r.mu.Unlock()

	if found && target != nil {
		target()
	}
	return found
}
