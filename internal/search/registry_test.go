package search

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticSource(id, section, group string, texts ...string) Source {
	return Source{
		ID: id,
		GetItems: func() ([]Item, error) {
			items := make([]Item, len(texts))
			for i, text := range texts {
				items[i] = Item{
					ID:           fmt.Sprintf("%s-%d", id, i),
					SectionID:    section,
					SectionLabel: "Section " + section,
					GroupID:      group,
					GroupLabel:   "Group " + group,
					Label:        text,
					SearchText:   text,
				}
			}
			return items, nil
		},
	}
}

func matchIDs(ms []Match) []string {
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}

func TestRecompute_FiltersCaseInsensitive(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	r.Register(staticSource("risks", "M9", "risk_register", "Supplier delay", "Budget overrun"))
	r.Register(staticSource("opps", "M9", "opportunity_register", "Reuse SUPPLIER tooling"))

	got := r.Recompute("supplier")
	assert.Equal(t, []string{"risks-0", "opps-0"}, matchIDs(got))
	assert.Equal(t, 0, got[0].MatchIndex)
	assert.Equal(t, 2, got[1].MatchIndex)
}

func TestRecompute_BlankTermHasNoMatches(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	r.Register(staticSource("a", "M4", "g", "anything"))

	assert.Empty(t, r.Recompute("   "))
	assert.Empty(t, r.Preview())
}

func TestRecompute_IsolatesFailingSources(t *testing.T) {
	tests := []struct {
		name string
		bad  Source
	}{
		{
			name: "error",
			bad: Source{ID: "b", GetItems: func() ([]Item, error) {
				return nil, errors.New("boom")
			}},
		},
		{
			name: "panic",
			bad: Source{ID: "b", GetItems: func() ([]Item, error) {
				panic("boom")
			}},
		},
		{
			name: "nil callback",
			bad:  Source{ID: "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry(WithLogger(quietLogger()))
			r.Register(staticSource("a", "M4", "g", "alpha one", "beta"))
			r.Register(tt.bad)

			got := r.Recompute("alpha")
			assert.Equal(t, []string{"a-0"}, matchIDs(got))
		})
	}
}

func TestRegister_LastWriterWins(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	unregisterOld := r.Register(staticSource("a", "M4", "g", "old text"))
	r.Register(staticSource("a", "M4", "g", "new text"))

	assert.Equal(t, 1, r.Len())
	assert.Empty(t, r.Recompute("old"))
	assert.Len(t, r.Recompute("new"), 1)

	// The stale unregister must not remove the newer registration.
	unregisterOld()
	assert.Equal(t, 1, r.Len())
}

func TestRegister_RecomputesCurrentTerm(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	r.Recompute("delay")
	assert.Empty(t, r.Matches())

	unregister := r.Register(staticSource("risks", "M9", "risk", "Supplier delay"))
	assert.Len(t, r.Matches(), 1)

	unregister()
	assert.Empty(t, r.Matches())
	assert.Equal(t, 0, r.Len())
}

func TestRecompute_EqualityShortCircuit(t *testing.T) {
	var calls int
	r := NewRegistry(WithLogger(quietLogger()), WithOnChange(func([]Match) { calls++ }))
	r.Register(staticSource("a", "M4", "g", "alpha", "alpine"))

	r.Recompute("al")
	require.Equal(t, 1, calls)

	// Same identities and positions: no change notification.
	r.Recompute("AL")
	assert.Equal(t, 1, calls)

	r.Recompute("alph")
	assert.Equal(t, 2, calls)
}

func TestPreview_FirstTen(t *testing.T) {
	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("item %d", i)
	}
	r := NewRegistry(WithLogger(quietLogger()))
	r.Register(staticSource("a", "M4", "g", texts...))
	r.Recompute("item")

	assert.Len(t, r.Preview(), DefaultPreviewSize)
	assert.Len(t, r.Matches(), 25)
}

func TestGrouped_PreservesTotalCount(t *testing.T) {
	r := NewRegistry(WithLogger(quietLogger()))
	r.Register(staticSource("risks", "M9", "risk_register", "plan a", "plan b"))
	r.Register(staticSource("opps", "M9", "opportunity_register", "plan c"))
	r.Register(staticSource("env", "M6", "environment_and_tools", "plan d"))
	r.Recompute("plan")

	grouped := r.Grouped()
	require.Len(t, grouped, 2)
	assert.Equal(t, "M9", grouped[0].ID)
	assert.Len(t, grouped[0].Groups, 2)
	assert.Equal(t, "M6", grouped[1].ID)

	total := 0
	for _, s := range grouped {
		total += s.Count()
	}
	assert.Equal(t, len(r.Matches()), total)
}

func TestNavigate(t *testing.T) {
	var navigated string
	r := NewRegistry(WithLogger(quietLogger()))
	r.Register(Source{ID: "a", GetItems: func() ([]Item, error) {
		return []Item{{
			ID:         "row-1",
			SearchText: "supplier",
			OnNavigate: func() { navigated = "row-1" },
		}}, nil
	}})
	r.Recompute("supp")

	assert.True(t, r.Navigate("row-1"))
	assert.Equal(t, "row-1", navigated)
	assert.False(t, r.Navigate("missing"))
}
