package core

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/JonMunkholm/planbook/internal/search"
)

// maxDescriptionLen bounds the description shown under a search result.
const maxDescriptionLen = 120

// RowItem converts a table row into a search item.
// The label prefers a sequential identifier plus the first text column.
func RowItem(def TableDefinition, row Row) search.Item {
	var label, first string
	var parts []string
	for _, col := range def.Columns {
		v := DisplayValue(col, row.Data[col.Key], row.Data)
		if strings.TrimSpace(v) == "" || v == DashPlaceholder {
			continue
		}
		parts = append(parts, v)
		if IsSequentialKey(col.Key) && label == "" {
			label = "#" + v
			continue
		}
		if first == "" {
			first = v
		}
	}

	switch {
	case label != "" && first != "":
		label = label + " " + first
	case label == "":
		label = first
	}
	if label == "" {
		label = def.Info.Label
	}

	desc := strings.Join(parts, " · ")
	if r := []rune(desc); len(r) > maxDescriptionLen {
		desc = string(r[:maxDescriptionLen]) + "…"
	}

	return search.Item{
		ID:           fmt.Sprintf("%s/%s/%s", def.Info.Section, def.Info.Key, row.ID),
		SectionID:    def.Info.Section,
		SectionLabel: def.Info.SectionLabel,
		GroupID:      def.Info.Key,
		GroupLabel:   def.Info.Label,
		Label:        label,
		Description:  desc,
		SearchText:   strings.Join(parts, " "),
	}
}

// EntrySection groups single entries in search results.
const EntrySection = "entries"

// EntryItem converts a single entry into a search item.
func EntryItem(entry SingleEntry) search.Item {
	desc := entry.Content
	if r := []rune(desc); len(r) > maxDescriptionLen {
		desc = string(r[:maxDescriptionLen]) + "…"
	}
	label := HumanizeField(entry.Field)
	return search.Item{
		ID:           EntrySection + "/" + entry.Field,
		SectionID:    EntrySection,
		SectionLabel: "Plan Text",
		GroupID:      entry.Field,
		GroupLabel:   label,
		Label:        label,
		Description:  desc,
		SearchText:   label + " " + entry.Content,
	}
}

// HumanizeField turns "business_continuity_plan" into "Business Continuity Plan".
func HumanizeField(field string) string {
	words := strings.FieldsFunc(field, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// TableSource builds a search source over rows. rows is called on every
// recompute so results follow the caller's current data. navigate, if set,
// is attached to each item.
func TableSource(def TableDefinition, rows func() []Row, navigate func(Row) func()) search.Source {
	return search.Source{
		ID: def.Info.Section + "/" + def.Info.Key,
		GetItems: func() ([]search.Item, error) {
			current := rows()
			items := make([]search.Item, 0, len(current))
			for _, row := range current {
				item := RowItem(def, row)
				if navigate != nil {
					item.OnNavigate = navigate(row)
				}
				items = append(items, item)
			}
			return items, nil
		},
	}
}

// SearchSource exposes the controller's current rows to a search registry.
func (c *TableController) SearchSource(navigate func(Row) func()) search.Source {
	return TableSource(c.def, c.Rows, navigate)
}

// EntrySource builds a search source over the controller's current values.
func (c *SingleEntryController) EntrySource(navigate func(field string) func()) search.Source {
	return search.Source{
		ID: EntrySection,
		GetItems: func() ([]search.Item, error) {
			var items []search.Item
			for _, field := range c.Fields() {
				v := c.Value(field)
				item := EntryItem(SingleEntry{Field: field, Content: v.Content})
				if navigate != nil {
					item.OnNavigate = navigate(field)
				}
				items = append(items, item)
			}
			return items, nil
		},
	}
}
