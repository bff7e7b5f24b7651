package core

// query.go implements the read side of a table view: filtering by a
// search term and sorting by a column. Filtering runs first, then sorting.

import (
	"sort"
	"strings"
)

// SortState is the current sort of a table view. An empty Key means unsorted.
type SortState struct {
	Key  string `json:"key"`
	Desc bool   `json:"desc"`
}

// Toggle returns the state after the user sorts by key:
// the same key flips direction, a new key starts ascending.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key {
		return SortState{Key: key, Desc: !s.Desc}
	}
	return SortState{Key: key}
}

// compareValues orders two non-missing cells of the same column.
// Dates compare by timestamp when both parse, numbers numerically,
// everything else as case-insensitive strings.
func compareValues(col Column, a, b Value) int {
	if col.IsDate() {
		ta, okA := ParseDate(ValueString(a))
		tb, okB := ParseDate(ValueString(b))
		if okA && okB {
			return ta.Compare(tb)
		}
	}

	numericCol := col.Kind == KindNumeric || col.Kind == KindDecimal
	if (isNumber(a) && isNumber(b)) || numericCol {
		fa, okA := ToFloat(a)
		fb, okB := ToFloat(b)
		if okA && okB {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(strings.ToLower(ValueString(a)), strings.ToLower(ValueString(b)))
}

// SortRows returns a sorted copy of rows. Missing values (nil or absent)
// always sort last, whichever the direction; empty strings compare as
// strings. Ties keep their input order.
func SortRows(def TableDefinition, rows []Row, state SortState) []Row {
	out := append([]Row(nil), rows...)
	if state.Key == "" {
		return out
	}

	col, ok := def.Column(state.Key)
	if !ok {
		col = Column{Key: state.Key}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Data[state.Key], out[j].Data[state.Key]
		missA, missB := a == nil, b == nil
		switch {
		case missA && missB:
			return false
		case missA:
			return false
		case missB:
			return true
		}
		c := compareValues(col, a, b)
		if state.Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// RowMatches reports whether any column's display value contains term.
// term must already be trimmed and lowercased; an empty term matches.
func RowMatches(def TableDefinition, row Row, term string) bool {
	if term == "" {
		return true
	}
	for _, col := range def.Columns {
		if strings.Contains(strings.ToLower(DisplayValue(col, row.Data[col.Key], row.Data)), term) {
			return true
		}
	}
	return false
}

// NormalizeTerm trims and lowercases a search term.
func NormalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// FilterRows returns the rows matching the search term.
func FilterRows(def TableDefinition, rows []Row, term string) []Row {
	term = NormalizeTerm(term)
	if term == "" {
		return append([]Row(nil), rows...)
	}
	var out []Row
	for _, row := range rows {
		if RowMatches(def, row, term) {
			out = append(out, row)
		}
	}
	return out
}

// ApplyView filters rows by term and sorts the result.
func ApplyView(def TableDefinition, rows []Row, term string, state SortState) []Row {
	return SortRows(def, FilterRows(def, rows, term), state)
}
