package core

// sanitize.go normalizes cell input according to the column kind.
//
// Every function here is pure and total: a value that cannot be normalized
// is passed through unchanged rather than rejected. Sanitizing an already
// sanitized value returns it unchanged.

import "strings"

// DashPlaceholder replaces blank fields on tables that fill empty cells.
const DashPlaceholder = "-"

// SanitizeNumeric strips every non-digit character.
func SanitizeNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeDecimal keeps digits and a single decimal point.
// Extra points are dropped and their digits appended to the fraction,
// so "1.2.3" becomes "1.23". A leading point gets a zero: ".5" becomes "0.5".
func SanitizeDecimal(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 1)
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	out := b.String()

	if parts := strings.Split(out, "."); len(parts) > 2 {
		out = parts[0] + "." + strings.Join(parts[1:], "")
	}
	if strings.HasPrefix(out, ".") {
		out = "0" + out
	}
	return out
}

// NormalizeDate stores a parsable date as YYYY-MM-DD.
// Paste artifacts are removed before parsing; unparsable input is returned
// unchanged.
func NormalizeDate(s string) string {
	t, ok := ParseDate(CleanCell(s))
	if !ok {
		return s
	}
	return t.Format(StorageDateLayout)
}

// Sanitize normalizes a single value for the given column.
// nil stays nil; non-string values are only touched for numeric kinds.
func Sanitize(v Value, col Column) Value {
	if v == nil {
		return nil
	}
	switch col.Kind {
	case KindNumeric:
		return SanitizeNumeric(ValueString(v))
	case KindDecimal:
		return SanitizeDecimal(ValueString(v))
	}
	if col.IsDate() {
		if s, ok := v.(string); ok {
			return NormalizeDate(s)
		}
	}
	return v
}

// Derive re-runs every derived column against row and stores the results.
// The row is modified in place and returned.
func Derive(def TableDefinition, row Record) Record {
	for _, col := range def.Columns {
		if col.Derive != nil {
			row[col.Key] = col.Derive(row)
		}
	}
	return row
}

// LoadRow returns a copy of a stored row with derived columns recomputed.
func LoadRow(def TableDefinition, row Row) Row {
	return Row{ID: row.ID, Data: Derive(def, row.Data.Clone())}
}

// ApplyFieldChange sets one field from raw input and recomputes derived
// columns. Numeric and decimal input is sanitized as typed; dates are
// normalized later by PreparePayload so partial input is not mangled.
// The input row is not modified.
func ApplyFieldChange(def TableDefinition, row Record, key string, raw Value) Record {
	out := row.Clone()
	if col, ok := def.Column(key); ok && (col.Kind == KindNumeric || col.Kind == KindDecimal) {
		out[key] = Sanitize(raw, col)
	} else {
		out[key] = raw
	}
	return Derive(def, out)
}

// PreparePayload runs the write pipeline on a candidate row:
// normalize dates, sanitize numeric fields and recompute derived fields.
// The input payload is not modified.
func PreparePayload(def TableDefinition, payload Record) Record {
	out := payload.Clone()

	for _, col := range def.Columns {
		if v, ok := out[col.Key]; ok && col.IsDate() {
			if s, isStr := v.(string); isStr {
				out[col.Key] = NormalizeDate(s)
			}
		}
	}

	for _, col := range def.Columns {
		if v, ok := out[col.Key]; ok && (col.Kind == KindNumeric || col.Kind == KindDecimal) {
			out[col.Key] = Sanitize(v, col)
		}
	}

	return Derive(def, out)
}

// FillEmptyWithDash replaces every blank column of row with "-" when the
// table asks for it. Only new rows are filled; an edit that clears a field
// stores it empty. The row is modified in place and returned.
func FillEmptyWithDash(def TableDefinition, row Record) Record {
	if !def.Info.FillEmptyWithDash {
		return row
	}
	for _, col := range def.Columns {
		if IsBlank(row[col.Key]) {
			row[col.Key] = DashPlaceholder
		}
	}
	return row
}

// DisplayValue formats a cell the way a table shows it.
// Custom renderers win; dates use the display layout; enum values show their label.
func DisplayValue(col Column, v Value, row Record) string {
	if col.Render != nil {
		return col.Render(v, row)
	}
	s := ValueString(v)
	if s == "" {
		return ""
	}
	if col.IsDate() {
		return FormatDisplayDate(s)
	}
	if col.Kind == KindEnum {
		return col.OptionLabel(s)
	}
	return s
}
