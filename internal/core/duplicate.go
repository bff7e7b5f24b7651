package core

// duplicate.go rejects candidate rows that would break a table's
// uniqueness constraints. Rules are checked in order and the first
// failure wins:
//
//  1. Declared UniqueFields: every listed field matches (trimmed, case-insensitive).
//  2. PreventDuplicateRows: every column matches.
//  3. Sequential identifier columns are always unique, compared after sanitizing.

import (
	"fmt"
	"strconv"
	"strings"
)

// DuplicateRule identifies which uniqueness rule rejected a row.
type DuplicateRule int

const (
	RuleUniqueFields DuplicateRule = iota + 1
	RuleFullRow
	RuleSequentialKey
)

func (r DuplicateRule) String() string {
	switch r {
	case RuleUniqueFields:
		return "unique_fields"
	case RuleFullRow:
		return "full_row"
	case RuleSequentialKey:
		return "sequential_key"
	default:
		return "unknown"
	}
}

// DuplicateError is returned when a candidate row collides with an existing one.
type DuplicateError struct {
	Rule     DuplicateRule
	Fields   []string // Column keys that collided
	Labels   []string // Column labels, same order as Fields
	Conflict string   // ID of the existing row
	Message  string
}

func (e *DuplicateError) Error() string {
	return e.Message
}

// Unwrap lets callers match with errors.Is(err, ErrDuplicate).
func (e *DuplicateError) Unwrap() error {
	return ErrDuplicate
}

// Validation converts the error to a ValidationError for field-level reporting.
func (e *DuplicateError) Validation() ValidationError {
	return ValidationError{
		Field:   strings.Join(e.Fields, ","),
		Message: e.Message,
	}
}

// normalizeKey is the comparison form for rules 1 and 2.
func normalizeKey(v Value) string {
	return strings.ToLower(strings.TrimSpace(ValueString(v)))
}

// sequentialEqual compares two sequential identifiers after sanitizing.
// Values that both parse as integers are compared numerically so "05" equals "5".
func sequentialEqual(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai == bi
	}
	return a == b
}

// CheckDuplicate validates a candidate payload against the existing rows.
// The row with ID ignoreRowID is excluded so a row can be saved unchanged.
// Returns nil or a *DuplicateError.
func CheckDuplicate(def TableDefinition, candidate Record, rows []Row, ignoreRowID string) error {
	if err := checkUniqueFields(def, candidate, rows, ignoreRowID); err != nil {
		return err
	}
	if err := checkFullRow(def, candidate, rows, ignoreRowID); err != nil {
		return err
	}
	return checkSequentialKeys(def, candidate, rows, ignoreRowID)
}

func checkUniqueFields(def TableDefinition, candidate Record, rows []Row, ignoreRowID string) error {
	fields := def.Info.UniqueFields
	if len(fields) == 0 {
		return nil
	}

	// A candidate with none of the key fields filled identifies nothing.
	blank := true
	for _, f := range fields {
		if !IsBlank(candidate[f]) {
			blank = false
			break
		}
	}
	if blank {
		return nil
	}

	for _, row := range rows {
		if ignoreRowID != "" && row.ID == ignoreRowID {
			continue
		}
		match := true
		for _, f := range fields {
			if normalizeKey(candidate[f]) != normalizeKey(row.Data[f]) {
				match = false
				break
			}
		}
		if match {
			labels := labelsFor(def, fields)
			return &DuplicateError{
				Rule:     RuleUniqueFields,
				Fields:   append([]string(nil), fields...),
				Labels:   labels,
				Conflict: row.ID,
				Message:  fmt.Sprintf("A row with the same %s already exists.", strings.Join(labels, " + ")),
			}
		}
	}
	return nil
}

func checkFullRow(def TableDefinition, candidate Record, rows []Row, ignoreRowID string) error {
	if !def.Info.PreventDuplicateRows {
		return nil
	}

	for _, row := range rows {
		if ignoreRowID != "" && row.ID == ignoreRowID {
			continue
		}
		match := true
		for _, col := range def.Columns {
			if normalizeKey(candidate[col.Key]) != normalizeKey(row.Data[col.Key]) {
				match = false
				break
			}
		}
		if match {
			return &DuplicateError{
				Rule:     RuleFullRow,
				Conflict: row.ID,
				Message:  "An identical row already exists.",
			}
		}
	}
	return nil
}

func checkSequentialKeys(def TableDefinition, candidate Record, rows []Row, ignoreRowID string) error {
	for _, col := range def.Columns {
		if !IsSequentialKey(col.Key) {
			continue
		}
		want := SanitizeNumeric(ValueString(candidate[col.Key]))
		if want == "" {
			continue
		}
		for _, row := range rows {
			if ignoreRowID != "" && row.ID == ignoreRowID {
				continue
			}
			if sequentialEqual(want, SanitizeNumeric(ValueString(row.Data[col.Key]))) {
				label := def.ColumnLabel(col.Key)
				return &DuplicateError{
					Rule:     RuleSequentialKey,
					Fields:   []string{col.Key},
					Labels:   []string{label},
					Conflict: row.ID,
					Message:  fmt.Sprintf("%s %s already exists.", label, want),
				}
			}
		}
	}
	return nil
}

func labelsFor(def TableDefinition, keys []string) []string {
	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = def.ColumnLabel(k)
	}
	return labels
}
