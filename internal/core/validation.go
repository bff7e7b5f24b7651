package core

// validation.go checks payload shape before the write pipeline runs.
//
// Sanitizing and the duplicate guard never reject malformed values; this
// layer catches what they cannot repair: keys the table does not declare and
// enum values outside the column's options.

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationResult contains the result of validating a payload.
type ValidationResult struct {
	Valid  bool              // True if all validations passed
	Errors []ValidationError // List of validation errors (empty if Valid)
}

// Err returns the first error, or nil when the payload is valid.
func (r ValidationResult) Err() error {
	if r.Valid || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// ValidatePayload checks every field of a payload against the table definition.
// All problems are returned so a form can highlight every field at once.
func ValidatePayload(def TableDefinition, payload Record) ValidationResult {
	result := ValidationResult{Valid: true}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		col, ok := def.Column(key)
		if !ok {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   key,
				Message: "unknown column",
			})
			continue
		}
		if err := ValidateCell(payload[key], col); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   key,
				Value:   ValueString(payload[key]),
				Message: err.Error(),
			})
		}
	}

	return result
}

// ValidateCell validates a single value against its column.
// Blank values and the dash placeholder are always allowed.
func ValidateCell(v Value, col Column) error {
	if IsBlank(v) {
		return nil
	}
	s := strings.TrimSpace(ValueString(v))
	if s == DashPlaceholder {
		return nil
	}

	switch col.Kind {
	case KindEnum:
		if len(col.Options) == 0 {
			return nil
		}
		allowed := make([]string, len(col.Options))
		for i, opt := range col.Options {
			if strings.EqualFold(opt.Value, s) {
				return nil
			}
			allowed[i] = opt.Value
		}
		return fmt.Errorf("invalid value, must be one of: %s", strings.Join(allowed, ", "))
	}
	return nil
}
