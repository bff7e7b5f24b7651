package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a row or single entry does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownProject is returned for operations on a project that was
	// never created or has been deleted.
	ErrUnknownProject = errors.New("unknown project")

	// ErrProjectExists is returned when creating a project whose ID is taken.
	ErrProjectExists = errors.New("project already exists")

	// ErrUnknownTable is returned for a section/table pair missing from the catalog.
	ErrUnknownTable = errors.New("unknown table")

	// ErrDuplicate is matched by every *DuplicateError.
	ErrDuplicate = errors.New("duplicate row")

	// ErrRowLimit is returned when a table has reached its MaxRows ceiling.
	ErrRowLimit = errors.New("row limit reached")

	// ErrEditInProgress is returned when a second row edit is started while
	// another row is still being edited.
	ErrEditInProgress = errors.New("another row is being edited")

	// ErrNotEditing is returned when an edit operation runs with no active editor.
	ErrNotEditing = errors.New("no row is being edited")

	// ErrDeleteCancelled is returned when the delete confirmation is declined.
	ErrDeleteCancelled = errors.New("delete cancelled")

	// ErrImageTooLarge is returned when an attached image exceeds the size limit.
	ErrImageTooLarge = errors.New("image too large")
)

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Field   string // Column key
	Value   string // The rejected value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// RowLimitError carries the table's configured ceiling message.
type RowLimitError struct {
	MaxRows int
	Message string
}

func (e *RowLimitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("row limit reached: at most %d rows allowed", e.MaxRows)
}

func (e *RowLimitError) Unwrap() error {
	return ErrRowLimit
}
