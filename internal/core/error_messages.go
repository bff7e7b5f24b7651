// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis. Codes are grouped by category:
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this ID already exists
//	DB002 - Unique constraint: This value must be unique but already exists
//	DB004 - Connection refused: Unable to connect to database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Busy: Database was busy with conflicting operations
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Duplicate row: The row collides with an existing row
//	VAL002 - Invalid value: A field value is not allowed for its column
//	VAL003 - Invalid request: The request body could not be read
//	VAL004 - Image too large: The attached image exceeds the size limit
//	VAL005 - Request too large: The request body exceeds the size limit
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Not found: The row or entry does not exist
//	TBL002 - Unknown table: Table is not configured for this section
//	TBL003 - Row limit: The table is full
//	TBL004 - Edit in progress: Another row is already being edited
//	TBL005 - Not editing: No row is being edited
//	TBL006 - Delete cancelled: The delete was not confirmed
//
// # Project Errors (PRJ001-PRJ099)
//
//	PRJ001 - Unknown project: The project does not exist
//	PRJ002 - Project exists: A project with this ID already exists
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timeout
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	RATE002 - Busy: Too many concurrent writes
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// # Matching
//
// Sentinel errors are matched first with errors.Is. Remaining errors are
// matched case-insensitively using strings.Contains against known patterns;
// the first matching pattern wins.
package core

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// sentinelMessages maps core sentinel errors to user messages.
// Checked in order with errors.Is before any pattern matching.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrDuplicate, UserMessage{Message: "This row duplicates an existing row", Action: "Change the highlighted fields and save again", Code: "VAL001"}},
	{ErrImageTooLarge, UserMessage{Message: "The attached image is too large", Action: "Attach a smaller image", Code: "VAL004"}},
	{ErrUnknownProject, UserMessage{Message: "Project not found", Action: "Create the project or pick an existing one", Code: "PRJ001"}},
	{ErrProjectExists, UserMessage{Message: "A project with this ID already exists", Action: "Choose a different project ID", Code: "PRJ002"}},
	{ErrNotFound, UserMessage{Message: "Record not found", Action: "Refresh the table; it may have been deleted", Code: "TBL001"}},
	{ErrUnknownTable, UserMessage{Message: "Unknown table", Action: "This table is not configured for the section", Code: "TBL002"}},
	{ErrRowLimit, UserMessage{Message: "This table is full", Action: "Delete a row before adding another", Code: "TBL003"}},
	{ErrEditInProgress, UserMessage{Message: "Another row is being edited", Action: "Save or cancel the open edit first", Code: "TBL004"}},
	{ErrNotEditing, UserMessage{Message: "No row is being edited", Action: "Start editing a row first", Code: "TBL005"}},
	{ErrDeleteCancelled, UserMessage{Message: "Delete cancelled", Action: "No changes were made", Code: "TBL006"}},
	{ErrTooManyWrites, UserMessage{Message: "System is busy saving other changes", Action: "Please wait a moment and try again", Code: "RATE002"}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	{pattern: "duplicate key", msg: UserMessage{Message: "A record with this ID already exists", Action: "Reload the table and try again", Code: "DB001"}},
	{pattern: "unique constraint", msg: UserMessage{Message: "This value must be unique but already exists", Action: "Check for duplicate entries", Code: "DB002"}},
	{pattern: "violates unique", msg: UserMessage{Message: "This value must be unique but already exists", Action: "Check for duplicate entries", Code: "DB002"}},
	{pattern: "connection refused", msg: UserMessage{Message: "Unable to connect to database", Action: "Please try again in a few moments", Code: "DB004"}},
	{pattern: "connection reset", msg: UserMessage{Message: "Database connection was interrupted", Action: "Please try again", Code: "DB005"}},
	{pattern: "context canceled", msg: UserMessage{Message: "Request was cancelled", Action: "Please try again", Code: "REQ001"}},
	{pattern: "context deadline exceeded", msg: UserMessage{Message: "Request timed out", Action: "Please try again or check your connection", Code: "REQ002"}},
	{pattern: "timeout", msg: UserMessage{Message: "Operation timed out", Action: "Please try again later", Code: "DB006"}},
	{pattern: "deadlock", msg: UserMessage{Message: "Database was busy with conflicting operations", Action: "Please try again", Code: "DB007"}},
	{pattern: "database is locked", msg: UserMessage{Message: "Database was busy with conflicting operations", Action: "Please try again", Code: "DB007"}},
	{pattern: "request body too large", msg: UserMessage{Message: "The request is too large", Action: "Send a smaller payload or attach a smaller image", Code: "VAL005"}},
	{pattern: "invalid request body", msg: UserMessage{Message: "The request could not be read", Action: "Send a JSON body of the form {\"data\": {...}}", Code: "VAL003"}},
	{pattern: "invalid value", msg: UserMessage{Message: "A field value is not allowed", Action: "Pick one of the listed options", Code: "VAL002"}},
	{pattern: "rate limit", msg: UserMessage{Message: "Too many requests", Action: "Please wait a moment before trying again", Code: "RATE001"}},
}

// defaultMessage is returned when nothing matches (ERR000).
// Support staff should check application logs for the original technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If nothing matches, a generic fallback message with code ERR000 is returned.
//
// Example:
//
//	err := fmt.Errorf("get row: %w", core.ErrNotFound)
//	msg := MapError(err)
//	// msg.Code == "TBL001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}
	var ve ValidationError
	if errors.As(err, &ve) {
		return UserMessage{Message: ve.Error(), Action: "Correct the field and save again", Code: "VAL002"}
	}
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether an error maps to a specific message
// rather than the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error.
// Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
