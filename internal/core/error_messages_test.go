package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "wrapped not found maps by sentinel",
			err:         fmt.Errorf("get row: %w", ErrNotFound),
			wantCode:    "TBL001",
			wantMessage: "Record not found",
		},
		{
			name:        "duplicate error maps by sentinel",
			err:         &DuplicateError{Rule: RuleSequentialKey, Message: "Risk ID 5 already exists."},
			wantCode:    "VAL001",
			wantMessage: "This row duplicates an existing row",
		},
		{
			name:        "row limit error maps by sentinel",
			err:         &RowLimitError{MaxRows: 1, Message: "only one row"},
			wantCode:    "TBL003",
			wantMessage: "This table is full",
		},
		{
			name:        "too many writes maps by sentinel",
			err:         ErrTooManyWrites,
			wantCode:    "RATE002",
			wantMessage: "System is busy saving other changes",
		},
		{
			name:        "duplicate key maps by pattern",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "deadline exceeded wins over timeout",
			err:         errors.New("context deadline exceeded (timeout)"),
			wantCode:    "REQ002",
			wantMessage: "Request timed out",
		},
		{
			name:        "sqlite busy maps to DB007",
			err:         errors.New("database is locked (5) (SQLITE_BUSY)"),
			wantCode:    "DB007",
			wantMessage: "Database was busy with conflicting operations",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value violates"),
			wantCode:    "DB001",
			wantMessage: "A record with this ID already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestMapError_ValidationError(t *testing.T) {
	err := fmt.Errorf("validate: %w", ValidationError{Field: "status", Value: "x", Message: "invalid value"})
	got := MapError(err)
	if got.Code != "VAL002" {
		t.Errorf("MapError() code = %q, want VAL002", got.Code)
	}
	if got.Message != "status: invalid value" {
		t.Errorf("MapError() message = %q", got.Message)
	}
}

func TestFormatUserError(t *testing.T) {
	err := errors.New("duplicate key value violates")
	result := FormatUserError(err)

	expected := "A record with this ID already exists (Code: DB001). Reload the table and try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrEditInProgress,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := errors.New("pq: duplicate key value")
		userErr := NewUserError(techErr)

		if userErr.Error() != "A record with this ID already exists" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, techErr) {
			t.Error("Unwrap() should return original error")
		}
	})
}
