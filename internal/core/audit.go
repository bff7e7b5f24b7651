package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionRowCreate AuditAction = "row_create"
	ActionRowUpdate AuditAction = "row_update"
	ActionRowDelete AuditAction = "row_delete"
	ActionBatchEdit AuditAction = "batch_edit"
	ActionEntrySave AuditAction = "entry_save"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// DefaultAuditLimit caps audit queries without an explicit limit.
const DefaultAuditLimit = 100

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID           string        `json:"id"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	ProjectID    string        `json:"projectId"`
	Section      string        `json:"section,omitempty"`
	TableKey     string        `json:"tableKey,omitempty"`
	RowID        string        `json:"rowId,omitempty"`
	Field        string        `json:"field,omitempty"`
	OldValue     string        `json:"oldValue,omitempty"`
	NewValue     string        `json:"newValue,omitempty"`
	RowsAffected int           `json:"rowsAffected,omitempty"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
type AuditLogParams struct {
	Action       AuditAction
	Ref          TableRef
	RowID        string
	Field        string
	Old          any
	New          any
	RowsAffected int
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionRowDelete, ActionBatchEdit:
		return SeverityHigh
	case ActionEntrySave:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// auditJSON encodes an audit value. Failures degrade to an empty value.
func auditJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// newAuditEntry builds an entry stamped with the caller's client info.
func newAuditEntry(ctx context.Context, params AuditLogParams) AuditEntry {
	client := ClientFromContext(ctx)
	return AuditEntry{
		ID:           uuid.NewString(),
		Action:       params.Action,
		Severity:     determineSeverity(params.Action),
		ProjectID:    params.Ref.ProjectID,
		Section:      params.Ref.Section,
		TableKey:     params.Ref.Table,
		RowID:        params.RowID,
		Field:        params.Field,
		OldValue:     auditJSON(params.Old),
		NewValue:     auditJSON(params.New),
		RowsAffected: params.RowsAffected,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
		CreatedAt:    time.Now().UTC(),
	}
}

// LogAudit records an audit entry. A failed insert is logged and does not
// fail the write that triggered it.
func (s *Service) LogAudit(ctx context.Context, params AuditLogParams) {
	entry := newAuditEntry(ctx, params)
	if err := s.store.InsertAudit(ctx, entry); err != nil {
		slog.Warn("audit insert failed",
			"action", entry.Action,
			"project_id", entry.ProjectID,
			"table", entry.TableKey,
			"error", err,
		)
	}
}

// GetAuditLog returns the most recent audit entries of a project, newest first.
func (s *Service) GetAuditLog(ctx context.Context, projectID string, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.store.ListAudit(ctx, projectID, limit)
}
