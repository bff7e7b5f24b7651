package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ColumnKind represents the semantic type of a table column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumeric
	KindDecimal
	KindDate
	KindEnum
	KindDerived
	KindReadOnly
)

// String returns the catalog name of the kind.
func (k ColumnKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	case KindEnum:
		return "enum"
	case KindDerived:
		return "derived"
	case KindReadOnly:
		return "readonly"
	default:
		return "text"
	}
}

// ParseColumnKind converts a catalog name to a ColumnKind.
func ParseColumnKind(s string) (ColumnKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return KindText, nil
	case "numeric", "number":
		return KindNumeric, nil
	case "decimal":
		return KindDecimal, nil
	case "date":
		return KindDate, nil
	case "enum", "options":
		return KindEnum, nil
	case "derived":
		return KindDerived, nil
	case "readonly", "read_only":
		return KindReadOnly, nil
	default:
		return KindText, fmt.Errorf("unknown column kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ColumnKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Value is a single cell value: nil, string, or a number.
type Value = any

// Record maps column keys to values.
type Record map[string]Value

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the string form of a cell, or "" when missing.
func (r Record) String(key string) string {
	return ValueString(r[key])
}

// ValueString converts a cell value to its string form.
// nil becomes the empty string; numbers use the shortest representation.
func ValueString(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Option is one allowed value of an enumerated column.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// DeriveFunc computes a column's value from the rest of the row.
// Implementations must be pure and must not panic.
type DeriveFunc func(row Record) Value

// RenderFunc formats a cell value for display.
type RenderFunc func(v Value, row Record) string

// Column describes one column of a section table.
type Column struct {
	Key     string     `json:"key"`
	Label   string     `json:"label"`
	Kind    ColumnKind `json:"kind"`
	Options []Option   `json:"options,omitempty"`
	Derive  DeriveFunc `json:"-"`
	Render  RenderFunc `json:"-"`
}

// IsDate reports whether the column holds dates, either by kind or by a
// label mentioning "date".
func (c Column) IsDate() bool {
	return c.Kind == KindDate || strings.Contains(strings.ToLower(c.Label), "date")
}

// IsDerived reports whether the column value is computed from other columns.
func (c Column) IsDerived() bool {
	return c.Derive != nil
}

// Editable reports whether users may type into the column.
func (c Column) Editable() bool {
	return c.Kind != KindReadOnly && c.Derive == nil
}

// OptionLabel returns the display label for an enum value.
func (c Column) OptionLabel(value string) string {
	for _, opt := range c.Options {
		if opt.Value == value {
			return opt.Label
		}
	}
	return value
}

// TableInfo contains display and constraint information about a table.
type TableInfo struct {
	Section              string   `json:"section"`              // Owning section: "M9"
	SectionLabel         string   `json:"sectionLabel"`         // Display name: "Risk Management"
	Key                  string   `json:"key"`                  // Unique within the section: "risk_register"
	Label                string   `json:"label"`                // Display name: "Risk Register"
	UniqueFields         []string `json:"uniqueFields,omitempty"`
	PreventDuplicateRows bool     `json:"preventDuplicateRows,omitempty"`
	MaxRows              int      `json:"maxRows,omitempty"`
	MaxRowsMessage       string   `json:"maxRowsMessage,omitempty"`
	FillEmptyWithDash    bool     `json:"fillEmptyWithDash,omitempty"`
}

// TableDefinition contains everything needed to edit a table.
type TableDefinition struct {
	Info    TableInfo
	Columns []Column
}

// Column returns the column with the given key.
func (t TableDefinition) Column(key string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnLabel returns the label for a key, falling back to the key itself.
func (t TableDefinition) ColumnLabel(key string) string {
	if c, ok := t.Column(key); ok && c.Label != "" {
		return c.Label
	}
	return key
}

// Row is one record of a table, identified by an externally assigned id.
type Row struct {
	ID   string `json:"id"`
	Data Record `json:"data"`
}

// TableRef addresses one table of one project.
type TableRef struct {
	ProjectID string
	Section   string
	Table     string
}

func (r TableRef) String() string {
	return r.ProjectID + "/" + r.Section + "/" + r.Table
}

// SingleEntry is a standalone free-text field of a project with an optional image.
type SingleEntry struct {
	ProjectID string    `json:"projectId,omitempty"`
	Field     string    `json:"field_name"`
	Content   string    `json:"content"`
	ImageData *string   `json:"image_data"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// TableAdapter persists row changes for one table.
// Implementations are expected to refresh the caller's data afterwards.
type TableAdapter interface {
	AddRow(ctx context.Context, data Record) (Row, error)
	EditRow(ctx context.Context, rowID string, data Record) (Row, error)
	DeleteRow(ctx context.Context, rowID string) error
}

// SingleEntryAdapter loads and persists single entries of one project.
type SingleEntryAdapter interface {
	GetEntry(ctx context.Context, field string) (SingleEntry, error)
	SaveEntry(ctx context.Context, entry SingleEntry) (SingleEntry, error)
}

// RowStore is the persistence contract for table rows.
type RowStore interface {
	ListRows(ctx context.Context, ref TableRef) ([]Row, error)
	GetRow(ctx context.Context, ref TableRef, rowID string) (Row, error)
	CreateRow(ctx context.Context, ref TableRef, data Record) (Row, error)
	UpdateRow(ctx context.Context, ref TableRef, rowID string, data Record) (Row, error)
	DeleteRow(ctx context.Context, ref TableRef, rowID string) error
	// ListProjectRows returns every row of a project keyed by table.
	ListProjectRows(ctx context.Context, projectID string) (map[TableRef][]Row, error)
}

// EntryStore is the persistence contract for single entries.
type EntryStore interface {
	GetEntry(ctx context.Context, projectID, field string) (SingleEntry, error)
	ListEntries(ctx context.Context, projectID string) ([]SingleEntry, error)
	UpsertEntry(ctx context.Context, entry SingleEntry) (SingleEntry, error)
}

// AuditStore is the persistence contract for the audit log.
type AuditStore interface {
	InsertAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, projectID string, limit int) ([]AuditEntry, error)
	PurgeAudit(ctx context.Context, before time.Time) (int64, error)
}

// Project owns every row, single entry and audit record stored under its ID.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectPurge counts what DeleteProject removed.
type ProjectPurge struct {
	Rows         int64 `json:"rows"`
	Entries      int64 `json:"entries"`
	AuditEntries int64 `json:"audit_entries"`
}

// ProjectStore is the persistence contract for projects.
type ProjectStore interface {
	// CreateProject fails with ErrProjectExists when the ID is taken.
	CreateProject(ctx context.Context, p Project) (Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
	ListProjects(ctx context.Context) ([]Project, error)
	// DeleteProject removes the project with its rows, entries and audit
	// records in one transaction.
	DeleteProject(ctx context.Context, id string) (ProjectPurge, error)
}

// Store combines every persistence contract the service needs.
type Store interface {
	ProjectStore
	RowStore
	EntryStore
	AuditStore
	Close() error
}
