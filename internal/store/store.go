// Package store persists plan tables, single entries and the audit log.
//
// Both backends share one SQL implementation over database/sql:
//
//   - Postgres through a pgx connection pool, migrated with golang-migrate
//   - SQLite through modernc.org/sqlite, for single-user and test setups
//
// Row data is stored as a JSON object per row. Rows keep their insertion
// order.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/planbook/internal/core"
)

// SQLStore implements core.Store on top of database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	closers []func()
	now     func() time.Time
}

var _ core.Store = (*SQLStore)(nil)

func newSQLStore(db *sql.DB, d Dialect, closers ...func()) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		closers: closers,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Dialect reports which backend the store talks to.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle and any pool behind it.
func (s *SQLStore) Close() error {
	err := s.db.Close()
	for _, c := range s.closers {
		c()
	}
	return err
}

func (s *SQLStore) q(query string) string {
	return s.dialect.rebind(query)
}

// ----------------------------------------------------------------------------
// Rows
// ----------------------------------------------------------------------------

func (s *SQLStore) rowColumns() string {
	return "id, " + s.dialect.jsonText("data")
}

func scanRow(scan func(dest ...any) error) (core.Row, error) {
	var (
		row core.Row
		raw []byte
	)
	if err := scan(&row.ID, &raw); err != nil {
		return core.Row{}, err
	}
	data, err := decodeRecord(raw)
	if err != nil {
		return core.Row{}, fmt.Errorf("decode row %s: %w", row.ID, err)
	}
	row.Data = data
	return row, nil
}

func decodeRecord(raw []byte) (core.Record, error) {
	data := core.Record{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func encodeRecord(data core.Record) (string, error) {
	if data == nil {
		data = core.Record{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode row: %w", err)
	}
	return string(b), nil
}

// ListRows returns the rows of one table in insertion order.
func (s *SQLStore) ListRows(ctx context.Context, ref core.TableRef) ([]core.Row, error) {
	wb := NewWhereBuilder(s.dialect).
		Add("project_id", ref.ProjectID).
		Add("section", ref.Section).
		Add("table_key", ref.Table)
	where, args := wb.Build()

	rows, err := s.db.QueryContext(ctx, "SELECT "+s.rowColumns()+" FROM section_rows"+where+" ORDER BY seq", args...)
	if err != nil {
		return nil, fmt.Errorf("list rows %s: %w", ref, err)
	}
	defer rows.Close()

	result := []core.Row{}
	for rows.Next() {
		row, err := scanRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ListProjectRows returns every row of a project keyed by table.
func (s *SQLStore) ListProjectRows(ctx context.Context, projectID string) (map[core.TableRef][]core.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT section, table_key, "+s.rowColumns()+" FROM section_rows WHERE project_id = ? ORDER BY seq"),
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list project rows: %w", err)
	}
	defer rows.Close()

	result := make(map[core.TableRef][]core.Row)
	for rows.Next() {
		var ref core.TableRef
		ref.ProjectID = projectID
		row, err := scanRow(func(dest ...any) error {
			return rows.Scan(append([]any{&ref.Section, &ref.Table}, dest...)...)
		})
		if err != nil {
			return nil, err
		}
		result[ref] = append(result[ref], row)
	}
	return result, rows.Err()
}

// GetRow returns one row or core.ErrNotFound.
func (s *SQLStore) GetRow(ctx context.Context, ref core.TableRef, rowID string) (core.Row, error) {
	r := s.db.QueryRowContext(ctx,
		s.q("SELECT "+s.rowColumns()+" FROM section_rows WHERE id = ? AND project_id = ? AND section = ? AND table_key = ?"),
		rowID, ref.ProjectID, ref.Section, ref.Table)
	row, err := scanRow(r.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Row{}, fmt.Errorf("row %s: %w", rowID, core.ErrNotFound)
	}
	if err != nil {
		return core.Row{}, fmt.Errorf("get row %s: %w", rowID, err)
	}
	return row, nil
}

// CreateRow inserts data under a new id.
func (s *SQLStore) CreateRow(ctx context.Context, ref core.TableRef, data core.Record) (core.Row, error) {
	payload, err := encodeRecord(data)
	if err != nil {
		return core.Row{}, err
	}
	id := uuid.NewString()
	now := s.now()

	_, err = s.db.ExecContext(ctx,
		s.q(`INSERT INTO section_rows (id, project_id, section, table_key, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, ref.ProjectID, ref.Section, ref.Table, payload, now, now)
	if err != nil {
		return core.Row{}, fmt.Errorf("insert row into %s: %w", ref, err)
	}
	return core.Row{ID: id, Data: data.Clone()}, nil
}

// UpdateRow replaces a row's data.
func (s *SQLStore) UpdateRow(ctx context.Context, ref core.TableRef, rowID string, data core.Record) (core.Row, error) {
	payload, err := encodeRecord(data)
	if err != nil {
		return core.Row{}, err
	}

	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE section_rows SET data = ?, updated_at = ?
			WHERE id = ? AND project_id = ? AND section = ? AND table_key = ?`),
		payload, s.now(), rowID, ref.ProjectID, ref.Section, ref.Table)
	if err != nil {
		return core.Row{}, fmt.Errorf("update row %s: %w", rowID, err)
	}
	if err := expectOne(res, rowID); err != nil {
		return core.Row{}, err
	}
	return core.Row{ID: rowID, Data: data.Clone()}, nil
}

// DeleteRow removes a row.
func (s *SQLStore) DeleteRow(ctx context.Context, ref core.TableRef, rowID string) error {
	res, err := s.db.ExecContext(ctx,
		s.q("DELETE FROM section_rows WHERE id = ? AND project_id = ? AND section = ? AND table_key = ?"),
		rowID, ref.ProjectID, ref.Section, ref.Table)
	if err != nil {
		return fmt.Errorf("delete row %s: %w", rowID, err)
	}
	return expectOne(res, rowID)
}

func expectOne(res sql.Result, rowID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("row %s: %w", rowID, core.ErrNotFound)
	}
	return nil
}

// ----------------------------------------------------------------------------
// Single entries
// ----------------------------------------------------------------------------

const entryColumns = "project_id, field_name, content, image_data, updated_at"

func scanEntry(scan func(dest ...any) error) (core.SingleEntry, error) {
	var (
		e   core.SingleEntry
		img sql.NullString
	)
	if err := scan(&e.ProjectID, &e.Field, &e.Content, &img, &e.UpdatedAt); err != nil {
		return core.SingleEntry{}, err
	}
	if img.Valid {
		e.ImageData = &img.String
	}
	return e, nil
}

// GetEntry returns one single entry or core.ErrNotFound.
func (s *SQLStore) GetEntry(ctx context.Context, projectID, field string) (core.SingleEntry, error) {
	r := s.db.QueryRowContext(ctx,
		s.q("SELECT "+entryColumns+" FROM single_entries WHERE project_id = ? AND field_name = ?"),
		projectID, field)
	e, err := scanEntry(r.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SingleEntry{}, fmt.Errorf("entry %s: %w", field, core.ErrNotFound)
	}
	if err != nil {
		return core.SingleEntry{}, fmt.Errorf("get entry %s: %w", field, err)
	}
	return e, nil
}

// ListEntries returns every single entry of a project ordered by field.
func (s *SQLStore) ListEntries(ctx context.Context, projectID string) ([]core.SingleEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT "+entryColumns+" FROM single_entries WHERE project_id = ? ORDER BY field_name"),
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var result []core.SingleEntry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// UpsertEntry inserts or replaces the entry keyed by project and field.
func (s *SQLStore) UpsertEntry(ctx context.Context, entry core.SingleEntry) (core.SingleEntry, error) {
	entry.UpdatedAt = s.now()
	var img any
	if entry.ImageData != nil {
		img = *entry.ImageData
	}

	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO single_entries (project_id, field_name, content, image_data, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (project_id, field_name)
			DO UPDATE SET content = excluded.content, image_data = excluded.image_data, updated_at = excluded.updated_at`),
		entry.ProjectID, entry.Field, entry.Content, img, entry.UpdatedAt)
	if err != nil {
		return core.SingleEntry{}, fmt.Errorf("upsert entry %s: %w", entry.Field, err)
	}
	return entry, nil
}

// ----------------------------------------------------------------------------
// Audit log
// ----------------------------------------------------------------------------

// InsertAudit appends an audit entry, assigning an id and timestamp if unset.
func (s *SQLStore) InsertAudit(ctx context.Context, e core.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		s.q(`INSERT INTO audit_log (id, action, severity, project_id, section, table_key, row_id, field,
			old_value, new_value, rows_affected, ip_address, user_agent, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, string(e.Action), string(e.Severity), e.ProjectID, e.Section, e.TableKey, e.RowID, e.Field,
		e.OldValue, e.NewValue, e.RowsAffected, e.IPAddress, e.UserAgent, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// ListAudit returns the newest entries of a project first.
func (s *SQLStore) ListAudit(ctx context.Context, projectID string, limit int) ([]core.AuditEntry, error) {
	if limit <= 0 {
		limit = core.DefaultAuditLimit
	}
	wb := NewWhereBuilder(s.dialect).Add("project_id", projectID)
	where, args := wb.Build()
	query := `SELECT id, action, severity, project_id, section, table_key, row_id, field,
		old_value, new_value, rows_affected, ip_address, user_agent, created_at
		FROM audit_log` + where + " ORDER BY created_at DESC, seq DESC LIMIT " + s.dialect.Placeholder(wb.NextArgIndex())
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var result []core.AuditEntry
	for rows.Next() {
		var (
			e                core.AuditEntry
			action, severity string
		)
		if err := rows.Scan(&e.ID, &action, &severity, &e.ProjectID, &e.Section, &e.TableKey, &e.RowID, &e.Field,
			&e.OldValue, &e.NewValue, &e.RowsAffected, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		e.Action = core.AuditAction(action)
		e.Severity = core.AuditSeverity(severity)
		result = append(result, e)
	}
	return result, rows.Err()
}

// PurgeAudit deletes entries older than before and reports how many.
func (s *SQLStore) PurgeAudit(ctx context.Context, before time.Time) (int64, error) {
	wb := NewWhereBuilder(s.dialect).AddOp("created_at", "<", before.UTC())
	where, args := wb.Build()
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_log"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("purge audit: %w", err)
	}
	return res.RowsAffected()
}
