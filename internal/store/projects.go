package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/JonMunkholm/planbook/internal/core"
)

// CreateProject inserts a project. A taken ID yields core.ErrProjectExists.
func (s *SQLStore) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		s.q("INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING"),
		p.ID, p.Name, p.CreatedAt)
	if err != nil {
		return core.Project{}, fmt.Errorf("insert project %s: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Project{}, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.Project{}, fmt.Errorf("project %s: %w", p.ID, core.ErrProjectExists)
	}
	return p, nil
}

// GetProject returns one project or core.ErrNotFound.
func (s *SQLStore) GetProject(ctx context.Context, id string) (core.Project, error) {
	var p core.Project
	err := s.db.QueryRowContext(ctx, s.q("SELECT id, name, created_at FROM projects WHERE id = ?"), id).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, fmt.Errorf("project %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

// ListProjects returns every project ordered by ID.
func (s *SQLStore) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, created_at FROM projects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	result := []core.Project{}
	for rows.Next() {
		var p core.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// DeleteProject removes a project and everything stored under it.
func (s *SQLStore) DeleteProject(ctx context.Context, id string) (core.ProjectPurge, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.ProjectPurge{}, fmt.Errorf("begin delete project: %w", err)
	}
	defer tx.Rollback()

	exec := func(query string) (int64, error) {
		res, err := tx.ExecContext(ctx, s.q(query), id)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	}

	n, err := exec("DELETE FROM projects WHERE id = ?")
	if err != nil {
		return core.ProjectPurge{}, fmt.Errorf("delete project %s: %w", id, err)
	}
	if n == 0 {
		return core.ProjectPurge{}, fmt.Errorf("project %s: %w", id, core.ErrNotFound)
	}

	var purge core.ProjectPurge
	if purge.Rows, err = exec("DELETE FROM section_rows WHERE project_id = ?"); err != nil {
		return core.ProjectPurge{}, fmt.Errorf("delete project rows: %w", err)
	}
	if purge.Entries, err = exec("DELETE FROM single_entries WHERE project_id = ?"); err != nil {
		return core.ProjectPurge{}, fmt.Errorf("delete project entries: %w", err)
	}
	if purge.AuditEntries, err = exec("DELETE FROM audit_log WHERE project_id = ?"); err != nil {
		return core.ProjectPurge{}, fmt.Errorf("delete project audit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.ProjectPurge{}, fmt.Errorf("commit delete project: %w", err)
	}
	return purge, nil
}
