package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// projectIDPattern keeps project IDs safe as URL path segments.
var projectIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// CreateProject registers a project. The name defaults to the ID.
func (s *Service) CreateProject(ctx context.Context, p Project) (Project, error) {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	if !projectIDPattern.MatchString(p.ID) {
		return Project{}, ValidationError{
			Field:   "id",
			Value:   p.ID,
			Message: "project id must be 1-64 lowercase letters, digits, '-' or '_'",
		}
	}
	if p.Name == "" {
		p.Name = p.ID
	}

	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return Project{}, err
	}
	slog.Info("project created", "project_id", created.ID, "name", created.Name)
	return created, nil
}

// ListProjects returns every project ordered by ID.
func (s *Service) ListProjects(ctx context.Context) ([]Project, error) {
	return s.store.ListProjects(ctx)
}

// GetProject returns a project or ErrUnknownProject.
func (s *Service) GetProject(ctx context.Context, id string) (Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if isNotFound(err) {
		return Project{}, fmt.Errorf("project %s: %w", id, ErrUnknownProject)
	}
	return p, err
}

// requireProject fails with ErrUnknownProject unless the project exists.
func (s *Service) requireProject(ctx context.Context, id string) error {
	_, err := s.GetProject(ctx, id)
	return err
}

// DeleteProject removes a project with all of its rows, single entries and
// audit records. The removal itself is only logged, since the project's
// audit trail goes with it.
func (s *Service) DeleteProject(ctx context.Context, id string) (ProjectPurge, error) {
	var purge ProjectPurge
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		var err error
		purge, err = s.store.DeleteProject(ctx, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return ProjectPurge{}, fmt.Errorf("project %s: %w", id, ErrUnknownProject)
	}
	if err != nil {
		return ProjectPurge{}, err
	}

	client := ClientFromContext(ctx)
	slog.Warn("project deleted",
		"project_id", id,
		"rows", purge.Rows,
		"entries", purge.Entries,
		"audit_entries", purge.AuditEntries,
		"ip_address", client.IPAddress,
	)
	return purge, nil
}
