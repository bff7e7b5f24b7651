package core

import (
	"context"
	"fmt"
	"net/url"

	"github.com/JonMunkholm/planbook/internal/search"
)

// ListRows returns a table's rows with derived columns recomputed.
func (s *Service) ListRows(ctx context.Context, ref TableRef) ([]Row, error) {
	c, err := s.controller(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c.Rows(), nil
}

// QueryRows returns a table's rows filtered by term and sorted.
func (s *Service) QueryRows(ctx context.Context, ref TableRef, term string, sort SortState) ([]Row, error) {
	c, err := s.controller(ctx, ref)
	if err != nil {
		return nil, err
	}
	return ApplyView(c.Definition(), c.Rows(), term, sort), nil
}

// GetRow returns one row.
func (s *Service) GetRow(ctx context.Context, ref TableRef, rowID string) (Row, error) {
	def, err := MustGet(ref.Section, ref.Table)
	if err != nil {
		return Row{}, err
	}
	if err := s.requireProject(ctx, ref.ProjectID); err != nil {
		return Row{}, err
	}
	row, err := s.store.GetRow(ctx, ref, rowID)
	if err != nil {
		return Row{}, err
	}
	return LoadRow(def, row), nil
}

// NextIDs returns the next value of every sequential column of a table.
// Fails with a *RowLimitError when the table is full.
func (s *Service) NextIDs(ctx context.Context, ref TableRef) (Record, error) {
	c, err := s.controller(ctx, ref)
	if err != nil {
		return nil, err
	}
	return c.OpenAdd()
}

// GetEntry returns a single entry. Unknown fields yield an empty entry.
func (s *Service) GetEntry(ctx context.Context, projectID, field string) (SingleEntry, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return SingleEntry{}, err
	}
	entry, err := s.store.GetEntry(ctx, projectID, field)
	if err != nil {
		if isNotFound(err) {
			return SingleEntry{ProjectID: projectID, Field: field}, nil
		}
		return SingleEntry{}, err
	}
	return entry, nil
}

// ListEntries returns every saved single entry of a project.
func (s *Service) ListEntries(ctx context.Context, projectID string) ([]SingleEntry, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// SearchResult is the outcome of a project-wide search.
type SearchResult struct {
	Term     string           `json:"term"`
	Total    int              `json:"total"`
	Preview  []search.Match   `json:"preview,omitempty"`
	Sections []search.Section `json:"sections,omitempty"`
}

// Search builds a registry over every table and single entry of the project
// and runs term against it. With all set, the grouped full result set is
// returned; otherwise the preview.
func (s *Service) Search(ctx context.Context, projectID, term string, all bool) (SearchResult, error) {
	reg, err := s.SearchRegistry(ctx, projectID)
	if err != nil {
		return SearchResult{}, err
	}

	matches := reg.Recompute(term)
	result := SearchResult{Term: term, Total: len(matches)}
	if all {
		result.Sections = reg.Grouped()
	} else {
		result.Preview = reg.Preview()
	}
	return result, nil
}

// SearchRegistry snapshots the project's rows and entries and registers
// one source per table plus one for single entries.
func (s *Service) SearchRegistry(ctx context.Context, projectID string) (*search.Registry, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	byTable, err := s.store.ListProjectRows(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project rows: %w", err)
	}
	entries, err := s.store.ListEntries(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	reg := search.NewRegistry(search.WithPreviewSize(s.cfg.SearchPreviewSize))

	for _, def := range All() {
		ref := TableRef{ProjectID: projectID, Section: def.Info.Section, Table: def.Info.Key}
		rows := byTable[ref]
		if len(rows) == 0 {
			continue
		}
		loaded := make([]Row, len(rows))
		for i, r := range rows {
			loaded[i] = LoadRow(def, r)
		}
		src := TableSource(def, func() []Row { return loaded }, nil)
		inner := src.GetItems
		src.GetItems = func() ([]search.Item, error) {
			items, err := inner()
			for i := range items {
				items[i].Target = rowTarget(ref, loaded[i].ID)
			}
			return items, err
		}
		reg.Register(src)
	}

	if len(entries) > 0 {
		reg.Register(search.Source{
			ID: EntrySection,
			GetItems: func() ([]search.Item, error) {
				items := make([]search.Item, len(entries))
				for i, e := range entries {
					items[i] = EntryItem(e)
					items[i].Target = fmt.Sprintf("/api/projects/%s/single-entry/%s",
						url.PathEscape(projectID), url.PathEscape(e.Field))
				}
				return items, nil
			},
		})
	}

	return reg, nil
}

func rowTarget(ref TableRef, rowID string) string {
	return fmt.Sprintf("/api/projects/%s/sections/%s/tables/%s/%s",
		url.PathEscape(ref.ProjectID), url.PathEscape(ref.Section), url.PathEscape(ref.Table), url.PathEscape(rowID))
}
