package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// validate rejects unknown keys and enum values outside their options.
func validate(def TableDefinition, data Record) error {
	if err := ValidatePayload(def, data).Err(); err != nil {
		return fmt.Errorf("validate %s: %w", def.Info.Key, err)
	}
	return nil
}

// CreateRow adds a row through the table's write pipeline.
func (s *Service) CreateRow(ctx context.Context, ref TableRef, data Record) (Row, error) {
	var row Row
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		unlock := s.lockTable(ref)
		defer unlock()

		c, err := s.controller(ctx, ref)
		if err != nil {
			return err
		}
		if err := validate(c.Definition(), data); err != nil {
			return err
		}
		row, err = c.Add(ctx, data)
		return err
	})
	if err != nil {
		return Row{}, err
	}

	slog.Debug("row created", "table", ref.String(), "row_id", row.ID)
	s.LogAudit(ctx, AuditLogParams{Action: ActionRowCreate, Ref: ref, RowID: row.ID, New: row.Data})
	return row, nil
}

// UpdateRow replaces a row's data through the table's write pipeline.
func (s *Service) UpdateRow(ctx context.Context, ref TableRef, rowID string, data Record) (Row, error) {
	var before, row Row
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		unlock := s.lockTable(ref)
		defer unlock()

		c, err := s.controller(ctx, ref)
		if err != nil {
			return err
		}
		if err := validate(c.Definition(), data); err != nil {
			return err
		}
		for _, r := range c.Rows() {
			if r.ID == rowID {
				before = r
				break
			}
		}
		row, err = c.Edit(ctx, rowID, data)
		return err
	})
	if err != nil {
		return Row{}, err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionRowUpdate, Ref: ref, RowID: rowID, Old: before.Data, New: row.Data})
	return row, nil
}

// DeleteRow removes a row.
func (s *Service) DeleteRow(ctx context.Context, ref TableRef, rowID string) error {
	var before Row
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		unlock := s.lockTable(ref)
		defer unlock()

		def, err := MustGet(ref.Section, ref.Table)
		if err != nil {
			return err
		}
		if err := s.requireProject(ctx, ref.ProjectID); err != nil {
			return err
		}
		before, err = s.store.GetRow(ctx, ref, rowID)
		if err != nil {
			return err
		}
		c := NewTableController(def, &storeTableAdapter{store: s.store, ref: ref}, WithRows([]Row{before}))
		return c.Delete(ctx, rowID)
	})
	if err != nil {
		return err
	}

	s.LogAudit(ctx, AuditLogParams{Action: ActionRowDelete, Ref: ref, RowID: rowID, Old: before.Data})
	return nil
}

// BatchEditRows applies several row edits in parallel, best-effort.
// Every edit gets its own result; failed edits do not undo successful ones.
func (s *Service) BatchEditRows(ctx context.Context, ref TableRef, edits []BatchEdit) ([]BatchResult, error) {
	var results []BatchResult
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		unlock := s.lockTable(ref)
		defer unlock()

		c, err := s.controller(ctx, ref)
		if err != nil {
			return err
		}

		valid := make([]BatchEdit, 0, len(edits))
		invalid := make(map[int]error)
		for i, e := range edits {
			if err := validate(c.Definition(), e.Data); err != nil {
				invalid[i] = err
				continue
			}
			valid = append(valid, e)
		}

		ran := c.EditMany(ctx, valid, s.cfg.BatchParallelism)
		results = make([]BatchResult, len(edits))
		next := 0
		for i, e := range edits {
			if err, bad := invalid[i]; bad {
				results[i] = BatchResult{RowID: e.RowID, Err: err}
				continue
			}
			results[i] = ran[next]
			next++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	succeeded := len(results) - BatchFailures(results)
	if succeeded > 0 {
		s.LogAudit(ctx, AuditLogParams{Action: ActionBatchEdit, Ref: ref, RowsAffected: succeeded})
	}
	return results, nil
}

// SaveEntry upserts a single entry.
func (s *Service) SaveEntry(ctx context.Context, entry SingleEntry) (SingleEntry, error) {
	if entry.ImageData != nil && int64(len(*entry.ImageData)) > s.cfg.MaxImageBytes*4/3+64 {
		return SingleEntry{}, fmt.Errorf("%w: limit is %d bytes", ErrImageTooLarge, s.cfg.MaxImageBytes)
	}

	var saved SingleEntry
	var old SingleEntry
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		if err := s.requireProject(ctx, entry.ProjectID); err != nil {
			return err
		}
		c := NewSingleEntryController(&storeEntryAdapter{store: s.store, projectID: entry.ProjectID},
			WithMaxImageBytes(s.cfg.MaxImageBytes))
		if err := c.Load(ctx, entry.Field); err != nil {
			return err
		}
		prev := c.Value(entry.Field)
		old = SingleEntry{Field: entry.Field, Content: prev.Content, ImageData: prev.ImageData}

		c.UpdateContent(entry.Field, entry.Content)
		c.SetImageData(entry.Field, entry.ImageData)
		if !c.IsDirty(entry.Field) {
			saved = SingleEntry{ProjectID: entry.ProjectID, Field: entry.Field, Content: prev.Content, ImageData: prev.ImageData}
			return nil
		}

		var err error
		saved, err = c.Save(ctx, entry.Field)
		return err
	})
	if err != nil {
		return SingleEntry{}, err
	}

	if old.Content != saved.Content || !sameImage(old.ImageData, saved.ImageData) {
		s.LogAudit(ctx, AuditLogParams{
			Action: ActionEntrySave,
			Ref:    TableRef{ProjectID: entry.ProjectID},
			Field:  entry.Field,
			Old:    old.Content,
			New:    saved.Content,
		})
	} else {
		slog.Debug("single entry unchanged", "project_id", entry.ProjectID, "field", entry.Field)
	}
	return saved, nil
}

func sameImage(a, b *string) bool {
	return EntryValue{ImageData: a}.equal(EntryValue{ImageData: b})
}
