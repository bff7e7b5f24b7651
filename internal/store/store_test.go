package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/planbook/internal/core"
)

// runStoreSuite exercises the core.Store contract against any backend.
func runStoreSuite(t *testing.T, s core.Store) {
	t.Run("rows", func(t *testing.T) { testRows(t, s) })
	t.Run("project rows", func(t *testing.T) { testProjectRows(t, s) })
	t.Run("entries", func(t *testing.T) { testEntries(t, s) })
	t.Run("audit", func(t *testing.T) { testAudit(t, s) })
	t.Run("projects", func(t *testing.T) { testProjects(t, s) })
}

func testProjects(t *testing.T, s core.Store) {
	ctx := context.Background()

	created, err := s.CreateProject(ctx, core.Project{ID: "zephyr", Name: "Zephyr Rover"})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = s.CreateProject(ctx, core.Project{ID: "zephyr", Name: "Again"})
	assert.ErrorIs(t, err, core.ErrProjectExists)

	_, err = s.CreateProject(ctx, core.Project{ID: "aurora", Name: "Aurora"})
	require.NoError(t, err)

	got, err := s.GetProject(ctx, "zephyr")
	require.NoError(t, err)
	assert.Equal(t, "Zephyr Rover", got.Name)

	_, err = s.GetProject(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	all, err := s.ListProjects(ctx)
	require.NoError(t, err)
	var ids []string
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	assert.Subset(t, ids, []string{"aurora", "zephyr"})

	ref := core.TableRef{ProjectID: "zephyr", Section: "M9", Table: "risk_mitigation_and_contingency"}
	kept := core.TableRef{ProjectID: "aurora", Section: "M9", Table: "risk_mitigation_and_contingency"}
	for _, r := range []core.TableRef{ref, ref, kept} {
		_, err := s.CreateRow(ctx, r, core.Record{"risk_id": "1"})
		require.NoError(t, err)
	}
	_, err = s.UpsertEntry(ctx, core.SingleEntry{ProjectID: "zephyr", Field: "scope", Content: "Drive"})
	require.NoError(t, err)
	require.NoError(t, s.InsertAudit(ctx, core.AuditEntry{Action: core.ActionRowCreate, Severity: core.SeverityMedium, ProjectID: "zephyr"}))

	purge, err := s.DeleteProject(ctx, "zephyr")
	require.NoError(t, err)
	assert.Equal(t, core.ProjectPurge{Rows: 2, Entries: 1, AuditEntries: 1}, purge)

	_, err = s.GetProject(ctx, "zephyr")
	assert.ErrorIs(t, err, core.ErrNotFound)
	rows, err := s.ListRows(ctx, ref)
	require.NoError(t, err)
	assert.Empty(t, rows)
	entries, err := s.ListEntries(ctx, "zephyr")
	require.NoError(t, err)
	assert.Empty(t, entries)
	audit, err := s.ListAudit(ctx, "zephyr", 10)
	require.NoError(t, err)
	assert.Empty(t, audit)

	rows, err = s.ListRows(ctx, kept)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "other projects are untouched")

	_, err = s.DeleteProject(ctx, "zephyr")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testRows(t *testing.T, s core.Store) {
	ctx := context.Background()
	ref := core.TableRef{ProjectID: "rows-project", Section: "M9", Table: "risk_mitigation_and_contingency"}

	first, err := s.CreateRow(ctx, ref, core.Record{"risk_id": "1", "risk_description": "Supplier delay"})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := s.CreateRow(ctx, ref, core.Record{"risk_id": "2", "risk_description": "Budget overrun"})
	require.NoError(t, err)

	rows, err := s.ListRows(ctx, ref)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID, "rows keep insertion order")
	assert.Equal(t, "Budget overrun", rows[1].Data["risk_description"])

	updated, err := s.UpdateRow(ctx, ref, first.ID, core.Record{"risk_id": "1", "risk_description": "Supplier delay (late)"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)

	got, err := s.GetRow(ctx, ref, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Supplier delay (late)", got.Data["risk_description"])

	other := ref
	other.Table = "risk_management_plan"
	_, err = s.GetRow(ctx, other, first.ID)
	assert.ErrorIs(t, err, core.ErrNotFound, "rows are scoped to their table")

	require.NoError(t, s.DeleteRow(ctx, ref, second.ID))
	assert.ErrorIs(t, s.DeleteRow(ctx, ref, second.ID), core.ErrNotFound)

	_, err = s.UpdateRow(ctx, ref, "missing", core.Record{})
	assert.ErrorIs(t, err, core.ErrNotFound)

	rows, err = s.ListRows(ctx, ref)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	empty, err := s.ListRows(ctx, other)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testProjectRows(t *testing.T, s core.Store) {
	ctx := context.Background()
	risks := core.TableRef{ProjectID: "search-project", Section: "M9", Table: "risk_mitigation_and_contingency"}
	opps := core.TableRef{ProjectID: "search-project", Section: "M10", Table: "opportunity_register"}
	elsewhere := core.TableRef{ProjectID: "other-project", Section: "M9", Table: "risk_mitigation_and_contingency"}

	for _, ref := range []core.TableRef{risks, risks, opps, elsewhere} {
		_, err := s.CreateRow(ctx, ref, core.Record{"remarks": ref.Table})
		require.NoError(t, err)
	}

	byTable, err := s.ListProjectRows(ctx, "search-project")
	require.NoError(t, err)
	assert.Len(t, byTable, 2)
	assert.Len(t, byTable[risks], 2)
	assert.Len(t, byTable[opps], 1)
}

func testEntries(t *testing.T, s core.Store) {
	ctx := context.Background()

	_, err := s.GetEntry(ctx, "entries-project", "scope")
	assert.ErrorIs(t, err, core.ErrNotFound)

	img := "data:image/png;base64,AAAA"
	saved, err := s.UpsertEntry(ctx, core.SingleEntry{ProjectID: "entries-project", Field: "scope", Content: "Build it", ImageData: &img})
	require.NoError(t, err)
	assert.False(t, saved.UpdatedAt.IsZero())

	got, err := s.GetEntry(ctx, "entries-project", "scope")
	require.NoError(t, err)
	assert.Equal(t, "Build it", got.Content)
	require.NotNil(t, got.ImageData)
	assert.Equal(t, img, *got.ImageData)

	_, err = s.UpsertEntry(ctx, core.SingleEntry{ProjectID: "entries-project", Field: "scope", Content: "Build it well"})
	require.NoError(t, err)

	got, err = s.GetEntry(ctx, "entries-project", "scope")
	require.NoError(t, err)
	assert.Equal(t, "Build it well", got.Content)
	assert.Nil(t, got.ImageData, "a nil image clears the stored one")

	_, err = s.UpsertEntry(ctx, core.SingleEntry{ProjectID: "entries-project", Field: "assumptions", Content: "None"})
	require.NoError(t, err)

	all, err := s.ListEntries(ctx, "entries-project")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "assumptions", all[0].Field)
}

func testAudit(t *testing.T, s core.Store) {
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, action := range []core.AuditAction{core.ActionRowCreate, core.ActionRowUpdate, core.ActionRowDelete} {
		require.NoError(t, s.InsertAudit(ctx, core.AuditEntry{
			Action:    action,
			Severity:  core.SeverityMedium,
			ProjectID: "audit-project",
			Section:   "M9",
			TableKey:  "risk_mitigation_and_contingency",
			RowID:     "row-1",
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	entries, err := s.ListAudit(ctx, "audit-project", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, core.ActionRowDelete, entries[0].Action, "newest first")
	assert.NotEmpty(t, entries[0].ID)

	purged, err := s.PurgeAudit(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, purged)

	entries, err = s.ListAudit(ctx, "audit-project", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, core.ActionRowDelete, entries[0].Action)
}
