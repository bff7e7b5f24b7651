package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryAdapter is an in-memory TableAdapter for controller tests.
type memoryAdapter struct {
	mu      sync.Mutex
	rows    map[string]Record
	nextID  int
	added   []Record
	failOn  map[string]error
	deleted []string
}

func newMemoryAdapter() *memoryAdapter {
	return &memoryAdapter{rows: make(map[string]Record), failOn: make(map[string]error)}
}

func (m *memoryAdapter) AddRow(_ context.Context, data Record) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["add"]; err != nil {
		return Row{}, err
	}
	m.nextID++
	id := fmt.Sprintf("row-%d", m.nextID)
	m.rows[id] = data.Clone()
	m.added = append(m.added, data.Clone())
	return Row{ID: id, Data: data.Clone()}, nil
}

func (m *memoryAdapter) EditRow(_ context.Context, rowID string, data Record) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[rowID]; err != nil {
		return Row{}, err
	}
	m.rows[rowID] = data.Clone()
	return Row{ID: rowID, Data: data.Clone()}, nil
}

func (m *memoryAdapter) DeleteRow(_ context.Context, rowID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, rowID)
	m.deleted = append(m.deleted, rowID)
	return nil
}

func seededController(t *testing.T, opts ...ControllerOption) (*TableController, *memoryAdapter) {
	t.Helper()
	adapter := newMemoryAdapter()
	rows := []Row{
		{ID: "r1", Data: Record{"risk_id": "1", "description": "Supplier delay", "probability": "0.5", "impact": "4"}},
		{ID: "r2", Data: Record{"risk_id": "2", "description": "Budget overrun"}},
	}
	opts = append([]ControllerOption{WithRows(rows)}, opts...)
	return NewTableController(riskDefinition(), adapter, opts...), adapter
}

func TestController_LoadDerives(t *testing.T) {
	c, _ := seededController(t)
	rows := c.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0].Data["risk_exposure"])
}

func TestController_Add(t *testing.T) {
	ctx := context.Background()
	c, adapter := seededController(t)

	draft, err := c.OpenAdd()
	require.NoError(t, err)
	assert.Equal(t, "3", draft["risk_id"])
	assert.True(t, c.IsAddOpen())

	c.UpdateDraft("description", "Vendor lock-in")
	c.UpdateDraft("probability", "0.2")
	draft = c.UpdateDraft("impact", "5")
	assert.Equal(t, "1", draft["risk_exposure"])

	row, err := c.SubmitAdd(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", row.Data["risk_id"])
	assert.False(t, c.IsAddOpen())
	assert.Equal(t, 3, c.RowCount())
	require.Len(t, adapter.added, 1)
	assert.Equal(t, "1", adapter.added[0]["risk_exposure"])
}

func TestController_AddDuplicateKeepsModalOpen(t *testing.T) {
	ctx := context.Background()
	c, adapter := seededController(t)

	_, err := c.OpenAdd()
	require.NoError(t, err)

	_, err = c.Add(ctx, Record{"risk_id": "02 "})
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.True(t, c.IsAddOpen())
	assert.Empty(t, adapter.added)
}

func TestController_AddAdapterErrorPropagates(t *testing.T) {
	ctx := context.Background()
	c, adapter := seededController(t)
	boom := errors.New("backend down")
	adapter.failOn["add"] = boom

	_, err := c.OpenAdd()
	require.NoError(t, err)
	_, err = c.Add(ctx, Record{"risk_id": "9"})
	assert.ErrorIs(t, err, boom)
	assert.True(t, c.IsAddOpen())
	assert.Equal(t, 2, c.RowCount())
}

func TestController_MaxRows(t *testing.T) {
	def := riskDefinition()
	def.Info.MaxRows = 1
	def.Info.MaxRowsMessage = "Only one risk may be recorded."
	c := NewTableController(def, newMemoryAdapter(), WithRows([]Row{{ID: "a", Data: Record{"risk_id": "1"}}}))

	ok, msg := c.CanAdd()
	assert.False(t, ok)
	assert.Equal(t, "Only one risk may be recorded.", msg)

	_, err := c.OpenAdd()
	assert.ErrorIs(t, err, ErrRowLimit)
	assert.EqualError(t, err, "Only one risk may be recorded.")
	assert.False(t, c.IsAddOpen())

	_, err = c.Add(context.Background(), Record{"risk_id": "2"})
	assert.ErrorIs(t, err, ErrRowLimit)
}

func TestController_SingleActiveEditor(t *testing.T) {
	ctx := context.Background()
	c, _ := seededController(t)

	draft, err := c.StartEdit("r1")
	require.NoError(t, err)
	assert.Equal(t, "Supplier delay", draft["description"])

	_, err = c.StartEdit("r1")
	assert.NoError(t, err, "re-entering the same row is a no-op")

	_, err = c.StartEdit("r2")
	assert.ErrorIs(t, err, ErrEditInProgress)

	_, err = c.UpdateEdit("impact", "10")
	require.NoError(t, err)

	row, err := c.SaveEdit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "5", row.Data["risk_exposure"])
	assert.Empty(t, c.EditingRowID())

	_, err = c.StartEdit("r2")
	assert.NoError(t, err)
	c.CancelEdit()
	_, err = c.UpdateEdit("impact", "1")
	assert.ErrorIs(t, err, ErrNotEditing)
	_, err = c.SaveEdit(ctx)
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestController_EditIgnoresOwnRow(t *testing.T) {
	ctx := context.Background()
	c, _ := seededController(t)

	_, err := c.Edit(ctx, "r1", Record{"risk_id": "1", "description": "Supplier delay (updated)"})
	require.NoError(t, err)

	_, err = c.Edit(ctx, "r1", Record{"risk_id": "2"})
	var dup *DuplicateError
	assert.ErrorAs(t, err, &dup)

	_, err = c.Edit(ctx, "missing", Record{"risk_id": "7"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestController_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed", func(t *testing.T) {
		c, adapter := seededController(t)
		_, err := c.StartEdit("r1")
		require.NoError(t, err)

		require.NoError(t, c.Delete(ctx, "r1"))
		assert.Equal(t, []string{"r1"}, adapter.deleted)
		assert.Equal(t, 1, c.RowCount())
		assert.Empty(t, c.EditingRowID())
	})

	t.Run("declined", func(t *testing.T) {
		var prompt string
		decline := ConfirmFunc(func(_ context.Context, p string) bool {
			prompt = p
			return false
		})
		c, adapter := seededController(t, WithConfirmer(decline))

		err := c.Delete(ctx, "r1")
		assert.ErrorIs(t, err, ErrDeleteCancelled)
		assert.Contains(t, prompt, "Risk Register")
		assert.Empty(t, adapter.deleted)
		assert.Equal(t, 2, c.RowCount())
	})
}

func TestController_ColumnVisibility(t *testing.T) {
	def := TableDefinition{Columns: []Column{{Key: "a"}, {Key: "b"}}}
	c := NewTableController(def, newMemoryAdapter())

	assert.False(t, c.ToggleColumn("a"))
	assert.True(t, c.ToggleColumn("b"), "last visible column cannot be hidden")
	assert.Len(t, c.VisibleColumns(), 1)
	assert.True(t, c.IsColumnVisible("b"))

	assert.True(t, c.ToggleColumn("a"))
	assert.Len(t, c.VisibleColumns(), 2)

	c.ToggleColumn("a")
	c.ShowAllColumns()
	assert.Len(t, c.VisibleColumns(), 2)
}

func TestController_ViewComposesFilterAndSort(t *testing.T) {
	c, _ := seededController(t)
	c.Sort("risk_id")
	c.Sort("risk_id")
	assert.True(t, c.SortState().Desc)

	assert.Equal(t, []string{"r2", "r1"}, ids(c.View()))

	c.SetSearchTerm("budget")
	assert.Equal(t, []string{"r2"}, ids(c.View()))
}

func TestController_EditMany(t *testing.T) {
	ctx := context.Background()
	c, adapter := seededController(t)
	boom := errors.New("timeout")
	adapter.failOn["r2"] = boom

	results := c.EditMany(ctx, []BatchEdit{
		{RowID: "r1", Data: Record{"risk_id": "1", "impact": "2", "probability": "0.5"}},
		{RowID: "r2", Data: Record{"risk_id": "2", "description": "changed"}},
		{RowID: "r3", Data: Record{"risk_id": "3"}},
	}, 2)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "1", results[0].Row.Data["risk_exposure"])
	assert.ErrorIs(t, results[1].Err, boom)
	assert.ErrorIs(t, results[2].Err, ErrNotFound)
	assert.Equal(t, 2, BatchFailures(results))

	// Best-effort: the successful edit sticks even though others failed.
	rows := c.Rows()
	assert.Equal(t, "2", rows[0].Data["impact"])
	assert.Equal(t, "Budget overrun", rows[1].Data["description"])
}

func TestController_EditManyRejectsCollisionsWithinBatch(t *testing.T) {
	ctx := context.Background()
	c, adapter := seededController(t)

	results := c.EditMany(ctx, []BatchEdit{
		{RowID: "r1", Data: Record{"risk_id": "9"}},
		{RowID: "r2", Data: Record{"risk_id": "9"}},
	}, 2)

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	var dup *DuplicateError
	require.ErrorAs(t, results[1].Err, &dup)
	assert.Equal(t, []string{"risk_id"}, dup.Fields)

	assert.Equal(t, "9", ValueString(adapter.rows["r1"]["risk_id"]))
	_, written := adapter.rows["r2"]
	assert.False(t, written, "rejected edit must not reach the adapter")

	rows := c.Rows()
	assert.Equal(t, "9", ValueString(rows[0].Data["risk_id"]))
	assert.Equal(t, "2", ValueString(rows[1].Data["risk_id"]))
}

func TestController_EditManySwapsKeysInOrder(t *testing.T) {
	ctx := context.Background()
	c, _ := seededController(t)

	// r1 leaves "1" before r2 claims it.
	results := c.EditMany(ctx, []BatchEdit{
		{RowID: "r1", Data: Record{"risk_id": "3"}},
		{RowID: "r2", Data: Record{"risk_id": "1"}},
	}, 2)
	assert.Zero(t, BatchFailures(results))
}

func TestController_EditManyRepeatedRow(t *testing.T) {
	c, _ := seededController(t)

	results := c.EditMany(context.Background(), []BatchEdit{
		{RowID: "r1", Data: Record{"risk_id": "1", "impact": "2"}},
		{RowID: "r1", Data: Record{"risk_id": "1", "impact": "3"}},
	}, 1)

	assert.NoError(t, results[0].Err)
	var ve ValidationError
	assert.ErrorAs(t, results[1].Err, &ve)
	assert.Equal(t, "2", c.Rows()[0].Data["impact"])
}

func TestController_FillEmptyWithDashOnlyOnAdd(t *testing.T) {
	ctx := context.Background()
	def := riskDefinition()
	def.Info.FillEmptyWithDash = true
	adapter := newMemoryAdapter()
	c := NewTableController(def, adapter)

	row, err := c.Add(ctx, Record{"risk_id": "1", "description": ""})
	require.NoError(t, err)
	assert.Equal(t, DashPlaceholder, row.Data["description"])

	edited, err := c.Edit(ctx, row.ID, Record{"risk_id": "1", "description": "Supplier delay"})
	require.NoError(t, err)
	assert.Equal(t, "Supplier delay", edited.Data["description"])

	cleared, err := c.Edit(ctx, row.ID, Record{"risk_id": "1", "description": ""})
	require.NoError(t, err)
	assert.Equal(t, "", cleared.Data["description"])
	assert.Equal(t, "", adapter.rows[row.ID]["description"])
}
