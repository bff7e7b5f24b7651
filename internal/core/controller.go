package core

// controller.go implements the interactive state of one table view.
//
// A TableController holds the rows it was last given, the sort and search
// state, column visibility, the add-row draft and at most one active row
// editor. It never persists anything itself: writes go through the
// TableAdapter supplied by the caller, and adapter errors are returned
// unchanged.
//
// Only one row can be edited at a time. Starting an edit on a different row
// while one is open fails with ErrEditInProgress; the caller must save or
// cancel first.

import (
	"context"
	"fmt"
	"sync"
)

// Confirmer resolves a confirmation request raised by the controller,
// such as "delete this row?". Returning false cancels the operation.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// AlwaysConfirm accepts every confirmation. Used by non-interactive callers.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, string) bool { return true })

// ControllerOption configures a TableController.
type ControllerOption func(*TableController)

// WithConfirmer sets how delete confirmations are resolved.
func WithConfirmer(c Confirmer) ControllerOption {
	return func(tc *TableController) {
		tc.confirm = c
	}
}

// WithRows seeds the controller with rows.
func WithRows(rows []Row) ControllerOption {
	return func(tc *TableController) {
		tc.setRowsLocked(rows)
	}
}

// TableController is the state machine behind one table view.
// It is safe for concurrent use.
type TableController struct {
	mu      sync.Mutex
	def     TableDefinition
	adapter TableAdapter
	confirm Confirmer

	rows   []Row
	sort   SortState
	term   string
	hidden map[string]bool

	addOpen bool
	draft   Record

	editingID string
	editDraft Record
}

// NewTableController creates a controller for def that persists through adapter.
func NewTableController(def TableDefinition, adapter TableAdapter, opts ...ControllerOption) *TableController {
	tc := &TableController{
		def:     def,
		adapter: adapter,
		confirm: AlwaysConfirm,
		hidden:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(tc)
	}
	return tc
}

// Definition returns the table definition the controller was built with.
func (c *TableController) Definition() TableDefinition {
	return c.def
}

// SetRows replaces the controller's rows, typically after a refetch.
// Derived columns are recomputed on load.
func (c *TableController) SetRows(rows []Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setRowsLocked(rows)
}

func (c *TableController) setRowsLocked(rows []Row) {
	c.rows = make([]Row, len(rows))
	for i, r := range rows {
		c.rows[i] = LoadRow(c.def, r)
	}
}

// Rows returns a copy of the current rows in load order.
func (c *TableController) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Row(nil), c.rows...)
}

// RowCount returns the number of rows currently held.
func (c *TableController) RowCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

// =============================================================================
// Sort, filter and visibility
// =============================================================================

// Sort toggles sorting by the column key and returns the new state.
func (c *TableController) Sort(key string) SortState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sort = c.sort.Toggle(key)
	return c.sort
}

// SortState returns the current sort.
func (c *TableController) SortState() SortState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sort
}

// SetSearchTerm sets the filter term.
func (c *TableController) SetSearchTerm(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.term = term
}

// SearchTerm returns the current filter term as entered.
func (c *TableController) SearchTerm() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.term
}

// View returns the rows to display: filtered by the search term, then sorted.
func (c *TableController) View() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ApplyView(c.def, c.rows, c.term, c.sort)
}

// ToggleColumn flips the visibility of a column and reports whether it is
// now visible. Hiding the last visible column is a no-op.
func (c *TableController) ToggleColumn(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.def.Column(key); !ok {
		return false
	}
	if c.hidden[key] {
		delete(c.hidden, key)
		return true
	}
	if c.visibleCountLocked() <= 1 {
		return true
	}
	c.hidden[key] = true
	return false
}

// ShowAllColumns makes every column visible again.
func (c *TableController) ShowAllColumns() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hidden = make(map[string]bool)
}

// IsColumnVisible reports whether a column is shown.
func (c *TableController) IsColumnVisible(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.hidden[key]
}

// VisibleColumns returns the shown columns in definition order.
func (c *TableController) VisibleColumns() []Column {
	c.mu.Lock()
	defer c.mu.Unlock()

	cols := make([]Column, 0, len(c.def.Columns))
	for _, col := range c.def.Columns {
		if !c.hidden[col.Key] {
			cols = append(cols, col)
		}
	}
	return cols
}

func (c *TableController) visibleCountLocked() int {
	n := 0
	for _, col := range c.def.Columns {
		if !c.hidden[col.Key] {
			n++
		}
	}
	return n
}

// =============================================================================
// Add
// =============================================================================

// CanAdd reports whether another row may be added. When the table is full
// the configured ceiling message is returned.
func (c *TableController) CanAdd() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.rowLimitLocked(); err != nil {
		return false, err.Error()
	}
	return true, ""
}

func (c *TableController) rowLimitLocked() error {
	if c.def.Info.MaxRows > 0 && len(c.rows) >= c.def.Info.MaxRows {
		return &RowLimitError{MaxRows: c.def.Info.MaxRows, Message: c.def.Info.MaxRowsMessage}
	}
	return nil
}

// OpenAdd opens the add-row form and returns its initial draft with
// sequential identifier columns prefilled. Fails with a *RowLimitError
// when the table is full.
func (c *TableController) OpenAdd() (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.rowLimitLocked(); err != nil {
		return nil, err
	}
	c.draft = Derive(c.def, NextSequentialIDs(c.def, c.rows))
	c.addOpen = true
	return c.draft.Clone(), nil
}

// IsAddOpen reports whether the add-row form is open.
func (c *TableController) IsAddOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addOpen
}

// CloseAdd closes the add-row form and discards its draft.
func (c *TableController) CloseAdd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addOpen = false
	c.draft = nil
}

// UpdateDraft applies one field change to the add-row draft.
func (c *TableController) UpdateDraft(key string, raw Value) Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		c.draft = make(Record)
	}
	c.draft = ApplyFieldChange(c.def, c.draft, key, raw)
	return c.draft.Clone()
}

// SubmitAdd adds the current draft.
func (c *TableController) SubmitAdd(ctx context.Context) (Row, error) {
	c.mu.Lock()
	draft := c.draft.Clone()
	c.mu.Unlock()
	return c.Add(ctx, draft)
}

// Add runs the write pipeline on payload and hands it to the adapter.
// On success the add form is closed and the new row is appended; on a
// duplicate or adapter error nothing changes.
func (c *TableController) Add(ctx context.Context, payload Record) (Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.rowLimitLocked(); err != nil {
		return Row{}, err
	}

	prepared := FillEmptyWithDash(c.def, PreparePayload(c.def, payload))
	if err := CheckDuplicate(c.def, prepared, c.rows, ""); err != nil {
		return Row{}, err
	}

	row, err := c.adapter.AddRow(ctx, prepared)
	if err != nil {
		return Row{}, err
	}

	row = LoadRow(c.def, row)
	c.rows = append(c.rows, row)
	c.addOpen = false
	c.draft = nil
	return row, nil
}

// =============================================================================
// Edit
// =============================================================================

// StartEdit opens the row editor on rowID and returns its draft.
// Starting the edit already in progress is a no-op.
func (c *TableController) StartEdit(rowID string) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.editingID != "" {
		if c.editingID == rowID {
			return c.editDraft.Clone(), nil
		}
		return nil, fmt.Errorf("%w: row %s", ErrEditInProgress, c.editingID)
	}

	idx := c.indexLocked(rowID)
	if idx < 0 {
		return nil, fmt.Errorf("row %s: %w", rowID, ErrNotFound)
	}

	c.editingID = rowID
	c.editDraft = c.rows[idx].Data.Clone()
	return c.editDraft.Clone(), nil
}

// EditingRowID returns the row being edited, or "".
func (c *TableController) EditingRowID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID
}

// UpdateEdit applies one field change to the active row editor.
func (c *TableController) UpdateEdit(key string, raw Value) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.editingID == "" {
		return nil, ErrNotEditing
	}
	c.editDraft = ApplyFieldChange(c.def, c.editDraft, key, raw)
	return c.editDraft.Clone(), nil
}

// CancelEdit closes the row editor without saving.
func (c *TableController) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editingID = ""
	c.editDraft = nil
}

// SaveEdit saves the active row editor. The editor stays open on failure.
func (c *TableController) SaveEdit(ctx context.Context) (Row, error) {
	c.mu.Lock()
	id, draft := c.editingID, c.editDraft.Clone()
	c.mu.Unlock()

	if id == "" {
		return Row{}, ErrNotEditing
	}

	row, err := c.Edit(ctx, id, draft)
	if err != nil {
		return Row{}, err
	}

	c.mu.Lock()
	if c.editingID == id {
		c.editingID = ""
		c.editDraft = nil
	}
	c.mu.Unlock()
	return row, nil
}

// Edit runs the write pipeline on payload for an existing row and hands it
// to the adapter. The row itself is excluded from the duplicate check.
func (c *TableController) Edit(ctx context.Context, rowID string, payload Record) (Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prepared, err := prepareEdit(c.def, c.rows, rowID, payload)
	if err != nil {
		return Row{}, err
	}

	row, err := c.adapter.EditRow(ctx, rowID, prepared)
	if err != nil {
		return Row{}, err
	}

	row = LoadRow(c.def, row)
	c.replaceLocked(row)
	return row, nil
}

// prepareEdit runs the edit pipeline on payload and checks it against rows,
// ignoring rowID itself.
func prepareEdit(def TableDefinition, rows []Row, rowID string, payload Record) (Record, error) {
	if rowIndex(rows, rowID) < 0 {
		return nil, fmt.Errorf("row %s: %w", rowID, ErrNotFound)
	}
	prepared := PreparePayload(def, payload)
	if err := CheckDuplicate(def, prepared, rows, rowID); err != nil {
		return nil, err
	}
	return prepared, nil
}

// =============================================================================
// Delete
// =============================================================================

// Delete asks for confirmation, then deletes the row through the adapter.
func (c *TableController) Delete(ctx context.Context, rowID string) error {
	if !c.confirm.Confirm(ctx, fmt.Sprintf("Delete row %s from %s?", rowID, c.def.Info.Label)) {
		return ErrDeleteCancelled
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.adapter.DeleteRow(ctx, rowID); err != nil {
		return err
	}

	if idx := c.indexLocked(rowID); idx >= 0 {
		c.rows = append(c.rows[:idx], c.rows[idx+1:]...)
	}
	if c.editingID == rowID {
		c.editingID = ""
		c.editDraft = nil
	}
	return nil
}

func (c *TableController) indexLocked(rowID string) int {
	return rowIndex(c.rows, rowID)
}

func rowIndex(rows []Row, rowID string) int {
	for i, r := range rows {
		if r.ID == rowID {
			return i
		}
	}
	return -1
}

func (c *TableController) replaceLocked(row Row) {
	if idx := c.indexLocked(row.ID); idx >= 0 {
		c.rows[idx] = row
		return
	}
	c.rows = append(c.rows, row)
}
