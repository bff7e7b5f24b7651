package client

import (
	"context"

	"github.com/JonMunkholm/planbook/internal/core"
)

// TableAdapter persists one remote table's rows.
type TableAdapter struct {
	c   *Client
	ref core.TableRef
}

var _ core.TableAdapter = (*TableAdapter)(nil)

// Table returns an adapter bound to ref.
func (c *Client) Table(ref core.TableRef) *TableAdapter {
	return &TableAdapter{c: c, ref: ref}
}

// Ref returns the table the adapter is bound to.
func (a *TableAdapter) Ref() core.TableRef {
	return a.ref
}

// Rows fetches the table's current rows.
func (a *TableAdapter) Rows(ctx context.Context) ([]core.Row, error) {
	return a.c.ListRows(ctx, a.ref, ListOptions{})
}

func (a *TableAdapter) AddRow(ctx context.Context, data core.Record) (core.Row, error) {
	return a.c.CreateRow(ctx, a.ref, data)
}

func (a *TableAdapter) EditRow(ctx context.Context, rowID string, data core.Record) (core.Row, error) {
	return a.c.UpdateRow(ctx, a.ref, rowID, data)
}

func (a *TableAdapter) DeleteRow(ctx context.Context, rowID string) error {
	return a.c.DeleteRow(ctx, a.ref, rowID)
}

// Controller loads the table's rows and returns a controller writing
// through this adapter. The definition comes from the local catalog.
func (a *TableAdapter) Controller(ctx context.Context, opts ...core.ControllerOption) (*core.TableController, error) {
	def, err := core.MustGet(a.ref.Section, a.ref.Table)
	if err != nil {
		return nil, err
	}
	rows, err := a.Rows(ctx)
	if err != nil {
		return nil, err
	}
	opts = append([]core.ControllerOption{core.WithRows(rows)}, opts...)
	return core.NewTableController(def, a, opts...), nil
}

// EntryAdapter persists one remote project's single entries.
type EntryAdapter struct {
	c         *Client
	projectID string
}

var _ core.SingleEntryAdapter = (*EntryAdapter)(nil)

// Entries returns an adapter bound to a project.
func (c *Client) Entries(projectID string) *EntryAdapter {
	return &EntryAdapter{c: c, projectID: projectID}
}

func (a *EntryAdapter) GetEntry(ctx context.Context, field string) (core.SingleEntry, error) {
	return a.c.GetEntry(ctx, a.projectID, field)
}

func (a *EntryAdapter) SaveEntry(ctx context.Context, entry core.SingleEntry) (core.SingleEntry, error) {
	return a.c.SaveEntry(ctx, a.projectID, entry)
}
