package client

import (
	"context"

	"github.com/JonMunkholm/planbook/internal/core"
	"github.com/JonMunkholm/planbook/internal/search"
)

// SearchRegistry registers one pull-based source per catalog table plus one
// for the project's single entries. Every Recompute refetches each source
// over HTTP, so a failing table is logged and skipped while the others
// still answer.
func (c *Client) SearchRegistry(ctx context.Context, projectID string, opts ...search.Option) *search.Registry {
	reg := search.NewRegistry(opts...)

	for _, def := range core.All() {
		adapter := c.Table(core.TableRef{ProjectID: projectID, Section: def.Info.Section, Table: def.Info.Key})
		reg.Register(search.Source{
			ID: def.Info.Section + "/" + def.Info.Key,
			GetItems: func() ([]search.Item, error) {
				rows, err := adapter.Rows(ctx)
				if err != nil {
					return nil, err
				}
				items := make([]search.Item, len(rows))
				for i, row := range rows {
					items[i] = core.RowItem(def, core.LoadRow(def, row))
				}
				return items, nil
			},
		})
	}

	reg.Register(search.Source{
		ID: core.EntrySection,
		GetItems: func() ([]search.Item, error) {
			entries, err := c.ListEntries(ctx, projectID)
			if err != nil {
				return nil, err
			}
			items := make([]search.Item, len(entries))
			for i, e := range entries {
				items[i] = core.EntryItem(e)
			}
			return items, nil
		},
	})

	return reg
}
