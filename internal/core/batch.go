package core

// batch.go saves several row edits in parallel.
//
// Batch saves are best-effort: a failed edit does not cancel or roll back
// the others, and the caller receives one result per edit in input order.
// Edits are checked in input order against the table with every earlier
// accepted edit applied, so two edits of one batch cannot claim the same
// unique value. An accepted edit whose adapter call later fails still
// counts for that check.

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchParallelism bounds concurrent adapter calls in EditMany.
const DefaultBatchParallelism = 4

// BatchEdit is one row edit of a batch.
type BatchEdit struct {
	RowID string `json:"id"`
	Data  Record `json:"data"`
}

// BatchResult is the outcome of one BatchEdit.
type BatchResult struct {
	RowID string
	Row   Row
	Err   error
}

// BatchFailures counts the failed results.
func BatchFailures(results []BatchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// EditMany runs Edit's pipeline for every edit and calls the adapter with at
// most parallelism requests in flight. A row may appear only once per batch.
func (c *TableController) EditMany(ctx context.Context, edits []BatchEdit, parallelism int) []BatchResult {
	if parallelism <= 0 {
		parallelism = DefaultBatchParallelism
	}

	results := make([]BatchResult, len(edits))
	prepared := make([]Record, len(edits))

	c.mu.Lock()
	working := make([]Row, len(c.rows))
	copy(working, c.rows)
	seen := make(map[string]bool, len(edits))
	for i, e := range edits {
		results[i].RowID = e.RowID
		if seen[e.RowID] {
			results[i].Err = ValidationError{Field: "id", Value: e.RowID, Message: fmt.Sprintf("row %s appears more than once in the batch", e.RowID)}
			continue
		}
		seen[e.RowID] = true

		p, err := prepareEdit(c.def, working, e.RowID, e.Data)
		if err != nil {
			results[i].Err = err
			continue
		}
		prepared[i] = p
		working[rowIndex(working, e.RowID)] = Row{ID: e.RowID, Data: p}
	}
	c.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i := range edits {
		if results[i].Err != nil {
			continue
		}
		g.Go(func() error {
			row, err := c.adapter.EditRow(ctx, edits[i].RowID, prepared[i])
			if err != nil {
				slog.Warn("batch edit failed",
					"table", c.def.Info.Key,
					"row_id", edits[i].RowID,
					"error", err,
				)
				results[i].Err = err
				return nil
			}
			results[i].Row = LoadRow(c.def, row)
			return nil
		})
	}
	_ = g.Wait()

	c.mu.Lock()
	for _, r := range results {
		if r.Err == nil {
			c.replaceLocked(r.Row)
		}
	}
	c.mu.Unlock()

	return results
}
