// Package importer loads table rows from CSV files.
//
// Every row goes through a core.TableController, so imported rows are
// sanitized, derived and checked for duplicates exactly like rows typed
// into the editor. Rows that fail are collected with the reason rather
// than aborting the import.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/planbook/internal/core"
)

// ContextCheckInterval is how often (in rows) to check for cancellation.
var ContextCheckInterval = 100

// HeaderSearchRows bounds how far down the file the header row may sit.
// Exports often carry a title or blank lines above the header.
var HeaderSearchRows = 10

// ErrNoHeader is returned when no row names any column of the table.
var ErrNoHeader = errors.New("no header row found")

// HeaderIndex maps a column key to its position in the CSV row.
type HeaderIndex map[string]int

// Result summarizes an import.
type Result struct {
	Imported []core.Row
	// Failed holds the header with a leading Status column, then one line
	// per rejected row prefixed with the reason.
	Failed [][]string
}

// FailedCount returns the number of rejected rows.
func (r Result) FailedCount() int {
	if len(r.Failed) == 0 {
		return 0
	}
	return len(r.Failed) - 1
}

// Import reads CSV from r and adds each data row through ctrl.
// Blank sequential IDs are allocated. A row limit stops the import with
// the remaining rows reported as failed.
func Import(ctx context.Context, ctrl *core.TableController, r io.Reader) (Result, error) {
	def := ctrl.Definition()

	records, lines, err := readAll(r)
	if err != nil {
		return Result{}, err
	}

	headerRow, idx, err := FindHeader(def, records)
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.Failed = [][]string{append([]string{"Status"}, records[headerRow]...)}
	fail := func(line int, reason string, row []string) {
		res.Failed = append(res.Failed, append([]string{fmt.Sprintf("line %d: %s", line, reason)}, row...))
	}

	sequential := core.SequentialColumns(def)
	for i := headerRow + 1; i < len(records); i++ {
		row, line := records[i], lines[i]

		if (i-headerRow-1)%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("import cancelled at line %d: %w", line, err)
			}
		}
		if isEmpty(row) {
			continue
		}

		rec := BuildRecord(def, idx, row)
		for _, key := range sequential {
			if core.IsBlank(rec[key]) {
				rec[key] = core.NextSequentialID(ctrl.Rows(), key)
			}
		}

		added, err := ctrl.Add(ctx, rec)
		if err != nil {
			fail(line, err.Error(), row)
			if errors.Is(err, core.ErrRowLimit) {
				for j := i + 1; j < len(records); j++ {
					if !isEmpty(records[j]) {
						fail(lines[j], "not imported", records[j])
					}
				}
				break
			}
			continue
		}
		res.Imported = append(res.Imported, added)
	}
	return res, nil
}

// FindHeader locates the row naming the most table columns among the
// first HeaderSearchRows rows. Cells match a column's key or label.
func FindHeader(def core.TableDefinition, records [][]string) (int, HeaderIndex, error) {
	names := make(map[string]string, 2*len(def.Columns))
	for _, col := range def.Columns {
		names[CleanHeader(col.Key)] = col.Key
		if col.Label != "" {
			names[CleanHeader(col.Label)] = col.Key
		}
	}

	best, bestIdx := -1, HeaderIndex(nil)
	for i := 0; i < len(records) && i < HeaderSearchRows; i++ {
		idx := MakeHeaderIndex(records[i], names)
		if len(idx) > len(bestIdx) {
			best, bestIdx = i, idx
		}
	}
	if best < 0 {
		return 0, nil, fmt.Errorf("%w for %s", ErrNoHeader, def.Info.Label)
	}
	return best, bestIdx, nil
}

// MakeHeaderIndex maps column keys to positions in header. names maps a
// cleaned header cell to its column key. Later duplicates are ignored.
func MakeHeaderIndex(header []string, names map[string]string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key, ok := names[CleanHeader(h)]
		if !ok {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// CleanHeader normalizes a header cell: BOM and spreadsheet formula
// artifacts removed, underscores as spaces, lowercased.
func CleanHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "=")
	s = strings.Trim(s, `"`)
	s = strings.ReplaceAll(s, "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// BuildRecord picks the mapped cells out of row. Derived columns are
// skipped; the controller recomputes them.
func BuildRecord(def core.TableDefinition, idx HeaderIndex, row []string) core.Record {
	rec := make(core.Record, len(idx))
	for _, col := range def.Columns {
		if col.IsDerived() {
			continue
		}
		pos, ok := idx[col.Key]
		if !ok || pos >= len(row) {
			continue
		}
		if v := core.CleanCell(row[pos]); v != "" {
			rec[col.Key] = v
		}
	}
	return rec
}

// readAll reads every record with the file line it starts on.
// Blank lines are skipped by the reader, so positions and lines differ.
func readAll(r io.Reader) ([][]string, []int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

// WriteFailures writes the failed rows as CSV.
func WriteFailures(w io.Writer, res Result) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(res.Failed); err != nil {
		return fmt.Errorf("write failures: %w", err)
	}
	return nil
}

func isEmpty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
