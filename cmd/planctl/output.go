package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jinzhu/inflection"
	"golang.org/x/term"

	"github.com/JonMunkholm/planbook/internal/core"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRows renders rows as an aligned table using the display formatting
// of the editor: derived values computed, dates formatted, blanks dashed.
func printRows(w io.Writer, def core.TableDefinition, rows []core.Row) error {
	width := cellWidth(w, len(def.Columns)+1)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := []string{"ID"}
	for _, col := range def.Columns {
		header = append(header, strings.ToUpper(col.Label))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, row := range rows {
		cells := []string{row.ID}
		for _, col := range def.Columns {
			cells = append(cells, truncate(oneLine(core.DisplayValue(col, row.Data[col.Key], row.Data)), width))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// printRecord renders one record as label: value lines.
func printRecord(w io.Writer, def core.TableDefinition, id string, data core.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if id != "" {
		fmt.Fprintf(tw, "ID\t%s\n", id)
	}
	for _, col := range def.Columns {
		fmt.Fprintf(tw, "%s\t%s\n", col.Label, oneLine(core.DisplayValue(col, data[col.Key], data)))
	}
	return tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cellWidth spreads the terminal width over n columns. Output that is not
// a terminal gets 0, meaning no truncation.
func cellWidth(w io.Writer, n int) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 {
		return 60
	}
	return max(12, cols/max(n, 1))
}

func truncate(s string, width int) string {
	if r := []rune(s); width > 0 && len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return s
}

// plural formats a count with its noun, e.g. "1 row" or "3 rows".
func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %s", n, inflection.Plural(noun))
}
