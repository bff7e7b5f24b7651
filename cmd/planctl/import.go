package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/planbook/internal/importer"
)

var importFailed string

var rowsImportCmd = &cobra.Command{
	Use:   "import SECTION TABLE FILE",
	Short: "Add rows from a CSV file",
	Long: `Import adds every row of a CSV file to a table. The header row may name
columns by key or label and may sit below a title line. Each row is checked
like a typed-in row; rejected rows are listed with the reason.

Example:
  planctl rows import M9 risk_mitigation_and_contingency risks.csv --failed rejected.csv`,
	Args: cobra.ExactArgs(3),
	RunE: runRowsImport,
}

func init() {
	rowsImportCmd.Flags().StringVar(&importFailed, "failed", "", "write rejected rows to this CSV file")
	rowsCmd.AddCommand(rowsImportCmd)
}

func runRowsImport(cmd *cobra.Command, args []string) error {
	ref, _, err := tableArgs(args)
	if err != nil {
		return err
	}
	f, err := os.Open(args[2])
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	ctrl, err := controller(cmd, ref)
	if err != nil {
		return err
	}
	res, err := importer.Import(cmd.Context(), ctrl, f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported %s, %d rejected\n", plural(len(res.Imported), "row"), res.FailedCount())
	if res.FailedCount() == 0 {
		return nil
	}

	if importFailed == "" {
		for _, row := range res.Failed[1:] {
			fmt.Fprintln(out, "  "+row[0])
		}
		return nil
	}
	w, err := os.Create(importFailed)
	if err != nil {
		return fmt.Errorf("create failures file: %w", err)
	}
	if err := importer.WriteFailures(w, res); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close failures file: %w", err)
	}
	fmt.Fprintf(out, "Rejected rows written to %s\n", importFailed)
	return nil
}
