package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/planbook/internal/client"
	"github.com/JonMunkholm/planbook/internal/core"
)

var (
	rowsTerm string
	rowsSort string
	rowsDesc bool
	rowsYes  bool
)

var rowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "Read and edit table rows",
}

var rowsListCmd = &cobra.Command{
	Use:   "list SECTION TABLE",
	Short: "List the rows of a table",
	Long: `List prints every row of a table, optionally filtered and sorted.

Example:
  planctl rows list M9 risk_mitigation_and_contingency --q supplier --sort risk_id --desc`,
	Args: cobra.ExactArgs(2),
	RunE: runRowsList,
}

var rowsAddCmd = &cobra.Command{
	Use:   "add SECTION TABLE [KEY=VALUE...]",
	Short: "Add a row",
	Long: `Add opens a new row with sequential IDs pre-filled, applies the given
values and saves it. Duplicate keys are rejected before anything is sent.

Example:
  planctl rows add M9 risk_mitigation_and_contingency risk_description="Supplier delay" probability=0.5 impact=4`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRowsAdd,
}

var rowsEditCmd = &cobra.Command{
	Use:   "edit SECTION TABLE ROW_ID KEY=VALUE...",
	Short: "Edit a row",
	Args:  cobra.MinimumNArgs(4),
	RunE:  runRowsEdit,
}

var rowsDeleteCmd = &cobra.Command{
	Use:   "delete SECTION TABLE ROW_ID",
	Short: "Delete a row after confirmation",
	Args:  cobra.ExactArgs(3),
	RunE:  runRowsDelete,
}

var rowsNextIDCmd = &cobra.Command{
	Use:   "next-id SECTION TABLE",
	Short: "Show the next sequential IDs of a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, _, err := tableArgs(args)
		if err != nil {
			return err
		}
		next, err := api.NextIDs(cmd.Context(), ref)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), next)
	},
}

func init() {
	rowsListCmd.Flags().StringVar(&rowsTerm, "q", "", "only rows containing this text")
	rowsListCmd.Flags().StringVar(&rowsSort, "sort", "", "column key to sort by")
	rowsListCmd.Flags().BoolVar(&rowsDesc, "desc", false, "sort descending")
	rowsDeleteCmd.Flags().BoolVarP(&rowsYes, "yes", "y", false, "skip the confirmation prompt")

	rowsCmd.AddCommand(rowsListCmd)
	rowsCmd.AddCommand(rowsAddCmd)
	rowsCmd.AddCommand(rowsEditCmd)
	rowsCmd.AddCommand(rowsDeleteCmd)
	rowsCmd.AddCommand(rowsNextIDCmd)
}

// tableArgs resolves SECTION TABLE against the catalog.
func tableArgs(args []string) (core.TableRef, core.TableDefinition, error) {
	projectID, err := project()
	if err != nil {
		return core.TableRef{}, core.TableDefinition{}, err
	}
	def, err := core.MustGet(args[0], args[1])
	if err != nil {
		return core.TableRef{}, core.TableDefinition{}, err
	}
	return core.TableRef{ProjectID: projectID, Section: def.Info.Section, Table: def.Info.Key}, def, nil
}

// parseAssignments turns KEY=VALUE arguments into a record, rejecting keys
// the table does not have.
func parseAssignments(def core.TableDefinition, args []string) (core.Record, error) {
	known := make(map[string]bool, len(def.Columns))
	for _, col := range def.Columns {
		known[col.Key] = true
	}

	rec := make(core.Record, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("expected KEY=VALUE, got %q", arg)
		}
		if !known[key] {
			return nil, fmt.Errorf("%s has no column %q", def.Info.Label, key)
		}
		rec[key] = value
	}
	return rec, nil
}

func controller(cmd *cobra.Command, ref core.TableRef, opts ...core.ControllerOption) (*core.TableController, error) {
	ctrl, err := api.Table(ref).Controller(cmd.Context(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load %s/%s: %w", ref.Section, ref.Table, err)
	}
	return ctrl, nil
}

func runRowsList(cmd *cobra.Command, args []string) error {
	ref, def, err := tableArgs(args)
	if err != nil {
		return err
	}
	ctrl, err := controller(cmd, ref)
	if err != nil {
		return err
	}

	ctrl.SetSearchTerm(rowsTerm)
	if rowsSort != "" {
		ctrl.Sort(rowsSort)
		if rowsDesc {
			ctrl.Sort(rowsSort)
		}
	}

	rows := ctrl.View()
	if flagJSON {
		if rows == nil {
			rows = []core.Row{}
		}
		return printJSON(cmd.OutOrStdout(), rows)
	}
	return printRows(cmd.OutOrStdout(), def, rows)
}

func runRowsAdd(cmd *cobra.Command, args []string) error {
	ref, def, err := tableArgs(args)
	if err != nil {
		return err
	}
	values, err := parseAssignments(def, args[2:])
	if err != nil {
		return err
	}
	ctrl, err := controller(cmd, ref)
	if err != nil {
		return err
	}

	if _, err := ctrl.OpenAdd(); err != nil {
		return err
	}
	for _, col := range def.Columns {
		if v, ok := values[col.Key]; ok {
			ctrl.UpdateDraft(col.Key, v)
		}
	}
	row, err := ctrl.SubmitAdd(cmd.Context())
	if err != nil {
		return describe(err)
	}
	return printRow(cmd.OutOrStdout(), def, row)
}

func runRowsEdit(cmd *cobra.Command, args []string) error {
	ref, def, err := tableArgs(args)
	if err != nil {
		return err
	}
	values, err := parseAssignments(def, args[3:])
	if err != nil {
		return err
	}
	ctrl, err := controller(cmd, ref)
	if err != nil {
		return err
	}

	if _, err := ctrl.StartEdit(args[2]); err != nil {
		return err
	}
	for _, col := range def.Columns {
		if v, ok := values[col.Key]; ok {
			if _, err := ctrl.UpdateEdit(col.Key, v); err != nil {
				return err
			}
		}
	}
	row, err := ctrl.SaveEdit(cmd.Context())
	if err != nil {
		return describe(err)
	}
	return printRow(cmd.OutOrStdout(), def, row)
}

func runRowsDelete(cmd *cobra.Command, args []string) error {
	ref, _, err := tableArgs(args)
	if err != nil {
		return err
	}
	ctrl, err := controller(cmd, ref, core.WithConfirmer(promptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr(), rowsYes)))
	if err != nil {
		return err
	}

	err = ctrl.Delete(cmd.Context(), args[2])
	if errors.Is(err, core.ErrDeleteCancelled) {
		fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
		return nil
	}
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted row %s\n", args[2])
	return nil
}

// promptConfirmer asks on out and reads y/yes from in. assumeYes skips the prompt.
func promptConfirmer(in io.Reader, out io.Writer, assumeYes bool) core.Confirmer {
	return core.ConfirmFunc(func(_ context.Context, prompt string) bool {
		if assumeYes {
			return true
		}
		fmt.Fprintf(out, "%s [y/N] ", prompt)
		line, _ := bufio.NewReader(in).ReadString('\n')
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	})
}

func printRow(w io.Writer, def core.TableDefinition, row core.Row) error {
	if flagJSON {
		return printJSON(w, row)
	}
	return printRecord(w, def, row.ID, row.Data)
}

// describe swaps locally raised errors for their catalog message, keeping
// the original in the chain. Server errors already carry one.
func describe(err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) || !core.IsUserFacing(err) {
		return err
	}
	var dup *core.DuplicateError
	if errors.As(err, &dup) {
		return err
	}
	return core.NewUserError(err)
}
