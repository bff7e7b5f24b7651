package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent changes to a project",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := project()
		if err != nil {
			return err
		}
		entries, err := api.Audit(cmd.Context(), projectID, auditLimit)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), entries)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tACTION\tTABLE\tROW\tFIELD")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\n",
				e.CreatedAt.Local().Format(time.DateTime), e.Action, e.Section, e.TableKey, e.RowID, e.Field)
		}
		return tw.Flush()
	},
}

func init() {
	auditCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "number of entries")
}
