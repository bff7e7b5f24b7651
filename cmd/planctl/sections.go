package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List the sections and tables of a plan",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sections, err := api.Sections(cmd.Context())
		if err != nil {
			return fmt.Errorf("list sections: %w", err)
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), sections)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SECTION\tTABLE\tLABEL")
		for _, sec := range sections {
			for _, t := range sec.Tables {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", sec.ID, t.Key, t.Label)
			}
		}
		return tw.Flush()
	},
}
