package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/planbook/internal/search"
)

var (
	searchAll   bool
	searchLocal bool
)

var searchCmd = &cobra.Command{
	Use:   "search TERM",
	Short: "Search every table and entry of a project",
	Long: `Search prints the matches for TERM across the whole plan. By default the
server runs the query; --local fetches every table and filters here.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchAll, "all", false, "show every match grouped by section")
	searchCmd.Flags().BoolVar(&searchLocal, "local", false, "search client-side")
}

func runSearch(cmd *cobra.Command, args []string) error {
	projectID, err := project()
	if err != nil {
		return err
	}
	term := args[0]
	out := cmd.OutOrStdout()

	var (
		total    int
		preview  []search.Match
		sections []search.Section
	)
	if searchLocal {
		reg := api.SearchRegistry(cmd.Context(), projectID)
		total = len(reg.Recompute(term))
		preview, sections = reg.Preview(), reg.Grouped()
	} else {
		res, err := api.Search(cmd.Context(), projectID, term, searchAll)
		if err != nil {
			return err
		}
		total, preview, sections = res.Total, res.Preview, res.Sections
	}

	if flagJSON {
		if searchAll {
			return printJSON(out, sections)
		}
		return printJSON(out, preview)
	}

	if total == 0 {
		fmt.Fprintf(out, "No matches for %q\n", term)
		return nil
	}
	if searchAll {
		printGrouped(out, sections)
		return nil
	}
	for _, m := range preview {
		fmt.Fprintf(out, "%s › %s  %s\n", m.SectionLabel, m.GroupLabel, m.Label)
	}
	if total > len(preview) {
		fmt.Fprintf(out, "… %s more, use --all\n", plural(total-len(preview), "match"))
	}
	return nil
}

func printGrouped(w io.Writer, sections []search.Section) {
	for _, sec := range sections {
		fmt.Fprintf(w, "%s (%s)\n", sec.Label, plural(sec.Count(), "match"))
		for _, g := range sec.Groups {
			fmt.Fprintf(w, "  %s\n", g.Label)
			for _, m := range g.Matches {
				fmt.Fprintf(w, "    %s\n", m.Label)
			}
		}
	}
}
