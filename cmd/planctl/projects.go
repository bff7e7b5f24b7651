package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/planbook/internal/core"
)

var (
	projectName string
	projectYes  bool
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List, create and delete projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every project on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projects, err := api.Projects(cmd.Context())
		if err != nil {
			return fmt.Errorf("list projects: %w", err)
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), projects)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCREATED")
		for _, p := range projects {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Name, p.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var projectsShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := api.GetProject(cmd.Context(), args[0])
		if err != nil {
			return describe(err)
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  created %s\n", p.ID, p.Name, p.CreatedAt.Local().Format("2006-01-02 15:04"))
		return nil
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create ID",
	Short: "Create a project",
	Long: `Create registers a new project. IDs are lowercase letters, digits,
'-' and '_'; the name defaults to the ID.

Example:
  planctl projects create apollo --name "Apollo Guidance Computer"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := api.CreateProject(cmd.Context(), core.Project{ID: args[0], Name: projectName})
		if err != nil {
			return describe(err)
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), p)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created project %s\n", p.ID)
		return nil
	},
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a project with all of its rows, entries and audit log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm := promptConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr(), projectYes)
		if !confirm.Confirm(cmd.Context(), fmt.Sprintf("Delete project %s and everything in it?", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}

		purge, err := api.DeleteProject(cmd.Context(), args[0])
		if err != nil {
			return describe(err)
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), purge)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s: %s, %s\n", args[0],
			plural(int(purge.Rows), "row"), plural(int(purge.Entries), "entry"))
		return nil
	},
}

func init() {
	projectsCreateCmd.Flags().StringVar(&projectName, "name", "", "display name")
	projectsDeleteCmd.Flags().BoolVarP(&projectYes, "yes", "y", false, "skip the confirmation prompt")

	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsShowCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
}
