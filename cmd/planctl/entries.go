package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/planbook/internal/core"
)

var (
	entryContent    string
	entryImage      string
	entryClearImage bool
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Read and edit free-text plan entries",
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := project()
		if err != nil {
			return err
		}
		entries, err := api.ListEntries(cmd.Context(), projectID)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		width := cellWidth(cmd.OutOrStdout(), 2)
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", e.Field, truncate(oneLine(e.Content), width))
		}
		return nil
	},
}

var entryGetCmd = &cobra.Command{
	Use:   "get FIELD",
	Short: "Print one entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := project()
		if err != nil {
			return err
		}
		entry, err := api.GetEntry(cmd.Context(), projectID, args[0])
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd.OutOrStdout(), entry)
		}
		fmt.Fprintln(cmd.OutOrStdout(), entry.Content)
		if entry.ImageData != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "[image: %d bytes encoded]\n", len(*entry.ImageData))
		}
		return nil
	},
}

var entrySetCmd = &cobra.Command{
	Use:   "set FIELD",
	Short: "Update an entry's text or image",
	Long: `Set loads the entry, applies the changes and saves it when anything
differs from the stored value.

Example:
  planctl entry set project_scope --content "Deliver the lunar lander"
  planctl entry set org_chart --image chart.png`,
	Args: cobra.ExactArgs(1),
	RunE: runEntrySet,
}

func init() {
	entrySetCmd.Flags().StringVar(&entryContent, "content", "", "new text")
	entrySetCmd.Flags().StringVar(&entryImage, "image", "", "image file to attach")
	entrySetCmd.Flags().BoolVar(&entryClearImage, "clear-image", false, "remove the attached image")
	entrySetCmd.MarkFlagsMutuallyExclusive("image", "clear-image")

	entryCmd.AddCommand(entryListCmd)
	entryCmd.AddCommand(entryGetCmd)
	entryCmd.AddCommand(entrySetCmd)
}

func runEntrySet(cmd *cobra.Command, args []string) error {
	projectID, err := project()
	if err != nil {
		return err
	}
	field := args[0]
	ctx := cmd.Context()

	ctrl := core.NewSingleEntryController(api.Entries(projectID))
	if err := ctrl.Load(ctx, field); err != nil {
		return err
	}

	if cmd.Flags().Changed("content") {
		ctrl.UpdateContent(field, entryContent)
	}
	switch {
	case entryClearImage:
		if err := ctrl.UpdateImage(ctx, field, nil); err != nil {
			return err
		}
	case entryImage != "":
		f, err := os.Open(entryImage)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		if err := ctrl.UpdateImage(ctx, field, f); err != nil {
			return describe(err)
		}
	}

	if !ctrl.IsDirty(field) {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes")
		return nil
	}
	saved, err := ctrl.Save(ctx, field)
	if err != nil {
		return describe(err)
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), saved)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", saved.Field)
	return nil
}
