// Package main provides planctl, a command-line client for a planbook server.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/planbook/internal/client"
	"github.com/JonMunkholm/planbook/internal/config"
	_ "github.com/JonMunkholm/planbook/internal/core/tables" // Register all tables
)

// Global flag values.
var (
	flagURL     string
	flagAPIKey  string
	flagProject string
	flagTimeout time.Duration
	flagJSON    bool
)

// api is the client for the current invocation, set by PersistentPreRunE.
var api *client.Client

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "planctl edits project plans on a planbook server",
	Long: `planctl reads and edits the tables and free-text entries of a project
plan through the planbook REST API.

Connection settings come from flags, then PLANBOOK_URL, PLANBOOK_API_KEY,
PLANBOOK_PROJECT and PLANBOOK_TIMEOUT (a .env file is honored).`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: connect,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "server address (default: $PLANBOOK_URL or http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&flagAPIKey, "api-key", "", "API key (default: $PLANBOOK_API_KEY)")
	rootCmd.PersistentFlags().StringVarP(&flagProject, "project", "p", "", "project id (default: $PLANBOOK_PROJECT)")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 0, "per-request timeout (default: $PLANBOOK_TIMEOUT or 30s)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(sectionsCmd)
	rootCmd.AddCommand(rowsCmd)
	rootCmd.AddCommand(entryCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(migrateCmd)
}

// connect resolves connection settings and builds the API client.
func connect(cmd *cobra.Command, args []string) error {
	// migrate talks to the database directly
	if cmd.Name() == "migrate" {
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if flagURL != "" {
		cfg.BaseURL = flagURL
	}
	if flagAPIKey != "" {
		cfg.APIKey = flagAPIKey
	}
	if flagProject != "" {
		cfg.Project = flagProject
	}
	if flagTimeout > 0 {
		cfg.Timeout = flagTimeout
	}
	flagProject = cfg.Project

	api, err = client.New(cfg.BaseURL,
		client.WithAPIKey(cfg.APIKey),
		client.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// project returns the selected project or an error naming how to set one.
func project() (string, error) {
	if flagProject == "" {
		return "", fmt.Errorf("no project selected: pass --project or set PLANBOOK_PROJECT")
	}
	return flagProject, nil
}
