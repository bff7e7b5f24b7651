package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/planbook/internal/config"
	"github.com/JonMunkholm/planbook/internal/logging"
	"github.com/JonMunkholm/planbook/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Long: `Migrate connects with the server's settings (STORE_DRIVER, DATABASE_URL)
and applies any pending schema migrations. It does not need a running server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

		st, err := store.Open(cmd.Context(), store.Config{
			Driver: cfg.Store.Driver,
			URL:    cfg.Store.URL,
			Pool:   store.PoolConfig{MaxConns: 1, MinConns: 0},
		})
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		defer st.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Schema up to date (%s)\n", st.Dialect())
		return nil
	},
}
