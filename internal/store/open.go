package store

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and configures a backend.
type Config struct {
	Driver string // "postgres" or "sqlite"
	URL    string // connection string or SQLite file path
	Pool   PoolConfig
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg Config) (*SQLStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql", "pgx":
		return OpenPostgres(ctx, cfg.URL, cfg.Pool)
	case "sqlite", "sqlite3":
		return OpenSQLite(ctx, strings.TrimPrefix(cfg.URL, "sqlite://"))
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
