package measurement

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// Supported database/sql driver names.
const (
	DriverPgx    = "pgx"
	DriverDuckDB = "duckdb"
)

// DBConfig holds connection parameters for the measurement store.
type DBConfig struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	PingTimeout  time.Duration
}

// Open connects to the measurement store and verifies it with a ping.
func Open(ctx context.Context, cfg DBConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case DriverPgx, DriverDuckDB:
	default:
		return nil, fmt.Errorf("unsupported measurement driver %q", cfg.Driver)
	}
	if cfg.DSN == "" && cfg.Driver == DriverPgx {
		return nil, fmt.Errorf("measurement dsn is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open measurement db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping measurement db: %w", err)
	}

	return db, nil
}
