package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"socialfeed/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Querier is the subset of database/sql shared by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open creates the connection pool and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	log.Printf("Connecting to database: driver=%s host=%s port=%s user=%s db=%s sslmode=%s",
		cfg.Driver, cfg.Host, cfg.Port, cfg.User, cfg.Name, cfg.SSLMode)

	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	ConfigurePool(db, cfg)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Println("Connected to database successfully")
	return db, nil
}

// ConfigurePool applies pool sizing; non-positive values fall back to defaults.
func ConfigurePool(db *sql.DB, cfg config.DatabaseConfig) {
	db.SetMaxOpenConns(positiveOr(cfg.MaxOpenConns, 25))
	db.SetMaxIdleConns(positiveOr(cfg.MaxIdleConns, 25))
	db.SetConnMaxIdleTime(time.Duration(positiveOr(cfg.ConnMaxIdleMinutes, 5)) * time.Minute)
	db.SetConnMaxLifetime(time.Duration(positiveOr(cfg.ConnMaxLifetimeMinutes, 30)) * time.Minute)
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
