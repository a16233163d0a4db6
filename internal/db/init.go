// Package db bootstraps the PostgreSQL reading history and keeps it trimmed.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL,
    reading_time BIGINT NOT NULL UNIQUE,
    bg INTEGER NOT NULL,
    trend SMALLINT NOT NULL,
    reading_lag BIGINT NOT NULL
);
`

func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}
