// Package repository provides PostgreSQL persistence for glucose readings.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/DexWatch/internal/models"
)

// PostgresReadingRepository stores the reading history in PostgreSQL.
type PostgresReadingRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresReadingRepository creates a new PostgresReadingRepository with the given database connection.
// db must be a valid *sql.DB connected to a PostgreSQL instance.
func NewPostgresReadingRepository(db *sql.DB) *PostgresReadingRepository {
	return &PostgresReadingRepository{DB: db}
}

// SaveReading inserts r unless a reading with the same timestamp is already stored.
// It reports whether a new row was written.
func (s *PostgresReadingRepository) SaveReading(ctx context.Context, r models.StoredReading) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO readings (id, poll_id, reading_time, bg, trend, reading_lag)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (reading_time) DO NOTHING
	`, r.ID, r.PollID, r.LastReadingTime, r.BG, int(r.Trend), r.ReadingLag)
	if err != nil {
		return false, fmt.Errorf("SaveReading: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("SaveReading rows: %w", err)
	}
	return rows > 0, nil
}

// LatestReading returns the newest stored reading, or models.ErrNotFound.
func (s *PostgresReadingRepository) LatestReading(ctx context.Context) (models.StoredReading, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT id, poll_id, reading_time, bg, trend, reading_lag
		  FROM readings
		 ORDER BY reading_time DESC
		 LIMIT 1
	`)
	r, err := scanReading(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StoredReading{}, models.ErrNotFound
	}
	if err != nil {
		return models.StoredReading{}, fmt.Errorf("LatestReading: %w", err)
	}
	return r, nil
}

// ListReadings returns up to limit readings, newest first.
func (s *PostgresReadingRepository) ListReadings(ctx context.Context, limit int) ([]models.StoredReading, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, poll_id, reading_time, bg, trend, reading_lag
		  FROM readings
		 ORDER BY reading_time DESC
		 LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ListReadings: %w", err)
	}
	defer rows.Close()

	readings := make([]models.StoredReading, 0, limit)
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListReadings rows: %w", err)
	}
	return readings, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReading(sc scanner) (models.StoredReading, error) {
	var (
		r     models.StoredReading
		trend int
	)
	if err := sc.Scan(&r.ID, &r.PollID, &r.LastReadingTime, &r.BG, &trend, &r.ReadingLag); err != nil {
		return models.StoredReading{}, err
	}
	r.Trend = models.Direction(trend)
	r.TrendEnglish = r.Trend.String()
	return r, nil
}
