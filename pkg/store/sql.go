package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS identifier_cache (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at BIGINT NOT NULL
);
`

// SQL stores values in a single table. Works with the sqlite and postgres drivers.
type SQL struct {
	db       *sql.DB
	ttl      time.Duration
	getQuery string
	setQuery string
	now      func() time.Time
}

// OpenSQL opens the database and creates the table if needed
func OpenSQL(ctx context.Context, driver, dsn string, ttl time.Duration) (*SQL, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// One connection keeps :memory: databases alive and serialises writers.
		db.SetMaxOpenConns(1)
	}
	s, err := NewSQL(ctx, db, driver, ttl)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQL wraps an open database
func NewSQL(ctx context.Context, db *sql.DB, driver string, ttl time.Duration) (*SQL, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	s := &SQL{db: db, ttl: ttl, now: time.Now}
	switch driver {
	case "postgres":
		s.getQuery = `SELECT value, updated_at FROM identifier_cache WHERE key = $1`
		s.setQuery = `INSERT INTO identifier_cache (key, value, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	default:
		s.getQuery = `SELECT value, updated_at FROM identifier_cache WHERE key = ?`
		s.setQuery = `INSERT INTO identifier_cache (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	}
	return s, nil
}

func (s *SQL) Get(ctx context.Context, key string) (string, error) {
	var (
		value     string
		updatedAt int64
	)
	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading %s: %w", key, err)
	}
	if s.ttl > 0 && s.now().After(time.Unix(updatedAt, 0).Add(s.ttl)) {
		return "", nil
	}
	return value, nil
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.setQuery, key, value, s.now().Unix()); err != nil {
		return fmt.Errorf("error writing %s: %w", key, err)
	}
	return nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
