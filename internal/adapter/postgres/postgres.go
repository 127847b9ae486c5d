// Package postgres stores token documents and the sync ledger in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bodysync/internal/domain"

	_ "github.com/lib/pq"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql *sql.DB
}

var (
	_ domain.BlobStore         = (*DB)(nil)
	_ domain.SyncLogRepository = (*DB)(nil)
)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(4)
	s.SetMaxIdleConns(2)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS token_documents (doc_key TEXT PRIMARY KEY, body BYTEA NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW());",
		"CREATE TABLE IF NOT EXISTS sync_records (id BIGSERIAL PRIMARY KEY, run_id TEXT NOT NULL, day TEXT NOT NULL, measured_at TIMESTAMPTZ NOT NULL, weight_kg DOUBLE PRECISION NOT NULL, action TEXT NOT NULL, created_at TIMESTAMPTZ NOT NULL);",
		"CREATE INDEX IF NOT EXISTS idx_sync_records_created_at ON sync_records(created_at);",
		"CREATE INDEX IF NOT EXISTS idx_sync_records_day ON sync_records(day);",
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
