// Package sqlite stores token documents and the sync ledger in a local
// SQLite file, for single-host deployments without PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bodysync/internal/domain"

	_ "modernc.org/sqlite"
)

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	conn *sql.DB
}

var (
	_ domain.BlobStore         = (*DB)(nil)
	_ domain.SyncLogRepository = (*DB)(nil)
)

// New opens the database at dbPath and runs migrations. ":memory:" gives a
// throwaway database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	// One writer; also keeps ":memory:" on a single connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS token_documents (
			doc_key    TEXT PRIMARY KEY,
			body       BLOB NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sync_records (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			day         TEXT NOT NULL,
			measured_at TEXT NOT NULL,
			weight_kg   REAL NOT NULL,
			action      TEXT NOT NULL,
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_records_created_at ON sync_records(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the document stored under key.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := db.conn.QueryRowContext(ctx, `SELECT body FROM token_documents WHERE doc_key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s: %w", key, err)
	}
	return body, nil
}

// Put upserts the document stored under key.
func (db *DB) Put(ctx context.Context, key string, data []byte) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO token_documents (doc_key, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(doc_key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, data, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: put %s: %w", key, err)
	}
	return nil
}

// AddSyncRecord inserts a ledger row.
func (db *DB) AddSyncRecord(ctx context.Context, rec domain.SyncRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO sync_records (run_id, day, measured_at, weight_kg, action, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Day,
		rec.MeasuredAt.UTC().Format(time.RFC3339Nano),
		rec.WeightKg, rec.Action,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: add sync record: %w", err)
	}
	return res.LastInsertId()
}

// ListRecentSyncRecords returns the most recent ledger rows up to limit.
func (db *DB) ListRecentSyncRecords(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, run_id, day, measured_at, weight_kg, action, created_at
		FROM sync_records ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list sync records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SyncRecord, 0, limit)
	for rows.Next() {
		var (
			r                     domain.SyncRecord
			measuredAt, createdAt string
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.Day, &measuredAt, &r.WeightKg, &r.Action, &createdAt); err != nil {
			return nil, err
		}
		if r.MeasuredAt, err = time.Parse(time.RFC3339Nano, measuredAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse measured_at: %w", err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: parse created_at: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
