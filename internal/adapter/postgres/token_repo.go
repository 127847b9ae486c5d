package postgres

import (
	"context"
	"database/sql"
	"errors"

	"bodysync/internal/domain"
)

// Get returns the document stored under key.
func (d *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := d.sql.QueryRowContext(ctx, "SELECT body FROM token_documents WHERE doc_key=$1;", key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return body, err
}

// Put upserts the document stored under key.
func (d *DB) Put(ctx context.Context, key string, data []byte) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO token_documents(doc_key, body, updated_at) VALUES($1, $2, NOW())
		ON CONFLICT (doc_key) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW();`,
		key, data,
	)
	return err
}
