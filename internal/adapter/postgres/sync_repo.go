package postgres

import (
	"context"
	"time"

	"bodysync/internal/domain"
)

// AddSyncRecord inserts a ledger row.
func (d *DB) AddSyncRecord(ctx context.Context, rec domain.SyncRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO sync_records(run_id, day, measured_at, weight_kg, action, created_at) VALUES($1, $2, $3, $4, $5, $6) RETURNING id;",
		rec.RunID, rec.Day, rec.MeasuredAt.UTC(), rec.WeightKg, rec.Action, rec.CreatedAt.UTC(),
	).Scan(&id)
	return id, err
}

// ListRecentSyncRecords returns the most recent ledger rows up to limit.
func (d *DB) ListRecentSyncRecords(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, run_id, day, measured_at, weight_kg, action, created_at FROM sync_records ORDER BY created_at DESC, id DESC LIMIT $1;", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.SyncRecord, 0, limit)
	for rows.Next() {
		var r domain.SyncRecord
		if err := rows.Scan(&r.ID, &r.RunID, &r.Day, &r.MeasuredAt, &r.WeightKg, &r.Action, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
