// Package memory implements in-memory storage for development and testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"bodysync/internal/domain"
)

// DB implements an in-memory document store and sync ledger.
type DB struct {
	mu      sync.Mutex
	docs    map[string][]byte
	records []domain.SyncRecord

	recordIDCounter int64
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{docs: make(map[string][]byte)}
}

// Ensure interfaces are met.
var _ domain.BlobStore = (*DB)(nil)
var _ domain.SyncLogRepository = (*DB)(nil)

// --- BlobStore ---

// Get returns a copy of the document stored under key.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	data, ok := db.docs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Put stores a copy of data under key.
func (db *DB) Put(ctx context.Context, key string, data []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.docs[key] = append([]byte(nil), data...)
	return nil
}

// --- SyncLogRepository ---

// AddSyncRecord appends rec to the ledger.
func (db *DB) AddSyncRecord(ctx context.Context, rec domain.SyncRecord) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.recordIDCounter++
	rec.ID = db.recordIDCounter
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	db.records = append(db.records, rec)
	return rec.ID, nil
}

// ListRecentSyncRecords returns up to limit records, newest first.
func (db *DB) ListRecentSyncRecords(ctx context.Context, limit int) ([]domain.SyncRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.SyncRecord, len(db.records))
	copy(out, db.records)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
