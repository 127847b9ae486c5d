package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"bodysync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to BODYSYNC_TEST_POSTGRES_DSN or skips.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("BODYSYNC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("BODYSYNC_TEST_POSTGRES_DSN not set")
	}
	db, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.sql.Exec("DELETE FROM token_documents WHERE doc_key LIKE 'test-%';")
		_, _ = db.sql.Exec("DELETE FROM sync_records WHERE run_id LIKE 'test-%';")
		_ = db.Close()
	})
	return db
}

func TestTokenDocuments(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.Get(ctx, "test-missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, db.Put(ctx, "test-doc", []byte(`{"a":1}`)))
	require.NoError(t, db.Put(ctx, "test-doc", []byte(`{"a":2}`)))
	got, err := db.Get(ctx, "test-doc")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(got))
}

func TestSyncRecords(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	_, err := db.AddSyncRecord(ctx, domain.SyncRecord{RunID: "test-run", Day: "2024-01-01", MeasuredAt: now, WeightKg: 70, Action: "insert:weight-only", CreatedAt: now})
	require.NoError(t, err)
	id, err := db.AddSyncRecord(ctx, domain.SyncRecord{RunID: "test-run", Day: "2024-01-02", MeasuredAt: now, WeightKg: 71, Action: "insert:composition", CreatedAt: now.Add(time.Second)})
	require.NoError(t, err)

	recs, err := db.ListRecentSyncRecords(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, id, recs[0].ID)
	assert.Equal(t, "2024-01-02", recs[0].Day)
	assert.True(t, recs[0].MeasuredAt.Equal(now))
}
