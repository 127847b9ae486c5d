package domain

import (
	"context"
	"time"
)

// SyncRecord is one applied decision in the sync ledger.
type SyncRecord struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"runId"`
	Day        string    `json:"day"`
	MeasuredAt time.Time `json:"measuredAt"`
	WeightKg   float64   `json:"weightKg"`
	Action     string    `json:"action"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SyncLogRepository is the port for the optional sync ledger.
type SyncLogRepository interface {
	AddSyncRecord(ctx context.Context, rec SyncRecord) (int64, error)
	ListRecentSyncRecords(ctx context.Context, limit int) ([]SyncRecord, error)
}

// SinkClient is the port for the sink provider.
type SinkClient interface {
	// ListRecordedDays returns the days in [startDay, endDay] that already
	// hold an entry, formatted with DayLayout.
	ListRecordedDays(ctx context.Context, startDay, endDay string) ([]string, error)
	AddBodyComposition(ctx context.Context, timestamp string, c BodyComposition) error
	AddWeighIn(ctx context.Context, timestamp string, weightKg float64) error
	// DeleteDay removes every entry recorded on day.
	DeleteDay(ctx context.Context, day string) error
}
