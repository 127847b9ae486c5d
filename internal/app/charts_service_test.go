package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"bodysync/internal/domain"
)

type listLedger []domain.SyncRecord

func (l listLedger) AddSyncRecord(context.Context, domain.SyncRecord) (int64, error) { return 0, nil }

func (l listLedger) ListRecentSyncRecords(context.Context, int) ([]domain.SyncRecord, error) {
	return l, nil
}

func newDailyService(recs ...domain.SyncRecord) *HistoryService {
	svc := NewHistoryService(listLedger(recs), time.UTC)
	svc.now = func() time.Time { return time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestDaily_BadUnit(t *testing.T) {
	_, err := newDailyService().Daily(context.Background(), 7, "stones")
	if !errors.Is(err, ErrInvalidUnit) {
		t.Fatalf("expected ErrInvalidUnit, got %v", err)
	}
}

func TestDaily_Success(t *testing.T) {
	svc := newDailyService(
		domain.SyncRecord{Day: "2024-01-03", WeightKg: 90, Action: "reject"},
		domain.SyncRecord{Day: "2024-01-02", WeightKg: 72, Action: "replace:composition"},
		domain.SyncRecord{Day: "2024-01-02", WeightKg: 71, Action: "insert:weight-only"},
		domain.SyncRecord{Day: "2024-01-01", WeightKg: 70, Action: "insert:composition"},
	)
	points, err := svc.Daily(context.Background(), 3, "kg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Day != "2024-01-01" || points[2].Day != "2024-01-03" {
		t.Errorf("expected oldest first, got %s..%s", points[0].Day, points[2].Day)
	}
	if points[1].Weight == nil || points[1].Weight.Value != 72 || points[1].Weight.Action != "replace:composition" {
		t.Errorf("expected the latest write for 2024-01-02, got %+v", points[1].Weight)
	}
	if points[2].Weight != nil {
		t.Errorf("rejected measurements must not appear, got %+v", points[2].Weight)
	}
}

func TestDaily_ConvertUnit(t *testing.T) {
	svc := newDailyService(domain.SyncRecord{Day: "2024-01-03", WeightKg: 100, Action: "insert:composition"})
	points, err := svc.Daily(context.Background(), 1, "lb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if points[0].Weight == nil || points[0].Weight.Value != 220.46 || points[0].Weight.Unit != "lb" {
		t.Errorf("expected 220.46 lb, got %+v", points[0].Weight)
	}
}

func TestDaily_ClampsDays(t *testing.T) {
	points, err := newDailyService().Daily(context.Background(), 1000, "kg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 366 {
		t.Errorf("expected 366 points, got %d", len(points))
	}
}
