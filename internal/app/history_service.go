package app

import (
	"context"
	"errors"
	"math"
	"time"

	"bodysync/internal/domain"
)

// MaxHistoryLimit caps a single history page.
const MaxHistoryLimit = 500

// ErrInvalidUnit is returned for a display unit other than kg or lb.
var ErrInvalidUnit = errors.New(`unit must be "kg" or "lb"`)

// HistoryEntry is a ledger record with its weight in the requested unit.
type HistoryEntry struct {
	domain.SyncRecord
	Weight float64 `json:"weight"`
	Unit   string  `json:"unit"`
}

// HistoryService exposes the sync ledger.
type HistoryService struct {
	repo domain.SyncLogRepository
	loc  *time.Location
	now  func() time.Time
}

// NewHistoryService creates a HistoryService backed by the given ledger.
// Days are computed in loc; nil means UTC.
func NewHistoryService(repo domain.SyncLogRepository, loc *time.Location) *HistoryService {
	if loc == nil {
		loc = time.UTC
	}
	return &HistoryService{repo: repo, loc: loc, now: time.Now}
}

// ListRecent returns the most recent ledger records up to limit, with
// weights converted to unit.
func (s *HistoryService) ListRecent(ctx context.Context, limit int, unit string) ([]HistoryEntry, error) {
	unit, err := checkUnit(unit)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	recs, err := s.repo.ListRecentSyncRecords(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, 0, len(recs))
	for _, r := range recs {
		out = append(out, HistoryEntry{SyncRecord: r, Weight: inUnit(r.WeightKg, unit), Unit: unit})
	}
	return out, nil
}

func checkUnit(unit string) (string, error) {
	if unit == "" {
		return domain.UnitKg, nil
	}
	if unit != domain.UnitKg && unit != domain.UnitLb {
		return "", ErrInvalidUnit
	}
	return unit, nil
}

func inUnit(kg float64, unit string) float64 {
	return math.Round(domain.ConvertWeight(kg, domain.UnitKg, unit)*100) / 100
}
