package app

import (
	"context"
	"strings"
)

// DayPoint is a single data point returned by Daily.
type DayPoint struct {
	Day    string       `json:"day"`
	Weight *WeightPoint `json:"weight"`
}

// WeightPoint is the optional weight value within a DayPoint.
type WeightPoint struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Action string  `json:"action"`
}

// Daily returns one point per day for the last days days, ending today. A
// day carries the weight of its latest written ledger record, converted to
// unit; days without a write have a nil Weight.
func (s *HistoryService) Daily(ctx context.Context, days int, unit string) ([]DayPoint, error) {
	unit, err := checkUnit(unit)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 30
	}
	if days > 366 {
		days = 366
	}

	recs, err := s.repo.ListRecentSyncRecords(ctx, MaxHistoryLimit)
	if err != nil {
		return nil, err
	}
	// Records arrive newest first, so the first write seen for a day wins.
	latest := make(map[string]WeightPoint)
	for _, r := range recs {
		if !strings.HasPrefix(r.Action, "insert") && !strings.HasPrefix(r.Action, "replace") {
			continue
		}
		if _, ok := latest[r.Day]; ok {
			continue
		}
		latest[r.Day] = WeightPoint{Value: inUnit(r.WeightKg, unit), Unit: unit, Action: r.Action}
	}

	today := s.now().In(s.loc)
	points := make([]DayPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format("2006-01-02")
		var wp *WeightPoint
		if p, ok := latest[day]; ok {
			wp = &p
		}
		points = append(points, DayPoint{Day: day, Weight: wp})
	}
	return points, nil
}
