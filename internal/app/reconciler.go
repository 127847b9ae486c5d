package app

import (
	"log/slog"

	"bodysync/internal/domain"
)

// DefaultWeightRange is the plausibility window applied when none is configured.
var DefaultWeightRange = domain.WeightRange{Min: 50, Max: 100}

// DaySet is the set of days the sink already holds an entry for.
type DaySet map[string]struct{}

// NewDaySet builds a DaySet from DayLayout strings.
func NewDaySet(days []string) DaySet {
	set := make(DaySet, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	return set
}

// Has reports whether day is recorded.
func (s DaySet) Has(day string) bool {
	_, ok := s[day]
	return ok
}

// Reconciler decides what to do with each fetched point.
type Reconciler struct {
	weights domain.WeightRange
	logger  *slog.Logger
}

// NewReconciler creates a Reconciler with the given plausibility range.
func NewReconciler(weights domain.WeightRange, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{weights: weights, logger: logger}
}

// Plan returns one decision per point, in input order. Recorded days are
// skipped or replaced depending on mode; the plausibility range only applies
// to days not yet recorded.
func (r *Reconciler) Plan(points []domain.MeasurementPoint, existing DaySet, mode domain.Mode) []domain.Decision {
	out := make([]domain.Decision, 0, len(points))
	for _, p := range points {
		out = append(out, domain.Decision{Action: r.decide(p, existing, mode), Point: p})
	}
	return out
}

func (r *Reconciler) decide(p domain.MeasurementPoint, existing DaySet, mode domain.Mode) domain.Action {
	if existing.Has(p.Day()) {
		if mode == domain.ReplaceExisting {
			r.logger.Info("day already recorded, replacing", "at", p.ISOTime())
			return domain.ActionReplaceThenInsert
		}
		r.logger.Info("skipping, already recorded", "at", p.ISOTime())
		return domain.ActionSkip
	}
	if !r.weights.Contains(p.WeightKg) {
		r.logger.Warn("skipping implausible weight",
			"weight_kg", p.WeightKg, "at", p.ISOTime(),
			"min", r.weights.Min, "max", r.weights.Max)
		return domain.ActionReject
	}
	return domain.ActionInsert
}
