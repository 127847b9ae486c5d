package app

import (
	"context"
	"log/slog"

	"bodysync/internal/domain"
)

// Write describes which sink write a decision produced.
type Write int

const (
	WriteNone Write = iota
	WriteComposition
	WriteWeightOnly
)

func (w Write) String() string {
	switch w {
	case WriteComposition:
		return "composition"
	case WriteWeightOnly:
		return "weight-only"
	default:
		return "none"
	}
}

// SinkWriter applies reconciliation decisions against the sink.
type SinkWriter struct {
	sink   domain.SinkClient
	logger *slog.Logger
}

// NewSinkWriter creates a SinkWriter.
func NewSinkWriter(sink domain.SinkClient, logger *slog.Logger) *SinkWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SinkWriter{sink: sink, logger: logger}
}

// Apply performs the writes for d. Skip and Reject are no-ops.
func (w *SinkWriter) Apply(ctx context.Context, d domain.Decision) (Write, error) {
	switch d.Action {
	case domain.ActionReplaceThenInsert:
		w.logger.Info("deleting existing entries", "day", d.Point.Day())
		if err := w.sink.DeleteDay(ctx, d.Point.Day()); err != nil {
			return WriteNone, err
		}
		return w.insert(ctx, d.Point)
	case domain.ActionInsert:
		return w.insert(ctx, d.Point)
	default:
		return WriteNone, nil
	}
}

func (w *SinkWriter) insert(ctx context.Context, p domain.MeasurementPoint) (Write, error) {
	ts := p.ISOTime()
	w.logger.Info("adding measurement", "weight_kg", p.WeightKg, "at", ts)
	if c, ok := p.Composition(); ok {
		if err := w.sink.AddBodyComposition(ctx, ts, c); err != nil {
			return WriteNone, err
		}
		return WriteComposition, nil
	}
	w.logger.Warn("not all body composition data available, only adding weight", "at", ts)
	if err := w.sink.AddWeighIn(ctx, ts, p.WeightKg); err != nil {
		return WriteNone, err
	}
	return WriteWeightOnly, nil
}
