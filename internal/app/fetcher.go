package app

import (
	"context"
	"time"

	"bodysync/internal/domain"
)

// MeasurementFetcher pulls raw measurement groups from the source and
// normalizes them into points in a fixed reference zone.
type MeasurementFetcher struct {
	source domain.MeasureSource
	loc    *time.Location
}

// NewMeasurementFetcher creates a fetcher. A nil loc means UTC.
func NewMeasurementFetcher(source domain.MeasureSource, loc *time.Location) *MeasurementFetcher {
	if loc == nil {
		loc = time.UTC
	}
	return &MeasurementFetcher{source: source, loc: loc}
}

// Fetch returns the points in upstream order together with their ISO
// timestamps. A single unrecognized type code fails the whole fetch.
func (f *MeasurementFetcher) Fetch(ctx context.Context, accessToken string, since, until time.Time) ([]domain.MeasurementPoint, []string, error) {
	groups, err := f.source.GetMeasureGroups(ctx, accessToken, since, until)
	if err != nil {
		return nil, nil, err
	}
	points := make([]domain.MeasurementPoint, 0, len(groups))
	stamps := make([]string, 0, len(groups))
	for _, g := range groups {
		p, err := domain.NormalizeGroup(g, f.loc)
		if err != nil {
			return nil, nil, err
		}
		points = append(points, p)
		stamps = append(stamps, p.ISOTime())
	}
	return points, stamps, nil
}
