package domain

import (
	"context"
	"fmt"
	"time"
)

// ISOLayout renders timestamps with a numeric zone offset, e.g.
// 2024-01-02T07:15:00+01:00. The sink keys entries by this exact string.
const ISOLayout = "2006-01-02T15:04:05-07:00"

// DayLayout is the calendar-day format used for dedup.
const DayLayout = "2006-01-02"

// MeasureType is the source provider's integer code for a physical quantity.
type MeasureType int

// Recognized measure types.
const (
	TypeWeight        MeasureType = 1
	TypeFatFreeMass   MeasureType = 5
	TypeFatRatio      MeasureType = 6
	TypeFatMassWeight MeasureType = 8
	TypeMuscleMass    MeasureType = 76
	TypeHydration     MeasureType = 77
	TypeBoneMass      MeasureType = 88
	TypeVisceralFat   MeasureType = 170
)

// RequestedTypes is the set of codes asked of the source. It is a superset of
// the recognized codes; 168 and 169 are requested but have no mapping, so a
// group carrying them fails normalization.
var RequestedTypes = []MeasureType{1, 5, 6, 8, 76, 77, 88, 168, 169, 170}

// RawMeasure is one reading encoded as Value * 10^Unit.
type RawMeasure struct {
	Type  MeasureType `json:"type"`
	Value int64       `json:"value"`
	Unit  int         `json:"unit"`
}

// RawMeasureGroup is one scale event as returned by the source.
type RawMeasureGroup struct {
	Created  int64        `json:"created"`
	Measures []RawMeasure `json:"measures"`
}

// MeasurementPoint is a normalized, unit-corrected measurement group.
// Optional fields are nil when the source did not report that metric.
type MeasurementPoint struct {
	Timestamp         time.Time
	WeightKg          float64
	FatFreeMass       *float64
	FatMassWeight     *float64
	MuscleMass        *float64
	HydrationPercent  *float64
	FatRatioPercent   *float64
	BoneMass          *float64
	VisceralFatRating *float64
}

// Day returns the calendar date of the point in its own zone.
func (p MeasurementPoint) Day() string {
	return p.Timestamp.Format(DayLayout)
}

// ISOTime returns the timestamp in ISOLayout.
func (p MeasurementPoint) ISOTime() string {
	return p.Timestamp.Format(ISOLayout)
}

// BodyComposition is the payload of a full composition write.
type BodyComposition struct {
	WeightKg          float64
	MuscleMass        float64
	HydrationPercent  float64
	FatRatioPercent   float64
	BoneMass          float64
	VisceralFatRating float64
	FatFreeMass       *float64
	FatMassWeight     *float64
}

// Composition returns the full composition for p, or false when any field the
// sink requires for a composition write is missing.
func (p MeasurementPoint) Composition() (BodyComposition, bool) {
	if p.MuscleMass == nil || p.HydrationPercent == nil || p.FatRatioPercent == nil ||
		p.BoneMass == nil || p.VisceralFatRating == nil {
		return BodyComposition{}, false
	}
	return BodyComposition{
		WeightKg:          p.WeightKg,
		MuscleMass:        *p.MuscleMass,
		HydrationPercent:  *p.HydrationPercent,
		FatRatioPercent:   *p.FatRatioPercent,
		BoneMass:          *p.BoneMass,
		VisceralFatRating: *p.VisceralFatRating,
		FatFreeMass:       p.FatFreeMass,
		FatMassWeight:     p.FatMassWeight,
	}, true
}

// NormalizeGroup converts a raw group into a MeasurementPoint in loc.
// Any unrecognized type code is an ErrData failure.
func NormalizeGroup(g RawMeasureGroup, loc *time.Location) (MeasurementPoint, error) {
	p := MeasurementPoint{Timestamp: time.Unix(g.Created, 0).In(loc)}
	hasWeight := false
	for _, m := range g.Measures {
		v := ScaleValue(m.Value, m.Unit)
		switch m.Type {
		case TypeWeight:
			p.WeightKg = v
			hasWeight = true
		case TypeFatFreeMass:
			p.FatFreeMass = &v
		case TypeFatMassWeight:
			p.FatMassWeight = &v
		case TypeMuscleMass:
			p.MuscleMass = &v
		case TypeHydration:
			p.HydrationPercent = &v
		case TypeFatRatio:
			p.FatRatioPercent = &v
		case TypeBoneMass:
			p.BoneMass = &v
		case TypeVisceralFat:
			p.VisceralFatRating = &v
		default:
			return MeasurementPoint{}, fmt.Errorf("%w: unknown measurement type %d", ErrData, m.Type)
		}
	}
	if !hasWeight {
		return MeasurementPoint{}, fmt.Errorf("%w: measurement group at %d has no weight", ErrData, g.Created)
	}
	return p, nil
}

// MeasureSource is the port for the source provider's measurement query.
type MeasureSource interface {
	GetMeasureGroups(ctx context.Context, accessToken string, since, until time.Time) ([]RawMeasureGroup, error)
}
