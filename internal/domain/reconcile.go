package domain

// Mode selects how already-recorded days are treated.
type Mode int

const (
	// KeepExisting skips points whose day is already recorded on the sink.
	KeepExisting Mode = iota
	// ReplaceExisting deletes the recorded day and writes the point again.
	ReplaceExisting
)

func (m Mode) String() string {
	if m == ReplaceExisting {
		return "replace"
	}
	return "keep"
}

// Action is the outcome the reconciler assigns to a point.
type Action int

const (
	ActionSkip Action = iota
	ActionReplaceThenInsert
	ActionInsert
	ActionReject
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionReplaceThenInsert:
		return "replace"
	case ActionInsert:
		return "insert"
	case ActionReject:
		return "reject"
	default:
		return "unknown"
	}
}

// Decision tags a point with the action to apply.
type Decision struct {
	Action Action
	Point  MeasurementPoint
}

// WeightRange is the plausibility window for weights in kilograms. Both
// bounds are exclusive.
type WeightRange struct {
	Min float64
	Max float64
}

// Contains reports whether Min < kg < Max.
func (r WeightRange) Contains(kg float64) bool {
	return kg > r.Min && kg < r.Max
}
