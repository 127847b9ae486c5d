package domain

import "math"

// Weight units understood by ConvertWeight.
const (
	UnitKg = "kg"
	UnitLb = "lb"
)

const kgToLb = 2.2046226218

// ConvertWeight converts a weight value between "kg" and "lb".
// Returns v unchanged if from == to or if the units are unrecognised.
func ConvertWeight(v float64, from, to string) float64 {
	if from == to {
		return v
	}
	if from == UnitKg && to == UnitLb {
		return v * kgToLb
	}
	if from == UnitLb && to == UnitKg {
		return v / kgToLb
	}
	return v
}

// ScaleValue decodes the source's value * 10^exp encoding. Negative exponents
// divide so that values such as 650e-2 come out exact.
func ScaleValue(value int64, exp int) float64 {
	if exp < 0 {
		return float64(value) / math.Pow10(-exp)
	}
	return float64(value) * math.Pow10(exp)
}
