package standards

import (
	"fmt"
	"math"
	"strings"
)

// SlopeUnit is a unit in which a pipe grade can be expressed.
type SlopeUnit string

const (
	Ratio    SlopeUnit = "ratio"    // m/m
	Percent  SlopeUnit = "percent"  // %
	Permille SlopeUnit = "permille" // ‰
	Degrees  SlopeUnit = "degrees"
)

// ParseSlopeUnit accepts the unit names plus the symbols "%", "‰", "m/m" and "deg".
func ParseSlopeUnit(s string) (SlopeUnit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ratio", "m/m", "":
		return Ratio, nil
	case "percent", "%":
		return Percent, nil
	case "permille", "‰", "per_mille":
		return Permille, nil
	case "degrees", "deg", "°":
		return Degrees, nil
	}
	return "", fmt.Errorf("unknown slope unit %q", s)
}

// ToRatio converts a slope expressed in unit to m/m.
func ToRatio(v float64, unit SlopeUnit) (float64, error) {
	switch unit {
	case Ratio:
		return v, nil
	case Percent:
		return v / 100, nil
	case Permille:
		return v / 1000, nil
	case Degrees:
		if v <= -90 || v >= 90 {
			return 0, fmt.Errorf("slope angle %g° outside (-90°, 90°)", v)
		}
		return math.Tan(v * math.Pi / 180), nil
	}
	return 0, fmt.Errorf("unknown slope unit %q", unit)
}

// FromRatio converts a slope in m/m to unit.
func FromRatio(ratio float64, unit SlopeUnit) (float64, error) {
	switch unit {
	case Ratio:
		return ratio, nil
	case Percent:
		return ratio * 100, nil
	case Permille:
		return ratio * 1000, nil
	case Degrees:
		return math.Atan(ratio) * 180 / math.Pi, nil
	}
	return 0, fmt.Errorf("unknown slope unit %q", unit)
}

// ConvertSlope converts v between any two supported units.
func ConvertSlope(v float64, from, to SlopeUnit) (float64, error) {
	r, err := ToRatio(v, from)
	if err != nil {
		return 0, err
	}
	return FromRatio(r, to)
}
