// Package rainfall turns return period and storm duration into a design
// intensity and applies the Rational Method.
package rainfall

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// RationalFactor converts C·i[mm/h]·A[ha] to L/s.
const RationalFactor = 2.78

// MinTimeOfConcentration is the shortest design storm duration (min).
const MinTimeOfConcentration = 5.0

var (
	// ErrReturnPeriod is returned for a return period that is not positive.
	ErrReturnPeriod = errors.New("rainfall: return period must be positive")

	// ErrDuration is returned for a storm duration that is not positive.
	ErrDuration = errors.New("rainfall: duration must be positive")

	// ErrNoCurve is returned when a station has no curve for a return period.
	ErrNoCurve = errors.New("rainfall: no curve for return period")
)

// Provider supplies a rainfall intensity (mm/h) for a return period (years)
// and a storm duration (min).
type Provider interface {
	Intensity(returnPeriodYears, durationMin float64) (float64, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(returnPeriodYears, durationMin float64) (float64, error)

func (f ProviderFunc) Intensity(returnPeriodYears, durationMin float64) (float64, error) {
	return f(returnPeriodYears, durationMin)
}

// IDF is the closed-form curve i = a(T) / (t + b)^c with a(T) = a0·T^k.
type IDF struct {
	A0 float64 `json:"a0"`
	K  float64 `json:"k"`
	B  float64 `json:"b"`
	C  float64 `json:"c"`
}

// DefaultIDF stands in when no calibrated station data is supplied.
var DefaultIDF = IDF{A0: 600, K: 0.18, B: 12, C: 0.78}

// Intensity implements Provider.
func (f IDF) Intensity(returnPeriodYears, durationMin float64) (float64, error) {
	if err := checkArgs(returnPeriodYears, durationMin); err != nil {
		return 0, err
	}
	a := f.A0 * math.Pow(returnPeriodYears, f.K)
	return a / math.Pow(durationMin+f.B, f.C), nil
}

// Point is one tabulated duration/intensity pair.
type Point struct {
	DurationMin  float64 `json:"duration_min"`
	IntensityMMH float64 `json:"intensity_mmh"`
}

// Curve is the tabulated IDF curve of one return period.
type Curve struct {
	ReturnPeriodYears float64 `json:"return_period_years"`
	Points            []Point `json:"points"`
}

// Station holds calibrated IDF curves of one rain gauge.
type Station struct {
	Name   string  `json:"name"`
	Curves []Curve `json:"curves"`
}

// Intensity implements Provider. Durations are interpolated linearly
// between tabulated points; durations shorter than the first point take
// its intensity and longer ones extrapolate the last segment in log-log
// space.
func (s *Station) Intensity(returnPeriodYears, durationMin float64) (float64, error) {
	if err := checkArgs(returnPeriodYears, durationMin); err != nil {
		return 0, err
	}

	var pts []Point
	for _, c := range s.Curves {
		if c.ReturnPeriodYears == returnPeriodYears {
			pts = append(pts, c.Points...)
			break
		}
	}
	if len(pts) == 0 {
		return 0, fmt.Errorf("%w: %g years at station %q", ErrNoCurve, returnPeriodYears, s.Name)
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].DurationMin < pts[j].DurationMin })

	if len(pts) == 1 || durationMin <= pts[0].DurationMin {
		return pts[0].IntensityMMH, nil
	}
	for i := 1; i < len(pts); i++ {
		lo, hi := pts[i-1], pts[i]
		if durationMin <= hi.DurationMin {
			f := (durationMin - lo.DurationMin) / (hi.DurationMin - lo.DurationMin)
			return lo.IntensityMMH + f*(hi.IntensityMMH-lo.IntensityMMH), nil
		}
	}

	lo, hi := pts[len(pts)-2], pts[len(pts)-1]
	if lo.IntensityMMH <= 0 || hi.IntensityMMH <= 0 {
		return hi.IntensityMMH, nil
	}
	exp := math.Log(hi.IntensityMMH/lo.IntensityMMH) / math.Log(hi.DurationMin/lo.DurationMin)
	return hi.IntensityMMH * math.Pow(durationMin/hi.DurationMin, exp), nil
}

// PeakFlowLPS is the Rational Method peak Q = C·i·A·2.78 in L/s.
func PeakFlowLPS(runoffCoefficient, intensityMMH, areaHa float64) float64 {
	return runoffCoefficient * intensityMMH * areaHa * RationalFactor
}

// Catchment is an area with its runoff coefficient.
type Catchment struct {
	AreaHa            float64 `json:"area_ha"`
	RunoffCoefficient float64 `json:"runoff_coefficient"`
}

// WeightedRunoff returns the total area and the area-weighted runoff
// coefficient. An empty or zero-area set yields zero for both.
func WeightedRunoff(parts []Catchment) (areaHa, coefficient float64) {
	var sum float64
	for _, p := range parts {
		areaHa += p.AreaHa
		sum += p.AreaHa * p.RunoffCoefficient
	}
	if areaHa <= 0 {
		return 0, 0
	}
	return areaHa, sum / areaHa
}

// TimeOfConcentration is the largest of the given times, never below
// MinTimeOfConcentration.
func TimeOfConcentration(times ...float64) float64 {
	tc := MinTimeOfConcentration
	for _, t := range times {
		if t > tc {
			tc = t
		}
	}
	return tc
}

func checkArgs(returnPeriodYears, durationMin float64) error {
	if !(returnPeriodYears > 0) || math.IsInf(returnPeriodYears, 0) {
		return ErrReturnPeriod
	}
	if !(durationMin > 0) || math.IsInf(durationMin, 0) {
		return ErrDuration
	}
	return nil
}
