// Package standards holds the design tables for gravity sewers: pipe
// materials, standard diameters, velocity and fill envelopes and the
// minimum-slope table. All lookups return copies; nothing here is mutable.
package standards

import (
	"fmt"
	"strings"
)

// SewerType selects the design criteria set.
type SewerType string

const (
	Storm    SewerType = "storm"
	Sanitary SewerType = "sanitary"
)

// ParseSewerType resolves a sewer type name case-insensitively.
func ParseSewerType(s string) (SewerType, error) {
	t := SewerType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := criteria[t]; !ok {
		return "", fmt.Errorf("unknown sewer type %q", s)
	}
	return t, nil
}

// Valid reports whether t is a known sewer type.
func (t SewerType) Valid() bool {
	_, ok := criteria[t]
	return ok
}

// Criteria is the design envelope of one sewer type.
type Criteria struct {
	Type            SewerType `json:"type"`
	MinVelocity     float64   `json:"min_velocity_ms"`
	MaxVelocity     float64   `json:"max_velocity_ms"`
	MaxFillRatio    float64   `json:"max_fill_ratio"`
	DesignFillRatio float64   `json:"design_fill_ratio"`
	DiametersMM     []float64 `json:"diameters_mm"`
}

var criteria = map[SewerType]Criteria{
	Storm: {
		Type:            Storm,
		MinVelocity:     0.6,
		MaxVelocity:     6.0,
		MaxFillRatio:    1.0,
		DesignFillRatio: 0.80,
		DiametersMM:     []float64{300, 400, 500, 600, 700, 800, 900, 1000, 1200, 1400, 1500, 1800, 2000},
	},
	Sanitary: {
		Type:            Sanitary,
		MinVelocity:     0.6,
		MaxVelocity:     3.0,
		MaxFillRatio:    0.85,
		DesignFillRatio: 0.70,
		DiametersMM:     []float64{150, 200, 250, 300, 350, 400, 450, 500, 600},
	},
}

// CriteriaFor returns the criteria of t. The diameter list is a fresh copy.
func CriteriaFor(t SewerType) (Criteria, error) {
	c, ok := criteria[t]
	if !ok {
		return Criteria{}, fmt.Errorf("unknown sewer type %q", t)
	}
	c.DiametersMM = append([]float64(nil), c.DiametersMM...)
	return c, nil
}

// StandardDiameters returns the ascending standard diameters of t (mm).
func StandardDiameters(t SewerType) []float64 {
	c, err := CriteriaFor(t)
	if err != nil {
		return nil
	}
	return c.DiametersMM
}

// IsStandardDiameter reports whether d belongs to the standard list of t.
func IsStandardDiameter(t SewerType, d float64) bool {
	for _, s := range criteria[t].DiametersMM {
		if s == d {
			return true
		}
	}
	return false
}

// minSlopeTable is the sparse minimum-slope table, ascending by diameter.
var minSlopeTable = []struct {
	DiameterMM float64
	Slope      float64
}{
	{150, 0.0060},
	{200, 0.0040},
	{250, 0.0030},
	{300, 0.0025},
	{400, 0.0015},
	{500, 0.0012},
	{600, 0.0010},
	{800, 0.0008},
	{1000, 0.0006},
	{1200, 0.0005},
}

// MinSlope returns the recommended minimum slope (m/m) for a diameter.
// The table is a step function keyed on the nearest lower tabulated
// diameter; diameters below the first entry use the first entry.
func MinSlope(diameterMM float64) float64 {
	s := minSlopeTable[0].Slope
	for _, row := range minSlopeTable {
		if diameterMM < row.DiameterMM {
			break
		}
		s = row.Slope
	}
	return s
}
