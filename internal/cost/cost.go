// Package cost prices a designed network: pipe supply, trench excavation
// and structures, normalized per hectare drained.
package cost

import (
	"math"
	"sort"

	"github.com/alexiusacademia/gosewer/internal/standards"
)

// Trench geometry
const (
	TrenchClearanceM = 0.6  // bottom width = D + clearance
	TrenchSideSlope  = 0.25 // horizontal per vertical, each side
	BeddingM         = 0.15 // below the pipe
)

// UnitCost is the supply and lay cost of one metre of pipe.
type UnitCost struct {
	DiameterMM float64 `json:"diameter_mm"`
	PerMetre   float64 `json:"per_metre"`
}

// Rates is a price list.
type Rates struct {
	Currency       string                         `json:"currency"`
	Pipe           []UnitCost                     `json:"pipe"` // ascending by diameter
	MaterialFactor map[standards.Material]float64 `json:"material_factor,omitempty"`
	ExcavationM3   float64                        `json:"excavation_m3"`
	Manhole        float64                        `json:"manhole"`
	Inlet          float64                        `json:"inlet"`
}

// DefaultRates returns a fresh copy of the built-in price list.
func DefaultRates() Rates {
	return Rates{
		Currency: "USD",
		Pipe: []UnitCost{
			{150, 35}, {200, 45}, {250, 55}, {300, 70}, {350, 85}, {400, 100},
			{450, 120}, {500, 140}, {600, 180}, {700, 230}, {800, 280}, {900, 340},
			{1000, 400}, {1200, 520}, {1400, 650}, {1500, 720}, {1800, 950}, {2000, 1150},
		},
		MaterialFactor: map[standards.Material]float64{
			standards.PVC:                0.8,
			standards.HDPE:               0.9,
			standards.Concrete:           1.0,
			standards.ReinforcedConcrete: 1.2,
			standards.VitrifiedClay:      1.1,
			standards.DuctileIron:        1.6,
			standards.CorrugatedSteel:    1.3,
		},
		ExcavationM3: 25,
		Manhole:      3500,
		Inlet:        1200,
	}
}

// Item is one pipe run to be priced.
type Item struct {
	ReachID    string             `json:"reach_id"`
	Material   standards.Material `json:"material"`
	DiameterMM float64            `json:"diameter_mm"`
	LengthM    float64            `json:"length_m"`
	AvgCoverM  float64            `json:"avg_cover_m"`
}

// Structures counts the priced structures.
type Structures struct {
	Manholes int `json:"manholes"`
	Inlets   int `json:"inlets"`
}

// Line is the priced form of an Item.
type Line struct {
	Item
	UnitCost       float64 `json:"unit_cost"`
	PipeCost       float64 `json:"pipe_cost"`
	TrenchDepthM   float64 `json:"trench_depth_m"`
	ExcavationM3   float64 `json:"excavation_m3"`
	ExcavationCost float64 `json:"excavation_cost"`
	Total          float64 `json:"total"`
}

// MaterialLine totals the pipe of one material and diameter.
type MaterialLine struct {
	Material   standards.Material `json:"material"`
	DiameterMM float64            `json:"diameter_mm"`
	Reaches    int                `json:"reaches"`
	LengthM    float64            `json:"length_m"`
	PipeCost   float64            `json:"pipe_cost"`
}

// Summary is the cost estimate of a network.
type Summary struct {
	Currency       string         `json:"currency"`
	Lines          []Line         `json:"lines"`
	Materials      []MaterialLine `json:"materials"`
	Structures     Structures     `json:"structures"`
	TotalLengthM   float64        `json:"total_length_m"`
	PipeCost       float64        `json:"pipe_cost"`
	ExcavationM3   float64        `json:"excavation_m3"`
	ExcavationCost float64        `json:"excavation_cost"`
	ManholeCost    float64        `json:"manhole_cost"`
	InletCost      float64        `json:"inlet_cost"`
	Total          float64        `json:"total"`
	AreaHa         float64        `json:"area_ha"`
	PerHectare     float64        `json:"per_hectare"` // zero when no area drains
}

// Summarize prices items with DefaultRates.
func Summarize(items []Item, structures Structures, areaHa float64) *Summary {
	return DefaultRates().Summarize(items, structures, areaHa)
}

// Summarize prices items, structures and the drained area.
func (r Rates) Summarize(items []Item, structures Structures, areaHa float64) *Summary {
	s := &Summary{Currency: r.Currency, Structures: structures, AreaHa: areaHa}

	type key struct {
		m standards.Material
		d float64
	}
	groups := make(map[key]*MaterialLine)

	for _, it := range items {
		l := Line{Item: it, UnitCost: r.UnitCost(it.Material, it.DiameterMM)}
		l.PipeCost = l.UnitCost * it.LengthM
		l.TrenchDepthM = math.Max(it.AvgCoverM, 0) + it.DiameterMM/1000 + BeddingM
		l.ExcavationM3 = TrenchArea(it.DiameterMM, l.TrenchDepthM) * it.LengthM
		l.ExcavationCost = l.ExcavationM3 * r.ExcavationM3
		l.Total = l.PipeCost + l.ExcavationCost
		s.Lines = append(s.Lines, l)

		s.TotalLengthM += it.LengthM
		s.PipeCost += l.PipeCost
		s.ExcavationM3 += l.ExcavationM3
		s.ExcavationCost += l.ExcavationCost

		k := key{it.Material, it.DiameterMM}
		g, ok := groups[k]
		if !ok {
			g = &MaterialLine{Material: it.Material, DiameterMM: it.DiameterMM}
			groups[k] = g
		}
		g.Reaches++
		g.LengthM += it.LengthM
		g.PipeCost += l.PipeCost
	}

	for _, g := range groups {
		s.Materials = append(s.Materials, *g)
	}
	sort.Slice(s.Materials, func(i, j int) bool {
		a, b := s.Materials[i], s.Materials[j]
		if a.Material != b.Material {
			return a.Material < b.Material
		}
		return a.DiameterMM < b.DiameterMM
	})

	s.ManholeCost = float64(structures.Manholes) * r.Manhole
	s.InletCost = float64(structures.Inlets) * r.Inlet
	s.Total = s.PipeCost + s.ExcavationCost + s.ManholeCost + s.InletCost
	if areaHa > 0 {
		s.PerHectare = s.Total / areaHa
	}
	return s
}

// UnitCost returns the cost per metre of the nearest tabulated diameter at
// or above d, scaled by the material factor. Diameters beyond the table use
// its last row.
func (r Rates) UnitCost(m standards.Material, d float64) float64 {
	if len(r.Pipe) == 0 {
		return 0
	}
	base := r.Pipe[len(r.Pipe)-1].PerMetre
	for _, u := range r.Pipe {
		if u.DiameterMM >= d {
			base = u.PerMetre
			break
		}
	}
	if f, ok := r.MaterialFactor[m]; ok {
		return base * f
	}
	return base
}

// TrenchArea is the trapezoidal cross-section (m²) of a trench of the given
// depth for a pipe of diameter d (mm).
func TrenchArea(diameterMM, depthM float64) float64 {
	bottom := diameterMM/1000 + TrenchClearanceM
	return (bottom + TrenchSideSlope*depthM) * depthM
}
