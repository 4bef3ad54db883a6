// Package sizing selects the smallest standard diameter that carries a
// design flow within the velocity and fill envelope of a sewer type.
package sizing

import (
	"fmt"
	"math"

	"github.com/alexiusacademia/gosewer/internal/hydraulics"
	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/alexiusacademia/gosewer/internal/validation"
)

// Constraints narrows the search. Zero fields take the sewer type defaults.
type Constraints struct {
	Slope         float64 `json:"slope,omitempty"`     // fixed operating slope (m/m)
	MinSlope      float64 `json:"min_slope,omitempty"` // lower bound on the operating slope
	MaxSlope      float64 `json:"max_slope,omitempty"` // upper bound on the operating slope
	MaxDiameterMM float64 `json:"max_diameter_mm,omitempty"`
	MinVelocity   float64 `json:"min_velocity_ms,omitempty"`
	MaxVelocity   float64 `json:"max_velocity_ms,omitempty"`
}

// Candidate is one evaluated diameter.
type Candidate struct {
	DiameterMM  float64  `json:"diameter_mm"`
	Slope       float64  `json:"slope"`
	VelocityMS  float64  `json:"velocity_ms"`  // at the design fill ratio
	FillRatio   float64  `json:"fill_ratio"`   // design fill ratio after clamping
	CapacityLPS float64  `json:"capacity_lps"` // flow carried at the design fill ratio
	Viable      bool     `json:"viable"`
	Reasons     []string `json:"reasons,omitempty"`
}

// Recommendation is the outcome of a sizing run.
type Recommendation struct {
	DiameterMM float64             `json:"diameter_mm"`
	Slope      float64             `json:"slope"`
	Material   standards.Material  `json:"material"`
	SewerType  standards.SewerType `json:"sewer_type"`
	FlowLPS    float64             `json:"flow_lps"`
	Viable     bool                `json:"viable"`

	// Result is the solve at the target flow with the chosen pipe.
	Result     *hydraulics.Result `json:"result"`
	Candidates []Candidate        `json:"candidates"`
	Issues     validation.Report  `json:"issues"`
}

// Size searches the standard diameters of sewer in ascending order and
// returns the first one whose design-fill hydraulics are within every
// constraint. When none qualifies, the largest candidate is returned with a
// NO_VIABLE_DIAMETER warning.
func Size(flowLPS float64, material standards.Material, sewer standards.SewerType, c Constraints) (*Recommendation, error) {
	crit, c, err := resolve(flowLPS, material, sewer, c)
	if err != nil {
		return nil, err
	}

	var diameters []float64
	for _, d := range crit.DiametersMM {
		if c.MaxDiameterMM > 0 && d > c.MaxDiameterMM {
			break
		}
		diameters = append(diameters, d)
	}
	if len(diameters) == 0 {
		return nil, &validation.Error{
			Code:       validation.CodeNoCandidates,
			Field:      "max_diameter_mm",
			Value:      c.MaxDiameterMM,
			Constraint: fmt.Sprintf(">= %g", crit.DiametersMM[0]),
		}
	}

	rec := &Recommendation{Material: material, SewerType: sewer, FlowLPS: flowLPS}
	chosen := -1
	for i, d := range diameters {
		cand := evaluate(d, operatingSlope(d, c), flowLPS, material, crit, c)
		rec.Candidates = append(rec.Candidates, cand)
		if cand.Viable {
			chosen = i
			break
		}
	}

	if chosen < 0 {
		chosen = len(rec.Candidates) - 1
		rec.Issues.Warn(validation.WarnNoViableDiameter, "diameter_mm",
			"no diameter meets all criteria, using the largest available %.0f mm", rec.Candidates[chosen].DiameterMM)
	} else {
		rec.Viable = true
	}

	pick := rec.Candidates[chosen]
	rec.DiameterMM = pick.DiameterMM
	rec.Slope = pick.Slope

	pipe := hydraulics.PipeSpec{Material: material, DiameterMM: pick.DiameterMM, Slope: pick.Slope}
	rec.Result = hydraulics.Assess(pipe, hydraulics.FlowState{FlowLPS: flowLPS}, sewer)

	if rec.Result.Valid() {
		if rec.Result.VelocityMS < c.MinVelocity {
			rec.Issues.Warn(validation.WarnSedimentation, "velocity_ms",
				"velocity %.2f m/s at %.1f L/s is below %.2f m/s, sediment may deposit",
				rec.Result.VelocityMS, flowLPS, c.MinVelocity)
		}
		if !rec.Result.SelfCleaning {
			rec.Issues.Warn(validation.WarnNotSelfCleaning, "shear_stress_pa",
				"shear stress %.2f Pa is below the %.2f Pa self-cleaning threshold",
				rec.Result.ShearStressPa, standards.MinShearStressPa)
		}
	}
	return rec, nil
}

// evaluate runs the solver at the design fill ratio for one diameter.
func evaluate(d, slope, flowLPS float64, material standards.Material, crit standards.Criteria, c Constraints) Candidate {
	cand := Candidate{DiameterMM: d, Slope: slope}

	pipe := hydraulics.PipeSpec{Material: material, DiameterMM: d, Slope: slope}
	res := hydraulics.Assess(pipe, hydraulics.FlowState{FlowLPS: flowLPS, FillRatio: crit.DesignFillRatio}, crit.Type)
	if !res.Valid() {
		for _, e := range res.Issues.Errors {
			cand.Reasons = append(cand.Reasons, e.Error())
		}
		return cand
	}

	cand.VelocityMS = res.VelocityMS
	cand.FillRatio = res.FillRatio
	cand.CapacityLPS = res.FlowLPS

	if res.VelocityMS < c.MinVelocity {
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("velocity %.2f m/s below %.2f m/s", res.VelocityMS, c.MinVelocity))
	}
	if res.VelocityMS > c.MaxVelocity {
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("velocity %.2f m/s above %.2f m/s", res.VelocityMS, c.MaxVelocity))
	}
	if res.FillRatio > crit.MaxFillRatio {
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("fill ratio %.2f above %.2f", res.FillRatio, crit.MaxFillRatio))
	}
	if res.FlowLPS < flowLPS {
		cand.Reasons = append(cand.Reasons, fmt.Sprintf("carries %.1f L/s at fill %.2f, needs %.1f L/s", res.FlowLPS, res.FillRatio, flowLPS))
	}
	cand.Viable = len(cand.Reasons) == 0
	return cand
}

// operatingSlope is the fixed slope when given, otherwise the larger of the
// diameter minimum and the lower bound, never above the upper bound.
func operatingSlope(d float64, c Constraints) float64 {
	if c.Slope > 0 {
		return c.Slope
	}
	return math.Min(math.Max(standards.MinSlope(d), c.MinSlope), c.MaxSlope)
}

// resolve validates the inputs and fills constraint defaults from the
// sewer criteria.
func resolve(flowLPS float64, material standards.Material, sewer standards.SewerType, c Constraints) (standards.Criteria, Constraints, error) {
	var rep validation.Report

	crit, err := standards.CriteriaFor(sewer)
	if err != nil {
		rep.Fail(validation.CodeInvalidValue, "sewer_type", 0, "storm or sanitary")
	}
	if !material.Valid() {
		rep.Fail(validation.CodeInvalidValue, "material", 0, "a known pipe material")
	}
	rep.Positive("flow_lps", flowLPS)

	optional := func(field string, v, hi float64) {
		if v != 0 {
			rep.Range(field, v, 0, hi, true)
		}
	}
	optional("slope", c.Slope, standards.MaxSlope)
	optional("min_slope", c.MinSlope, standards.MaxSlope)
	optional("max_slope", c.MaxSlope, standards.MaxSlope)
	optional("max_diameter_mm", c.MaxDiameterMM, math.Inf(1))
	optional("min_velocity_ms", c.MinVelocity, math.Inf(1))
	optional("max_velocity_ms", c.MaxVelocity, math.Inf(1))
	if err := rep.Err(); err != nil {
		return crit, c, err
	}

	if c.MaxSlope == 0 {
		c.MaxSlope = standards.MaxSlope
	}
	if c.MinVelocity == 0 {
		c.MinVelocity = crit.MinVelocity
	}
	if c.MaxVelocity == 0 {
		c.MaxVelocity = crit.MaxVelocity
	}
	if c.MinSlope > c.MaxSlope {
		return crit, c, &validation.Error{Code: validation.CodeInvalidOptions, Field: "min_slope", Value: c.MinSlope,
			Constraint: fmt.Sprintf("<= max_slope %g", c.MaxSlope)}
	}
	if c.MinVelocity > c.MaxVelocity {
		return crit, c, &validation.Error{Code: validation.CodeInvalidOptions, Field: "min_velocity_ms", Value: c.MinVelocity,
			Constraint: fmt.Sprintf("<= max_velocity_ms %g", c.MaxVelocity)}
	}
	return crit, c, nil
}
