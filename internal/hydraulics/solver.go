// Package hydraulics evaluates the steady uniform-flow state of a single
// gravity pipe with Manning's equation.
package hydraulics

import (
	"math"

	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/alexiusacademia/gosewer/internal/validation"
)

// Solver settings
const (
	MaxIterations = 50
	Tolerance     = 0.001 // relative flow error
	MinFillRatio  = 0.01
	MaxFillRatio  = 0.99

	relaxation        = 0.4
	nearLimitFraction = 0.9
)

// Regime classifies the flow by its Froude number.
type Regime string

const (
	Subcritical   Regime = "subcritical"
	Critical      Regime = "critical"
	Supercritical Regime = "supercritical"
	Full          Regime = "full"
)

// PipeSpec describes one pipe. It is a value; nothing here mutates it.
type PipeSpec struct {
	Material   standards.Material `json:"material"`
	DiameterMM float64            `json:"diameter_mm"`
	Slope      float64            `json:"slope"` // m/m
	LengthM    float64            `json:"length_m,omitempty"`
}

// FlowState is the flow a pipe must carry. A zero FillRatio asks the
// solver to find the normal depth; a positive one fixes it.
type FlowState struct {
	FlowLPS   float64 `json:"flow_lps"`
	FillRatio float64 `json:"fill_ratio,omitempty"`
}

// Result is the computed hydraulic state of one pipe.
type Result struct {
	Pipe      PipeSpec            `json:"pipe"`
	SewerType standards.SewerType `json:"sewer_type"`

	// Flow
	TargetFlowLPS float64 `json:"target_flow_lps"`
	FlowLPS       float64 `json:"flow_lps"` // flow carried at the reported fill ratio
	VelocityMS    float64 `json:"velocity_ms"`
	DepthM        float64 `json:"depth_m"`
	FillRatio     float64 `json:"fill_ratio"`

	Geometry

	// Capacity
	FullFlowLPS     float64 `json:"full_flow_lps"`
	FullVelocityMS  float64 `json:"full_velocity_ms"`
	CapacityUsedPct float64 `json:"capacity_used_pct"`

	// Energy
	Froude          float64 `json:"froude"`
	Regime          Regime  `json:"regime"`
	SpecificEnergyM float64 `json:"specific_energy_m"`
	CriticalDepthM  float64 `json:"critical_depth_m"`

	// Self-cleaning
	ShearStressPa float64 `json:"shear_stress_pa"`
	SelfCleaning  bool    `json:"self_cleaning"`

	// Checks
	MinSlope   float64 `json:"min_slope"`
	VelocityOK bool    `json:"velocity_ok"`
	SlopeOK    bool    `json:"slope_ok"`

	// Solver outcome
	Converged  bool `json:"converged"`
	Iterations int  `json:"iterations"`

	Issues validation.Report `json:"issues"`
}

// Valid reports whether the hydraulics were computed, i.e. no hard error
// was attached.
func (r *Result) Valid() bool {
	return !r.Issues.HasErrors()
}

// Evaluate computes the hydraulic state and fails on the first hard
// validation error.
func Evaluate(pipe PipeSpec, flow FlowState, sewer standards.SewerType) (*Result, error) {
	res := Assess(pipe, flow, sewer)
	if err := res.Issues.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Assess computes the hydraulic state without failing: hard errors and
// warnings are attached to Result.Issues. When Valid() is false only the
// echoed inputs are populated.
func Assess(pipe PipeSpec, flow FlowState, sewer standards.SewerType) *Result {
	res := &Result{Pipe: pipe, SewerType: sewer, TargetFlowLPS: flow.FlowLPS}

	crit, ok := validate(pipe, flow, sewer, &res.Issues)
	if !ok {
		return res
	}

	n, _ := standards.ManningN(pipe.Material)
	d := pipe.DiameterMM / 1000
	q := flow.FlowLPS / 1000
	s := pipe.Slope

	qFull, vFull := FullFlow(n, d, s)
	res.FullFlowLPS = qFull * 1000
	res.FullVelocityMS = vFull
	res.CapacityUsedPct = 100 * q / qFull

	fill := flow.FillRatio
	if fill > 0 {
		res.Converged = true
	} else {
		fill, res.Iterations, res.Converged = solveFillRatio(n, d, s, q, qFull)
		if !res.Converged {
			res.Issues.Warn(validation.WarnNotConverged, "fill_ratio",
				"fill ratio did not converge in %d iterations, last estimate %.3f", res.Iterations, fill)
		}
		if q > qFull*(1+Tolerance) {
			res.Issues.Warn(validation.WarnSurcharged, "flow_lps",
				"flow %.1f L/s exceeds full-bore capacity %.1f L/s", flow.FlowLPS, res.FullFlowLPS)
		}
	}

	clamped := false
	if fill > crit.MaxFillRatio {
		res.Issues.Warn(validation.WarnFillClamped, "fill_ratio",
			"fill ratio %.3f limited to the %s maximum %.2f", fill, sewer, crit.MaxFillRatio)
		fill = crit.MaxFillRatio
		clamped = true
	}

	g := SegmentGeometry(d, fill)
	v := ManningVelocity(n, g.HydraulicRadiusM, s)

	res.Geometry = g
	res.FillRatio = fill
	res.DepthM = fill * d
	res.VelocityMS = v
	if flow.FillRatio > 0 {
		res.FlowLPS = v * g.AreaM2 * 1000
	} else {
		res.FlowLPS = flow.FlowLPS
	}

	// Froude number and regime
	if fill >= 1 {
		res.Regime = Full
	} else {
		if g.HydraulicDepthM > 0 {
			res.Froude = v / math.Sqrt(standards.Gravity*g.HydraulicDepthM)
		}
		res.Regime = classify(res.Froude)
	}
	res.CriticalDepthM = criticalDepth(res.FlowLPS/1000, d)
	res.SpecificEnergyM = res.DepthM + v*v/(2*standards.Gravity)

	// τ = γ·R·S
	res.ShearStressPa = standards.WaterUnitWeight * g.HydraulicRadiusM * s
	res.SelfCleaning = res.ShearStressPa >= standards.MinShearStressPa

	res.MinSlope = standards.MinSlope(pipe.DiameterMM)
	res.SlopeOK = s >= res.MinSlope
	res.VelocityOK = v >= crit.MinVelocity && v <= crit.MaxVelocity

	switch {
	case v < crit.MinVelocity:
		res.Issues.Warn(validation.WarnVelocityLow, "velocity_ms",
			"velocity %.2f m/s below the %.2f m/s minimum", v, crit.MinVelocity)
	case v > crit.MaxVelocity:
		res.Issues.Warn(validation.WarnVelocityHigh, "velocity_ms",
			"velocity %.2f m/s above the %.2f m/s maximum", v, crit.MaxVelocity)
	}
	if !res.SlopeOK {
		res.Issues.Warn(validation.WarnSlopeBelowMinimum, "slope",
			"slope %.4f below the %.4f minimum for %.0f mm", s, res.MinSlope, pipe.DiameterMM)
	}
	if !clamped && fill >= nearLimitFraction*crit.MaxFillRatio && fill < 1 {
		res.Issues.Warn(validation.WarnFillNearLimit, "fill_ratio",
			"fill ratio %.3f is within 10%% of the %.2f maximum", fill, crit.MaxFillRatio)
	}
	if !res.SelfCleaning {
		res.Issues.Warn(validation.WarnNotSelfCleaning, "shear_stress_pa",
			"shear stress %.2f Pa below the %.2f Pa self-cleaning threshold", res.ShearStressPa, standards.MinShearStressPa)
	}
	if !standards.IsStandardDiameter(sewer, pipe.DiameterMM) {
		res.Issues.Warn(validation.WarnNonStandardDiameter, "diameter_mm",
			"%.0f mm is not a standard %s diameter", pipe.DiameterMM, sewer)
	}

	return res
}

// solveFillRatio finds y/D such that the Manning flow equals q. A flow at
// or above full-bore capacity is reported as a full pipe.
func solveFillRatio(n, d, slope, q, qFull float64) (fill float64, iterations int, converged bool) {
	if q >= qFull*(1-Tolerance) {
		return 1, 0, true
	}

	r := clampFill(math.Min(q/qFull, 0.5))
	for iterations < MaxIterations {
		iterations++
		g := SegmentGeometry(d, r)
		qr := ManningVelocity(n, g.HydraulicRadiusM, slope) * g.AreaM2
		if qr <= 0 {
			r = clampFill(2 * r)
			continue
		}
		if math.Abs(qr-q)/q < Tolerance {
			return r, iterations, true
		}
		r = clampFill(r * math.Pow(q/qr, relaxation))
	}
	return r, iterations, false
}

func clampFill(r float64) float64 {
	return math.Max(MinFillRatio, math.Min(MaxFillRatio, r))
}

func classify(froude float64) Regime {
	switch {
	case froude < 0.95:
		return Subcritical
	case froude <= 1.05:
		return Critical
	default:
		return Supercritical
	}
}

func validate(pipe PipeSpec, flow FlowState, sewer standards.SewerType, rep *validation.Report) (standards.Criteria, bool) {
	crit, err := standards.CriteriaFor(sewer)
	if err != nil {
		rep.Fail(validation.CodeInvalidValue, "sewer_type", 0, "storm or sanitary")
	}
	if !pipe.Material.Valid() {
		rep.Fail(validation.CodeInvalidValue, "material", 0, "a known pipe material")
	}
	rep.Range("diameter_mm", pipe.DiameterMM, 0, standards.MaxDiameterMM, true)
	rep.Range("slope", pipe.Slope, 0, standards.MaxSlope, true)
	rep.Positive("flow_lps", flow.FlowLPS)
	if flow.FillRatio != 0 {
		rep.Range("fill_ratio", flow.FillRatio, 0, 1, true)
	}
	if pipe.LengthM != 0 && rep.Finite("length_m", pipe.LengthM) && pipe.LengthM < 0 {
		rep.Fail(validation.CodeOutOfRange, "length_m", pipe.LengthM, ">= 0")
	}
	return crit, !rep.HasErrors()
}
