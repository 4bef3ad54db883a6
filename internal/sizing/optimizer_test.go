package sizing_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexiusacademia/gosewer/internal/hydraulics"
	"github.com/alexiusacademia/gosewer/internal/sizing"
	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/alexiusacademia/gosewer/internal/validation"
)

// TestSize_RationalScenario sizes the 1 ha, C=0.70, 60 mm/h peak
// (116.8 L/s) at 1%: concrete 300 mm is short, 400 mm carries it.
func TestSize_RationalScenario(t *testing.T) {
	q := 0.70 * 60 * 1.0 * 2.78
	rec, err := sizing.Size(q, standards.Concrete, standards.Storm, sizing.Constraints{Slope: 0.01})
	require.NoError(t, err)

	assert.True(t, rec.Viable)
	assert.Equal(t, 400.0, rec.DiameterMM)
	assert.Equal(t, 0.01, rec.Slope)
	require.Len(t, rec.Candidates, 2)
	assert.False(t, rec.Candidates[0].Viable)
	assert.NotEmpty(t, rec.Candidates[0].Reasons)
	assert.Less(t, rec.Candidates[0].CapacityLPS, q)

	require.NotNil(t, rec.Result)
	assert.True(t, rec.Result.Valid())
	assert.InDelta(t, q, rec.Result.FlowLPS, 1e-9)
	assert.Less(t, rec.Result.FillRatio, 0.8)
}

// TestSize_PVCSmallestPipe checks a smoother pipe drops to 300 mm.
func TestSize_PVCSmallestPipe(t *testing.T) {
	rec, err := sizing.Size(116.76, standards.PVC, standards.Storm, sizing.Constraints{Slope: 0.01})
	require.NoError(t, err)
	assert.Equal(t, 300.0, rec.DiameterMM)
	assert.Len(t, rec.Candidates, 1)
}

// TestSize_DiametersAreStandard runs a sweep of flows for both sewer types.
func TestSize_DiametersAreStandard(t *testing.T) {
	for _, sewer := range []standards.SewerType{standards.Storm, standards.Sanitary} {
		crit, err := standards.CriteriaFor(sewer)
		require.NoError(t, err)
		for _, q := range []float64{1, 10, 50, 200, 800, 3000} {
			rec, err := sizing.Size(q, standards.Concrete, sewer, sizing.Constraints{})
			require.NoError(t, err)
			assert.Contains(t, crit.DiametersMM, rec.DiameterMM, "%s q=%g", sewer, q)
			for _, c := range rec.Candidates {
				assert.True(t, standards.IsStandardDiameter(sewer, c.DiameterMM))
			}
		}
	}
}

// TestSize_ViableCandidatesReevaluate re-runs the solver on every viable
// candidate at the design fill ratio and checks the velocity envelope.
func TestSize_ViableCandidatesReevaluate(t *testing.T) {
	for _, sewer := range []standards.SewerType{standards.Storm, standards.Sanitary} {
		crit, err := standards.CriteriaFor(sewer)
		require.NoError(t, err)
		for _, q := range []float64{5, 40, 150, 600} {
			rec, err := sizing.Size(q, standards.PVC, sewer, sizing.Constraints{})
			require.NoError(t, err)
			for _, c := range rec.Candidates {
				if !c.Viable {
					continue
				}
				res, err := hydraulics.Evaluate(
					hydraulics.PipeSpec{Material: standards.PVC, DiameterMM: c.DiameterMM, Slope: c.Slope},
					hydraulics.FlowState{FlowLPS: q, FillRatio: crit.DesignFillRatio}, sewer)
				require.NoError(t, err)
				assert.GreaterOrEqual(t, res.VelocityMS, crit.MinVelocity)
				assert.LessOrEqual(t, res.VelocityMS, crit.MaxVelocity)
			}
		}
	}
}

// TestSize_MinimumSlopePerDiameter uses each diameter's tabulated minimum
// when no slope is fixed.
func TestSize_MinimumSlopePerDiameter(t *testing.T) {
	rec, err := sizing.Size(500, standards.Concrete, standards.Storm, sizing.Constraints{})
	require.NoError(t, err)
	for _, c := range rec.Candidates {
		assert.Equal(t, standards.MinSlope(c.DiameterMM), c.Slope)
	}

	rec, err = sizing.Size(500, standards.Concrete, standards.Storm, sizing.Constraints{MinSlope: 0.004})
	require.NoError(t, err)
	for _, c := range rec.Candidates {
		assert.Equal(t, 0.004, c.Slope)
	}
}

// TestSize_FallbackToLargest caps the diameter below what the flow needs.
func TestSize_FallbackToLargest(t *testing.T) {
	rec, err := sizing.Size(5000, standards.Concrete, standards.Storm,
		sizing.Constraints{Slope: 0.002, MaxDiameterMM: 600})
	require.NoError(t, err)

	assert.False(t, rec.Viable)
	assert.Equal(t, 600.0, rec.DiameterMM)
	assert.Len(t, rec.Candidates, 4)
	assert.True(t, rec.Issues.HasWarning(validation.WarnNoViableDiameter))
	require.NotNil(t, rec.Result)
	assert.True(t, rec.Result.Issues.HasWarning(validation.WarnSurcharged))
}

// TestSize_SedimentationWarning sizes a trickle on a flat grade.
func TestSize_SedimentationWarning(t *testing.T) {
	rec, err := sizing.Size(2, standards.Concrete, standards.Sanitary, sizing.Constraints{Slope: 0.002})
	require.NoError(t, err)
	assert.Less(t, rec.Result.VelocityMS, 0.6)
	assert.True(t, rec.Issues.HasWarning(validation.WarnSedimentation))
	assert.True(t, rec.Issues.HasWarning(validation.WarnNotSelfCleaning))
}

func TestSize_HardErrors(t *testing.T) {
	cases := []struct {
		name     string
		flow     float64
		material standards.Material
		sewer    standards.SewerType
		c        sizing.Constraints
		code     validation.Code
		field    string
	}{
		{"flow", 0, standards.PVC, standards.Storm, sizing.Constraints{}, validation.CodeOutOfRange, "flow_lps"},
		{"material", 10, "bamboo", standards.Storm, sizing.Constraints{}, validation.CodeInvalidValue, "material"},
		{"sewer", 10, standards.PVC, "combined", sizing.Constraints{}, validation.CodeInvalidValue, "sewer_type"},
		{"velocity bounds", 10, standards.PVC, standards.Storm, sizing.Constraints{MinVelocity: 3, MaxVelocity: 1}, validation.CodeInvalidOptions, "min_velocity_ms"},
		{"slope bounds", 10, standards.PVC, standards.Storm, sizing.Constraints{MinSlope: 0.05, MaxSlope: 0.01}, validation.CodeInvalidOptions, "min_slope"},
		{"negative slope", 10, standards.PVC, standards.Storm, sizing.Constraints{Slope: -0.01}, validation.CodeOutOfRange, "slope"},
		{"no candidates", 10, standards.PVC, standards.Storm, sizing.Constraints{MaxDiameterMM: 200}, validation.CodeNoCandidates, "max_diameter_mm"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := sizing.Size(tc.flow, tc.material, tc.sewer, tc.c)
			assert.Nil(t, rec)
			var ve *validation.Error
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.code, ve.Code)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}
