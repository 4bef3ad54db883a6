package rainfall_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexiusacademia/gosewer/internal/rainfall"
)

func TestPeakFlowLPS(t *testing.T) {
	// 1 ha, C = 0.70, 60 mm/h
	assert.InDelta(t, 116.76, rainfall.PeakFlowLPS(0.70, 60, 1.0), 1e-9)
	assert.Zero(t, rainfall.PeakFlowLPS(0.5, 60, 0))
}

func TestWeightedRunoff(t *testing.T) {
	area, c := rainfall.WeightedRunoff([]rainfall.Catchment{
		{AreaHa: 1, RunoffCoefficient: 0.9},
		{AreaHa: 3, RunoffCoefficient: 0.3},
	})
	assert.InDelta(t, 4.0, area, 1e-12)
	assert.InDelta(t, 0.45, c, 1e-12)

	area, c = rainfall.WeightedRunoff(nil)
	assert.Zero(t, area)
	assert.Zero(t, c)
}

func TestTimeOfConcentration(t *testing.T) {
	assert.Equal(t, 5.0, rainfall.TimeOfConcentration())
	assert.Equal(t, 5.0, rainfall.TimeOfConcentration(2, 4.5))
	assert.Equal(t, 12.5, rainfall.TimeOfConcentration(3, 12.5, 8))
}

func TestIDFIntensity(t *testing.T) {
	f := rainfall.IDF{A0: 600, K: 0.18, B: 12, C: 0.78}
	i, err := f.Intensity(10, 10)
	require.NoError(t, err)
	assert.InDelta(t, 600*math.Pow(10, 0.18)/math.Pow(22, 0.78), i, 1e-9)

	short, _ := f.Intensity(10, 5)
	long, _ := f.Intensity(10, 60)
	rare, _ := f.Intensity(100, 10)
	assert.Greater(t, short, i)
	assert.Less(t, long, i)
	assert.Greater(t, rare, i)

	_, err = f.Intensity(0, 10)
	assert.ErrorIs(t, err, rainfall.ErrReturnPeriod)
	_, err = f.Intensity(10, math.NaN())
	assert.ErrorIs(t, err, rainfall.ErrDuration)
}

func TestStationIntensity(t *testing.T) {
	st := &rainfall.Station{
		Name: "gauge-1",
		Curves: []rainfall.Curve{{
			ReturnPeriodYears: 10,
			Points: []rainfall.Point{
				{DurationMin: 30, IntensityMMH: 50},
				{DurationMin: 10, IntensityMMH: 100},
				{DurationMin: 60, IntensityMMH: 30},
			},
		}},
	}

	cases := []struct {
		t, want float64
	}{
		{5, 100},
		{10, 100},
		{20, 75},
		{45, 40},
		{60, 30},
	}
	for _, tc := range cases {
		got, err := st.Intensity(10, tc.t)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 1e-9, "duration %g", tc.t)
	}

	// log-log extrapolation beyond the last point
	beyond, err := st.Intensity(10, 120)
	require.NoError(t, err)
	assert.Less(t, beyond, 30.0)
	assert.Greater(t, beyond, 0.0)

	_, err = st.Intensity(25, 10)
	assert.True(t, errors.Is(err, rainfall.ErrNoCurve))
}

func ExamplePeakFlowLPS() {
	q := rainfall.PeakFlowLPS(0.70, 60, 1.0)
	fmt.Printf("%.1f L/s\n", q)
	// Output: 116.8 L/s
}
