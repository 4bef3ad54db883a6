package hydraulics

import (
	"math"

	"github.com/alexiusacademia/gosewer/internal/standards"
)

// Geometry holds the wetted cross-section of a partially full circular pipe.
type Geometry struct {
	Theta            float64 `json:"theta_rad"`          // central angle subtended by the free surface
	AreaM2           float64 `json:"area_m2"`            // flow area
	WettedPerimeterM float64 `json:"wetted_perimeter_m"` // wetted perimeter
	HydraulicRadiusM float64 `json:"hydraulic_radius_m"` // A / P
	TopWidthM        float64 `json:"top_width_m"`        // free-surface width, zero when full
	HydraulicDepthM  float64 `json:"hydraulic_depth_m"`  // A / T, equals D when full
}

// SegmentGeometry computes the circular-segment geometry for a pipe of
// diameter d (m) at the given fill ratio y/D.
func SegmentGeometry(d, fillRatio float64) Geometry {
	if fillRatio <= 0 || d <= 0 {
		return Geometry{}
	}
	if fillRatio >= 1 {
		return Geometry{
			Theta:            2 * math.Pi,
			AreaM2:           math.Pi * d * d / 4,
			WettedPerimeterM: math.Pi * d,
			HydraulicRadiusM: d / 4,
			TopWidthM:        0,
			HydraulicDepthM:  d,
		}
	}

	// θ = 2·acos(1 − 2y/D)
	theta := 2 * math.Acos(1-2*fillRatio)

	g := Geometry{Theta: theta}
	g.AreaM2 = d * d / 8 * (theta - math.Sin(theta))
	g.WettedPerimeterM = d * theta / 2
	g.HydraulicRadiusM = g.AreaM2 / g.WettedPerimeterM
	g.TopWidthM = d * math.Sin(theta/2)
	if g.TopWidthM > 0 {
		g.HydraulicDepthM = g.AreaM2 / g.TopWidthM
	}
	return g
}

// ManningVelocity returns V = (1/n)·R^(2/3)·S^(1/2) in m/s.
func ManningVelocity(n, hydraulicRadius, slope float64) float64 {
	if n <= 0 || hydraulicRadius <= 0 || slope <= 0 {
		return 0
	}
	return math.Pow(hydraulicRadius, 2.0/3.0) * math.Sqrt(slope) / n
}

// FullFlow returns the full-bore capacity (m³/s) and velocity (m/s) of a
// circular pipe of diameter d (m).
func FullFlow(n, d, slope float64) (q, v float64) {
	area := math.Pi * d * d / 4
	v = ManningVelocity(n, d/4, slope)
	return v * area, v
}

// criticalDepth approximates the critical depth in a circular pipe using
// Straub's relation. The result never exceeds the diameter.
func criticalDepth(q, d float64) float64 {
	if q <= 0 || d <= 0 {
		return 0
	}
	yc := 1.01 / math.Pow(standards.Gravity, 0.25) * math.Pow(q, 0.506) / math.Pow(d, 0.264)
	return math.Min(yc, d)
}
