package standards

import (
	"fmt"
	"sort"
	"strings"
)

// Physical constants
const (
	Gravity         = 9.81   // m/s²
	WaterUnitWeight = 9810.0 // γ, N/m³

	// Minimum boundary shear stress for a self-cleaning pipe (Pa)
	MinShearStressPa = 1.0

	// Physically admissible pipe diameter range (mm)
	MaxDiameterMM = 5000.0

	// Physically admissible slope (m/m), i.e. 100%
	MaxSlope = 1.0
)

// Material is a pipe material with a tabulated Manning roughness.
type Material string

const (
	PVC                Material = "pvc"
	HDPE               Material = "hdpe"
	Concrete           Material = "concrete"
	ReinforcedConcrete Material = "reinforced_concrete"
	VitrifiedClay      Material = "vitrified_clay"
	DuctileIron        Material = "ductile_iron"
	CorrugatedSteel    Material = "corrugated_steel"
)

// Manning roughness coefficient n per material
var manningN = map[Material]float64{
	PVC:                0.009,
	HDPE:               0.010,
	Concrete:           0.013,
	ReinforcedConcrete: 0.013,
	VitrifiedClay:      0.013,
	DuctileIron:        0.012,
	CorrugatedSteel:    0.024,
}

// ManningN returns the roughness coefficient for m.
func ManningN(m Material) (float64, bool) {
	n, ok := manningN[m]
	return n, ok
}

// Valid reports whether m is a known material.
func (m Material) Valid() bool {
	_, ok := manningN[m]
	return ok
}

// ParseMaterial resolves a material name case-insensitively.
// Spaces and dashes are accepted in place of underscores.
func ParseMaterial(s string) (Material, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	m := Material(key)
	if !m.Valid() {
		return "", fmt.Errorf("unknown pipe material %q", s)
	}
	return m, nil
}

// Materials lists all known materials in alphabetical order.
func Materials() []Material {
	out := make([]Material, 0, len(manningN))
	for m := range manningN {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
