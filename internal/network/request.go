package network

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/alexiusacademia/gosewer/internal/validation"
)

// LoadFromFile loads a design request from a JSON file.
func LoadFromFile(filepath string) (*Request, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a JSON design request and validates it.
func Decode(r io.Reader) (*Request, error) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return nil, fmt.Errorf("network: decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks the request for hard errors without designing it.
func (req Request) Validate() error {
	return validateRequest(withDefaults(req))
}

// withDefaults fills the optional request fields. The slices are copied so
// the caller's request is never modified.
func withDefaults(req Request) Request {
	if req.SewerType == "" {
		req.SewerType = standards.Storm
	}
	if req.DefaultMaterial == "" {
		req.DefaultMaterial = standards.Concrete
	}
	if req.MinCoverM == 0 {
		req.MinCoverM = DefaultMinCoverM
	}
	req.Subareas = append([]Subarea(nil), req.Subareas...)
	req.Reaches = append([]Reach(nil), req.Reaches...)
	req.Nodes = append([]Node(nil), req.Nodes...)
	for i := range req.Nodes {
		if req.Nodes[i].Kind == "" {
			req.Nodes[i].Kind = Manhole
		}
	}
	return req
}

func validateRequest(req Request) error {
	var rep validation.Report

	if !req.SewerType.Valid() {
		rep.Fail(validation.CodeInvalidValue, "sewer_type", 0, "storm or sanitary")
	}
	rep.Positive("return_period_years", req.ReturnPeriodYears)
	if req.RainfallIntensity != 0 {
		rep.Positive("rainfall_intensity_mmh", req.RainfallIntensity)
	}
	if !req.DefaultMaterial.Valid() {
		rep.Fail(validation.CodeInvalidValue, "default_material", 0, "a known pipe material")
	}
	rep.Positive("min_cover_m", req.MinCoverM)
	if req.MaxDiameterMM != 0 {
		rep.Range("max_diameter_mm", req.MaxDiameterMM, 0, standards.MaxDiameterMM, true)
	}

	nodes := make(map[string]bool, len(req.Nodes))
	for _, n := range req.Nodes {
		nodes[n.ID] = true
	}

	subareas := make(map[string]bool, len(req.Subareas))
	for i, s := range req.Subareas {
		field := fmt.Sprintf("subareas[%d]", i)
		if !rep.Required(field+".id", s.ID) {
			continue
		}
		field = "subareas." + s.ID
		if subareas[s.ID] {
			rep.Fail(validation.CodeDuplicate, field, 0, "a unique subarea id")
		}
		subareas[s.ID] = true
		rep.Positive(field+".area_ha", s.AreaHa)
		rep.Range(field+".runoff_coefficient", s.RunoffCoefficient, 0, 1, false)
		if s.TimeOfEntryMin != 0 {
			rep.Range(field+".time_of_entry_min", s.TimeOfEntryMin, 0, 24*60, false)
		}
		if s.InletID != "" && !nodes[s.InletID] {
			rep.Fail(validation.CodeUnknownRef, field+".inlet_id", 0, fmt.Sprintf("a known node, got %q", s.InletID))
		}
	}

	for _, n := range req.Nodes {
		field := "nodes." + n.ID
		switch n.Kind {
		case Inlet, Manhole, Outfall:
		default:
			rep.Fail(validation.CodeInvalidValue, field+".kind", 0, "inlet, manhole or outfall")
		}
		rep.Finite(field+".ground_elevation_m", n.GroundElevationM)
		if n.InvertElevationM != nil && rep.Finite(field+".invert_elevation_m", *n.InvertElevationM) &&
			*n.InvertElevationM > n.GroundElevationM {
			rep.Fail(validation.CodeOutOfRange, field+".invert_elevation_m", *n.InvertElevationM,
				fmt.Sprintf("<= ground elevation %g", n.GroundElevationM))
		}
		for _, id := range n.SubareaIDs {
			if !subareas[id] {
				rep.Fail(validation.CodeUnknownRef, field+".subarea_ids", 0, fmt.Sprintf("a known subarea, got %q", id))
			}
		}
	}

	for _, r := range req.Reaches {
		field := "reaches." + r.ID
		if r.Material != "" && !r.Material.Valid() {
			rep.Fail(validation.CodeInvalidValue, field+".material", 0, "a known pipe material")
		}
		if r.DiameterMM != 0 {
			rep.Range(field+".diameter_mm", r.DiameterMM, 0, standards.MaxDiameterMM, true)
		}
		if r.Slope != 0 {
			rep.Range(field+".slope", r.Slope, 0, standards.MaxSlope, true)
		}
	}

	return rep.Err()
}
