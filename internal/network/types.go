// Package network builds the sewer graph from a flat reach list, orders it
// upstream to downstream and runs the reach design pipeline.
package network

import (
	"github.com/alexiusacademia/gosewer/internal/cost"
	"github.com/alexiusacademia/gosewer/internal/hydraulics"
	"github.com/alexiusacademia/gosewer/internal/rainfall"
	"github.com/alexiusacademia/gosewer/internal/sizing"
	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/alexiusacademia/gosewer/internal/validation"
)

// Default design settings
const (
	DefaultMinCoverM         = 1.0
	DefaultSlopeSafetyFactor = 0.9
)

// NodeKind is the role of a node in the network.
type NodeKind string

const (
	Inlet   NodeKind = "inlet"
	Manhole NodeKind = "manhole"
	Outfall NodeKind = "outfall"
)

// Subarea is a drainage subarea contributing runoff to one inlet.
type Subarea struct {
	ID                string  `json:"id"`
	AreaHa            float64 `json:"area_ha"`
	RunoffCoefficient float64 `json:"runoff_coefficient"` // 0 to 1
	InletID           string  `json:"inlet_id,omitempty"`
	TimeOfEntryMin    float64 `json:"time_of_entry_min,omitempty"`
}

// Node is an inlet, manhole or outfall.
type Node struct {
	ID               string   `json:"id"`
	Kind             NodeKind `json:"kind,omitempty"`
	StationM         float64  `json:"station_m,omitempty"`
	InvertElevationM *float64 `json:"invert_elevation_m,omitempty"` // nil lets the pipeline set it
	GroundElevationM float64  `json:"ground_elevation_m"`
	SubareaIDs       []string `json:"subarea_ids,omitempty"`
}

// Reach is a directed pipe between two nodes. Zero DiameterMM or Slope
// asks the pipeline to design it.
type Reach struct {
	ID         string             `json:"id"`
	From       string             `json:"from"`
	To         string             `json:"to"`
	LengthM    float64            `json:"length_m"`
	Material   standards.Material `json:"material,omitempty"`
	DiameterMM float64            `json:"diameter_mm,omitempty"`
	Slope      float64            `json:"slope,omitempty"`
}

// Request is one complete design run.
type Request struct {
	Name              string              `json:"name,omitempty"`
	SewerType         standards.SewerType `json:"sewer_type,omitempty"`
	ReturnPeriodYears float64             `json:"return_period_years"`
	RainfallIntensity float64             `json:"rainfall_intensity_mmh,omitempty"` // overrides the IDF when > 0
	IDF               *rainfall.IDF       `json:"idf,omitempty"`
	Station           *rainfall.Station   `json:"station,omitempty"`
	DefaultMaterial   standards.Material  `json:"default_material,omitempty"`
	MinCoverM         float64             `json:"min_cover_m,omitempty"`
	MaxDiameterMM     float64             `json:"max_diameter_mm,omitempty"`
	Subareas          []Subarea           `json:"subareas"`
	Nodes             []Node              `json:"nodes"`
	Reaches           []Reach             `json:"reaches"`
}

// ReachResult is the design of one reach.
type ReachResult struct {
	ReachID  string             `json:"reach_id"`
	From     string             `json:"from"`
	To       string             `json:"to"`
	LengthM  float64            `json:"length_m"`
	Material standards.Material `json:"material"`

	// Hydrology
	SubareaIDs             []string `json:"subarea_ids,omitempty"`
	AreaHa                 float64  `json:"area_ha"`
	RunoffCoefficient      float64  `json:"runoff_coefficient"`
	TimeOfConcentrationMin float64  `json:"time_of_concentration_min"`
	IntensityMMH           float64  `json:"intensity_mmh"`
	LocalFlowLPS           float64  `json:"local_flow_lps"`
	UpstreamFlowLPS        float64  `json:"upstream_flow_lps"`
	CumulativeFlowLPS      float64  `json:"cumulative_flow_lps"`

	// Pipe
	DiameterMM       float64                `json:"diameter_mm"`
	Slope            float64                `json:"slope"`
	DiameterDesigned bool                   `json:"diameter_designed"`
	SlopeDesigned    bool                   `json:"slope_designed"`
	Hydraulics       *hydraulics.Result     `json:"hydraulics,omitempty"`
	Sizing           *sizing.Recommendation `json:"sizing,omitempty"`

	// Profile
	UpstreamGroundM   float64 `json:"upstream_ground_m"`
	DownstreamGroundM float64 `json:"downstream_ground_m"`
	UpstreamInvertM   float64 `json:"upstream_invert_m"`
	DownstreamInvertM float64 `json:"downstream_invert_m"`
	UpstreamCoverM    float64 `json:"upstream_cover_m"`
	DownstreamCoverM  float64 `json:"downstream_cover_m"`

	// Timing
	TravelTimeMin  float64 `json:"travel_time_min"`
	ArrivalTimeMin float64 `json:"arrival_time_min"`

	Adequate bool              `json:"adequate"`
	Issues   validation.Report `json:"issues"`
}

// DesignResult aggregates a complete design run.
type DesignResult struct {
	Name              string              `json:"name,omitempty"`
	SewerType         standards.SewerType `json:"sewer_type"`
	ReturnPeriodYears float64             `json:"return_period_years"`

	Reaches []ReachResult `json:"reaches"` // in processing order
	Order   []string      `json:"order"`

	TotalLengthM  float64 `json:"total_length_m"`
	TotalAreaHa   float64 `json:"total_area_ha"`
	OutletFlowLPS float64 `json:"outlet_flow_lps"`

	Cost     *cost.Summary        `json:"cost"`
	Warnings []validation.Warning `json:"warnings,omitempty"` // system level
	Complete bool                 `json:"complete"`
}

// Reach returns the result of the reach with the given id.
func (r *DesignResult) Reach(id string) (*ReachResult, bool) {
	for i := range r.Reaches {
		if r.Reaches[i].ReachID == id {
			return &r.Reaches[i], true
		}
	}
	return nil, false
}

// InadequateReaches lists the ids of reaches that carry warnings.
func (r *DesignResult) InadequateReaches() []string {
	var ids []string
	for _, rr := range r.Reaches {
		if !rr.Adequate {
			ids = append(ids, rr.ReachID)
		}
	}
	return ids
}
