package network_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexiusacademia/gosewer/internal/network"
	"github.com/alexiusacademia/gosewer/internal/rainfall"
	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/alexiusacademia/gosewer/internal/validation"
)

func elev(v float64) *float64 { return &v }

// chain is A -> B -> C -> D with one subarea at each of A, B and C.
func chain() network.Request {
	return network.Request{
		ReturnPeriodYears: 10,
		RainfallIntensity: 60,
		Subareas: []network.Subarea{
			{ID: "S1", AreaHa: 1.0, RunoffCoefficient: 0.7, InletID: "A", TimeOfEntryMin: 10},
			{ID: "S2", AreaHa: 0.5, RunoffCoefficient: 0.6, InletID: "B", TimeOfEntryMin: 5},
			{ID: "S3", AreaHa: 0.8, RunoffCoefficient: 0.5, InletID: "C"},
		},
		Nodes: []network.Node{
			{ID: "A", Kind: network.Inlet, GroundElevationM: 100},
			{ID: "B", Kind: network.Manhole, GroundElevationM: 99},
			{ID: "C", Kind: network.Manhole, GroundElevationM: 98},
			{ID: "D", Kind: network.Outfall, GroundElevationM: 97},
		},
		// listed downstream first on purpose
		Reaches: []network.Reach{
			{ID: "R3", From: "C", To: "D", LengthM: 100},
			{ID: "R2", From: "B", To: "C", LengthM: 100},
			{ID: "R1", From: "A", To: "B", LengthM: 100},
		},
	}
}

func TestSequence_LinearChain(t *testing.T) {
	req := chain()
	g, err := network.BuildGraph(req.Nodes, req.Reaches)
	require.NoError(t, err)

	seq, err := g.Sequence()
	require.NoError(t, err)
	var ids []string
	for _, r := range seq {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"R1", "R2", "R3"}, ids)
	assert.Equal(t, []string{"D"}, g.Outlets())
	assert.Empty(t, g.Divergent())
}

func TestSequence_CycleDetected(t *testing.T) {
	nodes := []network.Node{{ID: "A"}, {ID: "B"}, {ID: "C"}}
	reaches := []network.Reach{
		{ID: "R1", From: "A", To: "B", LengthM: 10},
		{ID: "R2", From: "B", To: "C", LengthM: 10},
		{ID: "R3", From: "C", To: "B", LengthM: 10},
	}
	g, err := network.BuildGraph(nodes, reaches)
	require.NoError(t, err)

	_, err = g.Sequence()
	require.ErrorIs(t, err, network.ErrCycleDetected)
	assert.Contains(t, err.Error(), "B, C")
}

func TestBuildGraph_Errors(t *testing.T) {
	nodes := []network.Node{{ID: "A"}, {ID: "B"}}
	cases := []struct {
		name    string
		nodes   []network.Node
		reaches []network.Reach
		code    validation.Code
	}{
		{"unknown to", nodes, []network.Reach{{ID: "R1", From: "A", To: "X", LengthM: 10}}, validation.CodeUnknownRef},
		{"unknown from", nodes, []network.Reach{{ID: "R1", From: "X", To: "B", LengthM: 10}}, validation.CodeUnknownRef},
		{"duplicate reach", nodes, []network.Reach{{ID: "R1", From: "A", To: "B", LengthM: 10}, {ID: "R1", From: "A", To: "B", LengthM: 10}}, validation.CodeDuplicate},
		{"duplicate node", []network.Node{{ID: "A"}, {ID: "A"}}, nil, validation.CodeDuplicate},
		{"zero length", nodes, []network.Reach{{ID: "R1", From: "A", To: "B"}}, validation.CodeOutOfRange},
		{"missing id", nodes, []network.Reach{{From: "A", To: "B", LengthM: 10}}, validation.CodeRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := network.BuildGraph(tc.nodes, tc.reaches)
			var ve *validation.Error
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.code, ve.Code)
		})
	}
}

func TestDesign_LinearChainAccumulates(t *testing.T) {
	res, err := network.Design(chain())
	require.NoError(t, err)
	require.Equal(t, []string{"R1", "R2", "R3"}, res.Order)

	r1, _ := res.Reach("R1")
	r2, _ := res.Reach("R2")
	r3, _ := res.Reach("R3")

	assert.InDelta(t, 116.76, r1.LocalFlowLPS, 1e-9)
	assert.Zero(t, r1.UpstreamFlowLPS)
	assert.Equal(t, r1.CumulativeFlowLPS, r2.UpstreamFlowLPS)
	assert.Equal(t, r2.CumulativeFlowLPS, r3.UpstreamFlowLPS)
	assert.InDelta(t, 116.76+0.5*0.6*60*2.78+0.8*0.5*60*2.78, r3.CumulativeFlowLPS, 1e-9)
	assert.Equal(t, r3.CumulativeFlowLPS, res.OutletFlowLPS)

	for _, rr := range res.Reaches {
		assert.GreaterOrEqual(t, rr.CumulativeFlowLPS, rr.LocalFlowLPS)
		assert.True(t, rr.DiameterDesigned)
		assert.Contains(t, standards.StandardDiameters(standards.Storm), rr.DiameterMM)
		require.NotNil(t, rr.Hydraulics)
	}

	// time of concentration carries downstream
	assert.Equal(t, 10.0, r1.TimeOfConcentrationMin)
	assert.Greater(t, r1.TravelTimeMin, 0.0)
	assert.Equal(t, r1.ArrivalTimeMin, r2.TimeOfConcentrationMin)

	// inverts follow the pipe and never leave less than minimum cover
	d1 := r1.DiameterMM / 1000
	assert.InDelta(t, min(100-1-d1, 99-1-d1+r1.Slope*100), r1.UpstreamInvertM, 1e-9)
	assert.InDelta(t, r1.UpstreamInvertM-r1.Slope*100, r1.DownstreamInvertM, 1e-9)
	assert.LessOrEqual(t, r2.UpstreamInvertM, r1.DownstreamInvertM)
	for _, rr := range res.Reaches {
		assert.GreaterOrEqual(t, rr.UpstreamCoverM, 1-1e-9, rr.ReachID)
		assert.GreaterOrEqual(t, rr.DownstreamCoverM, 1-1e-9, rr.ReachID)
		assert.False(t, rr.Issues.HasWarning(validation.WarnCoverInadequate), rr.ReachID)
	}

	assert.InDelta(t, 300, res.TotalLengthM, 1e-9)
	assert.InDelta(t, 2.3, res.TotalAreaHa, 1e-9)
	require.NotNil(t, res.Cost)
	assert.Equal(t, 2, res.Cost.Structures.Manholes)
	assert.Equal(t, 1, res.Cost.Structures.Inlets)
	assert.Greater(t, res.Cost.Total, 0.0)
}

// TestDesign_MergeSumsExactly joins two branches at C.
func TestDesign_MergeSumsExactly(t *testing.T) {
	req := network.Request{
		ReturnPeriodYears: 5,
		RainfallIntensity: 80,
		Subareas: []network.Subarea{
			{ID: "SA", AreaHa: 0.8, RunoffCoefficient: 0.6},
			{ID: "SB", AreaHa: 1.3, RunoffCoefficient: 0.45},
		},
		Nodes: []network.Node{
			{ID: "A", Kind: network.Inlet, GroundElevationM: 50, SubareaIDs: []string{"SA"}},
			{ID: "B", Kind: network.Inlet, GroundElevationM: 50.5, SubareaIDs: []string{"SB"}},
			{ID: "C", GroundElevationM: 49},
			{ID: "D", Kind: network.Outfall, GroundElevationM: 48},
		},
		Reaches: []network.Reach{
			{ID: "R3", From: "C", To: "D", LengthM: 90},
			{ID: "R1", From: "A", To: "C", LengthM: 80},
			{ID: "R2", From: "B", To: "C", LengthM: 120},
		},
	}
	res, err := network.Design(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2", "R3"}, res.Order)

	r1, _ := res.Reach("R1")
	r2, _ := res.Reach("R2")
	r3, _ := res.Reach("R3")
	assert.Zero(t, r3.LocalFlowLPS)
	assert.Equal(t, r1.CumulativeFlowLPS+r2.CumulativeFlowLPS, r3.CumulativeFlowLPS)
	assert.GreaterOrEqual(t, r3.TimeOfConcentrationMin, r1.ArrivalTimeMin)
	assert.GreaterOrEqual(t, r3.TimeOfConcentrationMin, r2.ArrivalTimeMin)
	assert.LessOrEqual(t, r3.UpstreamInvertM, min(r1.DownstreamInvertM, r2.DownstreamInvertM))
	assert.GreaterOrEqual(t, r3.DownstreamCoverM, 1-1e-9)
}

// TestDesign_SingleReachAdequate designs one reach that meets every check.
func TestDesign_SingleReachAdequate(t *testing.T) {
	req := network.Request{
		ReturnPeriodYears: 10,
		RainfallIntensity: 60,
		Subareas:          []network.Subarea{{ID: "S1", AreaHa: 1, RunoffCoefficient: 0.7}},
		Nodes: []network.Node{
			{ID: "A", Kind: network.Inlet, GroundElevationM: 100, InvertElevationM: elev(98), SubareaIDs: []string{"S1"}},
			{ID: "B", Kind: network.Outfall, GroundElevationM: 99},
		},
		Reaches: []network.Reach{{ID: "R1", From: "A", To: "B", LengthM: 100}},
	}
	res, err := network.Design(req)
	require.NoError(t, err)

	r1, _ := res.Reach("R1")
	assert.Equal(t, 400.0, r1.DiameterMM)
	assert.InDelta(t, 0.009, r1.Slope, 1e-12)
	assert.True(t, r1.SlopeDesigned)
	require.NotNil(t, r1.Sizing)
	assert.Empty(t, r1.Issues.Warnings)
	assert.True(t, r1.Adequate)
	assert.True(t, res.Complete)
	assert.Empty(t, res.Warnings)
	assert.InDelta(t, 1.6, r1.UpstreamCoverM, 1e-9)
	assert.InDelta(t, 1.5, r1.DownstreamCoverM, 1e-9)
	assert.Empty(t, res.InadequateReaches())
}

// TestDesign_HeadInvertKeepsCover designs a reach on falling ground with
// no invert given: the pipe starts deep enough that the flatter pipe still
// has minimum cover where it ends.
func TestDesign_HeadInvertKeepsCover(t *testing.T) {
	req := network.Request{
		ReturnPeriodYears: 10,
		RainfallIntensity: 60,
		Subareas:          []network.Subarea{{ID: "S1", AreaHa: 1, RunoffCoefficient: 0.7}},
		Nodes: []network.Node{
			{ID: "A", Kind: network.Inlet, GroundElevationM: 100, SubareaIDs: []string{"S1"}},
			{ID: "B", Kind: network.Outfall, GroundElevationM: 99},
		},
		Reaches: []network.Reach{{ID: "R1", From: "A", To: "B", LengthM: 100}},
	}
	res, err := network.Design(req)
	require.NoError(t, err)

	r1, _ := res.Reach("R1")
	assert.Equal(t, 400.0, r1.DiameterMM)
	assert.InDelta(t, 0.009, r1.Slope, 1e-12)
	assert.InDelta(t, 98.5, r1.UpstreamInvertM, 1e-9)
	assert.InDelta(t, 1.1, r1.UpstreamCoverM, 1e-9)
	assert.InDelta(t, 1.0, r1.DownstreamCoverM, 1e-9)
	assert.Empty(t, r1.Issues.Warnings)
	assert.True(t, r1.Adequate)
	assert.True(t, res.Complete)
}

func TestDesign_SpecifiedPipeIsKept(t *testing.T) {
	req := chain()
	req.Reaches[2].DiameterMM = 600
	req.Reaches[2].Slope = 0.004
	res, err := network.Design(req)
	require.NoError(t, err)

	r1, _ := res.Reach("R1")
	assert.False(t, r1.DiameterDesigned)
	assert.Equal(t, 600.0, r1.DiameterMM)
	assert.Equal(t, 0.004, r1.Slope)
	assert.False(t, r1.SlopeDesigned)
	assert.Nil(t, r1.Sizing)
}

func TestDesign_NoFlowIsInadequate(t *testing.T) {
	req := chain()
	req.Subareas = req.Subareas[2:] // only C drains
	res, err := network.Design(req)
	require.NoError(t, err)

	r1, _ := res.Reach("R1")
	assert.Zero(t, r1.CumulativeFlowLPS)
	assert.Nil(t, r1.Hydraulics)
	assert.True(t, r1.Issues.HasWarning(validation.WarnNoFlow))
	assert.False(t, r1.Adequate)
	assert.False(t, res.Complete)
	assert.Contains(t, res.InadequateReaches(), "R1")

	r3, _ := res.Reach("R3")
	assert.Greater(t, r3.CumulativeFlowLPS, 0.0)
}

func TestDesign_DivergentSplitsFlow(t *testing.T) {
	req := network.Request{
		ReturnPeriodYears: 10,
		RainfallIntensity: 60,
		Subareas:          []network.Subarea{{ID: "S1", AreaHa: 2, RunoffCoefficient: 0.5, InletID: "A"}},
		Nodes: []network.Node{
			{ID: "A", GroundElevationM: 10},
			{ID: "B", Kind: network.Outfall, GroundElevationM: 9},
			{ID: "C", Kind: network.Outfall, GroundElevationM: 9},
		},
		Reaches: []network.Reach{
			{ID: "R1", From: "A", To: "B", LengthM: 50},
			{ID: "R2", From: "A", To: "C", LengthM: 50},
		},
	}
	res, err := network.Design(req)
	require.NoError(t, err)

	r1, _ := res.Reach("R1")
	r2, _ := res.Reach("R2")
	total := 0.5 * 60 * 2 * 2.78
	assert.InDelta(t, total/2, r1.CumulativeFlowLPS, 1e-9)
	assert.InDelta(t, total/2, r2.CumulativeFlowLPS, 1e-9)
	assert.InDelta(t, total, res.OutletFlowLPS, 1e-9)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, validation.WarnDivergentNode, res.Warnings[0].Code)
}

func TestDesign_UnroutedSubareaWarns(t *testing.T) {
	req := chain()
	req.Subareas = append(req.Subareas, network.Subarea{ID: "S4", AreaHa: 0.2, RunoffCoefficient: 0.3, InletID: "D"})
	res, err := network.Design(req)
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, validation.WarnUnroutedSubarea, res.Warnings[0].Code)
	assert.Equal(t, "subareas.S4", res.Warnings[0].Field)
}

func TestDesign_AdverseGroundUsesMinimumSlope(t *testing.T) {
	req := chain()
	req.Nodes[1].GroundElevationM = 100.5 // B above A
	res, err := network.Design(req)
	require.NoError(t, err)

	r1, _ := res.Reach("R1")
	assert.True(t, r1.Issues.HasWarning(validation.WarnAdverseGround))
	assert.Equal(t, standards.MinSlope(r1.DiameterMM), r1.Slope)
}

// TestDesign_SteepGroundNeedsDrops follows 10% ground with PVC: every
// storm diameter runs too fast, so the largest is kept and the reach asks
// for drop structures.
func TestDesign_SteepGroundNeedsDrops(t *testing.T) {
	req := network.Request{
		ReturnPeriodYears: 10,
		RainfallIntensity: 60,
		Subareas:          []network.Subarea{{ID: "S1", AreaHa: 0.1, RunoffCoefficient: 1}},
		Nodes: []network.Node{
			{ID: "A", Kind: network.Inlet, GroundElevationM: 110, SubareaIDs: []string{"S1"}},
			{ID: "B", Kind: network.Outfall, GroundElevationM: 100},
		},
		Reaches: []network.Reach{{ID: "R1", From: "A", To: "B", LengthM: 100, Material: standards.PVC}},
	}
	res, err := network.Design(req)
	require.NoError(t, err)

	r1, _ := res.Reach("R1")
	assert.InDelta(t, 16.68, r1.CumulativeFlowLPS, 1e-9)
	assert.InDelta(t, 0.09, r1.Slope, 1e-12)
	assert.Equal(t, 2000.0, r1.DiameterMM)
	assert.True(t, r1.Issues.HasWarning(validation.WarnNoViableDiameter))
	assert.True(t, r1.Issues.HasWarning(validation.WarnDropStructure))
	assert.False(t, r1.Adequate)

	// gentle ground sizes normally and needs no drops
	req.Nodes[0].GroundElevationM = 101
	res, err = network.Design(req)
	require.NoError(t, err)
	r1, _ = res.Reach("R1")
	assert.False(t, r1.Issues.HasWarning(validation.WarnDropStructure))
}

func TestDesign_IntensitySources(t *testing.T) {
	req := chain()
	req.RainfallIntensity = 0

	res, err := network.Design(req)
	require.NoError(t, err)
	r1, _ := res.Reach("R1")
	want, err := rainfall.DefaultIDF.Intensity(10, r1.TimeOfConcentrationMin)
	require.NoError(t, err)
	assert.InDelta(t, want, r1.IntensityMMH, 1e-9)

	fixed := rainfall.ProviderFunc(func(float64, float64) (float64, error) { return 42, nil })
	res, err = network.Design(req, network.WithIntensityProvider(fixed))
	require.NoError(t, err)
	r1, _ = res.Reach("R1")
	assert.Equal(t, 42.0, r1.IntensityMMH)

	req.RainfallIntensity = 75
	res, err = network.Design(req, network.WithIntensityProvider(fixed))
	require.NoError(t, err)
	r1, _ = res.Reach("R1")
	assert.Equal(t, 75.0, r1.IntensityMMH)

	req.RainfallIntensity = 0
	req.Station = &rainfall.Station{Name: "empty"}
	_, err = network.Design(req)
	assert.ErrorIs(t, err, rainfall.ErrNoCurve)
}

func TestDesign_HardErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*network.Request)
		field  string
	}{
		{"return period", func(r *network.Request) { r.ReturnPeriodYears = 0 }, "return_period_years"},
		{"sewer type", func(r *network.Request) { r.SewerType = "combined" }, "sewer_type"},
		{"material", func(r *network.Request) { r.DefaultMaterial = "bamboo" }, "default_material"},
		{"runoff", func(r *network.Request) { r.Subareas[0].RunoffCoefficient = 1.5 }, "subareas.S1.runoff_coefficient"},
		{"area", func(r *network.Request) { r.Subareas[0].AreaHa = -1 }, "subareas.S1.area_ha"},
		{"unknown subarea", func(r *network.Request) { r.Nodes[0].SubareaIDs = []string{"S9"} }, "nodes.A.subarea_ids"},
		{"unknown inlet", func(r *network.Request) { r.Subareas[0].InletID = "Z" }, "subareas.S1.inlet_id"},
		{"unknown node", func(r *network.Request) { r.Reaches[0].To = "Z" }, "reaches.R3.to"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := chain()
			tc.mutate(&req)
			res, err := network.Design(req)
			assert.Nil(t, res)
			var ve *validation.Error
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestDesign_CycleFailsRun(t *testing.T) {
	req := chain()
	req.Reaches = append(req.Reaches, network.Reach{ID: "R4", From: "D", To: "B", LengthM: 50})
	_, err := network.Design(req)
	assert.ErrorIs(t, err, network.ErrCycleDetected)
}

func TestDesign_DoesNotModifyRequest(t *testing.T) {
	req := chain()
	req.Nodes[1].Kind = ""
	_, err := network.Design(req)
	require.NoError(t, err)
	assert.Empty(t, req.SewerType)
	assert.Empty(t, req.DefaultMaterial)
	assert.Empty(t, req.Nodes[1].Kind)
}

func TestDecodeAndLoad(t *testing.T) {
	doc := `{
		"return_period_years": 10,
		"rainfall_intensity_mmh": 60,
		"subareas": [{"id": "S1", "area_ha": 1, "runoff_coefficient": 0.7, "inlet_id": "A"}],
		"nodes": [
			{"id": "A", "kind": "inlet", "ground_elevation_m": 100},
			{"id": "B", "kind": "outfall", "ground_elevation_m": 99, "invert_elevation_m": 97.5}
		],
		"reaches": [{"id": "R1", "from": "A", "to": "B", "length_m": 100, "material": "pvc"}]
	}`
	req, err := network.Decode(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, req.Nodes, 2)
	require.NotNil(t, req.Nodes[1].InvertElevationM)
	assert.Equal(t, 97.5, *req.Nodes[1].InvertElevationM)
	assert.Nil(t, req.Nodes[0].InvertElevationM)
	assert.Equal(t, standards.PVC, req.Reaches[0].Material)

	path := filepath.Join(t.TempDir(), "net.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	loaded, err := network.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, req, loaded)

	_, err = network.Decode(strings.NewReader(`{"return_period_years": 0}`))
	var ve *validation.Error
	assert.True(t, errors.As(err, &ve))

	_, err = network.Decode(strings.NewReader(`{`))
	assert.Error(t, err)
}
