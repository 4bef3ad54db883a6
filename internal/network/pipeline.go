package network

import (
	"fmt"
	"math"

	"github.com/alexiusacademia/gosewer/internal/cost"
	"github.com/alexiusacademia/gosewer/internal/hydraulics"
	"github.com/alexiusacademia/gosewer/internal/rainfall"
	"github.com/alexiusacademia/gosewer/internal/sizing"
	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/alexiusacademia/gosewer/internal/validation"
)

// Option customizes a design run.
type Option func(*options)

type options struct {
	provider     rainfall.Provider
	safetyFactor float64
	rates        *cost.Rates
}

// WithIntensityProvider replaces the request IDF with calibrated data.
// Request.RainfallIntensity still takes precedence when set.
func WithIntensityProvider(p rainfall.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithSlopeSafetyFactor scales the ground slope used when a reach has no
// slope of its own. Values outside (0, 1] are ignored.
func WithSlopeSafetyFactor(f float64) Option {
	return func(o *options) {
		if f > 0 && f <= 1 {
			o.safetyFactor = f
		}
	}
}

// WithCostRates prices the summary with custom unit costs.
func WithCostRates(r cost.Rates) Option {
	return func(o *options) { o.rates = &r }
}

// nodeState is what has arrived at a node from upstream reaches.
type nodeState struct {
	flowLPS    float64
	arrivalMin float64
	minInvertM float64
	hasInflow  bool
}

// run carries the per-invocation state of Design.
type run struct {
	req      Request
	opts     options
	graph    *Graph
	crit     standards.Criteria
	subareas map[string]*Subarea
	byInlet  map[string][]string
	provider rainfall.Provider
	nodes    map[string]*nodeState
}

// Design runs the reach design pipeline: reaches are processed upstream to
// downstream, each one accumulating the flow of everything above it. Hard
// input errors and cycles fail the run; engineering problems only mark
// reaches inadequate.
func Design(req Request, opts ...Option) (*DesignResult, error) {
	o := options{safetyFactor: DefaultSlopeSafetyFactor}
	for _, opt := range opts {
		opt(&o)
	}

	req = withDefaults(req)
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	g, err := BuildGraph(req.Nodes, req.Reaches)
	if err != nil {
		return nil, err
	}
	seq, err := g.Sequence()
	if err != nil {
		return nil, err
	}
	crit, err := standards.CriteriaFor(req.SewerType)
	if err != nil {
		return nil, err
	}

	r := &run{
		req:      req,
		opts:     o,
		graph:    g,
		crit:     crit,
		subareas: make(map[string]*Subarea, len(req.Subareas)),
		byInlet:  make(map[string][]string),
		nodes:    make(map[string]*nodeState, len(req.Nodes)),
	}
	for i := range req.Subareas {
		s := &req.Subareas[i]
		r.subareas[s.ID] = s
		if s.InletID != "" {
			r.byInlet[s.InletID] = append(r.byInlet[s.InletID], s.ID)
		}
	}
	for _, id := range g.Nodes() {
		r.nodes[id] = &nodeState{minInvertM: math.Inf(1)}
	}
	r.provider = r.intensityProvider()

	res := &DesignResult{
		Name:              req.Name,
		SewerType:         req.SewerType,
		ReturnPeriodYears: req.ReturnPeriodYears,
		Reaches:           make([]ReachResult, 0, len(seq)),
		Complete:          true,
	}

	for _, reach := range seq {
		rr, err := r.designReach(reach)
		if err != nil {
			return nil, err
		}
		res.Reaches = append(res.Reaches, *rr)
		res.Order = append(res.Order, reach.ID)
		res.TotalLengthM += reach.LengthM
		if !rr.Adequate {
			res.Complete = false
		}
	}

	for _, id := range g.Outlets() {
		res.OutletFlowLPS += r.nodes[id].flowLPS
	}
	for _, s := range req.Subareas {
		res.TotalAreaHa += s.AreaHa
	}
	res.Warnings = r.systemWarnings()
	res.Cost = r.summarizeCost(res)
	return res, nil
}

// designReach runs the ten pipeline steps for one reach.
func (r *run) designReach(reach *Reach) (*ReachResult, error) {
	up, _ := r.graph.Node(reach.From)
	down, _ := r.graph.Node(reach.To)
	state := r.nodes[reach.From]
	share := float64(len(r.graph.Outgoing(reach.From)))

	rr := &ReachResult{
		ReachID:           reach.ID,
		From:              reach.From,
		To:                reach.To,
		LengthM:           reach.LengthM,
		Material:          reach.Material,
		UpstreamGroundM:   up.GroundElevationM,
		DownstreamGroundM: down.GroundElevationM,
	}
	if rr.Material == "" {
		rr.Material = r.req.DefaultMaterial
	}

	// 1. contributing subareas
	rr.SubareaIDs = r.contributing(up)
	parts := make([]rainfall.Catchment, 0, len(rr.SubareaIDs))
	entries := make([]float64, 0, len(rr.SubareaIDs)+1)
	for _, id := range rr.SubareaIDs {
		s := r.subareas[id]
		parts = append(parts, rainfall.Catchment{AreaHa: s.AreaHa, RunoffCoefficient: s.RunoffCoefficient})
		entries = append(entries, s.TimeOfEntryMin)
	}
	rr.AreaHa, rr.RunoffCoefficient = rainfall.WeightedRunoff(parts)

	// 2. time of concentration
	if state.hasInflow {
		entries = append(entries, state.arrivalMin)
	}
	rr.TimeOfConcentrationMin = rainfall.TimeOfConcentration(entries...)

	// 3. intensity
	i, err := r.provider.Intensity(r.req.ReturnPeriodYears, rr.TimeOfConcentrationMin)
	if err != nil {
		return nil, fmt.Errorf("network: intensity for reach %s: %w", reach.ID, err)
	}
	rr.IntensityMMH = i

	// 4 and 5. local peak plus everything that arrived, split over the
	// outgoing reaches of a divergent node
	rr.LocalFlowLPS = rainfall.PeakFlowLPS(rr.RunoffCoefficient, i, rr.AreaHa) / share
	rr.UpstreamFlowLPS = state.flowLPS / share
	rr.CumulativeFlowLPS = rr.LocalFlowLPS + rr.UpstreamFlowLPS

	// 6. slope from the ground when none is given
	groundSlope := 0.0
	if reach.Slope <= 0 {
		fall := up.GroundElevationM - down.GroundElevationM
		groundSlope = fall / reach.LengthM * r.opts.safetyFactor
		if groundSlope <= 0 {
			rr.Issues.Warn(validation.WarnAdverseGround, "slope",
				"ground falls %.3f m over %.1f m, using the minimum pipe slope", fall, reach.LengthM)
			groundSlope = 0
		}
	}

	// 7. diameter
	r.resolvePipe(reach, rr, groundSlope)

	// 8. hydraulics, inverts, cover
	if rr.CumulativeFlowLPS > 0 {
		pipe := hydraulics.PipeSpec{Material: rr.Material, DiameterMM: rr.DiameterMM, Slope: rr.Slope, LengthM: reach.LengthM}
		h := hydraulics.Assess(pipe, hydraulics.FlowState{FlowLPS: rr.CumulativeFlowLPS}, r.req.SewerType)
		rr.Hydraulics = h
		if !h.Valid() {
			rr.Issues.Warn(validation.WarnHydraulicsFailed, "", "hydraulics not computed: %v", h.Issues.Err())
		}
		rr.Issues.Warnings = append(rr.Issues.Warnings, h.Issues.Warnings...)
	} else {
		rr.Issues.Warn(validation.WarnNoFlow, "cumulative_flow_lps", "no flow reaches %s, pipe set to %.0f mm", reach.ID, rr.DiameterMM)
	}
	r.setInverts(up, state, rr)

	// 9. travel time
	if rr.Hydraulics != nil && rr.Hydraulics.VelocityMS > 0 {
		rr.TravelTimeMin = reach.LengthM / rr.Hydraulics.VelocityMS / 60
	}
	rr.ArrivalTimeMin = rr.TimeOfConcentrationMin + rr.TravelTimeMin

	next := r.nodes[reach.To]
	next.flowLPS += rr.CumulativeFlowLPS
	next.arrivalMin = math.Max(next.arrivalMin, rr.ArrivalTimeMin)
	next.minInvertM = math.Min(next.minInvertM, rr.DownstreamInvertM)
	next.hasInflow = true

	// 10. adequacy
	rr.Adequate = len(rr.Issues.Warnings) == 0 && rr.Hydraulics != nil && rr.Hydraulics.Valid()
	return rr, nil
}

// resolvePipe picks the diameter and slope of a reach, sizing it when no
// diameter is given.
func (r *run) resolvePipe(reach *Reach, rr *ReachResult, groundSlope float64) {
	floor := func(d float64) float64 {
		if reach.Slope > 0 {
			return reach.Slope
		}
		rr.SlopeDesigned = true
		return math.Min(math.Max(groundSlope, standards.MinSlope(d)), standards.MaxSlope)
	}

	if reach.DiameterMM > 0 {
		rr.DiameterMM = reach.DiameterMM
		rr.Slope = floor(rr.DiameterMM)
		return
	}

	rr.DiameterDesigned = true
	if rr.CumulativeFlowLPS <= 0 {
		rr.DiameterMM = r.crit.DiametersMM[0]
		rr.Slope = floor(rr.DiameterMM)
		return
	}

	c := sizing.Constraints{MaxDiameterMM: r.req.MaxDiameterMM}
	if reach.Slope > 0 {
		c.Slope = reach.Slope
	} else {
		c.MinSlope = math.Min(groundSlope, standards.MaxSlope)
	}
	rec, err := sizing.Size(rr.CumulativeFlowLPS, rr.Material, r.req.SewerType, c)
	if err != nil {
		rr.Issues.Warn(validation.WarnHydraulicsFailed, "diameter_mm", "sizing failed: %v", err)
		rr.DiameterMM = r.crit.DiametersMM[0]
		rr.Slope = floor(rr.DiameterMM)
		return
	}
	rr.Sizing = rec
	rr.DiameterMM = rec.DiameterMM
	rr.Slope = floor(rec.DiameterMM)
	for _, w := range rec.Issues.Warnings {
		if w.Code == validation.WarnNoViableDiameter {
			rr.Issues.Warnings = append(rr.Issues.Warnings, w)
		}
	}
	if reach.Slope <= 0 && !rec.Viable && tooFast(rec.Candidates, r.crit.MaxVelocity) {
		rr.Issues.Warn(validation.WarnDropStructure, "slope",
			"ground slope %.4f puts every diameter above %.1f m/s, lay the pipe flatter and drop at structures",
			groundSlope, r.crit.MaxVelocity)
	}
}

// tooFast reports whether every candidate runs faster than vmax at the
// design fill.
func tooFast(cands []sizing.Candidate, vmax float64) bool {
	for _, c := range cands {
		if c.VelocityMS <= vmax {
			return false
		}
	}
	return len(cands) > 0
}

// setInverts places the pipe below the upstream node and checks cover at
// both ends. A derived invert is lowered as far as needed to keep minimum
// cover at the downstream end; a given node invert is never moved.
func (r *run) setInverts(up *Node, state *nodeState, rr *ReachResult) {
	d := rr.DiameterMM / 1000
	deepest := rr.DownstreamGroundM - r.req.MinCoverM - d + rr.Slope*rr.LengthM
	switch {
	case up.InvertElevationM != nil:
		rr.UpstreamInvertM = *up.InvertElevationM
		if state.hasInflow && rr.UpstreamInvertM > state.minInvertM+1e-6 {
			rr.Issues.Warn(validation.WarnInvertMismatch, "upstream_invert_m",
				"outgoing invert %.3f m is above the lowest incoming invert %.3f m", rr.UpstreamInvertM, state.minInvertM)
		}
	case state.hasInflow:
		rr.UpstreamInvertM = math.Min(state.minInvertM, deepest)
	default:
		rr.UpstreamInvertM = math.Min(up.GroundElevationM-r.req.MinCoverM-d, deepest)
	}
	rr.DownstreamInvertM = rr.UpstreamInvertM - rr.Slope*rr.LengthM

	rr.UpstreamCoverM = rr.UpstreamGroundM - (rr.UpstreamInvertM + d)
	rr.DownstreamCoverM = rr.DownstreamGroundM - (rr.DownstreamInvertM + d)
	if low := math.Min(rr.UpstreamCoverM, rr.DownstreamCoverM); low < r.req.MinCoverM-1e-9 {
		rr.Issues.Warn(validation.WarnCoverInadequate, "cover_m",
			"cover %.2f m is below the %.2f m minimum", low, r.req.MinCoverM)
	}
}

// contributing returns the subareas draining to a node: those the node
// lists and those naming it as their inlet, without repeats.
func (r *run) contributing(n *Node) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, id := range append(append([]string(nil), n.SubareaIDs...), r.byInlet[n.ID]...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *run) intensityProvider() rainfall.Provider {
	if r.req.RainfallIntensity > 0 {
		fixed := r.req.RainfallIntensity
		return rainfall.ProviderFunc(func(float64, float64) (float64, error) { return fixed, nil })
	}
	switch {
	case r.opts.provider != nil:
		return r.opts.provider
	case r.req.Station != nil:
		return r.req.Station
	case r.req.IDF != nil:
		return *r.req.IDF
	}
	return rainfall.DefaultIDF
}

// systemWarnings reports topology problems that belong to no single reach.
func (r *run) systemWarnings() []validation.Warning {
	var rep validation.Report
	for _, id := range r.graph.Divergent() {
		rep.Warn(validation.WarnDivergentNode, "nodes."+id,
			"flow at %s is split equally over %d outgoing reaches", id, len(r.graph.Outgoing(id)))
	}

	routed := make(map[string]bool)
	for _, id := range r.graph.Nodes() {
		if len(r.graph.Outgoing(id)) == 0 {
			continue
		}
		n, _ := r.graph.Node(id)
		for _, s := range r.contributing(n) {
			routed[s] = true
		}
	}
	for _, s := range r.req.Subareas {
		if !routed[s.ID] {
			rep.Warn(validation.WarnUnroutedSubarea, "subareas."+s.ID,
				"subarea %s drains to no reach, its %.2f ha are not in any flow", s.ID, s.AreaHa)
		}
	}
	return rep.Warnings
}

func (r *run) summarizeCost(res *DesignResult) *cost.Summary {
	items := make([]cost.Item, 0, len(res.Reaches))
	for _, rr := range res.Reaches {
		items = append(items, cost.Item{
			ReachID:    rr.ReachID,
			Material:   rr.Material,
			DiameterMM: rr.DiameterMM,
			LengthM:    rr.LengthM,
			AvgCoverM:  (rr.UpstreamCoverM + rr.DownstreamCoverM) / 2,
		})
	}

	var st cost.Structures
	for _, id := range r.graph.Nodes() {
		n, _ := r.graph.Node(id)
		switch n.Kind {
		case Inlet:
			st.Inlets++
		case Manhole:
			st.Manholes++
		}
	}

	rates := cost.DefaultRates()
	if r.opts.rates != nil {
		rates = *r.opts.rates
	}
	return rates.Summarize(items, st, res.TotalAreaHa)
}
