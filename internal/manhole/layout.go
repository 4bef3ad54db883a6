// Package manhole places structures along a designed sewer run and builds
// its longitudinal profile.
package manhole

import (
	"errors"
	"fmt"
	"math"

	"github.com/alexiusacademia/gosewer/internal/network"
	"github.com/alexiusacademia/gosewer/internal/validation"
)

// Maximum structure spacing (m) by pipe size
const (
	SmallPipeSpacingM = 120.0
	LargePipeSpacingM = 150.0
	SmallPipeLimitMM  = 600.0
)

var (
	// ErrEmptyNetwork is returned for a design result without reaches.
	ErrEmptyNetwork = errors.New("manhole: no reaches to lay out")

	// ErrBrokenRun is returned when consecutive reaches of a run do not meet.
	ErrBrokenRun = errors.New("manhole: run is not continuous")
)

// Kind tells a network node structure from one added by spacing.
type Kind string

const (
	AtNode       Kind = "node"
	Intermediate Kind = "intermediate"
)

// Structure is one manhole on the run.
type Structure struct {
	ID         string  `json:"id"`
	Kind       Kind    `json:"kind"`
	ReachID    string  `json:"reach_id,omitempty"` // reach an intermediate structure sits on
	ChainageM  float64 `json:"chainage_m"`
	GroundM    float64 `json:"ground_m"`
	InvertInM  float64 `json:"invert_in_m"`
	InvertOutM float64 `json:"invert_out_m"`
	DropM      float64 `json:"drop_m"`
	DepthM     float64 `json:"depth_m"` // ground to lowest invert
}

// Point is one vertex of the longitudinal profile.
type Point struct {
	ChainageM float64 `json:"chainage_m"`
	GroundM   float64 `json:"ground_m"`
	InvertM   float64 `json:"invert_m"`
	CrownM    float64 `json:"crown_m"`
}

// Profile is the laid-out run.
type Profile struct {
	Run        []string             `json:"run"` // reach ids, upstream first
	LengthM    float64              `json:"length_m"`
	Structures []Structure          `json:"structures"`
	Points     []Point              `json:"points"`
	Warnings   []validation.Warning `json:"warnings,omitempty"`
}

// Options selects the run to lay out.
type Options struct {
	// Reaches is an explicit run, upstream first. Empty selects the longest
	// run from any head node to an outlet.
	Reaches []string
}

// MaxSpacing returns the largest allowed distance between structures on a
// pipe of the given diameter.
func MaxSpacing(diameterMM float64) float64 {
	if diameterMM <= SmallPipeLimitMM {
		return SmallPipeSpacingM
	}
	return LargePipeSpacingM
}

// Layout places a structure at every node of the run and intermediate
// structures where a reach exceeds MaxSpacing.
func Layout(res *network.DesignResult, opts Options) (*Profile, error) {
	if res == nil || len(res.Reaches) == 0 {
		return nil, ErrEmptyNetwork
	}

	run, err := selectRun(res, opts.Reaches)
	if err != nil {
		return nil, err
	}

	p := &Profile{}
	var rep validation.Report
	chainage := 0.0
	for i, rr := range run {
		p.Run = append(p.Run, rr.ReachID)
		d := rr.DiameterMM / 1000

		in := rr.UpstreamInvertM
		if i > 0 {
			in = run[i-1].DownstreamInvertM
		}
		s := Structure{
			ID:         rr.From,
			Kind:       AtNode,
			ChainageM:  chainage,
			GroundM:    rr.UpstreamGroundM,
			InvertInM:  in,
			InvertOutM: rr.UpstreamInvertM,
			DropM:      in - rr.UpstreamInvertM,
		}
		s.DepthM = s.GroundM - math.Min(s.InvertInM, s.InvertOutM)
		if s.DropM < -1e-6 {
			rep.Warn(validation.WarnInvertMismatch, "structures."+s.ID,
				"outgoing invert is %.3f m above the incoming invert", -s.DropM)
		}
		p.Structures = append(p.Structures, s)

		spacing := MaxSpacing(rr.DiameterMM)
		if n := int(math.Ceil(rr.LengthM/spacing)) - 1; n > 0 {
			rep.Warn(validation.WarnSpacingExceeded, "reaches."+rr.ReachID,
				"%.1f m exceeds the %.0f m spacing for %.0f mm, %d intermediate structures added",
				rr.LengthM, spacing, rr.DiameterMM, n)
			for k := 1; k <= n; k++ {
				f := float64(k) / float64(n+1)
				inv := lerp(rr.UpstreamInvertM, rr.DownstreamInvertM, f)
				ground := lerp(rr.UpstreamGroundM, rr.DownstreamGroundM, f)
				p.Structures = append(p.Structures, Structure{
					ID:         fmt.Sprintf("%s-%d", rr.ReachID, k),
					Kind:       Intermediate,
					ReachID:    rr.ReachID,
					ChainageM:  chainage + f*rr.LengthM,
					GroundM:    ground,
					InvertInM:  inv,
					InvertOutM: inv,
					DepthM:     ground - inv,
				})
			}
		}

		p.Points = append(p.Points,
			Point{ChainageM: chainage, GroundM: rr.UpstreamGroundM, InvertM: rr.UpstreamInvertM, CrownM: rr.UpstreamInvertM + d},
			Point{ChainageM: chainage + rr.LengthM, GroundM: rr.DownstreamGroundM, InvertM: rr.DownstreamInvertM, CrownM: rr.DownstreamInvertM + d},
		)
		chainage += rr.LengthM
	}

	last := run[len(run)-1]
	p.Structures = append(p.Structures, Structure{
		ID:         last.To,
		Kind:       AtNode,
		ChainageM:  chainage,
		GroundM:    last.DownstreamGroundM,
		InvertInM:  last.DownstreamInvertM,
		InvertOutM: last.DownstreamInvertM,
		DepthM:     last.DownstreamGroundM - last.DownstreamInvertM,
	})
	p.LengthM = chainage
	p.Warnings = rep.Warnings
	return p, nil
}

// Series splits the profile into plot-ready columns.
func (p *Profile) Series() (chainage, ground, invert, crown []float64) {
	for _, pt := range p.Points {
		chainage = append(chainage, pt.ChainageM)
		ground = append(ground, pt.GroundM)
		invert = append(invert, pt.InvertM)
		crown = append(crown, pt.CrownM)
	}
	return chainage, ground, invert, crown
}

// selectRun resolves an explicit run or finds the longest one.
func selectRun(res *network.DesignResult, ids []string) ([]*network.ReachResult, error) {
	if len(ids) > 0 {
		run := make([]*network.ReachResult, 0, len(ids))
		for i, id := range ids {
			rr, ok := res.Reach(id)
			if !ok {
				return nil, fmt.Errorf("manhole: unknown reach %q", id)
			}
			if i > 0 && run[i-1].To != rr.From {
				return nil, fmt.Errorf("%w: %s ends at %s, %s starts at %s",
					ErrBrokenRun, run[i-1].ReachID, run[i-1].To, rr.ReachID, rr.From)
			}
			run = append(run, rr)
		}
		return run, nil
	}

	// Reaches are in upstream-first order, so one pass settles the longest
	// distance to every node.
	dist := make(map[string]float64)
	prev := make(map[string]*network.ReachResult)
	outgoing := make(map[string]bool)
	for i := range res.Reaches {
		rr := &res.Reaches[i]
		outgoing[rr.From] = true
		if cand := dist[rr.From] + rr.LengthM; cand > dist[rr.To] {
			dist[rr.To] = cand
			prev[rr.To] = rr
		}
	}

	end, best := "", -1.0
	for _, rr := range res.Reaches {
		if !outgoing[rr.To] && dist[rr.To] > best {
			end, best = rr.To, dist[rr.To]
		}
	}

	var run []*network.ReachResult
	for rr := prev[end]; rr != nil; rr = prev[rr.From] {
		run = append([]*network.ReachResult{rr}, run...)
	}
	return run, nil
}

func lerp(a, b, f float64) float64 {
	return a + f*(b-a)
}
