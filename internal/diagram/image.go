package diagram

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/alexiusacademia/gosewer/internal/manhole"
)

var (
	groundColor    = color.RGBA{R: 34, G: 139, B: 34, A: 255}
	pipeColor      = color.RGBA{R: 0, G: 0, B: 139, A: 255}
	structureColor = color.RGBA{R: 139, G: 69, B: 19, A: 255}
)

// ProfilePlot builds the longitudinal profile plot of a run.
func ProfilePlot(pr *manhole.Profile, title string) (*plot.Plot, error) {
	if pr == nil || len(pr.Points) < 2 {
		return nil, fmt.Errorf("diagram: profile has no points")
	}

	p := plot.New()
	p.Title.Text = title
	if p.Title.Text == "" {
		p.Title.Text = "Longitudinal Profile"
	}
	p.X.Label.Text = "Chainage (m)"
	p.Y.Label.Text = "Elevation (m)"
	p.Legend.Top = true

	x, ground, invert, crown := pr.Series()
	xys := func(y []float64) plotter.XYs {
		pts := make(plotter.XYs, len(x))
		for i := range x {
			pts[i] = plotter.XY{X: x[i], Y: y[i]}
		}
		return pts
	}

	groundLine, err := plotter.NewLine(xys(ground))
	if err != nil {
		return nil, err
	}
	groundLine.LineStyle.Width = vg.Points(2)
	groundLine.LineStyle.Color = groundColor
	p.Add(groundLine)
	p.Legend.Add("Ground", groundLine)

	crownLine, err := plotter.NewLine(xys(crown))
	if err != nil {
		return nil, err
	}
	crownLine.LineStyle.Width = vg.Points(1)
	crownLine.LineStyle.Color = pipeColor
	crownLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(crownLine)
	p.Legend.Add("Crown", crownLine)

	invertLine, err := plotter.NewLine(xys(invert))
	if err != nil {
		return nil, err
	}
	invertLine.LineStyle.Width = vg.Points(1.5)
	invertLine.LineStyle.Color = pipeColor
	p.Add(invertLine)
	p.Legend.Add("Invert", invertLine)

	// Structures as vertical shafts from invert to ground
	var marks plotter.XYs
	var labels plotter.XYLabels
	for _, s := range pr.Structures {
		bottom := s.InvertOutM
		if s.InvertInM < bottom {
			bottom = s.InvertInM
		}
		shaft, err := plotter.NewLine(plotter.XYs{{X: s.ChainageM, Y: bottom}, {X: s.ChainageM, Y: s.GroundM}})
		if err != nil {
			return nil, err
		}
		shaft.LineStyle.Color = structureColor
		shaft.LineStyle.Width = vg.Points(1)
		if s.Kind == manhole.Intermediate {
			shaft.LineStyle.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}
		}
		p.Add(shaft)

		marks = append(marks, plotter.XY{X: s.ChainageM, Y: s.GroundM})
		if s.Kind == manhole.AtNode {
			labels.XYs = append(labels.XYs, plotter.XY{X: s.ChainageM, Y: s.GroundM})
			labels.Labels = append(labels.Labels, s.ID)
		}
	}

	scatter, err := plotter.NewScatter(marks)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Color = structureColor
	scatter.GlyphStyle.Radius = vg.Points(3)
	scatter.GlyphStyle.Shape = draw.TriangleGlyph{}
	p.Add(scatter)

	if len(labels.Labels) > 0 {
		l, err := plotter.NewLabels(labels)
		if err != nil {
			return nil, err
		}
		p.Add(l)
	}
	return p, nil
}

// ExportProfile saves the profile to an image file. The format follows the
// extension (.png, .svg, .pdf); anything else gets a .png suffix.
func ExportProfile(pr *manhole.Profile, title, filename string) error {
	p, err := ProfilePlot(pr, title)
	if err != nil {
		return err
	}

	width := 10 * vg.Inch
	height := 5 * vg.Inch

	// Create directory if needed
	dir := filepath.Dir(filename)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".svg", ".pdf":
		return p.Save(width, height, filename)
	default:
		return p.Save(width, height, filename+".png")
	}
}

// WriteProfilePNG renders the profile as PNG to w.
func WriteProfilePNG(w io.Writer, pr *manhole.Profile, title string) error {
	p, err := ProfilePlot(pr, title)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 5*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
