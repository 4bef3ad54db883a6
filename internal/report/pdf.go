// Package report renders a network design as a PDF document.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/alexiusacademia/gosewer/internal/diagram"
	"github.com/alexiusacademia/gosewer/internal/manhole"
	"github.com/alexiusacademia/gosewer/internal/network"
)

// ErrNoResult is returned when there is nothing to report.
var ErrNoResult = errors.New("report: no design result")

// Options controls optional report content.
type Options struct {
	Project string
	Author  string
	Date    time.Time        // zero uses today
	Profile *manhole.Profile // embedded as an image when set
}

var reachColumns = []struct {
	title string
	width float64
}{
	{"Reach", 16}, {"From-To", 26}, {"L (m)", 16}, {"Q (L/s)", 20}, {"D (mm)", 16},
	{"Slope", 18}, {"V (m/s)", 17}, {"y/D", 14}, {"Cover (m)", 20}, {"Status", 27},
}

// WritePDF writes the design report to w.
func WritePDF(w io.Writer, title string, res *network.DesignResult, opts Options) error {
	if res == nil {
		return ErrNoResult
	}
	if title == "" {
		title = "Sewer Network Design Report"
	}
	if opts.Date.IsZero() {
		opts.Date = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetAuthor(opts.Author, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 10)
	if opts.Project != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Project: %s", opts.Project))
		pdf.Ln(6)
	}
	if opts.Author != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Author: %s", opts.Author))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", opts.Date.Format("2006-01-02")))
	pdf.Ln(10)

	heading(pdf, "Design Summary")
	keyValues(pdf, [][2]string{
		{"Network", res.Name},
		{"Sewer type", string(res.SewerType)},
		{"Return period", fmt.Sprintf("%.0f years", res.ReturnPeriodYears)},
		{"Reaches", fmt.Sprintf("%d", len(res.Reaches))},
		{"Total length", fmt.Sprintf("%.1f m", res.TotalLengthM)},
		{"Drained area", fmt.Sprintf("%.2f ha", res.TotalAreaHa)},
		{"Outlet flow", fmt.Sprintf("%.2f L/s", res.OutletFlowLPS)},
		{"Complete", yesNo(res.Complete)},
	})

	heading(pdf, "Reach Design")
	reachTable(pdf, res)

	if warnings := collectWarnings(res); len(warnings) > 0 {
		heading(pdf, "Warnings")
		pdf.SetFont("Helvetica", "", 9)
		for _, line := range warnings {
			pdf.MultiCell(0, 5, line, "", "L", false)
		}
		pdf.Ln(4)
	}

	if res.Cost != nil {
		heading(pdf, "Cost Estimate")
		c := res.Cost
		keyValues(pdf, [][2]string{
			{"Pipe", money(c.Currency, c.PipeCost)},
			{"Excavation", fmt.Sprintf("%s (%.1f m3)", money(c.Currency, c.ExcavationCost), c.ExcavationM3)},
			{"Manholes", fmt.Sprintf("%s (%d)", money(c.Currency, c.ManholeCost), c.Structures.Manholes)},
			{"Inlets", fmt.Sprintf("%s (%d)", money(c.Currency, c.InletCost), c.Structures.Inlets)},
			{"Total", money(c.Currency, c.Total)},
			{"Per hectare", money(c.Currency, c.PerHectare)},
		})

		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range []string{"Material", "D (mm)", "Reaches", "Length (m)", "Pipe cost"} {
			pdf.CellFormat(36, 6, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		for _, m := range c.Materials {
			pdf.CellFormat(36, 6, string(m.Material), "1", 0, "L", false, 0, "")
			pdf.CellFormat(36, 6, fmt.Sprintf("%.0f", m.DiameterMM), "1", 0, "R", false, 0, "")
			pdf.CellFormat(36, 6, fmt.Sprintf("%d", m.Reaches), "1", 0, "R", false, 0, "")
			pdf.CellFormat(36, 6, fmt.Sprintf("%.1f", m.LengthM), "1", 0, "R", false, 0, "")
			pdf.CellFormat(36, 6, money(c.Currency, m.PipeCost), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	if opts.Profile != nil {
		if err := profileImage(pdf, opts.Profile); err != nil {
			return fmt.Errorf("report: profile: %w", err)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return pdf.Output(w)
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, text)
	pdf.Ln(9)
}

func keyValues(pdf *gofpdf.Fpdf, rows [][2]string) {
	pdf.SetFont("Helvetica", "", 10)
	for _, kv := range rows {
		pdf.CellFormat(45, 6, kv[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, kv[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func reachTable(pdf *gofpdf.Fpdf, res *network.DesignResult) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range reachColumns {
		pdf.CellFormat(col.width, 6, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, rr := range res.Reaches {
		v, fill := "-", "-"
		if h := rr.Hydraulics; h != nil && h.Valid() {
			v = fmt.Sprintf("%.2f", h.VelocityMS)
			fill = fmt.Sprintf("%.2f", h.FillRatio)
		}
		status := "OK"
		if !rr.Adequate {
			status = "REVIEW"
		}
		cells := []string{
			rr.ReachID,
			rr.From + "-" + rr.To,
			fmt.Sprintf("%.1f", rr.LengthM),
			fmt.Sprintf("%.2f", rr.CumulativeFlowLPS),
			fmt.Sprintf("%.0f", rr.DiameterMM),
			fmt.Sprintf("%.4f", rr.Slope),
			v,
			fill,
			fmt.Sprintf("%.2f", minCover(rr)),
			status,
		}
		for i, text := range cells {
			align := "R"
			if i < 2 || i == len(cells)-1 {
				align = "L"
			}
			pdf.CellFormat(reachColumns[i].width, 6, text, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func profileImage(pdf *gofpdf.Fpdf, p *manhole.Profile) error {
	var buf bytes.Buffer
	if err := diagram.WriteProfilePNG(&buf, p, "Longitudinal Profile"); err != nil {
		return err
	}
	pdf.AddPage()
	heading(pdf, "Longitudinal Profile")
	opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("profile", opt, &buf)
	pdf.ImageOptions("profile", 10, pdf.GetY(), 190, 0, true, opt, 0, "")
	return nil
}

func collectWarnings(res *network.DesignResult) []string {
	var out []string
	for _, w := range res.Warnings {
		out = append(out, w.String())
	}
	for _, rr := range res.Reaches {
		for _, w := range rr.Issues.Warnings {
			out = append(out, rr.ReachID+": "+w.String())
		}
		for _, e := range rr.Issues.Errors {
			out = append(out, rr.ReachID+": "+e.Error())
		}
	}
	return out
}

func minCover(rr network.ReachResult) float64 {
	if rr.UpstreamCoverM < rr.DownstreamCoverM {
		return rr.UpstreamCoverM
	}
	return rr.DownstreamCoverM
}

func money(currency string, v float64) string {
	return fmt.Sprintf("%s %.2f", currency, v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
