// Package workbook reads design requests from and writes design results to
// XLSX workbooks.
//
// A request workbook has a Settings sheet of key/value rows and Subareas,
// Nodes and Reaches sheets whose first row names the columns. Column order
// is free; unknown columns are ignored.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/alexiusacademia/gosewer/internal/network"
	"github.com/alexiusacademia/gosewer/internal/standards"
)

// Sheet names
const (
	SettingsSheet = "Settings"
	SubareasSheet = "Subareas"
	NodesSheet    = "Nodes"
	ReachesSheet  = "Reaches"
	ResultsSheet  = "Results"
	CostSheet     = "Cost"
	WarningsSheet = "Warnings"
)

// ErrMissingSheet is returned when a required sheet is absent.
var ErrMissingSheet = errors.New("workbook: missing sheet")

var (
	subareaColumns = []string{"id", "area_ha", "runoff_coefficient", "inlet_id", "time_of_entry_min"}
	nodeColumns    = []string{"id", "kind", "station_m", "ground_elevation_m", "invert_elevation_m", "subarea_ids"}
	reachColumns   = []string{"id", "from", "to", "length_m", "material", "diameter_mm", "slope"}
)

// ReadRequest parses a request workbook.
func ReadRequest(r io.Reader) (*network.Request, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("workbook: open: %w", err)
	}
	defer f.Close()

	req := &network.Request{}
	if err := readSettings(f, req); err != nil {
		return nil, err
	}

	err = eachRow(f, SubareasSheet, func(row record) error {
		s := network.Subarea{ID: row.str("id"), InletID: row.str("inlet_id")}
		var err error
		if s.AreaHa, err = row.float("area_ha"); err != nil {
			return err
		}
		if s.RunoffCoefficient, err = row.float("runoff_coefficient"); err != nil {
			return err
		}
		if s.TimeOfEntryMin, err = row.float("time_of_entry_min"); err != nil {
			return err
		}
		req.Subareas = append(req.Subareas, s)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(f, NodesSheet, func(row record) error {
		n := network.Node{
			ID:         row.str("id"),
			Kind:       network.NodeKind(strings.ToLower(row.str("kind"))),
			SubareaIDs: splitList(row.str("subarea_ids")),
		}
		var err error
		if n.StationM, err = row.float("station_m"); err != nil {
			return err
		}
		if n.GroundElevationM, err = row.float("ground_elevation_m"); err != nil {
			return err
		}
		if row.str("invert_elevation_m") != "" {
			v, err := row.float("invert_elevation_m")
			if err != nil {
				return err
			}
			n.InvertElevationM = &v
		}
		req.Nodes = append(req.Nodes, n)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(f, ReachesSheet, func(row record) error {
		rc := network.Reach{
			ID:       row.str("id"),
			From:     row.str("from"),
			To:       row.str("to"),
		}
		var err error
		if rc.Material, err = row.material("material"); err != nil {
			return err
		}
		if rc.LengthM, err = row.float("length_m"); err != nil {
			return err
		}
		if rc.DiameterMM, err = row.float("diameter_mm"); err != nil {
			return err
		}
		if rc.Slope, err = row.float("slope"); err != nil {
			return err
		}
		req.Reaches = append(req.Reaches, rc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// WriteRequest writes req in the layout ReadRequest expects. It doubles as
// a template generator.
func WriteRequest(w io.Writer, req *network.Request) error {
	f := excelize.NewFile()
	defer f.Close()

	settings := [][]interface{}{
		{"key", "value"},
		{"name", req.Name},
		{"sewer_type", string(req.SewerType)},
		{"return_period_years", req.ReturnPeriodYears},
		{"rainfall_intensity_mmh", req.RainfallIntensity},
		{"default_material", string(req.DefaultMaterial)},
		{"min_cover_m", req.MinCoverM},
		{"max_diameter_mm", req.MaxDiameterMM},
	}
	if err := writeSheet(f, SettingsSheet, settings); err != nil {
		return err
	}

	rows := [][]interface{}{toRow(subareaColumns)}
	for _, s := range req.Subareas {
		rows = append(rows, []interface{}{s.ID, s.AreaHa, s.RunoffCoefficient, s.InletID, s.TimeOfEntryMin})
	}
	if err := writeSheet(f, SubareasSheet, rows); err != nil {
		return err
	}

	rows = [][]interface{}{toRow(nodeColumns)}
	for _, n := range req.Nodes {
		var invert interface{} = ""
		if n.InvertElevationM != nil {
			invert = *n.InvertElevationM
		}
		rows = append(rows, []interface{}{n.ID, string(n.Kind), n.StationM, n.GroundElevationM, invert, strings.Join(n.SubareaIDs, ",")})
	}
	if err := writeSheet(f, NodesSheet, rows); err != nil {
		return err
	}

	rows = [][]interface{}{toRow(reachColumns)}
	for _, rc := range req.Reaches {
		rows = append(rows, []interface{}{rc.ID, rc.From, rc.To, rc.LengthM, string(rc.Material), rc.DiameterMM, rc.Slope})
	}
	if err := writeSheet(f, ReachesSheet, rows); err != nil {
		return err
	}

	return finish(f, w)
}

// WriteResult exports reach results, the cost estimate and all warnings.
func WriteResult(w io.Writer, res *network.DesignResult) error {
	if res == nil {
		return errors.New("workbook: no design result")
	}
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]interface{}{{
		"reach", "from", "to", "length_m", "material", "area_ha", "runoff_coefficient",
		"tc_min", "intensity_mmh", "local_flow_lps", "cumulative_flow_lps",
		"diameter_mm", "slope", "velocity_ms", "fill_ratio", "capacity_lps", "froude", "regime",
		"upstream_invert_m", "downstream_invert_m", "upstream_cover_m", "downstream_cover_m",
		"travel_time_min", "adequate",
	}}
	for _, rr := range res.Reaches {
		row := []interface{}{
			rr.ReachID, rr.From, rr.To, rr.LengthM, string(rr.Material), rr.AreaHa, rr.RunoffCoefficient,
			rr.TimeOfConcentrationMin, rr.IntensityMMH, rr.LocalFlowLPS, rr.CumulativeFlowLPS,
			rr.DiameterMM, rr.Slope,
		}
		if h := rr.Hydraulics; h != nil && h.Valid() {
			row = append(row, h.VelocityMS, h.FillRatio, h.FullFlowLPS, h.Froude, string(h.Regime))
		} else {
			row = append(row, "", "", "", "", "")
		}
		row = append(row, rr.UpstreamInvertM, rr.DownstreamInvertM, rr.UpstreamCoverM, rr.DownstreamCoverM,
			rr.TravelTimeMin, rr.Adequate)
		rows = append(rows, row)
	}
	if err := writeSheet(f, ResultsSheet, rows); err != nil {
		return err
	}

	if c := res.Cost; c != nil {
		rows = [][]interface{}{{"reach", "material", "diameter_mm", "length_m", "unit_cost", "pipe_cost",
			"trench_depth_m", "excavation_m3", "excavation_cost", "total"}}
		for _, l := range c.Lines {
			rows = append(rows, []interface{}{l.ReachID, string(l.Material), l.DiameterMM, l.LengthM, l.UnitCost,
				l.PipeCost, l.TrenchDepthM, l.ExcavationM3, l.ExcavationCost, l.Total})
		}
		rows = append(rows,
			[]interface{}{},
			[]interface{}{"manholes", c.Structures.Manholes, "", "", "", c.ManholeCost},
			[]interface{}{"inlets", c.Structures.Inlets, "", "", "", c.InletCost},
			[]interface{}{"total", c.Currency, "", c.TotalLengthM, "", c.Total},
			[]interface{}{"per_hectare", c.Currency, "", "", "", c.PerHectare},
		)
		if err := writeSheet(f, CostSheet, rows); err != nil {
			return err
		}
	}

	rows = [][]interface{}{{"scope", "code", "field", "message"}}
	for _, wn := range res.Warnings {
		rows = append(rows, []interface{}{"network", string(wn.Code), wn.Field, wn.Message})
	}
	for _, rr := range res.Reaches {
		for _, e := range rr.Issues.Errors {
			rows = append(rows, []interface{}{rr.ReachID, string(e.Code), e.Field, e.Error()})
		}
		for _, wn := range rr.Issues.Warnings {
			rows = append(rows, []interface{}{rr.ReachID, string(wn.Code), wn.Field, wn.Message})
		}
	}
	if err := writeSheet(f, WarningsSheet, rows); err != nil {
		return err
	}

	return finish(f, w)
}

func readSettings(f *excelize.File, req *network.Request) error {
	idx, err := f.GetSheetIndex(SettingsSheet)
	if err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	if idx < 0 {
		return nil // all settings take their defaults
	}
	rows, err := f.GetRows(SettingsSheet)
	if err != nil {
		return fmt.Errorf("workbook: %s: %w", SettingsSheet, err)
	}
	for i, row := range rows {
		if i == 0 || len(row) < 2 {
			continue
		}
		key, val := strings.ToLower(strings.TrimSpace(row[0])), strings.TrimSpace(row[1])
		if val == "" {
			continue
		}
		var target *float64
		switch key {
		case "name":
			req.Name = val
		case "sewer_type":
			req.SewerType = standards.SewerType(strings.ToLower(val))
		case "default_material":
			m, err := standards.ParseMaterial(val)
			if err != nil {
				return fmt.Errorf("workbook: %s row %d: %s: %w", SettingsSheet, i+1, key, err)
			}
			req.DefaultMaterial = m
		case "return_period_years":
			target = &req.ReturnPeriodYears
		case "rainfall_intensity_mmh":
			target = &req.RainfallIntensity
		case "min_cover_m":
			target = &req.MinCoverM
		case "max_diameter_mm":
			target = &req.MaxDiameterMM
		}
		if target != nil {
			v, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("workbook: %s row %d: %s: %w", SettingsSheet, i+1, key, err)
			}
			*target = v
		}
	}
	return nil
}

// record is one data row addressed by header name.
type record struct {
	sheet  string
	line   int
	header map[string]int
	cells  []string
}

func (r record) str(col string) string {
	i, ok := r.header[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

// float returns 0 for an empty cell.
func (r record) float(col string) (float64, error) {
	s := r.str(col)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("workbook: %s row %d: %s: %w", r.sheet, r.line, col, err)
	}
	return v, nil
}

// material returns "" for an empty cell.
func (r record) material(col string) (standards.Material, error) {
	s := r.str(col)
	if s == "" {
		return "", nil
	}
	m, err := standards.ParseMaterial(s)
	if err != nil {
		return "", fmt.Errorf("workbook: %s row %d: %s: %w", r.sheet, r.line, col, err)
	}
	return m, nil
}

func eachRow(f *excelize.File, sheet string, fn func(record) error) error {
	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	if idx < 0 {
		return fmt.Errorf("%w %q", ErrMissingSheet, sheet)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("workbook: %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil
	}

	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for i, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		if err := fn(record{sheet: sheet, line: i + 2, header: header, cells: cells}); err != nil {
			return err
		}
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("workbook: %s: %w", sheet, err)
		}
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	return f.SetRowStyle(sheet, 1, 1, style)
}

// finish drops the default sheet and writes the file.
func finish(f *excelize.File, w io.Writer) error {
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("workbook: %w", err)
	}
	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("workbook: write: %w", err)
	}
	return nil
}

func toRow(cols []string) []interface{} {
	row := make([]interface{}, len(cols))
	for i, c := range cols {
		row[i] = c
	}
	return row
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
