package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/alexiusacademia/gosewer/internal/diagram"
	"github.com/alexiusacademia/gosewer/internal/hydraulics"
	"github.com/alexiusacademia/gosewer/internal/manhole"
	"github.com/alexiusacademia/gosewer/internal/network"
	"github.com/alexiusacademia/gosewer/internal/rainfall"
	"github.com/alexiusacademia/gosewer/internal/report"
	"github.com/alexiusacademia/gosewer/internal/sizing"
	"github.com/alexiusacademia/gosewer/internal/standards"
	"github.com/alexiusacademia/gosewer/internal/validation"
	"github.com/alexiusacademia/gosewer/internal/version"
	"github.com/alexiusacademia/gosewer/internal/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// errorBody is the JSON error envelope.
type errorBody struct {
	Code       string  `json:"code"`
	Field      string  `json:"field,omitempty"`
	Value      float64 `json:"value,omitempty"`
	Constraint string  `json:"constraint,omitempty"`
	Message    string  `json:"message"`
	RequestID  string  `json:"request_id,omitempty"`
}

type evaluateRequest struct {
	Pipe      hydraulics.PipeSpec  `json:"pipe"`
	Flow      hydraulics.FlowState `json:"flow"`
	SewerType string               `json:"sewer_type"`
}

type sizeRequest struct {
	FlowLPS     float64              `json:"flow_lps"`
	Material    string               `json:"material"`
	SewerType   string               `json:"sewer_type"`
	Constraints sizing.Constraints   `json:"constraints"`
	Catchment   []rainfall.Catchment `json:"catchment,omitempty"` // used when flow_lps is 0
	Intensity   float64              `json:"intensity_mmh,omitempty"`
}

type slopeRequest struct {
	Value float64 `json:"value"`
	From  string  `json:"from"`
	To    string  `json:"to"`
}

type slopeResponse struct {
	Value float64             `json:"value"`
	Unit  standards.SlopeUnit `json:"unit"`
	Ratio float64             `json:"ratio"`
}

type materialInfo struct {
	Material standards.Material `json:"material"`
	ManningN float64            `json:"manning_n"`
}

type standardsResponse struct {
	Criteria  standards.Criteria `json:"criteria"`
	Materials []materialInfo     `json:"materials"`
	MinSlopes map[string]float64 `json:"min_slopes"` // keyed by diameter
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}

func (s *Server) design(w http.ResponseWriter, r *http.Request) {
	res, err := s.runDesign(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) designProfile(w http.ResponseWriter, r *http.Request) {
	res, err := s.runDesign(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := manhole.Layout(res, manhole.Options{Reaches: r.URL.Query()["reach"]})
	if err != nil {
		s.fail(w, r, badRequest("reach", err))
		return
	}
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, p)
		return
	}

	var buf bytes.Buffer
	if err := diagram.WriteProfilePNG(&buf, p, res.Name); err != nil {
		s.fail(w, r, badRequest("reach", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *Server) designPDF(w http.ResponseWriter, r *http.Request) {
	res, err := s.runDesign(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	opts := report.Options{Project: r.URL.Query().Get("project"), Author: r.URL.Query().Get("author")}
	if p, err := manhole.Layout(res, manhole.Options{}); err == nil {
		opts.Profile = p
	}

	var buf bytes.Buffer
	if err := report.WritePDF(&buf, res.Name, res, opts); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="design.pdf"`)
	w.Write(buf.Bytes())
}

func (s *Server) designXLSX(w http.ResponseWriter, r *http.Request) {
	res, err := s.runDesign(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := workbook.WriteResult(&buf, res); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="design.xlsx"`)
	w.Write(buf.Bytes())
}

func (s *Server) evaluatePipe(w http.ResponseWriter, r *http.Request) {
	var in evaluateRequest
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sewer, err := parseSewer(in.SewerType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	in.Pipe.Material, err = parseMaterial(string(in.Pipe.Material))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := hydraulics.Evaluate(in.Pipe, in.Flow, sewer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) sizePipe(w http.ResponseWriter, r *http.Request) {
	var in sizeRequest
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	sewer, err := parseSewer(in.SewerType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	material, err := parseMaterial(in.Material)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	flow := in.FlowLPS
	if flow == 0 && len(in.Catchment) > 0 {
		if !(in.Intensity > 0) {
			s.fail(w, r, &validation.Error{Code: validation.CodeOutOfRange, Field: "intensity_mmh", Value: in.Intensity, Constraint: "> 0"})
			return
		}
		area, c := rainfall.WeightedRunoff(in.Catchment)
		flow = rainfall.PeakFlowLPS(c, in.Intensity, area)
	}

	rec, err := sizing.Size(flow, material, sewer, in.Constraints)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) convertSlope(w http.ResponseWriter, r *http.Request) {
	var in slopeRequest
	if err := decodeJSON(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	from, err := standards.ParseSlopeUnit(in.From)
	if err != nil {
		s.fail(w, r, badRequest("from", err))
		return
	}
	to, err := standards.ParseSlopeUnit(in.To)
	if err != nil {
		s.fail(w, r, badRequest("to", err))
		return
	}
	ratio, err := standards.ToRatio(in.Value, from)
	if err != nil {
		s.fail(w, r, badRequest("value", err))
		return
	}
	v, err := standards.FromRatio(ratio, to)
	if err != nil {
		s.fail(w, r, badRequest("value", err))
		return
	}
	writeJSON(w, http.StatusOK, slopeResponse{Value: v, Unit: to, Ratio: ratio})
}

func (s *Server) criteria(w http.ResponseWriter, r *http.Request) {
	sewer, err := parseSewer(mux.Vars(r)["sewer"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	crit, err := standards.CriteriaFor(sewer)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := standardsResponse{Criteria: crit, MinSlopes: make(map[string]float64, len(crit.DiametersMM))}
	for _, m := range standards.Materials() {
		n, _ := standards.ManningN(m)
		out.Materials = append(out.Materials, materialInfo{Material: m, ManningN: n})
	}
	for _, d := range crit.DiametersMM {
		out.MinSlopes[fmt.Sprintf("%.0f", d)] = standards.MinSlope(d)
	}
	writeJSON(w, http.StatusOK, out)
}

// runDesign decodes a request from JSON or from an uploaded workbook and
// designs it.
func (s *Server) runDesign(r *http.Request) (*network.DesignResult, error) {
	var req *network.Request
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "multipart/form-data":
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, badRequest("file", err)
		}
		defer file.Close()
		if req, err = workbook.ReadRequest(file); err != nil {
			return nil, badRequest("file", err)
		}
	case xlsxContentType:
		var err error
		if req, err = workbook.ReadRequest(io.LimitReader(r.Body, MaxBodyBytes)); err != nil {
			return nil, badRequest("body", err)
		}
	default:
		req = &network.Request{}
		if err := decodeJSON(r, req); err != nil {
			return nil, err
		}
	}
	return network.Design(*req)
}

// requestError is a client error that is not a validation.Error.
type requestError struct {
	field string
	err   error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(field string, err error) error {
	return &requestError{field: field, err: err}
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("body", fmt.Errorf("invalid JSON: %w", err))
	}
	return nil
}

func parseSewer(s string) (standards.SewerType, error) {
	if s == "" {
		return standards.Storm, nil
	}
	t, err := standards.ParseSewerType(s)
	if err != nil {
		return "", &validation.Error{Code: validation.CodeInvalidValue, Field: "sewer_type", Constraint: "storm or sanitary"}
	}
	return t, nil
}

func parseMaterial(s string) (standards.Material, error) {
	if s == "" {
		return standards.Concrete, nil
	}
	m, err := standards.ParseMaterial(s)
	if err != nil {
		return "", &validation.Error{Code: validation.CodeInvalidValue, Field: "material", Constraint: "a known pipe material"}
	}
	return m, nil
}

// fail maps err onto a status code and the error envelope.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	id, _ := r.Context().Value(requestIDKey).(string)
	body := errorBody{Message: err.Error(), RequestID: id}
	status := http.StatusBadRequest

	var verr *validation.Error
	var rerr *requestError
	switch {
	case errors.As(err, &verr):
		body.Code = string(verr.Code)
		body.Field = verr.Field
		body.Value = verr.Value
		body.Constraint = verr.Constraint
	case errors.Is(err, network.ErrCycleDetected):
		body.Code = "CYCLE_DETECTED"
	case errors.Is(err, rainfall.ErrReturnPeriod), errors.Is(err, rainfall.ErrDuration), errors.Is(err, rainfall.ErrNoCurve):
		body.Code = string(validation.CodeInvalidValue)
		body.Field = "rainfall"
	case errors.As(err, &rerr):
		body.Code = "BAD_REQUEST"
		body.Field = rerr.field
	default:
		status = http.StatusInternalServerError
		body.Code = "INTERNAL"
		s.log.Printf("error id=%s: %v", id, err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
