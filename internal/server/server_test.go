package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexiusacademia/gosewer/internal/network"
	"github.com/alexiusacademia/gosewer/internal/server"
	"github.com/alexiusacademia/gosewer/internal/workbook"
)

const designBody = `{
  "name": "Block 4",
  "return_period_years": 10,
  "rainfall_intensity_mmh": 60,
  "subareas": [
    {"id": "S1", "area_ha": 2, "runoff_coefficient": 0.7, "inlet_id": "A"},
    {"id": "S2", "area_ha": 1, "runoff_coefficient": 0.5, "inlet_id": "B"}
  ],
  "nodes": [
    {"id": "A", "kind": "inlet", "ground_elevation_m": 101},
    {"id": "B", "kind": "manhole", "ground_elevation_m": 100},
    {"id": "C", "kind": "outfall", "ground_elevation_m": 99}
  ],
  "reaches": [
    {"id": "R1", "from": "A", "to": "B", "length_m": 100},
    {"id": "R2", "from": "B", "to": "C", "length_m": 130}
  ]
}`

func newServer() *server.Server {
	return server.New(server.Config{RateLimit: 1000, RateBurst: 1000, Logger: log.New(io.Discard, "", 0)})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDesign(t *testing.T) {
	rec := do(t, newServer(), "POST", "/api/design", designBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res network.DesignResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []string{"R1", "R2"}, res.Order)
	assert.InDelta(t, (0.7*2+0.5*1)*60*2.78, res.OutletFlowLPS, 1e-6)

	_, err := uuid.Parse(rec.Header().Get(server.RequestIDHeader))
	assert.NoError(t, err)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDesign_ValidationError(t *testing.T) {
	body := strings.Replace(designBody, `"length_m": 130`, `"length_m": -5`, 1)
	rec := do(t, newServer(), "POST", "/api/design", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	e := decodeError(t, rec)
	assert.Equal(t, "OUT_OF_RANGE", e["code"])
	assert.Equal(t, "reaches.R2.length_m", e["field"])
	assert.Equal(t, -5.0, e["value"])
	assert.NotEmpty(t, e["request_id"])
}

func TestDesign_Cycle(t *testing.T) {
	body := strings.Replace(designBody, `{"id": "R2", "from": "B", "to": "C"`, `{"id": "R2", "from": "B", "to": "A"`, 1)
	rec := do(t, newServer(), "POST", "/api/design", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CYCLE_DETECTED", decodeError(t, rec)["code"])
}

func TestDesign_BadJSON(t *testing.T) {
	rec := do(t, newServer(), "POST", "/api/design", `{"nodes": [`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "BAD_REQUEST", e["code"])
	assert.Equal(t, "body", e["field"])
}

func TestDesign_WorkbookUpload(t *testing.T) {
	var req network.Request
	require.NoError(t, json.Unmarshal([]byte(designBody), &req))
	var xlsx bytes.Buffer
	require.NoError(t, workbook.WriteRequest(&xlsx, &req))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "network.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest("POST", "/api/design", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newServer().ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res network.DesignResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Reaches, 2)
}

func TestDesignDocuments(t *testing.T) {
	h := newServer()

	rec := do(t, h, "POST", "/api/design/pdf", designBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = do(t, h, "POST", "/api/design/xlsx", designBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = do(t, h, "POST", "/api/design/profile", designBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = do(t, h, "POST", "/api/design/profile?format=json", designBody)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"structures"`)
}

func TestEvaluatePipe(t *testing.T) {
	h := newServer()
	rec := do(t, h, "POST", "/api/pipe/evaluate",
		`{"pipe": {"material": "concrete", "diameter_mm": 400, "slope": 0.01}, "flow": {"flow_lps": 100}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Greater(t, res["velocity_ms"].(float64), 0.0)

	rec = do(t, h, "POST", "/api/pipe/evaluate",
		`{"pipe": {"material": "concrete", "diameter_mm": 400, "slope": 0}, "flow": {"flow_lps": 100}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeError(t, rec)
	assert.Equal(t, "slope", e["field"])

	rec = do(t, h, "POST", "/api/pipe/evaluate",
		`{"pipe": {"material": "bamboo", "diameter_mm": 400, "slope": 0.01}, "flow": {"flow_lps": 100}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "material", decodeError(t, rec)["field"])
}

func TestSizePipe(t *testing.T) {
	h := newServer()
	rec := do(t, h, "POST", "/api/pipe/size",
		`{"flow_lps": 116.76, "material": "concrete", "constraints": {"slope": 0.01}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 400.0, res["diameter_mm"])

	rec = do(t, h, "POST", "/api/pipe/size",
		`{"catchment": [{"area_ha": 0.5, "runoff_coefficient": 0.7}], "intensity_mmh": 120, "material": "concrete", "constraints": {"slope": 0.01}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 400.0, res["diameter_mm"])
	assert.InDelta(t, 116.76, res["flow_lps"], 1e-9)

	rec = do(t, h, "POST", "/api/pipe/size", `{"flow_lps": 100, "sewer_type": "combined"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "sewer_type", decodeError(t, rec)["field"])
}

func TestConvertSlope(t *testing.T) {
	rec := do(t, newServer(), "POST", "/api/slope/convert", `{"value": 2.5, "from": "%", "to": "permille"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.InDelta(t, 25, res["value"], 1e-9)
	assert.InDelta(t, 0.025, res["ratio"], 1e-12)
	assert.Equal(t, "permille", res["unit"])
}

func TestStandards(t *testing.T) {
	h := newServer()
	rec := do(t, h, "GET", "/api/standards/sanitary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res struct {
		Criteria struct {
			MaxFillRatio float64   `json:"max_fill_ratio"`
			DiametersMM  []float64 `json:"diameters_mm"`
		} `json:"criteria"`
		MinSlopes map[string]float64 `json:"min_slopes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 0.85, res.Criteria.MaxFillRatio)
	assert.Equal(t, 150.0, res.Criteria.DiametersMM[0])
	assert.Equal(t, 0.006, res.MinSlopes["150"])

	rec = do(t, h, "GET", "/api/standards/combined", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := server.New(server.Config{RateLimit: 0.001, RateBurst: 2, Logger: log.New(io.Discard, "", 0)})
	codes := make([]int, 3)
	for i := range codes {
		codes[i] = do(t, h, "GET", "/api/health", "").Code
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestPreflight(t *testing.T) {
	rec := do(t, newServer(), "OPTIONS", "/api/design", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
