package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexiusacademia/gosewer/internal/manhole"
	"github.com/alexiusacademia/gosewer/internal/network"
	"github.com/alexiusacademia/gosewer/internal/report"
)

func design(t *testing.T) *network.DesignResult {
	t.Helper()
	res, err := network.Design(network.Request{
		Name:              "Block 4",
		ReturnPeriodYears: 10,
		RainfallIntensity: 60,
		Subareas: []network.Subarea{
			{ID: "S1", AreaHa: 2, RunoffCoefficient: 0.7, InletID: "A"},
			{ID: "S2", AreaHa: 1, RunoffCoefficient: 0.5, InletID: "B"},
		},
		Nodes: []network.Node{
			{ID: "A", Kind: network.Inlet, GroundElevationM: 101},
			{ID: "B", Kind: network.Manhole, GroundElevationM: 100},
			{ID: "C", Kind: network.Outfall, GroundElevationM: 99},
		},
		Reaches: []network.Reach{
			{ID: "R1", From: "A", To: "B", LengthM: 100},
			{ID: "R2", From: "B", To: "C", LengthM: 130},
		},
	})
	require.NoError(t, err)
	return res
}

func TestWritePDF(t *testing.T) {
	res := design(t)

	var buf bytes.Buffer
	err := report.WritePDF(&buf, "", res, report.Options{
		Project: "Test",
		Date:    time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWritePDF_WithProfile(t *testing.T) {
	res := design(t)
	p, err := manhole.Layout(res, manhole.Options{})
	require.NoError(t, err)

	var plain, withProfile bytes.Buffer
	require.NoError(t, report.WritePDF(&plain, "Report", res, report.Options{}))
	require.NoError(t, report.WritePDF(&withProfile, "Report", res, report.Options{Profile: p}))
	assert.Greater(t, withProfile.Len(), plain.Len())
}

func TestWritePDF_NoResult(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, report.WritePDF(&buf, "", nil, report.Options{}), report.ErrNoResult)
}
