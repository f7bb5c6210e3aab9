package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A and B belong to X and touch, C belongs to Y and touches B, M1 sits
// alone in another parish.
const parcelsCSV = "OBJECTID;PAR_ID;PAR_NUM;Shape_Length;Shape_Area;geometry;OWNER;Freguesia;Municipio;Ilha\n" +
	"A;1;11;40;100;POLYGON((0 0, 10 0, 10 10, 0 10, 0 0));X;Sé;Funchal;Madeira\n" +
	"B;2;12;40;100;POLYGON((10 0, 20 0, 20 10, 10 10, 10 0));X;Sé;Funchal;Madeira\n" +
	"C;3;13;38;90;POLYGON((20 0, 29 0, 29 10, 20 10, 20 0));Y;Sé;Funchal;Madeira\n" +
	"M1;4;14;40;100;POLYGON((0 50, 10 50, 10 60, 0 60, 0 50));M;Monte;Funchal;Madeira\n"

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parcels.csv")
	require.NoError(t, os.WriteFile(path, []byte(parcelsCSV), 0o644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

type edgesOut struct {
	Label   string      `json:"label"`
	Parcels int         `json:"parcels"`
	Edges   [][2]string `json:"edges"`
}

func TestCLIAdjacency(t *testing.T) {
	out, err := runCLI(t, "adjacency", "--source", writeSource(t))
	require.NoError(t, err)

	var reports []edgesOut
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "", reports[0].Label)
	assert.Equal(t, 4, reports[0].Parcels)
	assert.Equal(t, [][2]string{{"A", "B"}, {"B", "C"}}, reports[0].Edges)
}

func TestCLIMergeByRegion(t *testing.T) {
	out, err := runCLI(t, "merge", "--source", writeSource(t), "--region-type", "freguesia", "--region", "Sé", "--region", "Nowhere")
	require.NoError(t, err)

	var reports []struct {
		Label   string `json:"label"`
		Parcels []struct {
			ID      string   `json:"id"`
			Members []string `json:"members"`
		} `json:"parcels"`
		Diagnostics []struct {
			Kind string `json:"kind"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.Len(t, reports, 2)

	assert.Equal(t, "Sé", reports[0].Label)
	require.Len(t, reports[0].Parcels, 2)
	assert.Equal(t, "A_B", reports[0].Parcels[0].ID)
	assert.Equal(t, []string{"A", "B"}, reports[0].Parcels[0].Members)
	assert.Equal(t, "C", reports[0].Parcels[1].ID)

	assert.Equal(t, "Nowhere", reports[1].Label)
	require.Len(t, reports[1].Diagnostics, 1)
	assert.Equal(t, "empty_input", reports[1].Diagnostics[0].Kind)
}

func TestCLIRegions(t *testing.T) {
	out, err := runCLI(t, "regions", "--source", writeSource(t), "--region-type", "parish")
	require.NoError(t, err)

	var regions map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &regions))
	assert.Equal(t, map[string][]string{"parish": {"Monte", "Sé"}}, regions)
}

func TestCLIAnalyzeAllRegions(t *testing.T) {
	out, err := runCLI(t, "analyze", "--source", writeSource(t), "--region-type", "parish")
	require.NoError(t, err)

	var results []struct {
		RunID string `json:"runId"`
		Label string `json:"label"`
		Swaps struct {
			Suggestions []json.RawMessage `json:"suggestions"`
		} `json:"swaps"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "Monte", results[0].Label)
	assert.Equal(t, "Sé", results[1].Label)
	assert.Len(t, results[1].Swaps.Suggestions, 2)
	assert.NotEmpty(t, results[0].RunID)
}

func TestCLIErrors(t *testing.T) {
	_, err := runCLI(t, "adjacency")
	assert.ErrorContains(t, err, "no parcel source")

	_, err = runCLI(t, "adjacency", "--source", writeSource(t), "--region", "Sé")
	assert.ErrorContains(t, err, "region type")

	_, err = runCLI(t, "adjacency", "--source", writeSource(t), "--region-type", "county")
	assert.ErrorContains(t, err, "unknown region type")

	_, err = runCLI(t, "adjacency", "--source", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
