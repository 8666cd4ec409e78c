package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ClaimReserve/internal/domain/models"
)

const policiesCSV = `policy_id,subscription_length,vehicle_age,customer_age,fuel_type,ncap_rating,claim_status
P1,9.3,1.2,41,Petrol,3,1
P2,0.6,2.0,35,Diesel,0,0
P3,4.1,0.4,52,CNG,5,1
P4,11.8,3.1,29,Petrol,2,1
P5,7.0,1.0,44,Diesel,4,0
P6,2.5,0.8,38,CNG,3,1
`

func writePolicies(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policies.csv")
	require.NoError(t, os.WriteFile(path, []byte(policiesCSV), 0o600))
	return path
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestAnalyzeJSON(t *testing.T) {
	out, err := execute("analyze", "--file", writePolicies(t), "--method", "median", "--tail-factor", "1.02", "--format", "json")
	require.NoError(t, err)

	var res models.ReserveResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, models.MethodMedian, res.Method)
	assert.Equal(t, 1.02, res.TailFactor)
	assert.NotEmpty(t, res.Summary)
}

func TestAnalyzeTable(t *testing.T) {
	out, err := execute("analyze", "-f", writePolicies(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Method: simple_average")
	assert.Contains(t, out, "Ultimate")
	assert.Contains(t, out, "Total")
}

func TestAnalyzeSeedIsReproducible(t *testing.T) {
	path := writePolicies(t)
	a, err := execute("analyze", "-f", path, "--seed", "7", "--format", "table")
	require.NoError(t, err)
	b, err := execute("analyze", "-f", path, "--seed", "7", "--format", "table")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := execute("analyze")
	assert.Error(t, err, "file is required")

	_, err = execute("analyze", "-f", writePolicies(t), "--format", "xml")
	assert.EqualError(t, err, `unknown format "xml"`)

	_, err = execute("analyze", "-f", writePolicies(t), "--tail-factor", "-1")
	assert.Error(t, err)

	_, err = execute("analyze", "-f", writePolicies(t), "--tail-factor", "NaN")
	assert.ErrorContains(t, err, "tail_factor must be a finite number")

	_, err = execute("analyze", "-f", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
