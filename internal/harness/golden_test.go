package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/overclock/internal/ir"
)

// TestScenarios_Golden runs every scenario under testdata/scenarios and
// compares its trace with testdata/golden.
//
//	go test ./internal/harness -run TestScenarios_Golden -update
func TestScenarios_Golden(t *testing.T) {
	paths, err := FindScenarios(scenarioDir)
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestSnapshot_Format(t *testing.T) {
	result := NewResult("run-x")
	result.Trace = []ir.StepEvent{
		{
			ID: "ignored", Seq: 1, RunID: "run-x", NodeID: "n1", Step: 3,
			Kind: ir.EventAborted, Recipe: "r", Requested: 2,
			Bound: ir.BoundEnergy, Reason: "insufficient_energy",
			Limits: ir.Limits{Material: 4, Output: 2},
		},
	}

	snap, err := Snapshot("format", result)
	require.NoError(t, err)

	want := `{"events":1,"run_id":"run-x","scenario_name":"format"}` + "\n" +
		`{"bound":"energy","committed":0,"energy_milli":0,"kind":"aborted",` +
		`"limits":{"energy":0,"material":4,"output":2},"node_id":"n1",` +
		`"reason":"insufficient_energy","recipe":"r","requested":2,"resolved":0,` +
		`"run_id":"run-x","seq":1,"step":3}` + "\n"
	assert.Equal(t, want, string(snap))
}

func TestSnapshot_Empty(t *testing.T) {
	snap, err := Snapshot("empty", NewResult("run-y"))
	require.NoError(t, err)
	assert.Equal(t, `{"events":0,"run_id":"run-y","scenario_name":"empty"}`+"\n", string(snap))
}
