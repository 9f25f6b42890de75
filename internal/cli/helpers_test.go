package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/overclock/internal/harness"
	"github.com/roach88/overclock/internal/store"
)

const scenarioDir = "../../testdata/scenarios"

func scenarioPath(name string) string {
	return filepath.Join(scenarioDir, name+".yaml")
}

// execute runs cmd with args and returns what it wrote to stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// journal runs the named scenarios into a fresh database under their fixed
// run IDs and returns the database path.
func journal(t *testing.T, names ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overclock.db")
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	for _, name := range names {
		s, err := harness.LoadScenario(scenarioPath(name))
		require.NoError(t, err)
		result, err := harness.Run(s, harness.WithStore(st))
		require.NoError(t, err)
		require.True(t, result.Pass, "errors: %v", result.Errors)
	}
	return path
}
