package cmd

import (
	"bytes"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireBash(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
}

// execRun invokes "shellrun run" with fresh flag state and captures stdout.
func execRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "shellrun"}
	root.AddCommand(newRunCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"run"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRun_PrintsAllLines(t *testing.T) {
	requireBash(t)
	out, err := execRun(t,
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--shell", "bash", "--", "echo a", "echo b")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out)
}

func TestRun_LastLineOnly(t *testing.T) {
	requireBash(t)
	out, err := execRun(t,
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--shell", "bash", "--last", "--", "echo a", "echo b")
	require.NoError(t, err)
	assert.Equal(t, "b\n", out)
}

func TestRun_FailureCarriesExitCode(t *testing.T) {
	requireBash(t)
	_, err := execRun(t,
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--shell", "bash", "--", "exit 7")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 7, exitErr.Code)
}

func TestRun_UnknownShell(t *testing.T) {
	_, err := execRun(t,
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--shell", "fish", "--", "echo hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown shell")
}

func TestRun_BadEnvFlag(t *testing.T) {
	_, err := execRun(t,
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--env", "NOEQUALS", "--", "echo hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KEY=VALUE")
}

func TestRun_EnvFlag(t *testing.T) {
	requireBash(t)
	out, err := execRun(t,
		"--config", filepath.Join(t.TempDir(), "none.yaml"),
		"--shell", "bash", "--env", "GREETING=yo", "--", "echo $GREETING")
	require.NoError(t, err)
	assert.Equal(t, "yo\n", out)
}
