package shellop

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializeScript_JoinsCommands(t *testing.T) {
	d, err := resolveDialect("bash")
	require.NoError(t, err)

	path, err := materializeScript([]string{"echo a", "echo b"}, d, "", t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "echo a\necho b", string(data))
	assert.Equal(t, ".sh", filepath.Ext(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), scriptPrefix))
}

func TestMaterializeScript_RestrictivePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits not meaningful on windows")
	}
	d, err := resolveDialect("sh")
	require.NoError(t, err)

	path, err := materializeScript([]string{"true"}, d, "", t.TempDir())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestMaterializeScript_PowerShellExitEpilogue(t *testing.T) {
	d, err := resolveDialect("powershell")
	require.NoError(t, err)

	path, err := materializeScript([]string{"ipconfig", "exit 3"}, d, "", t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ipconfig\r\nexit 3\r\nExit $LastExitCode", string(data))
	assert.Equal(t, ".ps1", filepath.Ext(path))
}

func TestMaterializeScript_ExtensionOverride(t *testing.T) {
	d, err := resolveDialect("bash")
	require.NoError(t, err)

	path, err := materializeScript([]string{"true"}, d, ".bashrc", t.TempDir())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, ".bashrc"))
}

func TestMaterializeScript_UniquePaths(t *testing.T) {
	d, err := resolveDialect("bash")
	require.NoError(t, err)

	dir := t.TempDir()
	first, err := materializeScript([]string{"true"}, d, "", dir)
	require.NoError(t, err)
	second, err := materializeScript([]string{"true"}, d, "", dir)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestMaterializeScript_BadDir(t *testing.T) {
	d, err := resolveDialect("bash")
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "does", "not", "exist")
	_, err = materializeScript([]string{"true"}, d, "", dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaterialize)
}
