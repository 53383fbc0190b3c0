package shellop

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Dialect describes how one shell family is invoked: the executable, the
// argv inserted before the script path, the script file extension, the line
// terminator used when joining commands, and whether the script needs an
// explicit exit-code epilogue.
type Dialect struct {
	Name       string
	Executable string
	// Args are placed between the executable and the script path.
	Args      []string
	Extension string
	// LineEnding joins commands in the materialized script.
	LineEnding string
	// ExitEpilogue marks shells that do not propagate the exit code of the
	// last native command by default (PowerShell). The materializer appends
	// "Exit $LastExitCode" for these.
	ExitEpilogue bool
}

// dialects is the static invocation table. Lookup is by lowercased name.
var dialects = map[string]Dialect{
	"bash":       {Name: "bash", Executable: "bash", Extension: ".sh", LineEnding: "\n"},
	"sh":         {Name: "sh", Executable: "sh", Extension: ".sh", LineEnding: "\n"},
	"zsh":        {Name: "zsh", Executable: "zsh", Extension: ".sh", LineEnding: "\n"},
	"ksh":        {Name: "ksh", Executable: "ksh", Extension: ".sh", LineEnding: "\n"},
	"powershell": {Name: "powershell", Executable: "powershell", Extension: ".ps1", LineEnding: "\r\n", ExitEpilogue: true},
	"pwsh":       {Name: "pwsh", Executable: "pwsh", Extension: ".ps1", LineEnding: "\r\n", ExitEpilogue: true},
	"cmd":        {Name: "cmd", Executable: "cmd", Args: []string{"/C"}, Extension: ".bat", LineEnding: "\r\n"},
}

// resolveDialect looks up the dialect for a shell name. An unknown name is a
// configuration error, caught before any process is spawned.
func resolveDialect(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnknownShell, name)
	}
	return d, nil
}

// defaultDialect picks the platform default shell: powershell on Windows,
// bash elsewhere when it is on PATH, sh otherwise. It is evaluated at
// trigger time, never stored, so Config values stay portable across
// platforms.
func defaultDialect() Dialect {
	if runtime.GOOS == "windows" {
		return dialects["powershell"]
	}
	if _, err := exec.LookPath("bash"); err == nil {
		return dialects["bash"]
	}
	return dialects["sh"]
}
