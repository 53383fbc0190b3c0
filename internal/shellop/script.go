package shellop

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// scriptPrefix names materialized scripts so stray files are attributable.
const scriptPrefix = "shellrun-"

// materializeScript writes the joined command sequence to a uniquely named
// temp file using the dialect's line endings and extension. extension
// overrides the dialect default when non-empty; dir overrides the platform
// temp dir. The returned path references a fully written file: on any I/O
// failure the partial file is removed before the error propagates.
func materializeScript(commands []string, d Dialect, extension, dir string) (string, error) {
	if extension == "" {
		extension = d.Extension
	}
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, scriptPrefix+uuid.NewString()+extension)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o700)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMaterialize, err)
	}

	body := strings.Join(commands, d.LineEnding)
	if d.ExitEpilogue {
		// PowerShell does not propagate a native command's exit code on its
		// own; make the script exit with the last command's code.
		body += d.LineEnding + "Exit $LastExitCode"
	}

	if _, err := f.WriteString(body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: %w", ErrMaterialize, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: %w", ErrMaterialize, err)
	}
	return path, nil
}
