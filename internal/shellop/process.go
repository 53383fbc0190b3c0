package shellop

import (
	"errors"
	"os/exec"
	"time"
)

// DefaultGracePeriod is how long Close waits between the graceful interrupt
// and the forced kill of a still-running process.
const DefaultGracePeriod = 5 * time.Second

const errProcessNotStarted = "process not started"

// processControl abstracts platform-specific process-group handling. Every
// spawned shell gets its own process group so interrupt/kill reach the whole
// command tree, not just the shell itself.
type processControl interface {
	// start configures process-group attributes and starts the command.
	start(cmd *exec.Cmd) error

	// interrupt delivers a graceful stop to the process group.
	// Unix: SIGINT to the pgid. Windows: CTRL_BREAK via GenerateConsoleCtrlEvent.
	interrupt(cmd *exec.Cmd) error

	// kill forcefully terminates the process group.
	kill(cmd *exec.Cmd) error
}

// newProcessControl returns the platform implementation.
func newProcessControl() processControl {
	return newPlatformProcessControl()
}

// exitCodeFromError extracts the exit code from a cmd.Wait error.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
