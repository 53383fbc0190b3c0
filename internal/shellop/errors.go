package shellop

import (
	"errors"
	"fmt"
)

// Operation errors. All of them surface before or instead of a process
// result; none are retried internally.
var (
	// ErrNoCommands is returned when a Config has an empty command list.
	ErrNoCommands = errors.New("no commands to run")

	// ErrUnknownShell is returned when the configured shell has no dialect entry.
	ErrUnknownShell = errors.New("unknown shell")

	// ErrMaterialize wraps script write failures. No process was spawned.
	ErrMaterialize = errors.New("writing command script")

	// ErrSpawn wraps OS process start failures. Only the script needed cleanup.
	ErrSpawn = errors.New("starting process")

	// ErrTimeout is returned by Wait when its context expires before the
	// process exits. The process is left running; callers that want it gone
	// must call Terminate or Kill explicitly.
	ErrTimeout = errors.New("wait timed out")

	// ErrClosed is returned by Trigger after the operation has been closed.
	ErrClosed = errors.New("operation closed")
)

// CommandError reports a process that ran and exited non-zero. Stderr holds
// the captured stderr text, falling back to the last captured stdout line when
// stderr was empty, so the failure is diagnosable without output streaming.
type CommandError struct {
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command failed with exit code %d:\n%s", e.ExitCode, e.Stderr)
}
