//go:build windows

package shellop

import (
	"errors"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

type windowsProcessControl struct{}

func newPlatformProcessControl() processControl {
	return &windowsProcessControl{}
}

// start creates the shell in its own console process group so
// GenerateConsoleCtrlEvent can target it without hitting the supervisor.
func (w *windowsProcessControl) start(cmd *exec.Cmd) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
	return cmd.Start()
}

// interrupt raises CTRL_BREAK in the shell's console group; unlike CTRL_C
// it can be targeted at a specific process group id.
func (w *windowsProcessControl) interrupt(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return errors.New(errProcessNotStarted)
	}
	return windows.GenerateConsoleCtrlEvent(windows.CTRL_BREAK_EVENT, uint32(cmd.Process.Pid))
}

// kill terminates the shell outright when CTRL_BREAK was not enough.
func (w *windowsProcessControl) kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return errors.New(errProcessNotStarted)
	}
	return cmd.Process.Kill()
}
