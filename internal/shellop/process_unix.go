//go:build !windows

package shellop

import (
	"errors"
	"os/exec"
	"syscall"
)

type unixProcessControl struct{}

func newPlatformProcessControl() processControl {
	return &unixProcessControl{}
}

// start launches the shell in its own process group. Without Setpgid a
// later interrupt would only reach the shell, leaving whatever it spawned
// still writing to our pipes. Pdeathsig is applied by the per-OS helper.
func (u *unixProcessControl) start(cmd *exec.Cmd) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
	setPdeathsig(cmd.SysProcAttr)
	return cmd.Start()
}

// interrupt delivers SIGINT to the whole group; the negated pid addresses
// the group rather than the shell alone.
func (u *unixProcessControl) interrupt(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return errors.New(errProcessNotStarted)
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
}

// kill delivers SIGKILL to the whole group.
func (u *unixProcessControl) kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return errors.New(errProcessNotStarted)
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
