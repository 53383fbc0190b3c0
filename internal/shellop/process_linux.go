//go:build linux

package shellop

import "syscall"

// setPdeathsig asks the kernel to reap the shell if the supervising process
// dies first, so an abrupt supervisor exit cannot orphan a running command.
func setPdeathsig(attr *syscall.SysProcAttr) {
	attr.Pdeathsig = syscall.SIGKILL
}
