//go:build darwin

package shellop

import "syscall"

// Darwin has no Pdeathsig equivalent, so nothing to set here.
func setPdeathsig(_ *syscall.SysProcAttr) {}
