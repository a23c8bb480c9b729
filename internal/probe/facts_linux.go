//go:build linux

package probe

import "golang.org/x/sys/unix"

// Facts describes the board rigup is provisioning.
type Facts struct {
	Kernel  string
	Machine string // hardware architecture, e.g. aarch64
}

// PlatformFacts reads kernel and architecture from uname. Errors degrade to
// empty fields; detection must not fail the run.
func PlatformFacts() Facts {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return Facts{}
	}
	return Facts{
		Kernel:  unix.ByteSliceToString(uts.Release[:]),
		Machine: unix.ByteSliceToString(uts.Machine[:]),
	}
}
