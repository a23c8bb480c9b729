//go:build !linux

package probe

import "runtime"

// Facts describes the board rigup is provisioning.
type Facts struct {
	Kernel  string
	Machine string
}

// PlatformFacts falls back to Go runtime identifiers off-target.
func PlatformFacts() Facts {
	return Facts{Kernel: runtime.GOOS, Machine: runtime.GOARCH}
}
