// Package buildinfo carries version metadata stamped at build time.
package buildinfo

// Version is overridden via -ldflags "-X rigup/internal/buildinfo.Version=...".
var Version = "dev"
