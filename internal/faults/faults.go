// Package faults defines the provisioning failure taxonomy and the process
// exit codes derived from it.
//
// Every component returns one of these typed errors instead of aborting the
// process; the orchestrator and the CLI decide whether a failure ends the
// current operation or merely declines an optional step.
package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for the rigup binary.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitNotARepo  = 2
	ExitNetwork   = 3
	ExitToolchain = 4
	ExitService   = 5
	ExitTimeout   = 6
	ExitAborted   = 7
)

// ErrAborted is returned when the operator declines a required confirmation.
var ErrAborted = errors.New("aborted by user")

// EnvironmentError reports a tool that is missing or unusable. It is
// recoverable: the fallback chain executor owns remediation.
type EnvironmentError struct {
	Tool string
	Err  error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("environment: %s: %v", e.Tool, e.Err)
}

func (e *EnvironmentError) Unwrap() error { return e.Err }

// NetworkError reports a fetch or update failure after the one permitted
// automatic remediation attempt.
type NetworkError struct {
	Remote   string
	Attempts []string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: update from %s failed: %v", e.Remote, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotARepoError reports that the configured directory is not a git working copy.
type NotARepoError struct {
	Dir string
}

func (e *NotARepoError) Error() string {
	return fmt.Sprintf("%s is not a git working copy", e.Dir)
}

// PermissionError reports a privileged operation that was declined or is
// unavailable. Fatal; remediation is up to the operator.
type PermissionError struct {
	Op  string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission: %s: %v", e.Op, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// VersionError reports that no strategy yielded a satisfying toolchain.
// Attempts holds a human-readable line per strategy tried, so the operator
// is never left guessing which stage failed.
type VersionError struct {
	Tool     string
	Attempts []string
	Err      error
}

func (e *VersionError) Error() string {
	msg := fmt.Sprintf("toolchain: no strategy satisfied %s", e.Tool)
	if len(e.Attempts) > 0 {
		msg += "\nattempted:\n  " + strings.Join(e.Attempts, "\n  ")
	}
	return msg
}

func (e *VersionError) Unwrap() error { return e.Err }

// TimeoutError reports a discovery deadline that elapsed without a match.
// Fatal for the session only; the operator may retry.
type TimeoutError struct {
	Op      string
	Elapsed string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s gave up after %s", e.Op, e.Elapsed)
}

// ServiceError reports a unit install/start/restart failure with the most
// recent log lines attached for diagnosis.
type ServiceError struct {
	Unit    string
	Op      string
	LogTail string
	Err     error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("service: %s %s: %v", e.Op, e.Unit, e.Err)
	if e.LogTail != "" {
		msg += "\nrecent log lines:\n" + e.LogTail
	}
	return msg
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ExitCode maps an error to the binary's exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var (
		notARepo *NotARepoError
		network  *NetworkError
		version  *VersionError
		environ  *EnvironmentError
		timeout  *TimeoutError
		service  *ServiceError
	)
	switch {
	case errors.Is(err, ErrAborted):
		return ExitAborted
	case errors.As(err, &notARepo):
		return ExitNotARepo
	case errors.As(err, &network):
		return ExitNetwork
	case errors.As(err, &version), errors.As(err, &environ):
		return ExitToolchain
	case errors.As(err, &service):
		return ExitService
	case errors.As(err, &timeout):
		return ExitTimeout
	default:
		return ExitFailure
	}
}
