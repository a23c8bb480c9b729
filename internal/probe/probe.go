// Package probe detects presence and version of tools required for
// provisioning. Detection never mutates system state and never fails the
// overall run: any execution or parse error is reported as Missing.
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"

	goversion "github.com/hashicorp/go-version"
)

// State classifies one requirement check.
type State uint8

const (
	Satisfied State = iota
	Missing
	VersionTooLow
)

func (s State) String() string {
	switch s {
	case Satisfied:
		return "satisfied"
	case Missing:
		return "missing"
	case VersionTooLow:
		return "version too low"
	default:
		return "unknown"
	}
}

// Requirement names a tool rigup needs, how to detect it, and the minimum
// acceptable version. MinVersion empty means presence alone satisfies.
type Requirement struct {
	Name       string
	Command    []string // detection argv, e.g. {"git", "--version"}
	MinVersion string
}

// Result is the outcome of checking one Requirement.
type Result struct {
	State   State
	Version string // version found, when parseable
	Path    string // resolved binary path, when found
}

func (r Result) String() string {
	switch r.State {
	case Satisfied:
		if r.Version != "" {
			return fmt.Sprintf("satisfied (%s)", r.Version)
		}
		return "satisfied"
	case VersionTooLow:
		return fmt.Sprintf("version too low (found %s)", r.Version)
	default:
		return "missing"
	}
}

// Runner abstracts detection command execution so tests never shell out.
type Runner interface {
	LookPath(name string) (string, error)
	Output(ctx context.Context, argv []string) (string, error)
}

// ExecRunner runs detection commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (ExecRunner) Output(ctx context.Context, argv []string) (string, error) {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	return string(out), err
}

var versionPattern = regexp.MustCompile(`\d+(?:\.\d+)+`)

// Check evaluates one requirement against the system.
func Check(ctx context.Context, r Runner, req Requirement) Result {
	if len(req.Command) == 0 {
		return Result{State: Missing}
	}

	path, err := r.LookPath(req.Command[0])
	if err != nil {
		return Result{State: Missing}
	}

	out, err := r.Output(ctx, req.Command)
	if err != nil {
		return Result{State: Missing}
	}

	found := versionPattern.FindString(out)
	if req.MinVersion == "" {
		return Result{State: Satisfied, Version: found, Path: path}
	}
	if found == "" {
		// Tool present but version unparseable; treat as missing so the
		// fallback chain gets a chance to repair it.
		return Result{State: Missing, Path: path}
	}

	have, err := goversion.NewVersion(found)
	if err != nil {
		return Result{State: Missing, Path: path}
	}
	want, err := goversion.NewVersion(req.MinVersion)
	if err != nil {
		return Result{State: Missing, Path: path}
	}
	if have.LessThan(want) {
		return Result{State: VersionTooLow, Version: found, Path: path}
	}
	return Result{State: Satisfied, Version: found, Path: path}
}

// FirstSatisfying checks candidate detection commands in order and returns
// the first satisfied result, e.g. python3.11 before python3. The bool is
// false when none satisfies.
func FirstSatisfying(ctx context.Context, r Runner, reqs []Requirement) (Requirement, Result, bool) {
	for _, req := range reqs {
		res := Check(ctx, r, req)
		if res.State == Satisfied {
			return req, res, true
		}
	}
	return Requirement{}, Result{State: Missing}, false
}

// HasCommand reports whether name resolves on PATH. Used by strategy
// preconditions (e.g. apt-get availability).
func HasCommand(r Runner, name string) bool {
	_, err := r.LookPath(name)
	return err == nil
}
