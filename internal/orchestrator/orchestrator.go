// Package orchestrator sequences the provisioning components. It owns the
// shared configuration and passes it to every component explicitly; no
// component reads ambient global state and none of them call each other
// directly, which keeps each independently testable.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"

	"rigup/internal/config"
	"rigup/internal/gitsync"
	"rigup/internal/journal"
	"rigup/internal/probe"
	"rigup/internal/svc"
)

// ConfirmFunc asks the operator a yes/no question. nil means non-interactive
// mode: DefaultDecision applies without blocking.
type ConfirmFunc func(question string) (bool, error)

// Runner executes provisioning commands (venv creation, pip installs).
// Package-local so tests use fakes.
type Runner interface {
	Run(ctx context.Context, argv []string) (string, error)
}

// Orchestrator holds the shared configuration and dispatches to the
// provisioning components on demand.
type Orchestrator struct {
	Config          *config.Config
	Confirm         ConfirmFunc
	DefaultDecision bool
	DryRun          bool
	Out             io.Writer
	Journal         *journal.Journal // optional

	Probe    probe.Runner
	Runner   Runner
	Sync     *gitsync.Engine
	Systemd  *svc.Systemd
	Launcher svc.Launcher
}

// New wires an orchestrator with real execution backends for cfg.
func New(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		Config:   cfg,
		Out:      os.Stdout,
		Probe:    probe.ExecRunner{},
		Runner:   execRunner{},
		Sync:     &gitsync.Engine{},
		Systemd:  &svc.Systemd{},
		Launcher: svc.Launcher{Dir: cfg.CarDir},
	}
}

// Options selects the optional stages of one provisioning run.
type Options struct {
	InstallDeps bool // also resolve/install system-level toolchain gaps
	NoRestart   bool
}

// Provision runs the full sequence: toolchain, repository sync, dependency
// install, service restart. Each stage is journaled; a fatal stage error
// ends the run after the attempted remediation steps have been reported.
func (o *Orchestrator) Provision(ctx context.Context, opts Options) error {
	runID := o.beginRun("provision")

	python, err := o.ResolveToolchain(ctx, runID, opts.InstallDeps)
	if err != nil {
		o.finishRun(runID, err)
		return err
	}

	if err := o.SyncRepo(ctx); err != nil {
		o.finishRun(runID, err)
		return err
	}

	if err := o.InstallDeps(ctx, python); err != nil {
		o.finishRun(runID, err)
		return err
	}

	if !opts.NoRestart {
		if err := o.RestartService(ctx); err != nil {
			o.finishRun(runID, err)
			return err
		}
	}

	o.finishRun(runID, nil)
	return nil
}

func (o *Orchestrator) printf(format string, a ...any) {
	if o.Out != nil {
		fmt.Fprintf(o.Out, format+"\n", a...)
	}
}

// decide resolves a yes/no question through the injected confirmer, falling
// back to the configured default decision when non-interactive.
func (o *Orchestrator) decide(question string) (bool, error) {
	if o.Confirm == nil {
		return o.DefaultDecision, nil
	}
	return o.Confirm(question)
}

func (o *Orchestrator) beginRun(op string) int64 {
	if o.Journal == nil {
		return 0
	}
	id, err := o.Journal.BeginRun(op)
	if err != nil {
		return 0
	}
	return id
}

func (o *Orchestrator) finishRun(id int64, err error) {
	if o.Journal == nil || id == 0 {
		return
	}
	outcome, msg := "ok", ""
	if err != nil {
		outcome, msg = "failed", err.Error()
	}
	_ = o.Journal.FinishRun(id, outcome, msg)
}

// reportAttempts prints the remediation steps already tried for a failed
// stage, so the operator is never left guessing where it stopped.
func (o *Orchestrator) reportAttempts(runID int64) {
	if o.Journal == nil || runID == 0 {
		return
	}
	attempts, err := o.Journal.Attempts(runID)
	if err != nil || len(attempts) == 0 {
		return
	}
	o.printf("remediation steps attempted:")
	for _, a := range attempts {
		line := fmt.Sprintf("  %s: %s: %s", a.Stage, a.Strategy, a.Outcome)
		if a.Error != "" {
			line += " (" + a.Error + ")"
		}
		o.printf("%s", line)
	}
}
