package orchestrator

import (
	"context"
	"errors"

	"rigup/internal/fallback"
	"rigup/internal/faults"
	"rigup/internal/journal"
	"rigup/internal/probe"
)

// MinPython is the oldest interpreter the car stack supports.
const MinPython = "3.9"

// pythonCandidates are detection commands in preference order: a versioned
// interpreter beats the distro default when both satisfy.
var pythonCandidates = []probe.Requirement{
	{Name: "python3.11", Command: []string{"python3.11", "--version"}, MinVersion: MinPython},
	{Name: "python3.10", Command: []string{"python3.10", "--version"}, MinVersion: MinPython},
	{Name: "python3", Command: []string{"python3", "--version"}, MinVersion: MinPython},
}

var gitRequirement = probe.Requirement{Name: "git", Command: []string{"git", "--version"}}

// ResolveToolchain verifies git and a satisfying Python interpreter are
// present, remediating through the fallback chains when installDeps is set.
// It returns the interpreter path to build the venv with.
func (o *Orchestrator) ResolveToolchain(ctx context.Context, runID int64, installDeps bool) (string, error) {
	if res := probe.Check(ctx, o.Probe, gitRequirement); res.State != probe.Satisfied {
		if installDeps {
			if _, _, err := o.runChain(ctx, runID, o.gitChain()); err != nil {
				return "", err
			}
		} else {
			// Advisory here; the sync stage will fail with its own error if
			// git truly is unusable.
			o.printf("warning: git is %s; rerun with --install-deps to remediate", res.State)
		}
	}

	if req, res, ok := probe.FirstSatisfying(ctx, o.Probe, pythonCandidates); ok {
		o.printf("python: %s %s", req.Name, res)
		return res.Path, nil
	}

	if !installDeps {
		return "", &faults.VersionError{
			Tool: "python >= " + MinPython,
			Err:  errors.New("no satisfying interpreter found; rerun with --install-deps to remediate"),
		}
	}

	if _, _, err := o.runChain(ctx, runID, o.pythonChain(ctx)); err != nil {
		return "", err
	}
	if o.DryRun {
		return "python3", nil
	}

	// The chain reported success; trust only a fresh probe.
	if req, res, ok := probe.FirstSatisfying(ctx, o.Probe, pythonCandidates); ok {
		o.printf("python: %s %s", req.Name, res)
		return res.Path, nil
	}
	return "", &faults.VersionError{
		Tool: "python >= " + MinPython,
		Err:  errors.New("install reported success but no interpreter satisfies the requirement"),
	}
}

func (o *Orchestrator) runChain(ctx context.Context, runID int64, chain *fallback.Chain) (*fallback.Strategy, []fallback.Attempt, error) {
	if o.DryRun {
		o.printf("dry-run: would resolve %s via:", chain.Tool)
		for _, s := range chain.Strategies {
			o.printf("  - %s (%s)", s.Name, s.Kind)
		}
		return nil, nil, nil
	}

	chain.Runner = chainRunner{o.Runner}
	chain.Confirm = fallback.ConfirmFunc(o.Confirm)
	chain.DefaultDecision = o.DefaultDecision
	if o.Journal != nil && runID != 0 {
		chain.Recorder = recorder{j: o.Journal, runID: runID}
	}

	winner, attempts, err := chain.Resolve(ctx)
	if err != nil {
		o.reportAttempts(runID)
		return nil, attempts, err
	}
	if winner != nil {
		o.printf("%s resolved via %s", chain.Tool, winner.Name)
	}
	return winner, attempts, nil
}

func (o *Orchestrator) gitChain() *fallback.Chain {
	return &fallback.Chain{
		Tool: "git",
		Strategies: []fallback.Strategy{
			{
				Name:         "apt install git",
				Kind:         fallback.KindAptPackage,
				Prompt:       "install git with apt-get?",
				Precondition: o.hasApt,
				Steps: [][]string{
					{"sudo", "-n", "apt-get", "update"},
					{"sudo", "-n", "apt-get", "install", "-y", "git"},
				},
			},
		},
	}
}

func (o *Orchestrator) pythonChain(ctx context.Context) *fallback.Chain {
	return &fallback.Chain{
		Tool: "python >= " + MinPython,
		Strategies: []fallback.Strategy{
			{
				Name:         "apt install python3",
				Kind:         fallback.KindAptPackage,
				Prompt:       "install python3, python3-venv and python3-pip with apt-get?",
				Precondition: o.hasApt,
				Steps: [][]string{
					{"sudo", "-n", "apt-get", "update"},
					{"sudo", "-n", "apt-get", "install", "-y", "python3", "python3-venv", "python3-pip"},
				},
			},
			{
				Name:         "deadsnakes repository",
				Kind:         fallback.KindAptRepository,
				Prompt:       "add the deadsnakes apt repository and install python3.11?",
				Precondition: o.hasAddAptRepository,
				Steps: [][]string{
					{"sudo", "-n", "add-apt-repository", "-y", "ppa:deadsnakes/ppa"},
					{"sudo", "-n", "apt-get", "update"},
					{"sudo", "-n", "apt-get", "install", "-y", "python3.11", "python3.11-venv"},
				},
			},
			{
				Name:   "build python from source",
				Kind:   fallback.KindSourceBuild,
				Prompt: "build Python 3.11 from source? (this takes a long time on a small board)",
				Steps: [][]string{
					{"sh", "-c",
						"cd /tmp && curl -fsSLO https://www.python.org/ftp/python/3.11.9/Python-3.11.9.tgz" +
							" && tar xzf Python-3.11.9.tgz && cd Python-3.11.9" +
							" && ./configure --enable-optimizations && make -j2 && sudo -n make altinstall"},
				},
			},
		},
	}
}

func (o *Orchestrator) hasApt(context.Context) bool {
	return probe.HasCommand(o.Probe, "apt-get")
}

func (o *Orchestrator) hasAddAptRepository(ctx context.Context) bool {
	return o.hasApt(ctx) && probe.HasCommand(o.Probe, "add-apt-repository")
}

// chainRunner adapts the orchestrator's Runner to the fallback package.
type chainRunner struct{ r Runner }

func (c chainRunner) Run(ctx context.Context, argv []string) (string, error) {
	return c.r.Run(ctx, argv)
}

// recorder adapts the journal to fallback.Recorder for one run.
type recorder struct {
	j     *journal.Journal
	runID int64
}

func (r recorder) RecordAttempt(stage, strategy, outcome, errMsg string) {
	_ = r.j.RecordAttempt(r.runID, stage, strategy, outcome, errMsg)
}
