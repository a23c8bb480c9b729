// Package fallback runs an ordered list of remediation strategies for one
// unmet tool requirement until a strategy succeeds or the chain is exhausted.
//
// Ordering is the contract: cheap, low-risk strategies (ask the system
// package manager) come before expensive ones (build from source). A failed
// strategy never aborts the chain; its error is recorded and the next
// strategy runs.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-multierror"

	"rigup/internal/faults"
)

// Kind classifies a strategy by where it gets the tool from.
type Kind uint8

const (
	KindAptPackage Kind = iota
	KindAptRepository
	KindSourceBuild
)

func (k Kind) String() string {
	switch k {
	case KindAptPackage:
		return "apt package"
	case KindAptRepository:
		return "apt repository"
	case KindSourceBuild:
		return "source build"
	default:
		return "unknown"
	}
}

// Strategy is a stateless remediation descriptor, evaluated fresh each run.
type Strategy struct {
	Name         string
	Kind         Kind
	Prompt       string                          // shown to the operator before running
	Precondition func(ctx context.Context) bool  // nil means always applicable
	Steps        [][]string                      // argv lists executed in order
}

// ConfirmFunc asks the operator a yes/no question. A nil ConfirmFunc means
// non-interactive mode: the chain's default decision applies without
// blocking.
type ConfirmFunc func(question string) (bool, error)

// Runner executes strategy steps. Package-local so tests use fakes.
type Runner interface {
	Run(ctx context.Context, argv []string) (string, error)
}

// ExecRunner runs steps with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, argv []string) (string, error) {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return "", fmt.Errorf("%s: %w", argv[0], err)
		}
		return "", fmt.Errorf("%s: %w: %s", argv[0], err, msg)
	}
	return string(out), nil
}

// Outcome of one strategy within a chain run.
type Outcome uint8

const (
	OutcomeSkipped Outcome = iota
	OutcomeDeclined
	OutcomeFailed
	OutcomeSucceeded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDeclined:
		return "declined"
	case OutcomeFailed:
		return "failed"
	case OutcomeSucceeded:
		return "succeeded"
	default:
		return "unknown"
	}
}

// Attempt records what happened to one strategy during a run.
type Attempt struct {
	Strategy string
	Outcome  Outcome
	Err      error
}

func (a Attempt) String() string {
	if a.Err != nil {
		return fmt.Sprintf("%s: %s: %v", a.Strategy, a.Outcome, a.Err)
	}
	return fmt.Sprintf("%s: %s", a.Strategy, a.Outcome)
}

// Recorder receives attempt records as they happen, e.g. the provisioning
// journal. Optional.
type Recorder interface {
	RecordAttempt(stage, strategy, outcome, errMsg string)
}

// Chain resolves one tool requirement through its ordered strategies.
type Chain struct {
	Tool            string
	Strategies      []Strategy
	Runner          Runner
	Confirm         ConfirmFunc // nil => non-interactive
	DefaultDecision bool        // applied when non-interactive
	Recorder        Recorder
}

// Resolve tries each strategy in priority order. The first success
// terminates the chain and returns the satisfying strategy. Exhaustion
// returns a faults.VersionError aggregating every attempt.
func (c *Chain) Resolve(ctx context.Context) (*Strategy, []Attempt, error) {
	runner := c.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	var attempts []Attempt
	var errs *multierror.Error

	for i := range c.Strategies {
		s := &c.Strategies[i]

		if s.Precondition != nil && !s.Precondition(ctx) {
			attempts = c.record(attempts, Attempt{Strategy: s.Name, Outcome: OutcomeSkipped})
			continue
		}

		ok, err := c.decide(s)
		if err != nil {
			return nil, attempts, err
		}
		if !ok {
			attempts = c.record(attempts, Attempt{Strategy: s.Name, Outcome: OutcomeDeclined})
			continue
		}

		if err := c.run(ctx, runner, s); err != nil {
			slog.Warn("strategy failed", "tool", c.Tool, "strategy", s.Name, "err", err)
			attempts = c.record(attempts, Attempt{Strategy: s.Name, Outcome: OutcomeFailed, Err: err})
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}

		attempts = c.record(attempts, Attempt{Strategy: s.Name, Outcome: OutcomeSucceeded})
		return s, attempts, nil
	}

	lines := make([]string, 0, len(attempts))
	for _, a := range attempts {
		lines = append(lines, a.String())
	}
	return nil, attempts, &faults.VersionError{
		Tool:     c.Tool,
		Attempts: lines,
		Err:      errs.ErrorOrNil(),
	}
}

func (c *Chain) decide(s *Strategy) (bool, error) {
	if c.Confirm == nil {
		return c.DefaultDecision, nil
	}
	prompt := s.Prompt
	if prompt == "" {
		prompt = fmt.Sprintf("run %s (%s)?", s.Name, s.Kind)
	}
	return c.Confirm(prompt)
}

func (c *Chain) run(ctx context.Context, r Runner, s *Strategy) error {
	for _, argv := range s.Steps {
		if len(argv) == 0 {
			continue
		}
		if _, err := r.Run(ctx, argv); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) record(attempts []Attempt, a Attempt) []Attempt {
	if c.Recorder != nil {
		msg := ""
		if a.Err != nil {
			msg = a.Err.Error()
		}
		c.Recorder.RecordAttempt(c.Tool, a.Strategy, a.Outcome.String(), msg)
	}
	return append(attempts, a)
}
