package svc

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"rigup/internal/faults"
)

// ErrServiceNotFound reports a unit that does not exist on the system. The
// orchestrator reacts by offering a direct launch instead of failing.
var ErrServiceNotFound = errors.New("service not found")

// ConfirmFunc asks the operator a yes/no question before a state-mutating
// action. nil means non-interactive: overwrites are refused, not assumed.
type ConfirmFunc func(question string) (bool, error)

// Runner abstracts the systemd control surface. Package-local so tests use
// fakes.
type Runner interface {
	Systemctl(ctx context.Context, args ...string) (string, error)
	Journalctl(ctx context.Context, args ...string) (string, error)
	ReadUnit(path string) (string, error) // os.ErrNotExist when absent
	WriteUnit(ctx context.Context, path, content string) error
}

// Status reports one unit's observed state.
type Status struct {
	Active bool
	Output string
}

// Systemd is the service lifecycle manager.
type Systemd struct {
	Runner  Runner
	Confirm ConfirmFunc
	UnitDir string // defaults to /etc/systemd/system
}

func (s *Systemd) unitDir() string {
	if s.UnitDir != "" {
		return s.UnitDir
	}
	return "/etc/systemd/system"
}

func (s *Systemd) runner() Runner {
	if s.Runner != nil {
		return s.Runner
	}
	return ExecSystemd{}
}

// Install renders the unit and writes it to the supervisor's unit directory.
// An existing unit with different content is never overwritten without a
// confirmation that shows the rendered replacement first.
func (s *Systemd) Install(ctx context.Context, u Unit) error {
	content, err := u.Render()
	if err != nil {
		return err
	}

	path := filepath.Join(s.unitDir(), u.Name)
	existing, readErr := s.runner().ReadUnit(path)
	if readErr == nil && existing == content {
		// Already installed as rendered; reload is still cheap and keeps
		// enable/start meaningful after manual edits elsewhere.
		return s.reload(ctx, u.Name)
	}
	if readErr == nil && existing != content {
		if s.Confirm == nil {
			return &faults.PermissionError{
				Op:  "overwrite unit " + u.Name,
				Err: fmt.Errorf("unit exists with different content; rerun interactively or remove %s", path),
			}
		}
		ok, err := s.Confirm(fmt.Sprintf("overwrite %s with:\n\n%s", path, content))
		if err != nil {
			return err
		}
		if !ok {
			return faults.ErrAborted
		}
	}

	if err := s.runner().WriteUnit(ctx, path, content); err != nil {
		return &faults.ServiceError{Unit: u.Name, Op: "install", Err: err}
	}
	return s.reload(ctx, u.Name)
}

func (s *Systemd) reload(ctx context.Context, unit string) error {
	if _, err := s.runner().Systemctl(ctx, "daemon-reload"); err != nil {
		return &faults.ServiceError{Unit: unit, Op: "daemon-reload", Err: err}
	}
	return nil
}

// Enable marks the unit to start on boot.
func (s *Systemd) Enable(ctx context.Context, name string) error {
	return s.simple(ctx, "enable", name)
}

// Start starts the unit.
func (s *Systemd) Start(ctx context.Context, name string) error {
	return s.simple(ctx, "start", name)
}

func (s *Systemd) simple(ctx context.Context, verb, name string) error {
	if _, err := s.runner().Systemctl(ctx, verb, name); err != nil {
		if isNotFound(err) {
			return ErrServiceNotFound
		}
		return &faults.ServiceError{Unit: name, Op: verb, Err: err}
	}
	return nil
}

// Restart restarts the unit and verifies it came back. Restart-then-status
// is one observable operation: any failure carries the most recent log
// lines, not just an exit code.
func (s *Systemd) Restart(ctx context.Context, name string) error {
	if _, err := s.runner().Systemctl(ctx, "restart", name); err != nil {
		if isNotFound(err) {
			return ErrServiceNotFound
		}
		return &faults.ServiceError{Unit: name, Op: "restart", LogTail: s.logTail(ctx, name), Err: err}
	}

	st, err := s.Status(ctx, name)
	if err != nil {
		return err
	}
	if !st.Active {
		return &faults.ServiceError{
			Unit:    name,
			Op:      "restart",
			LogTail: s.logTail(ctx, name),
			Err:     fmt.Errorf("unit did not stay active"),
		}
	}
	return nil
}

// Status inspects the unit without mutating it.
func (s *Systemd) Status(ctx context.Context, name string) (Status, error) {
	out, err := s.runner().Systemctl(ctx, "status", "--no-pager", name)
	if err != nil {
		if isNotFound(err) {
			return Status{}, ErrServiceNotFound
		}
		// systemctl status exits non-zero for inactive units; that is an
		// answer, not a failure.
		return Status{Active: false, Output: errOutput(err)}, nil
	}
	return Status{Active: true, Output: out}, nil
}

// Logs returns the last n journal lines for the unit.
func (s *Systemd) Logs(ctx context.Context, name string, n int) (string, error) {
	out, err := s.runner().Journalctl(ctx, "-u", name, "-n", fmt.Sprint(n), "--no-pager")
	if err != nil {
		return "", fmt.Errorf("read journal for %s: %w", name, err)
	}
	return out, nil
}

func (s *Systemd) logTail(ctx context.Context, name string) string {
	out, err := s.Logs(ctx, name, 50)
	if err != nil {
		return ""
	}
	return out
}

func isNotFound(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "could not be found") ||
		strings.Contains(msg, "not-found") || strings.Contains(msg, "no such file")
}

func errOutput(err error) string {
	return err.Error()
}
