package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rigup/internal/config"
	"rigup/internal/faults"
	"rigup/internal/svc"
)

type fakeCmdRunner struct {
	calls [][]string
	fail  map[string]error // keyed on first argv element
}

func (f *fakeCmdRunner) Run(_ context.Context, argv []string) (string, error) {
	f.calls = append(f.calls, argv)
	if err, ok := f.fail[argv[0]]; ok {
		return "", err
	}
	return "", nil
}

func (f *fakeCmdRunner) pipInstalls() int {
	n := 0
	for _, argv := range f.calls {
		for _, a := range argv {
			if a == "pip" {
				n++
				break
			}
		}
	}
	return n
}

type fakeProbe struct {
	paths   map[string]string
	outputs map[string]string
}

func (f *fakeProbe) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func (f *fakeProbe) Output(_ context.Context, argv []string) (string, error) {
	if out, ok := f.outputs[argv[0]]; ok {
		return out, nil
	}
	return "", errors.New("no such tool")
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Service:     "rig.service",
		CarDir:      dir,
		Venv:        "env",
		Remote:      "origin",
		Branch:      "main",
		PairTimeout: 60,
	}
}

func testOrchestrator(cfg *config.Config) (*Orchestrator, *fakeCmdRunner, *bytes.Buffer) {
	r := &fakeCmdRunner{fail: map[string]error{}}
	out := &bytes.Buffer{}
	o := &Orchestrator{
		Config: cfg,
		Out:    out,
		Probe:  &fakeProbe{},
		Runner: r,
	}
	return o, r, out
}

func TestInstallDeps_SecondRunSkipsPip(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.CarDir, "requirements.txt"), []byte("numpy\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A prebuilt venv keeps ensureVenv from shelling out.
	venvBin := filepath.Join(cfg.VenvPath(), "bin")
	if err := os.MkdirAll(venvBin, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(venvBin, "python"), []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	o, r, _ := testOrchestrator(cfg)
	if err := o.InstallDeps(context.Background(), "/usr/bin/python3"); err != nil {
		t.Fatalf("first install: %v", err)
	}
	if r.pipInstalls() != 1 {
		t.Fatalf("first run pip installs = %d, want 1", r.pipInstalls())
	}

	r.calls = nil
	if err := o.InstallDeps(context.Background(), "/usr/bin/python3"); err != nil {
		t.Fatalf("second install: %v", err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("second run ran %d commands, want 0: %v", len(r.calls), r.calls)
	}
}

func TestInstallDeps_FailureLeavesCacheUncommitted(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(filepath.Join(cfg.CarDir, "requirements.txt"), []byte("numpy\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	venvBin := filepath.Join(cfg.VenvPath(), "bin")
	if err := os.MkdirAll(venvBin, 0o755); err != nil {
		t.Fatal(err)
	}
	venvPython := filepath.Join(venvBin, "python")
	if err := os.WriteFile(venvPython, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	o, r, _ := testOrchestrator(cfg)
	r.fail[venvPython] = errors.New("no matching distribution")
	if err := o.InstallDeps(context.Background(), "/usr/bin/python3"); err == nil {
		t.Fatal("expected install failure")
	}

	// The next run must retry, not skip.
	r.fail = map[string]error{}
	r.calls = nil
	if err := o.InstallDeps(context.Background(), "/usr/bin/python3"); err != nil {
		t.Fatalf("retry install: %v", err)
	}
	if r.pipInstalls() != 1 {
		t.Fatalf("retry pip installs = %d, want 1", r.pipInstalls())
	}
}

func TestResolveToolchain_NoInstallDepsFailsWithHint(t *testing.T) {
	cfg := testConfig(t)
	o, _, _ := testOrchestrator(cfg)
	o.Probe = &fakeProbe{
		paths:   map[string]string{"git": "/usr/bin/git", "python3": "/usr/bin/python3"},
		outputs: map[string]string{"git": "git version 2.39.5", "python3": "Python 3.7.3"},
	}

	_, err := o.ResolveToolchain(context.Background(), 0, false)
	var verr *faults.VersionError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want VersionError", err)
	}
	if !strings.Contains(err.Error(), "--install-deps") {
		t.Fatalf("error should tell the operator how to remediate: %v", err)
	}
}

func TestResolveToolchain_ExhaustedChainListsStrategies(t *testing.T) {
	cfg := testConfig(t)
	o, r, _ := testOrchestrator(cfg)
	o.DefaultDecision = true
	o.Probe = &fakeProbe{
		// git present, no python at all, apt and add-apt-repository present
		// so both cheap strategies are applicable and both fail.
		paths: map[string]string{
			"git":                "/usr/bin/git",
			"apt-get":            "/usr/bin/apt-get",
			"add-apt-repository": "/usr/bin/add-apt-repository",
		},
		outputs: map[string]string{"git": "git version 2.39.5"},
	}
	r.fail["sudo"] = errors.New("E: unable to locate package")
	r.fail["sh"] = errors.New("make: *** [altinstall] Error 1")

	_, err := o.ResolveToolchain(context.Background(), 0, true)
	var verr *faults.VersionError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want VersionError", err)
	}
	if len(verr.Attempts) != 3 {
		t.Fatalf("attempts = %v, want all three strategies listed", verr.Attempts)
	}
	joined := strings.Join(verr.Attempts, "\n")
	for _, want := range []string{"apt install python3", "deadsnakes repository", "build python from source"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("attempts missing %q:\n%s", want, joined)
		}
	}
}

func TestResolveToolchain_SatisfiedInterpreterWins(t *testing.T) {
	cfg := testConfig(t)
	o, r, _ := testOrchestrator(cfg)
	o.Probe = &fakeProbe{
		paths:   map[string]string{"git": "/usr/bin/git", "python3": "/usr/bin/python3"},
		outputs: map[string]string{"git": "git version 2.39.5", "python3": "Python 3.11.2"},
	}

	python, err := o.ResolveToolchain(context.Background(), 0, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if python != "/usr/bin/python3" {
		t.Fatalf("python = %q", python)
	}
	if len(r.calls) != 0 {
		t.Fatalf("no remediation should run when satisfied: %v", r.calls)
	}
}

type notFoundSystemd struct{}

func (notFoundSystemd) Systemctl(_ context.Context, args ...string) (string, error) {
	return "", errors.New("Unit rig.service could not be found.")
}
func (notFoundSystemd) Journalctl(_ context.Context, args ...string) (string, error) {
	return "", nil
}
func (notFoundSystemd) ReadUnit(string) (string, error) { return "", os.ErrNotExist }
func (notFoundSystemd) WriteUnit(_ context.Context, _, _ string) error {
	return nil
}

func TestRestartService_MissingUnitOffersDirectLaunch(t *testing.T) {
	cfg := testConfig(t)
	o, _, out := testOrchestrator(cfg)
	o.Systemd = &svc.Systemd{Runner: notFoundSystemd{}}
	o.Launcher = svc.Launcher{Dir: cfg.CarDir}

	var question string
	o.Confirm = func(q string) (bool, error) {
		question = q
		return false, nil // decline the launch
	}

	if err := o.RestartService(context.Background()); err != nil {
		t.Fatalf("missing unit with declined launch must not be fatal: %v", err)
	}
	if !strings.Contains(question, "launch") {
		t.Fatalf("direct launch not offered, question = %q", question)
	}
	if !strings.Contains(out.String(), "rigup service install") {
		t.Fatalf("output should point at the install command:\n%s", out.String())
	}
}

func TestRestartService_RealFailurePropagates(t *testing.T) {
	cfg := testConfig(t)
	o, _, _ := testOrchestrator(cfg)
	o.Systemd = &svc.Systemd{Runner: failingSystemd{}}

	err := o.RestartService(context.Background())
	var se *faults.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want ServiceError", err)
	}
}

type failingSystemd struct{}

func (failingSystemd) Systemctl(_ context.Context, args ...string) (string, error) {
	return "", errors.New("Job for rig.service failed because the control process exited")
}
func (failingSystemd) Journalctl(_ context.Context, args ...string) (string, error) {
	return "ImportError: no module named donkeycar", nil
}
func (failingSystemd) ReadUnit(string) (string, error) { return "", os.ErrNotExist }
func (failingSystemd) WriteUnit(_ context.Context, _, _ string) error {
	return nil
}

func TestProvision_DryRunMutatesNothing(t *testing.T) {
	cfg := testConfig(t)
	o, r, out := testOrchestrator(cfg)
	o.DryRun = true
	o.Probe = &fakeProbe{} // nothing installed at all

	if err := o.Provision(context.Background(), Options{InstallDeps: true}); err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(r.calls) != 0 {
		t.Fatalf("dry run executed commands: %v", r.calls)
	}
	if !strings.Contains(out.String(), "dry-run") {
		t.Fatalf("dry run should narrate its plan:\n%s", out.String())
	}
}

func TestServiceUnit_UsesVenvInterpreter(t *testing.T) {
	cfg := testConfig(t)
	o, _, _ := testOrchestrator(cfg)

	u := o.ServiceUnit()
	if u.Name != "rig.service" {
		t.Fatalf("unit name = %q", u.Name)
	}
	wantExec := filepath.Join(cfg.VenvPath(), "bin", "python") + " manage.py drive"
	if u.ExecStart != wantExec {
		t.Fatalf("exec start = %q, want %q", u.ExecStart, wantExec)
	}
	if u.WorkingDir != cfg.CarDir {
		t.Fatalf("working dir = %q", u.WorkingDir)
	}
}
