package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"path/filepath"

	"rigup/internal/svc"
)

// DriveArgs is the car entry point the service runs.
var DriveArgs = []string{"manage.py", "drive"}

// ServiceUnit renders the substitution variables for the configured service.
func (o *Orchestrator) ServiceUnit() svc.Unit {
	cfg := o.Config
	execStart := filepath.Join(cfg.VenvPath(), "bin", "python")
	for _, a := range DriveArgs {
		execStart += " " + a
	}
	username := "root"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	return svc.Unit{
		Name:        cfg.Service,
		Description: "rigup managed vehicle control service",
		User:        username,
		WorkingDir:  cfg.CarDir,
		ExecStart:   execStart,
	}
}

// RestartService restarts the supervised unit. A unit that does not exist on
// the system is not an error by itself: the orchestrator offers a direct
// launch instead.
func (o *Orchestrator) RestartService(ctx context.Context) error {
	cfg := o.Config
	if o.DryRun {
		o.printf("dry-run: would restart %s", cfg.Service)
		return nil
	}

	o.printf("restarting %s", cfg.Service)
	err := o.Systemd.Restart(ctx, cfg.Service)
	if err == nil {
		o.printf("%s is active", cfg.Service)
		return nil
	}
	if !errors.Is(err, svc.ErrServiceNotFound) {
		return err
	}

	o.printf("service %s is not installed", cfg.Service)
	ok, derr := o.decide(fmt.Sprintf("launch %s directly instead (detached, logs to %s)?",
		filepath.Base(DriveArgs[0]), o.Launcher.LogPath()))
	if derr != nil {
		return derr
	}
	if !ok {
		o.printf("skipping launch; install the unit with: rigup service install")
		return nil
	}

	venvPython := filepath.Join(cfg.VenvPath(), "bin", "python")
	argv := append([]string{venvPython}, DriveArgs...)
	pid, lerr := o.Launcher.Start(ctx, argv)
	if lerr != nil {
		return fmt.Errorf("direct launch: %w", lerr)
	}
	o.printf("launched directly, pid %d (pid file %s)", pid, o.Launcher.PIDPath())
	return nil
}
