package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rigup/internal/depcache"
)

// InstallDeps builds the venv when missing and installs the dependency
// manifests into it, skipping the whole step when the manifest digest is
// unchanged since the last successful install.
func (o *Orchestrator) InstallDeps(ctx context.Context, python string) error {
	cfg := o.Config
	venv := cfg.VenvPath()
	manifests := cfg.Manifests()

	if o.DryRun {
		o.printf("dry-run: would ensure venv at %s and install %d manifest(s)", venv, len(manifests))
		return nil
	}

	if err := o.ensureVenv(ctx, python, venv); err != nil {
		return err
	}

	cache := depcache.Cache{VenvDir: venv}
	need, digest := cache.ShouldInstall(python, manifests)
	if !need {
		o.printf("dependencies unchanged, skipping install")
		return nil
	}

	venvPython := filepath.Join(venv, "bin", "python")
	for _, m := range manifests {
		o.printf("installing %s", m)
		if _, err := o.Runner.Run(ctx, []string{venvPython, "-m", "pip", "install", "-r", m}); err != nil {
			// Stored digest stays untouched so the next run retries.
			return fmt.Errorf("install dependencies: %w", err)
		}
	}

	if err := cache.Commit(python, digest); err != nil {
		return err
	}
	o.printf("dependencies installed")
	return nil
}

func (o *Orchestrator) ensureVenv(ctx context.Context, python, venv string) error {
	if st, err := os.Stat(filepath.Join(venv, "bin", "python")); err == nil && !st.IsDir() {
		return nil
	}
	o.printf("creating venv at %s", venv)
	if _, err := o.Runner.Run(ctx, []string{python, "-m", "venv", venv}); err != nil {
		return fmt.Errorf("create venv: %w", err)
	}
	return nil
}
