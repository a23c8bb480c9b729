package orchestrator

import "context"

// SyncRepo brings the car working copy to the latest upstream state.
func (o *Orchestrator) SyncRepo(ctx context.Context) error {
	cfg := o.Config
	if o.DryRun {
		o.printf("dry-run: would fast-forward %s to %s/%s", cfg.CarDir, cfg.Remote, cfg.Branch)
		return nil
	}

	o.printf("syncing %s from %s/%s", cfg.CarDir, cfg.Remote, cfg.Branch)
	if err := o.Sync.Sync(ctx, cfg.CarDir, cfg.Remote, cfg.Branch); err != nil {
		return err
	}
	o.printf("working copy is up to date")
	return nil
}
