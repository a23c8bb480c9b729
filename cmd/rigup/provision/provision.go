// Package provision implements the top-level provisioning run.
package provision

import (
	"fmt"

	"rigup/cmd/rigup/cmdutil"
	"rigup/cmd/rigup/ui"
	"rigup/internal/orchestrator"

	"github.com/spf13/cobra"
)

// Cmd returns the provision command.
func Cmd(root *cmdutil.Root) *cobra.Command {
	var (
		service     string
		car         string
		venv        string
		remote      string
		branch      string
		noRestart   bool
		installDeps bool
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Resolve the toolchain, sync the working copy, install dependencies and restart the service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.Config()
			if err != nil {
				return err
			}
			if service != "" {
				cfg.Service = service
			}
			if car != "" {
				cfg.CarDir = car
			}
			if venv != "" {
				cfg.Venv = venv
			}
			if remote != "" {
				cfg.Remote = remote
			}
			if branch != "" {
				cfg.Branch = branch
			}

			o := orchestrator.New(cfg)
			o.Confirm, o.DefaultDecision = root.ConfirmFunc()
			o.DryRun = dryRun
			if j := root.Journal(); j != nil {
				o.Journal = j
				defer func() { _ = j.Close() }()
			}

			if err := o.Provision(cmd.Context(), orchestrator.Options{
				InstallDeps: installDeps,
				NoRestart:   noRestart,
			}); err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("provisioning complete"))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("car", cfg.CarDir),
				ui.KV("venv", cfg.VenvPath()),
				ui.KV("service", cfg.Service),
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Service unit name")
	cmd.Flags().StringVar(&car, "car", "", "Car working copy directory")
	cmd.Flags().StringVar(&venv, "venv", "", "Venv directory (relative to the car dir unless absolute)")
	cmd.Flags().StringVar(&remote, "remote", "", "Git remote name")
	cmd.Flags().StringVar(&branch, "branch", "", "Upstream branch")
	cmd.Flags().BoolVar(&noRestart, "no-restart", false, "Skip the service restart stage")
	cmd.Flags().BoolVar(&installDeps, "install-deps", false, "Remediate missing system toolchain pieces via apt/source build")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print planned actions without executing them")
	return cmd
}
