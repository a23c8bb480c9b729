// Package servicecmd drives the service lifecycle: unit install and
// enable/start/restart/status/logs, plus the direct-launch fallback for
// systems without the unit installed.
package servicecmd

import (
	"errors"
	"fmt"
	"strings"

	"rigup/cmd/rigup/cmdutil"
	"rigup/cmd/rigup/ui"
	"rigup/internal/orchestrator"
	"rigup/internal/svc"

	"github.com/spf13/cobra"
)

// Cmd returns the service command group.
func Cmd(root *cmdutil.Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the long-running car service",
	}
	cmd.AddCommand(installCmd(root))
	cmd.AddCommand(lifecycleCmd(root, "enable", "Enable the service at boot"))
	cmd.AddCommand(lifecycleCmd(root, "start", "Start the service"))
	cmd.AddCommand(restartCmd(root))
	cmd.AddCommand(statusCmd(root))
	cmd.AddCommand(logsCmd(root))
	cmd.AddCommand(launchCmd(root))
	cmd.AddCommand(stopCmd(root))
	return cmd
}

func manager(root *cmdutil.Root) *svc.Systemd {
	confirm, _ := root.ConfirmFunc()
	return &svc.Systemd{Confirm: svc.ConfirmFunc(confirm)}
}

func installCmd(root *cmdutil.Root) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Render the unit file and install it into systemd",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.Config()
			if err != nil {
				return err
			}
			o := orchestrator.New(cfg)
			unit := o.ServiceUnit()

			m := manager(root)
			if err := m.Install(cmd.Context(), unit); err != nil {
				return err
			}
			if err := m.Enable(cmd.Context(), unit.Name); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("installed and enabled %s", unit.Name))
			return nil
		},
	}
}

func lifecycleCmd(root *cmdutil.Root, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.Config()
			if err != nil {
				return err
			}
			m := manager(root)
			var opErr error
			switch verb {
			case "enable":
				opErr = m.Enable(cmd.Context(), cfg.Service)
			case "start":
				opErr = m.Start(cmd.Context(), cfg.Service)
			}
			if opErr != nil {
				return describeNotFound(opErr, cfg.Service)
			}
			past := "enabled"
			if verb == "start" {
				past = "started"
			}
			fmt.Println(ui.SuccessMsg("%s %s", cfg.Service, past))
			return nil
		},
	}
}

func restartCmd(root *cmdutil.Root) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the service and verify it stays active",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.Config()
			if err != nil {
				return err
			}
			o := orchestrator.New(cfg)
			o.Confirm, o.DefaultDecision = root.ConfirmFunc()
			// RestartService owns the not-found fallback: it offers a
			// direct launch instead of failing outright.
			if err := o.RestartService(cmd.Context()); err != nil {
				return err
			}
			return nil
		},
	}
}

func statusCmd(root *cmdutil.Root) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.Config()
			if err != nil {
				return err
			}
			m := manager(root)
			st, err := m.Status(cmd.Context(), cfg.Service)
			if errors.Is(err, svc.ErrServiceNotFound) {
				launcher := svc.Launcher{Dir: cfg.CarDir}
				if pid, running := launcher.Running(); running {
					fmt.Println(ui.InfoMsg("unit not installed; directly-launched process running, pid %d", pid))
					return nil
				}
				fmt.Println(ui.WarnMsg("service %s is not installed", cfg.Service))
				fmt.Println(ui.Muted("  install it with: rigup service install"))
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Print(ui.KeyValues("  ",
				ui.KV("unit", cfg.Service),
				ui.KV("active", ui.Bool(st.Active)),
			))
			if st.Output != "" {
				fmt.Println(ui.Muted(st.Output))
			}
			return nil
		},
	}
}

func logsCmd(root *cmdutil.Root) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent service log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.Config()
			if err != nil {
				return err
			}
			m := manager(root)
			out, err := m.Logs(cmd.Context(), cfg.Service, lines)
			if err != nil {
				return err
			}
			fmt.Print(out)
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of log lines")
	return cmd
}

func launchCmd(root *cmdutil.Root) *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Launch the car process directly, detached, without systemd",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.Config()
			if err != nil {
				return err
			}
			o := orchestrator.New(cfg)
			unit := o.ServiceUnit()
			launcher := svc.Launcher{Dir: cfg.CarDir}

			argv := splitExec(unit.ExecStart)
			pid, err := launcher.Start(cmd.Context(), argv)
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("launched, pid %d", pid))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("pid file", launcher.PIDPath()),
				ui.KV("log file", launcher.LogPath()),
			))
			return nil
		},
	}
}

func stopCmd(root *cmdutil.Root) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a directly-launched car process",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.Config()
			if err != nil {
				return err
			}
			launcher := svc.Launcher{Dir: cfg.CarDir}
			if err := launcher.Stop(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("stopped"))
			return nil
		},
	}
}

func describeNotFound(err error, unit string) error {
	if errors.Is(err, svc.ErrServiceNotFound) {
		return fmt.Errorf("service %s is not installed; run: rigup service install", unit)
	}
	return err
}

func splitExec(execStart string) []string {
	return strings.Fields(execStart)
}
