// Package doctor diagnoses the board before or after provisioning.
package doctor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"rigup/cmd/rigup/cmdutil"
	"rigup/cmd/rigup/ui"
	"rigup/internal/clock"
	"rigup/internal/probe"
	"rigup/internal/svc"

	"github.com/spf13/cobra"
)

// Cmd returns the doctor command.
func Cmd(root *cmdutil.Root) *cobra.Command {
	var skipClock bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose toolchain, working copy, venv, clock and service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.Config()
			if err != nil {
				return err
			}
			runner := probe.ExecRunner{}
			ctx := cmd.Context()

			facts := probe.PlatformFacts()
			fmt.Println(ui.InfoMsg("board diagnostic"))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("kernel", facts.Kernel),
				ui.KV("arch", facts.Machine),
				ui.KV("car", cfg.CarDir),
			))

			type issue struct {
				component string
				problem   string
				fix       string
			}
			issues := make([]issue, 0, 6)

			git := probe.Check(ctx, runner, probe.Requirement{Name: "git", Command: []string{"git", "--version"}})
			fmt.Println("  git: " + git.String())
			if git.State != probe.Satisfied {
				issues = append(issues, issue{
					component: "git",
					problem:   "git is " + git.State.String(),
					fix:       "rigup provision --install-deps",
				})
			}

			python := probe.Check(ctx, runner, probe.Requirement{Name: "python3", Command: []string{"python3", "--version"}, MinVersion: "3.9"})
			fmt.Println("  python3: " + python.String())
			if python.State != probe.Satisfied {
				issues = append(issues, issue{
					component: "python",
					problem:   "python3 is " + python.State.String(),
					fix:       "rigup provision --install-deps",
				})
			}

			venvPython := filepath.Join(cfg.VenvPath(), "bin", "python")
			if st, err := os.Stat(venvPython); err != nil || st.IsDir() {
				fmt.Println("  venv: missing")
				issues = append(issues, issue{
					component: "venv",
					problem:   "no interpreter at " + venvPython,
					fix:       "rigup provision",
				})
			} else {
				fmt.Println("  venv: present")
			}

			if !skipClock {
				report, err := clock.Check("", 0)
				switch {
				case err != nil:
					fmt.Println("  clock: " + ui.Muted("unchecked ("+err.Error()+")"))
				case report.Healthy:
					fmt.Printf("  clock: offset %s\n", report.Offset)
				default:
					fmt.Printf("  clock: offset %s\n", report.Offset)
					issues = append(issues, issue{
						component: "clock",
						problem:   fmt.Sprintf("clock is off by %s; apt and TLS will misbehave", report.Offset),
						fix:       "sudo systemctl restart systemd-timesyncd",
					})
				}
			}

			m := &svc.Systemd{}
			st, err := m.Status(ctx, cfg.Service)
			switch {
			case errors.Is(err, svc.ErrServiceNotFound):
				fmt.Println("  service: not installed")
				issues = append(issues, issue{
					component: "service",
					problem:   cfg.Service + " is not installed",
					fix:       "rigup service install",
				})
			case err != nil:
				fmt.Println("  service: " + ui.Muted("unchecked ("+err.Error()+")"))
			case st.Active:
				fmt.Println("  service: active")
			default:
				fmt.Println("  service: inactive")
				issues = append(issues, issue{
					component: "service",
					problem:   cfg.Service + " is not running",
					fix:       "rigup service restart",
				})
			}

			if len(issues) == 0 {
				fmt.Println(ui.SuccessMsg("no issues detected"))
				return nil
			}

			fmt.Println(ui.WarnMsg("detected issues:"))
			for i, is := range issues {
				fmt.Printf("  %d) %s: %s\n", i+1, is.component, is.problem)
				fmt.Println(ui.Muted("     fix: " + is.fix))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipClock, "skip-clock", false, "Skip the NTP clock-offset check")
	return cmd
}
