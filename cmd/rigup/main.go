package main

import (
	"errors"
	"fmt"
	"os"

	"rigup/cmd/rigup/cmdutil"
	doctorcmd "rigup/cmd/rigup/doctor"
	historycmd "rigup/cmd/rigup/history"
	paircmd "rigup/cmd/rigup/pair"
	provisioncmd "rigup/cmd/rigup/provision"
	servicecmd "rigup/cmd/rigup/servicecmd"
	"rigup/cmd/rigup/ui"
	"rigup/internal/buildinfo"
	"rigup/internal/faults"
	"rigup/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	flags := &cmdutil.Root{}

	if err := logging.Configure(logging.LevelWarn); err != nil {
		_, _ = os.Stderr.WriteString("configure logger: " + err.Error() + "\n")
		os.Exit(faults.ExitFailure)
	}

	root := &cobra.Command{
		Use:           "rigup",
		Short:         "Provision a single-board computer into a running vehicle rig",
		Version:       buildinfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := logging.LevelWarn
			if flags.Debug {
				level = logging.LevelDebug
			}
			if err := logging.Configure(level); err != nil {
				return err
			}
			ui.ConfigureInteraction(flags.Yes || flags.NonInteractive)
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVarP(&flags.Yes, "yes", "y", false, "Never prompt; accept the default action")
	root.PersistentFlags().BoolVar(&flags.NonInteractive, "noninteractive", false, "Never prompt; decline anything that would need confirmation")
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "Config file path")

	root.AddCommand(provisioncmd.Cmd(flags))
	root.AddCommand(servicecmd.Cmd(flags))
	root.AddCommand(paircmd.Cmd(flags))
	root.AddCommand(doctorcmd.Cmd(flags))
	root.AddCommand(historycmd.Cmd(flags))

	if err := root.Execute(); err != nil {
		if errors.Is(err, ui.ErrCancelled) {
			os.Exit(faults.ExitAborted)
		}
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		os.Exit(faults.ExitCode(err))
	}
}
