// Package pair discovers and pairs a Bluetooth game controller.
package pair

import (
	"fmt"
	"time"

	"rigup/cmd/rigup/cmdutil"
	"rigup/cmd/rigup/ui"
	"rigup/internal/pairing"

	"github.com/spf13/cobra"
)

// Cmd returns the pair command.
func Cmd(root *cmdutil.Root) *cobra.Command {
	var (
		mac            string
		name           string
		timeoutSeconds int
		nonInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "pair",
		Short: "Scan for a controller and pair, trust and connect it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mac != "" && name != "" {
				return fmt.Errorf("--mac and --name are mutually exclusive")
			}

			cfg, err := root.Config()
			if err != nil {
				return err
			}
			if nonInteractive {
				root.NonInteractive = true
				ui.ConfigureInteraction(true)
			}

			if mac == "" && name == "" {
				pattern, perr := ui.Prompt("controller name pattern", "xbox")
				if perr != nil {
					return fmt.Errorf("no target: pass --mac or --name")
				}
				name = pattern
			}

			timeout := time.Duration(timeoutSeconds) * time.Second
			if timeoutSeconds <= 0 {
				timeout = time.Duration(cfg.PairTimeout) * time.Second
			}

			confirm, _ := root.ConfirmFunc()
			engine := &pairing.Engine{
				Ctrl:    &pairing.BluetoothCtl{},
				Confirm: pairing.ConfirmFunc(confirm),
			}

			fmt.Println(ui.InfoMsg("scanning for %s (window %s)", pairing.Target{MAC: mac, NamePattern: name}, timeout))
			result, err := engine.Pair(cmd.Context(), pairing.Target{MAC: mac, NamePattern: name}, timeout)
			if err != nil {
				return err
			}

			fmt.Println(ui.SuccessMsg("paired and connected"))
			fmt.Print(ui.KeyValues("  ",
				ui.KV("address", result.MAC),
				ui.KV("name", result.Name),
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&mac, "mac", "", "Controller hardware address")
	cmd.Flags().StringVar(&name, "name", "", "Case-insensitive substring of the advertised name")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Discovery window in seconds (default from config, 60)")
	cmd.Flags().BoolVar(&nonInteractive, "noninteractive", false, "Never prompt; pair without confirmation")
	return cmd
}
