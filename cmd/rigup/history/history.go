// Package history lists past provisioning runs from the journal.
package history

import (
	"fmt"

	"rigup/cmd/rigup/cmdutil"
	"rigup/cmd/rigup/ui"
	"rigup/internal/config"
	"rigup/internal/journal"

	"github.com/spf13/cobra"
)

// Cmd returns the history command.
func Cmd(root *cmdutil.Root) *cobra.Command {
	var (
		limit    int
		attempts bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent provisioning runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := journal.Open(config.JournalPath())
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			runs, err := j.RecentRuns(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println(ui.Muted("no recorded runs"))
				return nil
			}

			for _, r := range runs {
				line := fmt.Sprintf("#%d %s %s", r.ID, r.StartedAt, r.Op)
				switch r.Outcome {
				case "ok":
					fmt.Println(ui.SuccessMsg("%s", line))
				case "":
					fmt.Println(ui.WarnMsg("%s (unfinished)", line))
				default:
					fmt.Println(ui.ErrorMsg("%s: %s", line, r.Error))
				}

				if !attempts {
					continue
				}
				list, err := j.Attempts(r.ID)
				if err != nil {
					continue
				}
				for _, a := range list {
					msg := fmt.Sprintf("  %s: %s: %s", a.Stage, a.Strategy, a.Outcome)
					if a.Error != "" {
						msg += " (" + a.Error + ")"
					}
					fmt.Println(ui.Muted(msg))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to show")
	cmd.Flags().BoolVar(&attempts, "attempts", false, "Also show per-run strategy attempts")
	return cmd
}
