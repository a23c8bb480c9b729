// Package cmdutil carries flag plumbing shared by the rigup subcommands.
package cmdutil

import (
	"log/slog"

	"rigup/cmd/rigup/ui"
	"rigup/internal/config"
	"rigup/internal/journal"
)

// Root holds the persistent flag values every subcommand sees.
type Root struct {
	ConfigPath     string
	Yes            bool // non-interactive default-accept
	NonInteractive bool // non-interactive safe-default (decline)
	Debug          bool
}

// Config loads the run configuration honoring --config.
func (r *Root) Config() (*config.Config, error) {
	return config.Load(r.ConfigPath)
}

// ConfirmFunc resolves the confirmation capability and default decision for
// this invocation. A nil func means prompts never block: the default
// decision applies.
func (r *Root) ConfirmFunc() (func(string) (bool, error), bool) {
	if r.Yes {
		return nil, true
	}
	if r.NonInteractive {
		return nil, false
	}
	// Confirmer is nil when no terminal is attached, so the safe default
	// still applies in pipelines.
	return ui.Confirmer(false), false
}

// Journal opens the provisioning journal. History is advisory: failure to
// open it degrades to no recording, never to a failed command.
func (r *Root) Journal() *journal.Journal {
	j, err := journal.Open(config.JournalPath())
	if err != nil {
		slog.Warn("open provisioning journal", "err", err)
		return nil
	}
	return j
}
