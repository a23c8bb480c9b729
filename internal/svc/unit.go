// Package svc installs and drives the long-running car service: a systemd
// unit when the supervisor is available, a detached direct launch when it
// is not.
package svc

import (
	"fmt"
	"strings"
	"text/template"
)

// Unit describes the service to render and install.
type Unit struct {
	Name        string // unit file name, e.g. rig.service
	Description string
	User        string
	WorkingDir  string
	ExecStart   string // venv interpreter + entry script + args
}

var unitTemplate = template.Must(template.New("unit").Parse(`[Unit]
Description={{.Description}}
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
User={{.User}}
WorkingDirectory={{.WorkingDir}}
ExecStart={{.ExecStart}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=multi-user.target
`))

// Render produces the unit file content from the substitution variables.
func (u Unit) Render() (string, error) {
	if u.Name == "" || u.ExecStart == "" {
		return "", fmt.Errorf("unit needs a name and an ExecStart")
	}
	var sb strings.Builder
	if err := unitTemplate.Execute(&sb, u); err != nil {
		return "", fmt.Errorf("render unit %s: %w", u.Name, err)
	}
	return sb.String(), nil
}
