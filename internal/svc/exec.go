package svc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExecSystemd drives systemctl and journalctl as external processes,
// escalating through non-interactive sudo when not already root.
type ExecSystemd struct{}

func (ExecSystemd) Systemctl(ctx context.Context, args ...string) (string, error) {
	return runPrivileged(ctx, "systemctl", args...)
}

func (ExecSystemd) Journalctl(ctx context.Context, args ...string) (string, error) {
	// Reading the journal usually needs no escalation.
	out, err := exec.CommandContext(ctx, "journalctl", args...).CombinedOutput()
	if err != nil {
		return runPrivileged(ctx, "journalctl", args...)
	}
	return string(out), nil
}

func (ExecSystemd) ReadUnit(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (ExecSystemd) WriteUnit(ctx context.Context, path, content string) error {
	if os.Geteuid() == 0 {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write unit: %w", err)
		}
		return nil
	}

	cmd := exec.CommandContext(ctx, "sudo", "-n", "tee", path)
	cmd.Stdin = strings.NewReader(content)
	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return fmt.Errorf("write unit via sudo: %w (run with sudo privileges)", err)
		}
		return fmt.Errorf("write unit via sudo: %w: %s", err, msg)
	}
	return nil
}

// runPrivileged runs name directly as root, otherwise through sudo -n so a
// missing sudo grant fails fast instead of blocking on a password prompt.
func runPrivileged(ctx context.Context, name string, args ...string) (string, error) {
	var cmd *exec.Cmd
	if os.Geteuid() == 0 {
		cmd = exec.CommandContext(ctx, name, args...)
	} else {
		cmd = exec.CommandContext(ctx, "sudo", append([]string{"-n", name}, args...)...)
	}

	out, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return "", fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
		}
		return "", fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
	}
	return string(out), nil
}
