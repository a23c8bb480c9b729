package orchestrator

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// execRunner runs provisioning commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, argv []string) (string, error) {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg == "" {
			return "", fmt.Errorf("%s: %w", strings.Join(argv, " "), err)
		}
		return "", fmt.Errorf("%s: %w: %s", strings.Join(argv, " "), err, msg)
	}
	return string(out), nil
}
