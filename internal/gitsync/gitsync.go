// Package gitsync brings the car working copy to the latest upstream state.
//
// Updates are fast-forward only: local, uncommitted divergence is refused
// and reported, never rewritten away. When the first update fails and no
// SSH key material exists locally, an scp-style remote is rewritten to its
// HTTPS equivalent and the update retried exactly once.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"rigup/internal/faults"
)

// Git runs git subcommands in a working copy. Package-local so tests use
// fakes instead of a real repository.
type Git interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecGit shells out to the git client.
type ExecGit struct{}

func (ExecGit) Run(ctx context.Context, dir string, args ...string) (string, error) {
	full := append([]string{"-C", dir}, args...)
	out, err := exec.CommandContext(ctx, "git", full...).CombinedOutput()
	msg := strings.TrimSpace(string(out))
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", &faults.EnvironmentError{Tool: "git", Err: err}
		}
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return msg, nil
}

// Engine syncs one working copy.
type Engine struct {
	Git    Git
	SSHDir string // defaults to ~/.ssh
}

// scpLike matches user@host:path remotes, the form SSH remotes take when
// written without an ssh:// scheme.
var scpLike = regexp.MustCompile(`^([A-Za-z0-9._-]+)@([A-Za-z0-9._-]+):(.+)$`)

// RewriteSSHURL converts user@host:owner/repo(.git) to
// https://host/owner/repo(.git). The bool is false when url is not an
// scp-style address; https URLs pass through untouched.
func RewriteSSHURL(url string) (string, bool) {
	m := scpLike.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return url, false
	}
	return "https://" + m[2] + "/" + strings.TrimPrefix(m[3], "/"), true
}

// Sync fetches remote and fast-forwards dir to remote/branch.
func (e *Engine) Sync(ctx context.Context, dir, remote, branch string) error {
	git := e.Git
	if git == nil {
		git = ExecGit{}
	}

	if _, err := git.Run(ctx, dir, "rev-parse", "--git-dir"); err != nil {
		var envErr *faults.EnvironmentError
		if errors.As(err, &envErr) {
			return err
		}
		return &faults.NotARepoError{Dir: dir}
	}

	firstErr := e.update(ctx, git, dir, remote, branch)
	if firstErr == nil {
		return nil
	}
	attempts := []string{fmt.Sprintf("fast-forward from %s: %v", remote, firstErr)}

	if e.hasKeyMaterial() {
		// Credentials exist, so the failure is not protocol-related; no
		// automatic remediation beyond this point.
		return &faults.NetworkError{Remote: remote, Attempts: attempts, Err: firstErr}
	}

	url, err := git.Run(ctx, dir, "remote", "get-url", remote)
	if err != nil {
		return &faults.NetworkError{Remote: remote, Attempts: attempts, Err: firstErr}
	}

	rewritten, ok := RewriteSSHURL(url)
	if !ok {
		return &faults.NetworkError{Remote: remote, Attempts: attempts, Err: firstErr}
	}

	if _, err := git.Run(ctx, dir, "remote", "set-url", remote, rewritten); err != nil {
		return &faults.NetworkError{Remote: remote, Attempts: attempts, Err: err}
	}
	attempts = append(attempts, fmt.Sprintf("rewrote remote %s to %s", remote, rewritten))

	if err := e.update(ctx, git, dir, remote, branch); err != nil {
		attempts = append(attempts, fmt.Sprintf("fast-forward after rewrite: %v", err))
		return &faults.NetworkError{Remote: remote, Attempts: attempts, Err: err}
	}
	return nil
}

func (e *Engine) update(ctx context.Context, git Git, dir, remote, branch string) error {
	if _, err := git.Run(ctx, dir, "fetch", remote); err != nil {
		return err
	}
	if _, err := git.Run(ctx, dir, "merge", "--ff-only", remote+"/"+branch); err != nil {
		return err
	}
	return nil
}

// hasKeyMaterial reports whether any usable private key sits in the SSH
// directory.
func (e *Engine) hasKeyMaterial() bool {
	dir := e.SSHDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return false
		}
		dir = filepath.Join(home, ".ssh")
	}
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa", "id_dsa"} {
		if st, err := os.Stat(filepath.Join(dir, name)); err == nil && !st.IsDir() {
			return true
		}
	}
	return false
}
