// Package depcache skips redundant dependency installation by comparing a
// digest of the dependency manifests against the one recorded after the last
// successful install.
//
// The stored digest is only committed after a successful install; a failed
// install leaves it untouched so the next run retries. Anything that keeps
// the digest from being computed fails open: reinstalling is always safe,
// silently skipping is not.
package depcache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

const stateFile = ".provision-state.yaml"

// State is the persisted record of the last successful install.
type State struct {
	Digest string `yaml:"digest"`
	Python string `yaml:"python"` // interpreter used to build the venv
}

// Cache manages the provisioning state colocated with one venv.
type Cache struct {
	VenvDir string
}

// StatePath returns the digest file location.
func (c Cache) StatePath() string {
	return filepath.Join(c.VenvDir, stateFile)
}

// Digest hashes the interpreter path plus the order-stable contents of every
// manifest. The bool reports whether the digest could be computed; false
// means fail open (install unconditionally).
func (c Cache) Digest(python string, manifests []string) (string, bool) {
	sorted := append([]string(nil), manifests...)
	sort.Strings(sorted)

	h := sha256.New()
	io.WriteString(h, python)
	io.WriteString(h, "\x00")
	for _, m := range sorted {
		data, err := os.ReadFile(m)
		if err != nil {
			return "", false
		}
		io.WriteString(h, m)
		io.WriteString(h, "\x00")
		h.Write(data)
		io.WriteString(h, "\x00")
	}
	return hex.EncodeToString(h.Sum(nil)), true
}

// ShouldInstall reports whether the install step must run, along with the
// freshly computed digest to Commit afterwards. An empty digest means the
// computation failed and the caller must install without committing.
func (c Cache) ShouldInstall(python string, manifests []string) (bool, string) {
	digest, ok := c.Digest(python, manifests)
	if !ok {
		return true, ""
	}

	stored, err := c.load()
	if err != nil {
		return true, digest
	}
	if stored.Digest != digest || stored.Python != python {
		return true, digest
	}
	return false, digest
}

// Commit records a successful install. A no-op when digest is empty, so a
// fail-open run retries next time.
func (c Cache) Commit(python, digest string) error {
	if digest == "" {
		return nil
	}
	data, err := yaml.Marshal(State{Digest: digest, Python: python})
	if err != nil {
		return fmt.Errorf("marshal provisioning state: %w", err)
	}
	if err := os.WriteFile(c.StatePath(), data, 0o644); err != nil {
		return fmt.Errorf("write provisioning state: %w", err)
	}
	return nil
}

// Invalidate removes the stored state so the next run reinstalls.
func (c Cache) Invalidate() error {
	err := os.Remove(c.StatePath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove provisioning state: %w", err)
	}
	return nil
}

func (c Cache) load() (State, error) {
	data, err := os.ReadFile(c.StatePath())
	if err != nil {
		return State{}, err
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, err
	}
	return st, nil
}
