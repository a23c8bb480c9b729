package gitsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rigup/internal/faults"
)

type fakeGit struct {
	calls   []string
	url     string
	fail    map[string]error // keyed on the joined command prefix
	seenURL string
}

func (f *fakeGit) Run(_ context.Context, dir string, args ...string) (string, error) {
	cmd := strings.Join(args, " ")
	f.calls = append(f.calls, cmd)
	for prefix, err := range f.fail {
		if strings.HasPrefix(cmd, prefix) {
			return "", err
		}
	}
	switch args[0] {
	case "remote":
		if args[1] == "get-url" {
			return f.url, nil
		}
		if args[1] == "set-url" {
			f.seenURL = args[3]
			f.url = args[3]
		}
	}
	return "", nil
}

func (f *fakeGit) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func TestRewriteSSHURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"git@example.com:owner/repo.git", "https://example.com/owner/repo.git", true},
		{"git@github.com:autorope/donkeycar", "https://github.com/autorope/donkeycar", true},
		{"deploy@git.internal:team/car.git", "https://git.internal/team/car.git", true},
		{"https://example.com/owner/repo.git", "https://example.com/owner/repo.git", false},
		{"ssh://git@example.com/owner/repo.git", "ssh://git@example.com/owner/repo.git", false},
		{"/srv/git/repo.git", "/srv/git/repo.git", false},
	}
	for _, tc := range cases {
		got, ok := RewriteSSHURL(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("RewriteSSHURL(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSync_NotARepo(t *testing.T) {
	g := &fakeGit{fail: map[string]error{"rev-parse": errors.New("not a git repository")}}
	e := &Engine{Git: g, SSHDir: t.TempDir()}

	err := e.Sync(context.Background(), "/tmp/mycar", "origin", "main")
	var nr *faults.NotARepoError
	if !errors.As(err, &nr) {
		t.Fatalf("error = %v, want NotARepoError", err)
	}
	if nr.Dir != "/tmp/mycar" {
		t.Fatalf("dir = %q", nr.Dir)
	}
}

func TestSync_FastForwardSucceeds(t *testing.T) {
	g := &fakeGit{}
	e := &Engine{Git: g, SSHDir: t.TempDir()}

	if err := e.Sync(context.Background(), "/tmp/mycar", "origin", "main"); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if g.count("fetch origin") != 1 || g.count("merge --ff-only origin/main") != 1 {
		t.Fatalf("calls = %v", g.calls)
	}
}

func TestSync_RewritesAndRetriesOnceWithoutKeys(t *testing.T) {
	g := &fakeGit{url: "git@github.com:autorope/donkeycar.git"}
	g.fail = map[string]error{"fetch": errors.New("Permission denied (publickey)")}

	// Fetch succeeds again once the remote has been rewritten.
	e := &Engine{Git: &unblockOnSetURL{inner: g}, SSHDir: t.TempDir()}
	if err := e.Sync(context.Background(), "/tmp/mycar", "origin", "main"); err != nil {
		t.Fatalf("sync after rewrite: %v", err)
	}
	if g.seenURL != "https://github.com/autorope/donkeycar.git" {
		t.Fatalf("rewritten url = %q", g.seenURL)
	}
	if g.count("fetch origin") != 2 {
		t.Fatalf("fetch count = %d, want exactly 2", g.count("fetch origin"))
	}
}

type unblockOnSetURL struct {
	inner *fakeGit
}

func (w *unblockOnSetURL) Run(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := w.inner.Run(ctx, dir, args...)
	if args[0] == "remote" && args[1] == "set-url" {
		delete(w.inner.fail, "fetch")
	}
	return out, err
}

func TestSync_RetryFailureReportsBothAttempts(t *testing.T) {
	g := &fakeGit{url: "git@github.com:autorope/donkeycar.git"}
	g.fail = map[string]error{"fetch": errors.New("could not resolve host")}
	e := &Engine{Git: g, SSHDir: t.TempDir()}

	err := e.Sync(context.Background(), "/tmp/mycar", "origin", "main")
	var ne *faults.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if len(ne.Attempts) != 3 {
		t.Fatalf("attempts = %v, want original failure + rewrite + retry failure", ne.Attempts)
	}
	if g.count("fetch origin") != 2 {
		t.Fatalf("fetch count = %d, want exactly 2 (retry once, never loop)", g.count("fetch origin"))
	}
}

func TestSync_KeyMaterialSuppressesRewrite(t *testing.T) {
	sshDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(sshDir, "id_ed25519"), []byte("key"), 0o600); err != nil {
		t.Fatal(err)
	}
	g := &fakeGit{url: "git@github.com:autorope/donkeycar.git"}
	g.fail = map[string]error{"fetch": errors.New("Permission denied (publickey)")}
	e := &Engine{Git: g, SSHDir: sshDir}

	err := e.Sync(context.Background(), "/tmp/mycar", "origin", "main")
	var ne *faults.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if g.count("remote set-url") != 0 {
		t.Fatal("remote must not be rewritten when key material exists")
	}
	if g.count("fetch origin") != 1 {
		t.Fatalf("fetch count = %d, want 1", g.count("fetch origin"))
	}
}

func TestSync_MissingGitBinary(t *testing.T) {
	g := &fakeGit{fail: map[string]error{
		"rev-parse": &faults.EnvironmentError{Tool: "git", Err: errors.New("executable file not found")},
	}}
	e := &Engine{Git: g, SSHDir: t.TempDir()}

	err := e.Sync(context.Background(), "/tmp/mycar", "origin", "main")
	var ee *faults.EnvironmentError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %v, want EnvironmentError", err)
	}
	if ee.Tool != "git" {
		t.Fatalf("tool = %q", ee.Tool)
	}
}

func TestSync_HTTPSRemoteFailureNoRewrite(t *testing.T) {
	g := &fakeGit{url: "https://github.com/autorope/donkeycar.git"}
	g.fail = map[string]error{"merge": errors.New("not possible to fast-forward")}
	e := &Engine{Git: g, SSHDir: t.TempDir()}

	err := e.Sync(context.Background(), "/tmp/mycar", "origin", "main")
	var ne *faults.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if g.count("remote set-url") != 0 {
		t.Fatal("https remote must pass through untouched")
	}
}
