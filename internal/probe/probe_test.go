package probe

import (
	"context"
	"errors"
	"testing"
)

type fakeRunner struct {
	paths   map[string]string
	outputs map[string]string
	errs    map[string]error
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func (f *fakeRunner) Output(_ context.Context, argv []string) (string, error) {
	if err, ok := f.errs[argv[0]]; ok {
		return "", err
	}
	return f.outputs[argv[0]], nil
}

func TestCheck_Satisfied(t *testing.T) {
	r := &fakeRunner{
		paths:   map[string]string{"git": "/usr/bin/git"},
		outputs: map[string]string{"git": "git version 2.39.5"},
	}

	res := Check(context.Background(), r, Requirement{Name: "git", Command: []string{"git", "--version"}})
	if res.State != Satisfied {
		t.Fatalf("state = %v, want satisfied", res.State)
	}
	if res.Version != "2.39.5" {
		t.Fatalf("version = %q, want 2.39.5", res.Version)
	}
	if res.Path != "/usr/bin/git" {
		t.Fatalf("path = %q", res.Path)
	}
}

func TestCheck_Missing(t *testing.T) {
	r := &fakeRunner{}
	res := Check(context.Background(), r, Requirement{Name: "git", Command: []string{"git", "--version"}})
	if res.State != Missing {
		t.Fatalf("state = %v, want missing", res.State)
	}
}

func TestCheck_DetectionErrorIsMissing(t *testing.T) {
	r := &fakeRunner{
		paths: map[string]string{"python3": "/usr/bin/python3"},
		errs:  map[string]error{"python3": errors.New("segfault")},
	}
	res := Check(context.Background(), r, Requirement{Name: "python3", Command: []string{"python3", "--version"}})
	if res.State != Missing {
		t.Fatalf("detection error should report missing, got %v", res.State)
	}
}

func TestCheck_VersionTooLow(t *testing.T) {
	r := &fakeRunner{
		paths:   map[string]string{"python3": "/usr/bin/python3"},
		outputs: map[string]string{"python3": "Python 3.7.3"},
	}
	res := Check(context.Background(), r, Requirement{Name: "python3", Command: []string{"python3", "--version"}, MinVersion: "3.9"})
	if res.State != VersionTooLow {
		t.Fatalf("state = %v, want version too low", res.State)
	}
	if res.Version != "3.7.3" {
		t.Fatalf("version = %q", res.Version)
	}
}

func TestCheck_MinVersionBoundary(t *testing.T) {
	r := &fakeRunner{
		paths:   map[string]string{"python3": "/usr/bin/python3"},
		outputs: map[string]string{"python3": "Python 3.9.0"},
	}
	res := Check(context.Background(), r, Requirement{Name: "python3", Command: []string{"python3", "--version"}, MinVersion: "3.9"})
	if res.State != Satisfied {
		t.Fatalf("3.9.0 should satisfy >= 3.9, got %v", res.State)
	}
}

func TestFirstSatisfying_PrefersEarlierCandidate(t *testing.T) {
	r := &fakeRunner{
		paths: map[string]string{
			"python3.11": "/usr/bin/python3.11",
			"python3":    "/usr/bin/python3",
		},
		outputs: map[string]string{
			"python3.11": "Python 3.11.2",
			"python3":    "Python 3.10.1",
		},
	}
	reqs := []Requirement{
		{Name: "python3.11", Command: []string{"python3.11", "--version"}, MinVersion: "3.9"},
		{Name: "python3", Command: []string{"python3", "--version"}, MinVersion: "3.9"},
	}

	req, res, ok := FirstSatisfying(context.Background(), r, reqs)
	if !ok {
		t.Fatal("expected a satisfying candidate")
	}
	if req.Name != "python3.11" {
		t.Fatalf("candidate = %s, want python3.11", req.Name)
	}
	if res.Path != "/usr/bin/python3.11" {
		t.Fatalf("path = %q", res.Path)
	}
}

func TestFirstSatisfying_NoneSatisfies(t *testing.T) {
	r := &fakeRunner{}
	_, res, ok := FirstSatisfying(context.Background(), r, []Requirement{
		{Name: "python3", Command: []string{"python3", "--version"}, MinVersion: "3.9"},
	})
	if ok {
		t.Fatal("expected no satisfying candidate")
	}
	if res.State != Missing {
		t.Fatalf("state = %v, want missing", res.State)
	}
}
