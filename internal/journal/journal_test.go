package journal

import (
	"path/filepath"
	"testing"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRunLifecycle(t *testing.T) {
	j := openTestJournal(t)

	id, err := j.BeginRun("provision")
	if err != nil {
		t.Fatalf("begin run: %v", err)
	}
	if err := j.FinishRun(id, "failed", "python3: version too low"); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	runs, err := j.RecentRuns(10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	r := runs[0]
	if r.Op != "provision" || r.Outcome != "failed" || r.Error != "python3: version too low" {
		t.Fatalf("run = %+v", r)
	}
	if r.StartedAt == "" || r.FinishedAt == "" {
		t.Fatalf("timestamps missing: %+v", r)
	}
}

func TestAttemptsOrderedPerRun(t *testing.T) {
	j := openTestJournal(t)

	id, err := j.BeginRun("provision")
	if err != nil {
		t.Fatal(err)
	}
	other, err := j.BeginRun("provision")
	if err != nil {
		t.Fatal(err)
	}

	if err := j.RecordAttempt(id, "python3", "apt", "failed", "no candidate"); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordAttempt(id, "python3", "source", "succeeded", ""); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordAttempt(other, "git", "apt", "succeeded", ""); err != nil {
		t.Fatal(err)
	}

	attempts, err := j.Attempts(id)
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("attempts = %d, want 2", len(attempts))
	}
	if attempts[0].Strategy != "apt" || attempts[1].Strategy != "source" {
		t.Fatalf("order wrong: %+v", attempts)
	}
	if attempts[0].Error != "no candidate" {
		t.Fatalf("error = %q", attempts[0].Error)
	}
}

func TestRecentRunsNewestFirstAndLimited(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 5; i++ {
		id, err := j.BeginRun("provision")
		if err != nil {
			t.Fatal(err)
		}
		if err := j.FinishRun(id, "ok", ""); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := j.RecentRuns(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d, want 3", len(runs))
	}
	if runs[0].ID <= runs[1].ID || runs[1].ID <= runs[2].ID {
		t.Fatalf("not newest first: %v %v %v", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	j1, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := j1.BeginRun("provision"); err != nil {
		t.Fatal(err)
	}
	j1.Close()

	j2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j2.Close()
	runs, err := j2.RecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs after reopen = %d, want 1", len(runs))
	}
}
