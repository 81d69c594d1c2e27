package git

import (
	"context"
	"os"
	"strings"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	pool := NewPool(1)
	ctx := context.Background()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		if _, err := runGit(ctx, pool, dir, args...); err != nil {
			t.Fatalf("git %v: %v", args, err)
		}
	}
	return dir
}

func TestCreateCheckpointCommitCleanThenChanged(t *testing.T) {
	ctx := context.Background()
	pool := NewPool(2)
	dir := initRepo(t)

	readme := dir + "/README.md"
	if err := os.WriteFile(readme, []byte("A"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := runGit(ctx, pool, dir, "add", "-A"); err != nil {
		t.Fatal(err)
	}
	if _, err := runGit(ctx, pool, dir, "commit", "-m", "init"); err != nil {
		t.Fatal(err)
	}

	// Clean working tree.
	outcome, err := CreateCheckpointCommit(ctx, pool, dir, "p", 75)
	if err != nil {
		t.Fatalf("unexpected error on clean repo: %v", err)
	}
	if outcome.Result != CleanResult {
		t.Fatalf("expected clean result, got %q", outcome.Result)
	}

	// Modify tracked file.
	if err := os.WriteFile(readme, []byte("B"), 0o644); err != nil {
		t.Fatal(err)
	}
	outcome, err = CreateCheckpointCommit(ctx, pool, dir, "p", 75)
	if err != nil {
		t.Fatalf("unexpected error on dirty repo: %v", err)
	}
	if outcome.Result == CleanResult || len(outcome.Result) != 8 {
		t.Fatalf("expected 8-hex short hash, got %q", outcome.Result)
	}

	log, err := runGit(ctx, pool, dir, "log", "-1", "--pretty=%B")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(log, "checkpoint:") || !strings.Contains(log, "p") || !strings.Contains(log, "75/100") {
		t.Fatalf("commit message missing expected fields: %q", log)
	}
}

func TestCreateCheckpointCommitUntrackedOnly(t *testing.T) {
	ctx := context.Background()
	pool := NewPool(1)
	dir := initRepo(t)

	if err := os.WriteFile(dir+"/new.txt", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := CreateCheckpointCommit(ctx, pool, dir, "p", 50)
	if err == nil {
		t.Fatal("expected refusal on untracked-only changes")
	}
}

func TestValidatePruneDelay(t *testing.T) {
	valid := []string{"now", "never", "2.weeks", "1.day", "1000.years", "5.hours"}
	for _, v := range valid {
		if err := ValidatePruneDelay(v); err != nil {
			t.Errorf("expected %q to be valid, got %v", v, err)
		}
	}

	invalid := []string{"10000.weeks", "$(reboot)", "0.days", "-1.days", "weeks", ""}
	for _, v := range invalid {
		if err := ValidatePruneDelay(v); err == nil {
			t.Errorf("expected %q to be rejected", v)
		}
	}
}
