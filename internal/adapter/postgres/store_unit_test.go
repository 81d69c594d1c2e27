package postgres

import "testing"

func TestContentHashDeterministicAndLength(t *testing.T) {
	a := contentHash("hello world")
	b := contentHash("hello world")
	if a != b {
		t.Fatalf("expected deterministic hash, got %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Fatalf("expected 16-hex content id, got %q (%d)", a, len(a))
	}
	if contentHash("different") == a {
		t.Fatal("expected different content to hash differently")
	}
}

func TestMatchesProject(t *testing.T) {
	meta := map[string]any{"project": "session-buddy"}
	if !matchesProject(meta, "") {
		t.Error("empty project filter should match everything")
	}
	if !matchesProject(meta, "session-buddy") {
		t.Error("matching project should match")
	}
	if matchesProject(meta, "other") {
		t.Error("non-matching project should not match")
	}
	if matchesProject(map[string]any{}, "anything") {
		t.Error("missing project key should not match a non-empty filter")
	}
}

func TestSanitizeProjectsDropsEmpty(t *testing.T) {
	got := sanitizeProjects([]string{"a", "", "b"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestToStringSliceFiltersNonStrings(t *testing.T) {
	got := toStringSlice([]any{"a", 1, "b", nil})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestIsAlreadyExistsRecognizesPlainMessage(t *testing.T) {
	if !isAlreadyExists(errAlready{}) {
		t.Error("expected message containing 'already exists' to be recognized")
	}
}

type errAlready struct{}

func (errAlready) Error() string { return "relation already exists" }
