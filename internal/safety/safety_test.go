package safety

import (
	"os"
	"strings"
	"testing"
)

func TestValidateUserPath(t *testing.T) {
	dir := t.TempDir()
	sub := dir + "/child"
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := ValidateUserPath(sub, false, dir); err != nil {
		t.Fatalf("expected child within base to validate, got %v", err)
	}

	if _, err := ValidateUserPath(dir+"/missing", false, dir); err == nil {
		t.Fatal("expected error for nonexistent path")
	}

	if _, err := ValidateUserPath("bad\x00path", false, dir); err == nil {
		t.Fatal("expected error for null byte")
	}

	if _, err := ValidateUserPath(strings.Repeat("a", 5000), false, dir); err == nil {
		t.Fatal("expected error for overlong path")
	}

	outside := t.TempDir()
	if _, err := ValidateUserPath(outside, false, dir); err == nil {
		t.Fatal("expected error for path outside base_dir")
	}
}

func TestValidateGitPath(t *testing.T) {
	dir := t.TempDir()
	gitDir := dir + "/repo/.git"
	if err := os.MkdirAll(gitDir+"/objects", 0o755); err != nil {
		t.Fatal(err)
	}

	if _, err := ValidateGitPath(gitDir, false, dir); err != nil {
		t.Fatalf("trailing .git segment should be allowed: %v", err)
	}
	if _, err := ValidateGitPath(gitDir+"/objects", false, dir); err == nil {
		t.Fatal("expected rejection of non-terminal .git segment")
	}
}

func TestValidateCommand(t *testing.T) {
	allowed := AllowSet("git", "echo")

	cases := []struct {
		name    string
		argv    []string
		wantErr bool
	}{
		{"empty argv", nil, true},
		{"empty head", []string{""}, true},
		{"disallowed", []string{"rm", "-rf"}, true},
		{"absolute path disallowed", []string{"/bin/echo", "hi"}, true},
		{"shell metachar", []string{"git", "status;rm"}, true},
		{"valid", []string{"git", "status"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCommand(tc.argv, allowed)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateCommand(%v) error = %v, wantErr %v", tc.argv, err, tc.wantErr)
			}
		})
	}
}

func TestSanitizedEnvironRemovesSensitiveVars(t *testing.T) {
	t.Setenv("MY_SECRET_TOKEN", "shh")
	t.Setenv("PATH_EXTRA", "kept")

	env := SanitizedEnviron()
	for _, kv := range env {
		if strings.HasPrefix(kv, "MY_SECRET_TOKEN=") {
			t.Fatal("sensitive variable leaked into sanitized environment")
		}
	}

	found := false
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH_EXTRA=") {
			found = true
		}
	}
	if !found {
		t.Fatal("non-sensitive variable missing from sanitized environment")
	}

	// Process environment itself must be untouched.
	if _, ok := os.LookupEnv("MY_SECRET_TOKEN"); !ok {
		t.Fatal("SanitizedEnviron must not mutate the process environment")
	}
}
