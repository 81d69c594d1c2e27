package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lesleslie/session-buddy/internal/safety"
)

// allowedCommands is the allow-list every git invocation in this package is
// checked against before a subprocess is spawned, per the safety boundary.
var allowedCommands = safety.AllowSet("git")

func popenGit(ctx context.Context, dir string, args ...string) (func() error, error) {
	return safety.PopenSafe(ctx, append([]string{"git"}, args...), allowedCommands, safety.RunOptions{Dir: dir})
}

func runGit(ctx context.Context, pool *Pool, dir string, args ...string) (string, error) {
	var out string
	err := pool.Run(ctx, func() error {
		var rerr error
		out, rerr = safety.RunSafe(ctx, append([]string{"git"}, args...), allowedCommands, safety.RunOptions{Dir: dir})
		return rerr
	})
	return out, err
}

// IsGitRepository reports whether dir is inside a git work tree.
func IsGitRepository(ctx context.Context, pool *Pool, dir string) bool {
	out, err := runGit(ctx, pool, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// GetGitRoot returns the top-level directory of the repository containing dir.
func GetGitRoot(ctx context.Context, pool *Pool, dir string) (string, error) {
	out, err := runGit(ctx, pool, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("get git root: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// IsGitWorktree reports whether dir is a linked worktree rather than the
// repository's main working tree.
func IsGitWorktree(ctx context.Context, pool *Pool, dir string) bool {
	common, err := runGit(ctx, pool, dir, "rev-parse", "--git-common-dir")
	if err != nil {
		return false
	}
	gitDir, err := runGit(ctx, pool, dir, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	return strings.TrimSpace(common) != strings.TrimSpace(gitDir)
}

// WorktreeInfo describes the worktree containing a given directory.
type WorktreeInfo struct {
	Path           string
	Branch         string
	IsDetached     bool
	IsMainWorktree bool
}

// GetWorktreeInfo resolves the branch (or a detached-HEAD description), the
// worktree path, and whether it is the repository's main worktree.
func GetWorktreeInfo(ctx context.Context, pool *Pool, dir string) (WorktreeInfo, error) {
	root, err := runGit(ctx, pool, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return WorktreeInfo{}, fmt.Errorf("get worktree info: %w", err)
	}
	info := WorktreeInfo{Path: strings.TrimSpace(root)}
	info.IsMainWorktree = !IsGitWorktree(ctx, pool, dir)

	branch, err := runGit(ctx, pool, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return WorktreeInfo{}, fmt.Errorf("get worktree info: %w", err)
	}
	branch = strings.TrimSpace(branch)
	if branch == "HEAD" {
		sha, serr := runGit(ctx, pool, dir, "rev-parse", "--short", "HEAD")
		if serr != nil {
			return WorktreeInfo{}, fmt.Errorf("get worktree info: %w", serr)
		}
		info.IsDetached = true
		info.Branch = fmt.Sprintf("HEAD (%s)", strings.TrimSpace(sha))
	} else {
		info.Branch = branch
	}
	return info, nil
}

// ListWorktrees parses `git worktree list --porcelain` into records.
func ListWorktrees(ctx context.Context, pool *Pool, dir string) ([]WorktreeInfo, error) {
	out, err := runGit(ctx, pool, dir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("list worktrees: %w", err)
	}

	var result []WorktreeInfo
	var cur WorktreeInfo
	flush := func() {
		if cur.Path != "" {
			result = append(result, cur)
		}
		cur = WorktreeInfo{}
	}
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "worktree "):
			flush()
			cur.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "detached":
			cur.IsDetached = true
		}
	}
	flush()
	if len(result) > 0 {
		result[0].IsMainWorktree = true
	}
	return result, nil
}

// GetGitStatus returns the modified and untracked paths per porcelain status.
func GetGitStatus(ctx context.Context, pool *Pool, dir string) (modified, untracked []string, err error) {
	out, rerr := runGit(ctx, pool, dir, "status", "--porcelain")
	if rerr != nil {
		return nil, nil, fmt.Errorf("get git status: %w", rerr)
	}
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 3 {
			continue
		}
		code := line[:2]
		path := strings.TrimSpace(line[3:])
		if code == "??" {
			untracked = append(untracked, path)
		} else {
			modified = append(modified, path)
		}
	}
	return modified, untracked, nil
}

// StageFiles stages all changes with an "add -A" style operation.
func StageFiles(ctx context.Context, pool *Pool, dir string, _ []string) error {
	_, err := runGit(ctx, pool, dir, "add", "-A")
	if err != nil {
		return fmt.Errorf("stage files: %w", err)
	}
	return nil
}

// GetStagedFiles lists paths currently staged for commit.
func GetStagedFiles(ctx context.Context, pool *Pool, dir string) ([]string, error) {
	out, err := runGit(ctx, pool, dir, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, fmt.Errorf("get staged files: %w", err)
	}
	var files []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// CreateCommit commits whatever is staged with message and returns the new
// commit's short hash.
func CreateCommit(ctx context.Context, pool *Pool, dir, message string) (ok bool, shortHash string, err error) {
	if _, err := runGit(ctx, pool, dir, "commit", "-m", message); err != nil {
		return false, "", fmt.Errorf("create commit: %w", err)
	}
	out, err := runGit(ctx, pool, dir, "rev-parse", "--short=8", "HEAD")
	if err != nil {
		return false, "", fmt.Errorf("create commit: %w", err)
	}
	return true, strings.TrimSpace(out), nil
}

// IsGitOperationInProgress reports whether a rebase, merge, bisect, cherry-pick,
// revert, or patch-apply is currently in progress in the repository containing dir.
func IsGitOperationInProgress(ctx context.Context, pool *Pool, dir string) bool {
	gitDirOut, err := runGit(ctx, pool, dir, "rev-parse", "--git-dir")
	if err != nil {
		return false
	}
	gitDir := strings.TrimSpace(gitDirOut)
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(dir, gitDir)
	}

	markers := []string{
		"rebase-merge", "rebase-apply",
		"MERGE_HEAD", "BISECT_LOG", "CHERRY_PICK_HEAD", "REVERT_HEAD", "PATCH_APPLY",
	}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(gitDir, m)); err == nil {
			return true
		}
	}
	return false
}
