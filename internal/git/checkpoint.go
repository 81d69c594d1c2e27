package git

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CleanResult is the sentinel returned by CreateCheckpointCommit when the
// working tree has no tracked changes to commit.
const CleanResult = "clean"

// ErrUntrackedOnly is returned when the working tree has only untracked
// files — a checkpoint commit is refused rather than silently no-op'd.
var ErrUntrackedOnly = errors.New("git: only untracked files present, refusing checkpoint")

// CheckpointOutcome is the result of CreateCheckpointCommit.
type CheckpointOutcome struct {
	Result string // CleanResult or the new commit's short hash
	Lines  int    // number of changed lines staged (best-effort, from diff --numstat)
}

// CreateCheckpointCommit validates the repo, reads status, and either
// reports the clean sentinel, refuses on untracked-only changes, or stages
// and commits with a structured checkpoint message.
func CreateCheckpointCommit(ctx context.Context, pool *Pool, dir, project string, qualityScore int) (CheckpointOutcome, error) {
	if !IsGitRepository(ctx, pool, dir) {
		return CheckpointOutcome{}, fmt.Errorf("create checkpoint: %q is not a git repository", dir)
	}

	modified, untracked, err := GetGitStatus(ctx, pool, dir)
	if err != nil {
		return CheckpointOutcome{}, err
	}
	if len(modified) == 0 && len(untracked) == 0 {
		return CheckpointOutcome{Result: CleanResult}, nil
	}
	if len(modified) == 0 && len(untracked) > 0 {
		return CheckpointOutcome{}, ErrUntrackedOnly
	}

	lines, _ := diffStatLines(ctx, pool, dir)

	if err := StageFiles(ctx, pool, dir, nil); err != nil {
		return CheckpointOutcome{}, err
	}

	message, err := checkpointMessage(ctx, pool, dir, project, qualityScore)
	if err != nil {
		return CheckpointOutcome{}, err
	}

	ok, hash, err := CreateCommit(ctx, pool, dir, message)
	if err != nil || !ok {
		return CheckpointOutcome{}, err
	}
	return CheckpointOutcome{Result: hash, Lines: lines}, nil
}

func diffStatLines(ctx context.Context, pool *Pool, dir string) (int, error) {
	out, err := runGit(ctx, pool, dir, "diff", "--numstat")
	if err != nil {
		return 0, err
	}
	total := 0
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		added, _ := strconv.Atoi(fields[0]) // "-" for binary files counts as 0
		deleted, _ := strconv.Atoi(fields[1])
		total += added + deleted
	}
	return total, nil
}

// checkpointMessage renders "checkpoint: <project> (quality: <NN>/100) -
// <YYYY-MM-DD HH:MM:SS>[ [worktree: <branch>]]" per the external-interfaces
// contract.
func checkpointMessage(ctx context.Context, pool *Pool, dir, project string, qualityScore int) (string, error) {
	info, err := GetWorktreeInfo(ctx, pool, dir)
	if err != nil {
		return "", err
	}
	ts := time.Now().UTC().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf("checkpoint: %s (quality: %d/100) - %s", project, qualityScore, ts)
	if !info.IsMainWorktree {
		msg += fmt.Sprintf(" [worktree: %s]", info.Branch)
	}
	return msg, nil
}
