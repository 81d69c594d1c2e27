package git

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// pruneDelayPattern is the sole defense against command injection through
// `git gc --prune=<delay>`: any input not matching this grammar, or not
// equal to "now"/"never", is rejected before a subprocess is ever spawned.
var pruneDelayPattern = regexp.MustCompile(`(?i)^(\d+)\.(second|minute|hour|day|week|month|year)s?$`)

// ValidatePruneDelay accepts "now", "never", or "<N>.<unit>[s]" with N in
// [1, 1000]; anything else is rejected with a descriptive error.
func ValidatePruneDelay(delay string) error {
	switch delay {
	case "now", "never":
		return nil
	}
	m := pruneDelayPattern.FindStringSubmatch(delay)
	if m == nil {
		return fmt.Errorf("git: invalid prune-delay grammar: %q", delay)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return fmt.Errorf("git: invalid prune-delay integer: %q", delay)
	}
	if n < 1 || n > 1000 {
		return fmt.Errorf("git: prune-delay %q: value %d too large (must be in [1, 1000])", delay, n)
	}
	return nil
}

// ScheduleAutomaticGitGC validates pruneDelay, configures gc.auto, and
// spawns `git gc --auto --prune=<pruneDelay>` in the background. The
// returned wait function blocks until the spawned process exits.
func ScheduleAutomaticGitGC(ctx context.Context, pool *Pool, dir, pruneDelay string, autoThreshold int) (func() error, error) {
	if err := ValidatePruneDelay(pruneDelay); err != nil {
		return nil, err
	}

	if _, err := runGit(ctx, pool, dir, "config", "gc.auto", strconv.Itoa(autoThreshold)); err != nil {
		return nil, fmt.Errorf("schedule git gc: configure gc.auto: %w", err)
	}

	var wait func() error
	err := pool.Run(ctx, func() error {
		var perr error
		wait, perr = popenGit(ctx, dir, "gc", "--auto", "--prune="+pruneDelay)
		return perr
	})
	if err != nil {
		return nil, fmt.Errorf("schedule git gc: %w", err)
	}
	return wait, nil
}
