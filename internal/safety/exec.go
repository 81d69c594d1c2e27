package safety

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// RunOptions configures RunSafe. Dir defaults to the caller's working
// directory when empty.
type RunOptions struct {
	Dir string
}

// RunSafe validates argv against allowed, runs it with a sanitized
// environment and no shell interpretation, and captures combined
// stdout/stderr. It fails closed: any validation error aborts before a
// process is ever spawned.
func RunSafe(ctx context.Context, argv []string, allowed map[string]struct{}, opts RunOptions) (string, error) {
	if err := ValidateCommand(argv, allowed); err != nil {
		return "", err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = SanitizedEnviron()

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("run %v: %w: %s", argv, err, out.String())
	}
	return out.String(), nil
}

// PopenSafe validates argv and starts it asynchronously with a sanitized
// environment, discarding its output. The returned function blocks until
// the process exits and reports the first error encountered, if any.
func PopenSafe(ctx context.Context, argv []string, allowed map[string]struct{}, opts RunOptions) (func() error, error) {
	if err := ValidateCommand(argv, allowed); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = SanitizedEnviron()

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %v: %w", argv, err)
	}
	return cmd.Wait, nil
}
