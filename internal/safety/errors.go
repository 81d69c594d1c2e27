package safety

import "errors"

var (
	// ErrInvalidPath is returned for any path-validation failure.
	ErrInvalidPath = errors.New("invalid path")
	// ErrCommandNotAllowed is returned when argv[0] is not in the allow-list.
	ErrCommandNotAllowed = errors.New("command not allowed")
	// ErrUnsafeArgument is returned when an argument contains a shell metacharacter.
	ErrUnsafeArgument = errors.New("unsafe argument")
)
