package git

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCommandFailed indicates a git command exited unsuccessfully.
var ErrCommandFailed = errors.New("git command failed")

// CommandError represents a failed git invocation. It captures the
// subcommand, its arguments, the underlying error and what git printed on
// stderr.
type CommandError struct {
	Operation string
	Args      []string
	Err       error
	Stderr    string
}

// Error implements the error interface with the tool's own message included.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s failed", e.Operation)
	if out := strings.TrimSpace(e.Stderr); out != "" {
		msg = fmt.Sprintf("%s: %s", msg, out)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes ErrCommandFailed and the underlying error.
func (e *CommandError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCommandFailed}
	}
	return []error{ErrCommandFailed, e.Err}
}

// NewCommandError creates a new CommandError with the given parameters.
func NewCommandError(operation string, args []string, err error, stderr string) *CommandError {
	return &CommandError{
		Operation: operation,
		Args:      args,
		Err:       err,
		Stderr:    stderr,
	}
}
