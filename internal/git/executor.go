package git

import (
	"bytes"
	"os/exec"
)

// Output holds what a command printed.
type Output struct {
	Stdout string
	Stderr string
}

// CommandExecutor defines an interface for executing commands
type CommandExecutor interface {
	// Execute runs cmd to completion and returns its captured output.
	// A non-zero exit is reported as a *CommandError.
	Execute(cmd *exec.Cmd) (Output, error)
}

// ExecExecutor is the default implementation of CommandExecutor
// that delegates to the os/exec package
type ExecExecutor struct{}

// NewExecExecutor creates a new ExecExecutor
func NewExecExecutor() *ExecExecutor {
	return &ExecExecutor{}
}

// Execute implements CommandExecutor.Execute
func (e *ExecExecutor) Execute(cmd *exec.Cmd) (Output, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		operation, args := splitArgs(cmd.Args)
		return out, NewCommandError(operation, args, err, out.Stderr)
	}
	return out, nil
}

// splitArgs picks the git subcommand out of a full argument list, skipping
// the binary name and any leading "-C <dir>" pair.
func splitArgs(argv []string) (string, []string) {
	if len(argv) > 0 {
		argv = argv[1:]
	}
	for len(argv) >= 2 && argv[0] == "-C" {
		argv = argv[2:]
	}
	if len(argv) == 0 {
		return "", nil
	}
	return argv[0], argv[1:]
}
