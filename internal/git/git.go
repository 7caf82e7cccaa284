package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"gitdrop/internal/drop"
)

const upToDateMarker = "Everything up-to-date"

// Repository drives the git command line against one working copy.
type Repository struct {
	path     string
	executor CommandExecutor
	logger   drop.Logger
}

// CheckInstalled reports whether the git binary can be found on PATH.
func CheckInstalled() error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git is not installed or not in PATH: %w", err)
	}
	return nil
}

// NewRepository creates a Repository for the working copy at path.
func NewRepository(path string, executor CommandExecutor, logger drop.Logger) *Repository {
	if executor == nil {
		executor = NewExecExecutor()
	}
	if logger == nil {
		logger = &drop.NopLogger{}
	}
	return &Repository{path: path, executor: executor, logger: logger}
}

// Path returns the working copy the repository operates on.
func (r *Repository) Path() string {
	return r.path
}

func (r *Repository) run(ctx context.Context, args ...string) (Output, error) {
	argv := append([]string{"-C", r.path}, args...)
	cmd := exec.CommandContext(ctx, "git", argv...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	r.logger.Debug("git", "args", strings.Join(args, " "))
	return r.executor.Execute(cmd)
}

// IsRepository reports whether the path is inside a git working tree.
func (r *Repository) IsRepository(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		if exitCode(err) > 0 {
			return false, nil
		}
		return false, err
	}
	return strings.TrimSpace(out.Stdout) == "true", nil
}

func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	branch := strings.TrimSpace(out.Stdout)
	if branch == "" {
		return "", fmt.Errorf("repository %s is in detached HEAD state", r.path)
	}
	return branch, nil
}

func (r *Repository) IsDirty(ctx context.Context) (bool, error) {
	out, err := r.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out.Stdout) != "", nil
}

func (r *Repository) Checkout(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "checkout", branch)
	return err
}

func (r *Repository) Pull(ctx context.Context) error {
	_, err := r.run(ctx, "pull")
	return err
}

func (r *Repository) CreateAndCheckout(ctx context.Context, branch string) error {
	_, err := r.run(ctx, "checkout", "-b", branch)
	return err
}

// StashSave stashes tracked and untracked changes so the working tree is
// clean afterwards.
func (r *Repository) StashSave(ctx context.Context, message string) error {
	_, err := r.run(ctx, "stash", "push", "--include-untracked", "-m", message)
	return err
}

func (r *Repository) StashPop(ctx context.Context) error {
	_, err := r.run(ctx, "stash", "pop")
	return err
}

func (r *Repository) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := r.run(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// Commit records the index. It returns false without committing when
// nothing is staged.
func (r *Repository) Commit(ctx context.Context, message string) (bool, error) {
	if _, err := r.run(ctx, "diff", "--cached", "--quiet"); err == nil {
		return false, nil
	} else if exitCode(err) != 1 {
		return false, err
	}

	if _, err := r.run(ctx, "commit", "-m", message); err != nil {
		return false, err
	}
	return true, nil
}

// Push sends branch to remote. A push that had nothing to send is reported
// through PushResult.UpToDate rather than as an error.
func (r *Repository) Push(ctx context.Context, remote, branch string) (drop.PushResult, error) {
	out, err := r.run(ctx, "push", remote, branch)
	combined := strings.TrimSpace(out.Stdout + "\n" + out.Stderr)
	if err != nil {
		return drop.PushResult{Output: combined}, err
	}
	return drop.PushResult{
		UpToDate: strings.Contains(combined, upToDateMarker),
		Output:   combined,
	}, nil
}

func (r *Repository) DeleteBranch(ctx context.Context, name string, force bool) error {
	flag := "-d"
	if force {
		flag = "-D"
	}
	_, err := r.run(ctx, "branch", flag, name)
	return err
}

func (r *Repository) CreateBranch(ctx context.Context, name string) error {
	_, err := r.run(ctx, "branch", name)
	return err
}

func (r *Repository) ResetHard(ctx context.Context, ref string) error {
	_, err := r.run(ctx, "reset", "--hard", ref)
	return err
}

func (r *Repository) ListLocalBranches(ctx context.Context) ([]string, error) {
	out, err := r.run(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if err != nil {
		return nil, err
	}

	var branches []string
	for _, line := range strings.Split(out.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

// exitCode returns the process exit status carried by err, or -1 when err
// did not come from a process that ran to completion.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

var _ drop.VersionControl = (*Repository)(nil)
