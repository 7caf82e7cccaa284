package testutil

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"gitdrop/internal/drop"
)

// FakeVCS is an in-memory drop.VersionControl. It tracks the current branch,
// local branches and stashes, records every call, and fails any operation
// named in Fail.
type FakeVCS struct {
	Current         string
	Branches        []string
	Dirty           bool
	Stashes         []string
	Added           []string
	Commits         []string
	Pushes          []string
	Resets          []string
	NothingToCommit bool
	PushUpToDate    bool

	// Fail maps an operation name ("Checkout", "Push", ...) to the error it returns.
	Fail map[string]error
	// FailCheckoutOf fails Checkout only for the named branch.
	FailCheckoutOf map[string]error

	Calls []string
}

// NewFakeVCS returns a clean repository on branch main.
func NewFakeVCS() *FakeVCS {
	return &FakeVCS{
		Current:        "main",
		Branches:       []string{"main"},
		Fail:           make(map[string]error),
		FailCheckoutOf: make(map[string]error),
	}
}

func (f *FakeVCS) record(op string, args ...string) error {
	call := op
	if len(args) > 0 {
		call += " " + strings.Join(args, " ")
	}
	f.Calls = append(f.Calls, call)
	return f.Fail[op]
}

// Called reports whether any recorded call starts with prefix.
func (f *FakeVCS) Called(prefix string) bool {
	for _, c := range f.Calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// HasBranch reports whether name is a local branch.
func (f *FakeVCS) HasBranch(name string) bool {
	return slices.Contains(f.Branches, name)
}

func (f *FakeVCS) CurrentBranch(context.Context) (string, error) {
	if err := f.record("CurrentBranch"); err != nil {
		return "", err
	}
	return f.Current, nil
}

func (f *FakeVCS) IsDirty(context.Context) (bool, error) {
	if err := f.record("IsDirty"); err != nil {
		return false, err
	}
	return f.Dirty, nil
}

func (f *FakeVCS) Checkout(_ context.Context, branch string) error {
	if err := f.record("Checkout", branch); err != nil {
		return err
	}
	if err := f.FailCheckoutOf[branch]; err != nil {
		return err
	}
	if !f.HasBranch(branch) {
		return fmt.Errorf("pathspec '%s' did not match any branch", branch)
	}
	f.Current = branch
	return nil
}

func (f *FakeVCS) Pull(context.Context) error {
	return f.record("Pull")
}

func (f *FakeVCS) CreateAndCheckout(_ context.Context, branch string) error {
	if err := f.record("CreateAndCheckout", branch); err != nil {
		return err
	}
	if f.HasBranch(branch) {
		return fmt.Errorf("a branch named '%s' already exists", branch)
	}
	f.Branches = append(f.Branches, branch)
	f.Current = branch
	return nil
}

func (f *FakeVCS) StashSave(_ context.Context, message string) error {
	if err := f.record("StashSave", message); err != nil {
		return err
	}
	f.Stashes = append(f.Stashes, message)
	f.Dirty = false
	return nil
}

func (f *FakeVCS) StashPop(context.Context) error {
	if err := f.record("StashPop"); err != nil {
		return err
	}
	if len(f.Stashes) == 0 {
		return fmt.Errorf("no stash entries found")
	}
	f.Stashes = f.Stashes[:len(f.Stashes)-1]
	f.Dirty = true
	return nil
}

func (f *FakeVCS) Add(_ context.Context, paths ...string) error {
	if err := f.record("Add", paths...); err != nil {
		return err
	}
	f.Added = append(f.Added, paths...)
	return nil
}

func (f *FakeVCS) Commit(_ context.Context, message string) (bool, error) {
	if err := f.record("Commit", message); err != nil {
		return false, err
	}
	if f.NothingToCommit {
		return false, nil
	}
	f.Commits = append(f.Commits, message)
	return true, nil
}

func (f *FakeVCS) Push(_ context.Context, remote, branch string) (drop.PushResult, error) {
	if err := f.record("Push", remote, branch); err != nil {
		return drop.PushResult{}, err
	}
	if f.PushUpToDate {
		return drop.PushResult{UpToDate: true, Output: "Everything up-to-date"}, nil
	}
	f.Pushes = append(f.Pushes, remote+"/"+branch)
	return drop.PushResult{}, nil
}

func (f *FakeVCS) DeleteBranch(_ context.Context, name string, force bool) error {
	if err := f.record("DeleteBranch", name, fmt.Sprint(force)); err != nil {
		return err
	}
	if name == f.Current {
		return fmt.Errorf("cannot delete branch '%s' checked out", name)
	}
	i := slices.Index(f.Branches, name)
	if i < 0 {
		return fmt.Errorf("branch '%s' not found", name)
	}
	f.Branches = slices.Delete(f.Branches, i, i+1)
	return nil
}

func (f *FakeVCS) CreateBranch(_ context.Context, name string) error {
	if err := f.record("CreateBranch", name); err != nil {
		return err
	}
	if f.HasBranch(name) {
		return fmt.Errorf("a branch named '%s' already exists", name)
	}
	f.Branches = append(f.Branches, name)
	return nil
}

func (f *FakeVCS) ResetHard(_ context.Context, ref string) error {
	if err := f.record("ResetHard", ref); err != nil {
		return err
	}
	f.Resets = append(f.Resets, ref)
	return nil
}

func (f *FakeVCS) ListLocalBranches(context.Context) ([]string, error) {
	if err := f.record("ListLocalBranches"); err != nil {
		return nil, err
	}
	return slices.Clone(f.Branches), nil
}

var _ drop.VersionControl = (*FakeVCS)(nil)
