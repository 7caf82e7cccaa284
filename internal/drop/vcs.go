package drop

import "context"

// PushResult describes what the remote reported for a push.
type PushResult struct {
	// UpToDate is true when the remote already had every pushed commit.
	UpToDate bool
	Output   string
}

// VersionControl is the version-control collaborator for a single checkout.
// Implementations never expose the storage format; every operation maps to
// one tool invocation.
type VersionControl interface {
	// CurrentBranch returns the name of the checked-out branch.
	CurrentBranch(ctx context.Context) (string, error)

	// IsDirty reports whether the working tree has uncommitted changes,
	// untracked files included.
	IsDirty(ctx context.Context) (bool, error)

	Checkout(ctx context.Context, branch string) error
	Pull(ctx context.Context) error

	// CreateAndCheckout creates branch at HEAD and switches to it.
	CreateAndCheckout(ctx context.Context, branch string) error

	StashSave(ctx context.Context, message string) error
	StashPop(ctx context.Context) error

	Add(ctx context.Context, paths ...string) error

	// Commit records the staged changes. It returns false without error when
	// nothing was staged.
	Commit(ctx context.Context, message string) (bool, error)

	Push(ctx context.Context, remote, branch string) (PushResult, error)

	// DeleteBranch removes a local branch. force deletes it even when it is
	// not merged.
	DeleteBranch(ctx context.Context, name string, force bool) error

	// CreateBranch creates a branch at HEAD without switching to it.
	CreateBranch(ctx context.Context, name string) error

	ResetHard(ctx context.Context, ref string) error
	ListLocalBranches(ctx context.Context) ([]string, error)
}
