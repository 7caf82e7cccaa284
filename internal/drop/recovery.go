package drop

import (
	"context"
	"fmt"
	"slices"
)

// DefaultBackupRef is the reused branch name that captures the tree state at
// failure time.
const DefaultBackupRef = "temp_backup_branch"

// Recover captures the current tip in the backup reference and hard-resets
// the checked-out branch onto it. A stale backup reference is deleted first.
//
// Recover protects the local working tree only; it cannot undo a push that
// already reached the remote.
func Recover(ctx context.Context, vcs VersionControl, ref string) error {
	if ref == "" {
		ref = DefaultBackupRef
	}

	branches, err := vcs.ListLocalBranches(ctx)
	if err != nil {
		return stepError("rollback", ErrRollbackFailed, fmt.Errorf("listing branches: %w", err))
	}
	if slices.Contains(branches, ref) {
		if err := vcs.DeleteBranch(ctx, ref, true); err != nil {
			return stepError("rollback", ErrRollbackFailed, fmt.Errorf("deleting stale %s: %w", ref, err))
		}
	}

	if err := vcs.CreateBranch(ctx, ref); err != nil {
		return stepError("rollback", ErrRollbackFailed, fmt.Errorf("creating %s: %w", ref, err))
	}
	if err := vcs.ResetHard(ctx, ref); err != nil {
		return stepError("rollback", ErrRollbackFailed, fmt.Errorf("resetting to %s: %w", ref, err))
	}
	return nil
}
