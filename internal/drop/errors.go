package drop

import (
	"errors"
	"fmt"
)

// Sentinel errors for each failure kind. Match them with errors.Is.
var (
	ErrArchiveNotFound    = errors.New("archive not found")
	ErrArchiveCorrupt     = errors.New("archive corrupt")
	ErrExtractionConflict = errors.New("extraction conflict")
	ErrBranchCreateFailed = errors.New("branch create failed")
	ErrCopyFailed         = errors.New("copy failed")
	ErrCommitFailed       = errors.New("commit failed")
	ErrPushFailed         = errors.New("push failed")
	ErrCleanupFailed      = errors.New("cleanup failed")
	ErrRollbackFailed     = errors.New("rollback failed")
)

// StepError records which workflow step failed, the failure kind, and the
// underlying tool or filesystem error.
type StepError struct {
	Step string
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Step, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func stepError(step string, kind, err error) *StepError {
	return &StepError{Step: step, Kind: kind, Err: err}
}

// KindOf returns the sentinel kind carried by err, or nil if err is not a
// workflow failure. A rollback failure outranks the failure that triggered it.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrRollbackFailed,
		ErrArchiveNotFound,
		ErrArchiveCorrupt,
		ErrExtractionConflict,
		ErrBranchCreateFailed,
		ErrCopyFailed,
		ErrCommitFailed,
		ErrPushFailed,
		ErrCleanupFailed,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
