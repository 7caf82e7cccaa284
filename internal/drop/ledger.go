package drop

import "gitdrop/internal/model"

// Ledger records every mutating CLI run so failed runs can be recovered by
// hand later.
type Ledger interface {
	// StartRun inserts a run in the running state and returns it.
	StartRun(operation, parameters string) (*model.Run, error)

	// FinishRun stores the final state of a run.
	FinishRun(run *model.Run) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*model.Run, error)

	// CheckMigrations verifies that the schema is up to date.
	CheckMigrations() error

	Close() error
}
