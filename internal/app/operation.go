package app

import (
	"gitdrop/internal/drop"
	"gitdrop/internal/model"
)

// Operation tracks a CLI command in the run ledger. Operations start in
// memory with ID=0. Only mutating commands persist them.
type Operation struct {
	ID         int64
	Name       string
	Parameters string
	Status     string // "success" or "error"
	Unit       string
	Branch     string
	Remote     string
	StagingDir string
	BackupRef  string
	Err        string
}

// NewOperation creates a new in-memory operation.
func NewOperation(name, parameters string) *Operation {
	return &Operation{
		Name:       name,
		Parameters: parameters,
		Status:     model.StatusSuccess,
	}
}

// Persisted returns true if this operation has been saved to the ledger.
func (op *Operation) Persisted() bool {
	return op.ID != 0
}

// Fail marks the operation as failed with err.
func (op *Operation) Fail(err error) {
	if err == nil {
		return
	}
	op.Status = model.StatusError
	op.Err = err.Error()
}

// RecordPublish keeps what an operator needs to finish a publish by hand.
// A successful run leaves nothing behind, so only the unit and the pushed
// branch are kept.
func (op *Operation) RecordPublish(res *drop.PublishResult, remote string) {
	if res == nil {
		return
	}
	op.Unit = res.Unit.Name
	op.Branch = res.Branch
	if res.Pushed || res.UpToDate {
		op.Remote = remote
	}
	op.BackupRef = res.BackupRef
	if op.Status == model.StatusError {
		op.StagingDir = res.StagingDir
	}
}

// Run converts the operation into its ledger row.
func (op *Operation) Run() *model.Run {
	return &model.Run{
		ID:         op.ID,
		Operation:  op.Name,
		Parameters: op.Parameters,
		Status:     op.Status,
		Unit:       op.Unit,
		Branch:     op.Branch,
		Remote:     op.Remote,
		StagingDir: op.StagingDir,
		BackupRef:  op.BackupRef,
		Error:      op.Err,
	}
}
