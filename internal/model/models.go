package model

import (
	"database/sql"
	"time"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Run is one recorded CLI operation. Failed runs keep the locations an
// operator needs for manual recovery.
type Run struct {
	ID         int64
	Operation  string // e.g. "Publish", "Sync"
	Parameters string
	StartedAt  time.Time
	FinishedAt sql.NullTime
	Status     string
	Unit       string // content unit name, publish runs only
	Branch     string // publish branch left behind, if any
	Remote     string // remote the branch was pushed to
	StagingDir string // staging directory left behind, if any
	BackupRef  string // backup reference created by recovery, if any
	Error      string
}

// Finished reports whether the run has a final status.
func (r *Run) Finished() bool {
	return r.FinishedAt.Valid
}
