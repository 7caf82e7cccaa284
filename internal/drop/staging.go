package drop

// StagingArea hands out private extraction directories, one per run.
// A directory is never handed out twice.
type StagingArea interface {
	// Create makes a new empty directory and returns its path.
	Create() (string, error)

	// Discard deletes a directory previously returned by Create.
	Discard(dir string) error
}
