package source

import (
	"context"

	"gitdrop/internal/drop"
)

// LocalSource serves archives that already exist on disk. Selecting an
// archive inside a directory is left to the stager.
type LocalSource struct{}

// NewLocalSource creates a LocalSource.
func NewLocalSource() *LocalSource {
	return &LocalSource{}
}

func (s *LocalSource) Fetch(_ context.Context, location, _ string) (string, error) {
	return location, nil
}

func (s *LocalSource) Remote(string) bool {
	return false
}

var _ drop.ArchiveSource = (*LocalSource)(nil)
