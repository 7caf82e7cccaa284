package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitdrop/internal/drop"
)

// dirPattern names run directories so leftovers are easy to find.
const dirPattern = "gitdrop-staging-*"

// FileSystemStagingArea creates one fresh directory per run under a root.
//
// Directory structure:
//
//	<staging_dir>/
//	  gitdrop-staging-<random>/   (one per run, removed on success)
type FileSystemStagingArea struct {
	root string
}

// NewFileSystemStagingArea creates a staging area rooted at root, creating
// the root if needed.
func NewFileSystemStagingArea(root string) (*FileSystemStagingArea, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &FileSystemStagingArea{root: root}, nil
}

// Create makes a new, empty, private directory.
func (s *FileSystemStagingArea) Create() (string, error) {
	dir, err := os.MkdirTemp(s.root, dirPattern)
	if err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	return dir, nil
}

// Discard removes a directory created by this staging area. Paths outside
// the root are refused.
func (s *FileSystemStagingArea) Discard(dir string) error {
	rel, err := filepath.Rel(s.root, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return fmt.Errorf("refusing to discard %s: not a staging directory under %s", dir, s.root)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing staging directory: %w", err)
	}
	return nil
}

// Root returns the directory under which run directories are created.
func (s *FileSystemStagingArea) Root() string {
	return s.root
}

// Compile-time check that FileSystemStagingArea implements drop.StagingArea interface
var _ drop.StagingArea = (*FileSystemStagingArea)(nil)
