package drop

import (
	"io"
	"io/fs"
)

// CopyStats summarizes a merge copy.
type CopyStats struct {
	Files   int // files written
	Skipped int // entries skipped by the hidden-file marker or ignore rules
}

// FilesystemManager provides the filesystem capabilities the workflows need.
// It abstracts file access so the workflows can be tested against fakes.
type FilesystemManager interface {
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)

	// ListDir returns the names of the entries directly under dir, sorted.
	ListDir(dir string) ([]string, error)

	// CheckWritable verifies that files can be created in dir.
	CheckWritable(dir string) error

	// MergeCopy copies every entry under src into dst. Directories merge
	// recursively: files present in both are overwritten, files only in dst
	// are kept, and entries whose name starts with "." are skipped.
	MergeCopy(src, dst string) (CopyStats, error)

	// CopyFile copies a single regular file, creating parent directories.
	CopyFile(src, dst string) error

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Create creates or truncates a file for writing, creating parent
	// directories as needed.
	Create(path string) (io.WriteCloser, error)

	// Checksum returns the lowercase hex SHA-256 of a file's contents.
	Checksum(path string) (string, error)

	// Prune removes every directory called name at any depth under root and
	// returns how many were removed.
	Prune(root, name string) (int, error)

	RemoveAll(path string) error
}
