package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gitdrop/internal/drop"
)

// hiddenPrefix marks entries that are never copied.
const hiddenPrefix = "."

// OSFilesystemManager is the real filesystem implementation of
// drop.FilesystemManager.
type OSFilesystemManager struct {
	ignore *IgnoreMatcher
}

// NewOSFilesystemManager creates a filesystem manager. ignorePatterns are
// applied by MergeCopy in addition to the hidden-file rule and any
// IgnoreFileName found at the root of the copied tree.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignore: NewIgnoreMatcher(ignorePatterns)}
}

func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (m *OSFilesystemManager) ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)
	return names, nil
}

// CheckWritable creates and removes a probe file in dir.
func (m *OSFilesystemManager) CheckWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".gitdrop-probe-*")
	if err != nil {
		return fmt.Errorf("directory not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("removing probe file: %w", err)
	}
	return nil
}

// MergeCopy copies src into dst, merging directories. Existing files in dst
// that are not in src are never touched.
func (m *OSFilesystemManager) MergeCopy(src, dst string) (drop.CopyStats, error) {
	var stats drop.CopyStats

	info, err := os.Stat(src)
	if err != nil {
		return stats, fmt.Errorf("stat source: %w", err)
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("source is not a directory: %s", src)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return stats, fmt.Errorf("creating destination: %w", err)
	}

	extra, err := ParseIgnoreFile(filepath.Join(src, IgnoreFileName))
	if err != nil {
		return stats, err
	}
	ignore := m.ignore.With(extra)

	err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == src {
			return nil
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return fmt.Errorf("calculating relative path: %w", err)
		}

		if strings.HasPrefix(d.Name(), hiddenPrefix) || ignore.Match(rel) {
			stats.Skipped++
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", target, err)
			}
		case d.Type().IsRegular():
			if err := copyRegular(p, target); err != nil {
				return err
			}
			stats.Files++
		default:
			// Symlinks and special files are not part of published content.
			stats.Skipped++
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("merging %s into %s: %w", src, dst, err)
	}
	return stats, nil
}

func (m *OSFilesystemManager) CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}
	return copyRegular(src, dst)
}

func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func (m *OSFilesystemManager) Create(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating parent directory: %w", err)
	}
	return os.Create(path)
}

func (m *OSFilesystemManager) Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Prune removes every directory called name under root, root excluded.
func (m *OSFilesystemManager) Prune(root, name string) (int, error) {
	var matches []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != root && d.IsDir() && d.Name() == name {
			matches = append(matches, p)
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walking %s: %w", root, err)
	}

	for _, p := range matches {
		if err := os.RemoveAll(p); err != nil {
			return 0, fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return len(matches), nil
}

func (m *OSFilesystemManager) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// copyRegular copies a file's content and permission bits, overwriting dst.
func copyRegular(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// Compile-time check that OSFilesystemManager implements drop.FilesystemManager
var _ drop.FilesystemManager = (*OSFilesystemManager)(nil)
