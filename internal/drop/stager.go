package drop

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// StagedArchive is the result of staging one archive.
type StagedArchive struct {
	ArchivePath string
	Unit        ContentUnit
	Dir         string
}

// Stager selects exactly one archive from a source path and extracts it into
// a staging directory.
type Stager struct {
	archiver Archiver
	fsmgr    FilesystemManager
	logger   Logger
}

// NewStager creates a Stager.
func NewStager(archiver Archiver, fsmgr FilesystemManager, logger Logger) *Stager {
	return &Stager{archiver: archiver, fsmgr: fsmgr, logger: logger}
}

// SelectArchive resolves source to a single archive file.
//
// A file is returned as is. For a directory, the archive with the newest
// modification time wins; equal times are broken by filename order so the
// choice is deterministic.
func (s *Stager) SelectArchive(source string) (string, error) {
	info, err := s.fsmgr.Stat(source)
	if err != nil {
		return "", stepError("select archive", ErrArchiveNotFound, err)
	}
	if !info.IsDir() {
		return source, nil
	}

	names, err := s.fsmgr.ListDir(source)
	if err != nil {
		return "", stepError("select archive", ErrArchiveNotFound, err)
	}

	type candidate struct {
		path string
		name string
		mod  int64
	}
	var candidates []candidate
	for _, name := range names {
		if !strings.EqualFold(filepath.Ext(name), s.archiver.Extension()) {
			continue
		}
		p := filepath.Join(source, name)
		fi, err := s.fsmgr.Stat(p)
		if err != nil {
			return "", stepError("select archive", ErrArchiveNotFound, err)
		}
		if fi.IsDir() {
			continue
		}
		candidates = append(candidates, candidate{path: p, name: name, mod: fi.ModTime().UnixNano()})
	}

	if len(candidates) == 0 {
		return "", stepError("select archive", ErrArchiveNotFound,
			fmt.Errorf("no %s files in %s", s.archiver.Extension(), source))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].mod != candidates[j].mod {
			return candidates[i].mod > candidates[j].mod
		}
		return candidates[i].name < candidates[j].name
	})

	if len(candidates) > 1 {
		s.logger.Info("multiple archives found, using newest", "archive", candidates[0].name, "count", len(candidates))
	}
	return candidates[0].path, nil
}

// Stage selects an archive from source and extracts it into dir, which must
// exist, be empty and be writable. Platform metadata directories are removed
// after extraction.
func (s *Stager) Stage(source, dir string) (*StagedArchive, error) {
	archivePath, err := s.SelectArchive(source)
	if err != nil {
		return nil, err
	}

	existing, err := s.fsmgr.ListDir(dir)
	if err != nil {
		return nil, stepError("prepare staging", ErrExtractionConflict, err)
	}
	if len(existing) > 0 {
		return nil, stepError("prepare staging", ErrExtractionConflict,
			fmt.Errorf("staging directory %s is not empty", dir))
	}
	if err := s.fsmgr.CheckWritable(dir); err != nil {
		return nil, stepError("prepare staging", ErrExtractionConflict, err)
	}

	if err := s.archiver.Extract(archivePath, dir); err != nil {
		return nil, stepError("extract", ErrArchiveCorrupt, err)
	}

	removed, err := s.fsmgr.Prune(dir, PlatformMetadataDir)
	if err != nil {
		return nil, stepError("extract", ErrArchiveCorrupt, fmt.Errorf("removing %s: %w", PlatformMetadataDir, err))
	}
	if removed > 0 {
		s.logger.Debug("removed platform metadata", "count", removed)
	}

	staged := &StagedArchive{
		ArchivePath: archivePath,
		Unit:        NewContentUnit(archivePath),
		Dir:         dir,
	}
	s.logger.Info("archive extracted", "archive", staged.Unit.Archive, "staging_dir", dir)
	return staged, nil
}
