package drop

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// DefaultRemote is the remote publish branches are pushed to.
const DefaultRemote = "origin"

// PublishOptions configures one publish run.
type PublishOptions struct {
	BaseBranch   string   // branch the publish branch is created from
	Remote       string   // remote to push to; DefaultRemote when empty
	TargetRoot   string   // absolute path of the target tree inside the checkout
	NestDirs     []string // top-level names that trigger nesting; DefaultNestDirs when nil
	Initials     string   // publish branch prefix
	BackupRef    string   // rollback marker; DefaultBackupRef when empty
	DeleteSource bool     // remove the local source archive after success
}

// PublishResult describes what a publish run did. On failure it still holds
// everything an operator needs to recover by hand.
type PublishResult struct {
	Unit           ContentUnit
	ArchivePath    string
	StagingDir     string
	DownloadDir    string // set for remote sources
	Destination    Destination
	OriginalBranch string
	Branch         string
	BranchCreated  bool
	Stashed        bool // a stash made by this run is still outstanding
	Committed      bool
	Pushed         bool
	UpToDate       bool
	BackupRef      string
	RolledBack     bool
	Copied         CopyStats
}

// PublishService runs the branch-scoped publish workflow:
// stage, map, branch, copy, commit, push, then tear down or roll back.
type PublishService struct {
	vcs     VersionControl
	stager  *Stager
	staging StagingArea
	sources ArchiveSource
	fsmgr   FilesystemManager
	logger  Logger
	clock   Clock
	idgen   IDGenerator
}

// NewPublishService creates a PublishService with the provided dependencies.
// sources may be nil when only local paths are used.
func NewPublishService(vcs VersionControl, archiver Archiver, staging StagingArea, sources ArchiveSource, fsmgr FilesystemManager, logger Logger, clock Clock, idgen IDGenerator) *PublishService {
	return &PublishService{
		vcs:     vcs,
		stager:  NewStager(archiver, fsmgr, logger),
		staging: staging,
		sources: sources,
		fsmgr:   fsmgr,
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
	}
}

// Publish runs the workflow for the archive found at source.
//
// Failures before the publish branch exists abort without recovery. Copy,
// commit and push failures trigger Recover. The staging directory is removed
// only after a successful run; otherwise its path is in the result.
func (s *PublishService) Publish(ctx context.Context, source string, opts PublishOptions) (*PublishResult, error) {
	opts = opts.withDefaults()
	res := &PublishResult{}

	dir, err := s.staging.Create()
	if err != nil {
		return res, stepError("prepare staging", ErrExtractionConflict, err)
	}
	res.StagingDir = dir

	location, remote, err := s.fetch(ctx, res, source)
	if err != nil {
		return res, err
	}

	staged, err := s.stager.Stage(location, dir)
	if err != nil {
		return res, err
	}
	res.ArchivePath = staged.ArchivePath
	res.Unit = staged.Unit

	topLevel, err := s.fsmgr.ListDir(staged.Dir)
	if err != nil {
		return res, stepError("map destination", ErrArchiveCorrupt, err)
	}
	res.Destination = MapDestination(topLevel, staged.Unit, opts.TargetRoot, opts.NestDirs)
	s.logger.Info("destination mapped", "unit", staged.Unit.Name, "root", res.Destination.Root, "nested", res.Destination.Nested)

	if err := s.createBranch(ctx, res, opts); err != nil {
		return res, err
	}

	if err := s.commitAndPush(ctx, res, staged, opts); err != nil {
		return res, s.recover(ctx, res, opts.BackupRef, err)
	}

	if err := s.teardown(ctx, res); err != nil {
		return res, err
	}

	for _, d := range []string{dir, res.DownloadDir} {
		if d == "" {
			continue
		}
		if err := s.staging.Discard(d); err != nil {
			s.logger.Warn("could not remove staging directory", "dir", d, "error", err)
		} else {
			s.logger.Info("staging directory removed", "dir", d)
		}
	}

	if opts.DeleteSource {
		if remote {
			s.logger.Warn("delete_source ignored for remote source", "source", source)
		} else if err := s.fsmgr.RemoveAll(staged.ArchivePath); err != nil {
			s.logger.Warn("could not remove source archive", "archive", staged.ArchivePath, "error", err)
		} else {
			s.logger.Info("source archive removed", "archive", staged.ArchivePath)
		}
	}

	return res, nil
}

// fetch resolves remote sources into a separate download directory so the
// staging directory stays empty until extraction.
func (s *PublishService) fetch(ctx context.Context, res *PublishResult, source string) (string, bool, error) {
	if s.sources == nil || !s.sources.Remote(source) {
		return source, false, nil
	}

	downloadDir, err := s.staging.Create()
	if err != nil {
		return "", true, stepError("fetch archive", ErrExtractionConflict, err)
	}
	res.DownloadDir = downloadDir

	local, err := s.sources.Fetch(ctx, source, downloadDir)
	if err != nil {
		return "", true, stepError("fetch archive", ErrArchiveNotFound, err)
	}
	s.logger.Info("remote archive downloaded", "source", source, "path", local)
	return local, true, nil
}

// createBranch records the original branch, stashes local changes, updates
// the base branch and switches to a fresh publish branch. Nothing is rolled
// back on failure; the result shows whether a stash was made.
func (s *PublishService) createBranch(ctx context.Context, res *PublishResult, opts PublishOptions) error {
	original, err := s.vcs.CurrentBranch(ctx)
	if err != nil {
		return stepError("create branch", ErrBranchCreateFailed, fmt.Errorf("reading current branch: %w", err))
	}
	res.OriginalBranch = original

	dirty, err := s.vcs.IsDirty(ctx)
	if err != nil {
		return stepError("create branch", ErrBranchCreateFailed, fmt.Errorf("checking working tree: %w", err))
	}
	if dirty {
		s.logger.Info("working tree has local changes, stashing", "branch", original)
		if err := s.vcs.StashSave(ctx, "gitdrop: stash before publishing "+res.Unit.Name); err != nil {
			return stepError("create branch", ErrBranchCreateFailed, fmt.Errorf("stashing changes: %w", err))
		}
		res.Stashed = true
	}

	if err := s.vcs.Checkout(ctx, opts.BaseBranch); err != nil {
		return stepError("create branch", ErrBranchCreateFailed, fmt.Errorf("checking out %s: %w", opts.BaseBranch, err))
	}
	if err := s.vcs.Pull(ctx); err != nil {
		return stepError("create branch", ErrBranchCreateFailed, fmt.Errorf("pulling %s: %w", opts.BaseBranch, err))
	}

	name := BranchName(opts.Initials, res.Unit, randomSuffix(s.idgen))
	if err := s.vcs.CreateAndCheckout(ctx, name); err != nil {
		return stepError("create branch", ErrBranchCreateFailed, fmt.Errorf("creating %s: %w", name, err))
	}
	res.Branch = name
	res.BranchCreated = true

	s.logger.Info("publish branch created", "branch", name, "base", opts.BaseBranch)
	return nil
}

func (s *PublishService) commitAndPush(ctx context.Context, res *PublishResult, staged *StagedArchive, opts PublishOptions) error {
	stats, err := s.fsmgr.MergeCopy(staged.Dir, res.Destination.Root)
	if err != nil {
		return stepError("copy", ErrCopyFailed, err)
	}
	res.Copied = stats
	s.logger.Info("staged content merged", "dest", res.Destination.Root, "files", stats.Files, "skipped", stats.Skipped)

	if err := s.vcs.Add(ctx, res.Destination.Root); err != nil {
		return stepError("commit", ErrCommitFailed, fmt.Errorf("staging %s: %w", res.Destination.Root, err))
	}

	message := fmt.Sprintf("Publish %s (%s)", res.Unit.Name, s.clock.Now().Format("2006-01-02"))
	committed, err := s.vcs.Commit(ctx, message)
	if err != nil {
		return stepError("commit", ErrCommitFailed, err)
	}
	if !committed {
		s.logger.Info("no changes to publish", "unit", res.Unit.Name)
		return nil
	}
	res.Committed = true
	s.logger.Info("changes committed", "message", message)

	branches, err := s.vcs.ListLocalBranches(ctx)
	if err != nil {
		return stepError("push", ErrPushFailed, fmt.Errorf("listing branches: %w", err))
	}
	if !slices.Contains(branches, res.Branch) {
		return stepError("push", ErrPushFailed, fmt.Errorf("branch %s does not exist locally", res.Branch))
	}

	result, err := s.vcs.Push(ctx, opts.Remote, res.Branch)
	if err != nil {
		return stepError("push", ErrPushFailed, err)
	}
	if result.UpToDate {
		res.UpToDate = true
		s.logger.Info("remote already up to date", "branch", res.Branch)
		return nil
	}
	res.Pushed = true
	s.logger.Info("branch pushed", "remote", opts.Remote, "branch", res.Branch)
	return nil
}

// teardown returns to the original branch, restores stashed changes and
// deletes the local publish branch. It never touches the remote branch.
func (s *PublishService) teardown(ctx context.Context, res *PublishResult) error {
	if err := s.vcs.Checkout(ctx, res.OriginalBranch); err != nil {
		return stepError("cleanup", ErrCleanupFailed, fmt.Errorf("checking out %s: %w", res.OriginalBranch, err))
	}
	if res.Stashed {
		if err := s.vcs.StashPop(ctx); err != nil {
			return stepError("cleanup", ErrCleanupFailed, fmt.Errorf("restoring stash: %w", err))
		}
		res.Stashed = false
	}
	if err := s.vcs.DeleteBranch(ctx, res.Branch, true); err != nil {
		return stepError("cleanup", ErrCleanupFailed, fmt.Errorf("deleting %s: %w", res.Branch, err))
	}
	res.BranchCreated = false

	s.logger.Info("publish branch removed", "branch", res.Branch, "restored", res.OriginalBranch)
	return nil
}

func (s *PublishService) recover(ctx context.Context, res *PublishResult, ref string, cause error) error {
	res.BackupRef = ref
	s.logger.Error("publish failed, rolling back", "error", cause, "backup_ref", ref)

	if err := Recover(ctx, s.vcs, ref); err != nil {
		s.logger.Error("rollback failed", "error", err)
		return errors.Join(cause, err)
	}
	res.RolledBack = true
	s.logger.Info("working tree reset", "backup_ref", ref, "branch", res.Branch)
	return cause
}

func (o PublishOptions) withDefaults() PublishOptions {
	if o.Remote == "" {
		o.Remote = DefaultRemote
	}
	if o.NestDirs == nil {
		o.NestDirs = DefaultNestDirs
	}
	if o.BackupRef == "" {
		o.BackupRef = DefaultBackupRef
	}
	if o.Initials == "" {
		o.Initials = DefaultInitials
	}
	return o
}
