package drop

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// EncryptedExtension is appended to backups written with encryption enabled.
const EncryptedExtension = ".age"

// SyncApp is one application whose backup archives are mirrored.
type SyncApp struct {
	Name      string // destination directory inside the repository
	SourceDir string
	Extension string // with or without the leading dot
}

// SyncOptions configures a backup sync run.
type SyncOptions struct {
	RepoRoot string
	Apps     []SyncApp
	Remote   string
	Branch   string
	Encrypt  bool
}

// SyncResult describes what a backup sync run did.
type SyncResult struct {
	Copied    []string
	Unchanged int
	Committed bool
	Pushed    bool
	UpToDate  bool
}

// SyncService mirrors application backup archives into a repository checkout
// and pushes them on the checked-out branch.
type SyncService struct {
	vcs       VersionControl
	fsmgr     FilesystemManager
	encryptor Encryptor
	logger    Logger
	clock     Clock
}

// NewSyncService creates a SyncService. encryptor may be nil when encryption
// is disabled.
func NewSyncService(vcs VersionControl, fsmgr FilesystemManager, encryptor Encryptor, logger Logger, clock Clock) *SyncService {
	return &SyncService{
		vcs:       vcs,
		fsmgr:     fsmgr,
		encryptor: encryptor,
		logger:    logger,
		clock:     clock,
	}
}

// Sync copies new or changed backups, commits them with a dated message and
// pushes. A run that copies nothing makes no commit.
func (s *SyncService) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	if opts.Remote == "" {
		opts.Remote = DefaultRemote
	}
	if opts.Encrypt && s.encryptor == nil {
		return nil, fmt.Errorf("encryption enabled but no encryptor configured")
	}

	res := &SyncResult{}
	for _, app := range opts.Apps {
		copied, unchanged, err := s.syncApp(app, opts.RepoRoot, opts.Encrypt)
		res.Copied = append(res.Copied, copied...)
		res.Unchanged += unchanged
		if err != nil {
			return res, stepError("copy "+app.Name, ErrCopyFailed, err)
		}
	}

	if len(res.Copied) == 0 {
		s.logger.Info("no new backups", "unchanged", res.Unchanged)
		return res, nil
	}

	if err := s.vcs.Add(ctx, res.Copied...); err != nil {
		return res, stepError("commit", ErrCommitFailed, err)
	}

	message := fmt.Sprintf("Backup for %s", s.clock.Now().Format("2006-01-02"))
	committed, err := s.vcs.Commit(ctx, message)
	if err != nil {
		return res, stepError("commit", ErrCommitFailed, err)
	}
	if !committed {
		s.logger.Info("nothing to commit")
		return res, nil
	}
	res.Committed = true
	s.logger.Info("committed backups", "count", len(res.Copied))

	branch := opts.Branch
	if branch == "" {
		branch, err = s.vcs.CurrentBranch(ctx)
		if err != nil {
			return res, stepError("push", ErrPushFailed, err)
		}
	}

	result, err := s.vcs.Push(ctx, opts.Remote, branch)
	if err != nil {
		return res, stepError("push", ErrPushFailed, err)
	}
	if result.UpToDate {
		res.UpToDate = true
		s.logger.Info("remote already up to date", "branch", branch)
		return res, nil
	}
	res.Pushed = true
	s.logger.Info("pushed backups", "remote", opts.Remote, "branch", branch)
	return res, nil
}

func (s *SyncService) syncApp(app SyncApp, repoRoot string, encrypt bool) ([]string, int, error) {
	ext := "." + strings.TrimPrefix(app.Extension, ".")
	destDir := filepath.Join(repoRoot, app.Name)

	names, err := s.fsmgr.ListDir(app.SourceDir)
	if err != nil {
		return nil, 0, fmt.Errorf("listing %s: %w", app.SourceDir, err)
	}

	var copied []string
	unchanged := 0
	for _, name := range names {
		if !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		src := filepath.Join(app.SourceDir, name)
		info, err := s.fsmgr.Stat(src)
		if err != nil {
			return copied, unchanged, fmt.Errorf("stat %s: %w", src, err)
		}
		if info.IsDir() {
			continue
		}

		var dst string
		var changed bool
		if encrypt {
			dst = filepath.Join(destDir, name+EncryptedExtension)
			changed, err = s.writeEncrypted(src, dst)
		} else {
			dst = filepath.Join(destDir, name)
			changed, err = s.writePlain(src, dst)
		}
		if err != nil {
			return copied, unchanged, err
		}
		if !changed {
			unchanged++
			continue
		}

		copied = append(copied, dst)
		s.logger.Info("backup copied", "app", app.Name, "file", dst)
	}
	return copied, unchanged, nil
}

// writePlain copies src over dst unless both have the same content.
func (s *SyncService) writePlain(src, dst string) (bool, error) {
	srcSum, err := s.fsmgr.Checksum(src)
	if err != nil {
		return false, fmt.Errorf("checksum %s: %w", src, err)
	}
	dstSum, err := s.fsmgr.Checksum(dst)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("checksum %s: %w", dst, err)
	}
	if err == nil && srcSum == dstSum {
		return false, nil
	}

	if err := s.fsmgr.CopyFile(src, dst); err != nil {
		return false, fmt.Errorf("copying %s: %w", src, err)
	}
	return true, nil
}

// writeEncrypted encrypts src into dst. age output differs on every run, so
// an existing encrypted copy is never rewritten.
func (s *SyncService) writeEncrypted(src, dst string) (bool, error) {
	if _, err := s.fsmgr.Stat(dst); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", dst, err)
	}

	in, err := s.fsmgr.Open(src)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := s.fsmgr.Create(dst)
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", dst, err)
	}

	if err := s.encryptor.Encrypt(in, out); err != nil {
		out.Close()
		s.fsmgr.RemoveAll(dst)
		return false, fmt.Errorf("encrypting %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		s.fsmgr.RemoveAll(dst)
		return false, fmt.Errorf("closing %s: %w", dst, err)
	}
	return true, nil
}

// Decrypt restores an encrypted backup next to itself, without the
// EncryptedExtension, and returns the plaintext path.
func (s *SyncService) Decrypt(path, passphrase string) (string, error) {
	if s.encryptor == nil {
		return "", fmt.Errorf("no encryptor configured")
	}
	if !strings.HasSuffix(path, EncryptedExtension) {
		return "", fmt.Errorf("not an encrypted backup: %s", path)
	}

	dc, err := s.encryptor.Unlock(passphrase)
	if err != nil {
		return "", fmt.Errorf("unlocking private key: %w", err)
	}

	in, err := s.fsmgr.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer in.Close()

	dst := strings.TrimSuffix(path, EncryptedExtension)
	out, err := s.fsmgr.Create(dst)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dst, err)
	}
	if err := dc.Decrypt(in, out); err != nil {
		out.Close()
		s.fsmgr.RemoveAll(dst)
		return "", fmt.Errorf("decrypting %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", dst, err)
	}

	s.logger.Info("backup decrypted", "path", dst)
	return dst, nil
}
