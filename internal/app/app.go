package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strings"

	"gitdrop/internal/archive"
	"gitdrop/internal/config"
	"gitdrop/internal/database"
	"gitdrop/internal/drop"
	"gitdrop/internal/encryption"
	"gitdrop/internal/fs"
	"gitdrop/internal/git"
	"gitdrop/internal/model"
	"gitdrop/internal/source"
	"gitdrop/internal/staging"
)

// Options tunes how the App is built.
type Options struct {
	Verbose bool
}

// PublishFlags are command-line overrides for the [publish] config section.
type PublishFlags struct {
	BaseBranch   string
	Target       string
	Initials     string
	DeleteSource bool
}

// App is the application layer between the CLI and the workflows.
// It constructs all dependencies from config, exposes high-level operations
// and records mutating runs in the ledger on Close.
type App struct {
	cfg       *config.Config
	ledger    drop.Ledger
	fsmgr     drop.FilesystemManager
	encryptor drop.Encryptor
	logger    drop.Logger
	clock     drop.Clock
	op        *Operation
	logFile   *os.File
}

// New creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Publish", "Sync").
// The caller must call Close when done.
func New(cfg *config.Config, operation string, opts Options) (*App, error) {
	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)
	clock := drop.RealClock{}

	ledger, err := database.NewDatabaseFromConfig(cfg.Database, clock)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := ledger.CheckMigrations(); err != nil {
		ledger.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		ledger.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger, logFile, err := newLogger(cfg.LogDir, drop.UUIDGenerator{}.New(), level)
	if err != nil {
		ledger.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	return &App{
		cfg:       cfg,
		ledger:    ledger,
		fsmgr:     fsmgr,
		encryptor: enc,
		logger:    &slogAdapter{l: logger},
		clock:     clock,
		op:        NewOperation(operation, ""),
		logFile:   logFile,
	}, nil
}

// persistOperation saves the operation to the ledger, giving it an ID.
// Only mutating commands call it.
func (a *App) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	run, err := a.ledger.StartRun(a.op.Name, parameters)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	a.op.ID = run.ID
	return nil
}

// openRepository opens the configured checkout after checking that git is
// installed and the path really is a repository.
func openRepository(ctx context.Context, cfg *config.Config, logger drop.Logger) (*git.Repository, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := git.CheckInstalled(); err != nil {
		return nil, err
	}

	repo := git.NewRepository(cfg.Repo.Path, nil, logger)
	ok, err := repo.IsRepository(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("not a git repository: %s", cfg.Repo.Path)
	}
	return repo, nil
}

// Publish runs the publish workflow for src, or the configured source when
// src is empty.
func (a *App) Publish(ctx context.Context, src string, flags PublishFlags) (*drop.PublishResult, error) {
	if src == "" {
		src = a.cfg.Publish.Source
	}
	if src == "" {
		return nil, fmt.Errorf("no source given and publish.source is not set")
	}

	if err := a.persistOperation(src); err != nil {
		return nil, err
	}

	res, err := a.publish(ctx, src, flags)
	a.op.Fail(err)
	a.op.RecordPublish(res, a.cfg.Publish.Remote)
	return res, err
}

func (a *App) publish(ctx context.Context, src string, flags PublishFlags) (*drop.PublishResult, error) {
	cfg := *a.cfg
	if flags.BaseBranch != "" {
		cfg.Publish.BaseBranch = flags.BaseBranch
	}
	if flags.Target != "" {
		cfg.Publish.Target = flags.Target
	}

	repo, err := openRepository(ctx, &cfg, a.logger)
	if err != nil {
		return nil, err
	}

	sa, err := staging.NewStagingAreaFromConfig(cfg.Staging)
	if err != nil {
		return nil, fmt.Errorf("creating staging area: %w", err)
	}

	archiver := archive.NewZipArchiver()
	var sources drop.ArchiveSource = source.NewLocalSource()
	if strings.HasPrefix(src, source.S3Scheme) {
		sources, err = source.NewSourceFromConfig(ctx, cfg.S3, archiver.Extension(), a.logger)
		if err != nil {
			return nil, fmt.Errorf("creating s3 source: %w", err)
		}
	}

	initials := flags.Initials
	if initials == "" {
		initials = cfg.Publish.Initials
	}
	if initials == "" {
		initials = userInitials()
	}

	svc := drop.NewPublishService(repo, archiver, sa, sources, a.fsmgr, a.logger, a.clock, drop.UUIDGenerator{})
	return svc.Publish(ctx, src, drop.PublishOptions{
		BaseBranch:   cfg.Publish.BaseBranch,
		Remote:       cfg.Publish.Remote,
		TargetRoot:   cfg.TargetRoot(),
		NestDirs:     cfg.Publish.NestDirs,
		Initials:     initials,
		BackupRef:    cfg.Publish.BackupRef,
		DeleteSource: flags.DeleteSource || cfg.Publish.DeleteSource,
	})
}

// userInitials derives initials from the account running gitdrop.
func userInitials() string {
	u, err := user.Current()
	if err != nil {
		return drop.DefaultInitials
	}
	return drop.Initials(u.Username)
}

// Sync mirrors the configured application backups into the repository.
func (a *App) Sync(ctx context.Context) (*drop.SyncResult, error) {
	if err := a.persistOperation(a.cfg.Sync.Branch); err != nil {
		return nil, err
	}

	res, err := a.sync(ctx)
	a.op.Fail(err)
	if res != nil && (res.Pushed || res.UpToDate) {
		a.op.Branch = a.cfg.Sync.Branch
		a.op.Remote = a.cfg.Sync.Remote
	}
	return res, err
}

func (a *App) sync(ctx context.Context) (*drop.SyncResult, error) {
	if len(a.cfg.Sync.Apps) == 0 {
		return nil, fmt.Errorf("no sync apps configured")
	}

	repo, err := openRepository(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}

	var enc drop.Encryptor
	if a.cfg.Sync.Encrypt {
		if !a.encryptor.IsConfigured() {
			return nil, fmt.Errorf("encryption enabled but keys are missing: run 'gitdrop keys init'")
		}
		enc = a.encryptor
	}

	apps := make([]drop.SyncApp, len(a.cfg.Sync.Apps))
	for i, app := range a.cfg.Sync.Apps {
		apps[i] = drop.SyncApp{Name: app.Name, SourceDir: app.SourceDir, Extension: app.Extension}
	}

	svc := drop.NewSyncService(repo, a.fsmgr, enc, a.logger, a.clock)
	return svc.Sync(ctx, drop.SyncOptions{
		RepoRoot: a.cfg.Repo.Path,
		Apps:     apps,
		Remote:   a.cfg.Sync.Remote,
		Branch:   a.cfg.Sync.Branch,
		Encrypt:  a.cfg.Sync.Encrypt,
	})
}

// History returns the most recent recorded runs, newest first.
func (a *App) History(limit int) ([]*model.Run, error) {
	return a.ledger.ListRuns(limit)
}

// KeysInit generates the encryption key pair and returns the public key when
// the encryptor exposes one.
func (a *App) KeysInit(passphrase string) (string, error) {
	if err := a.encryptor.Setup(passphrase); err != nil {
		return "", fmt.Errorf("generating keys: %w", err)
	}
	a.logger.Info("encryption keys created", "public_key", a.cfg.Encryption.PublicKeyPath)

	if pk, ok := a.encryptor.(interface{ PublicKey() (string, error) }); ok {
		return pk.PublicKey()
	}
	return "", nil
}

// EncryptionConfigured reports whether both key files exist.
func (a *App) EncryptionConfigured() bool {
	return a.encryptor.IsConfigured()
}

// Decrypt restores an encrypted backup next to itself.
func (a *App) Decrypt(path, passphrase string) (string, error) {
	if !a.encryptor.IsConfigured() {
		return "", fmt.Errorf("encryption keys are missing: run 'gitdrop keys init'")
	}
	svc := drop.NewSyncService(nil, a.fsmgr, a.encryptor, a.logger, a.clock)
	return svc.Decrypt(path, passphrase)
}

// Close finishes the recorded run, if any, and releases the ledger and log
// file. It returns the first error encountered.
func (a *App) Close() error {
	var firstErr error

	if a.op.Persisted() {
		if err := a.ledger.FinishRun(a.op.Run()); err != nil {
			firstErr = fmt.Errorf("finishing run: %w", err)
		}
	}

	if err := a.ledger.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
