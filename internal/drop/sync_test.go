package drop_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"gitdrop/internal/drop"
	"gitdrop/internal/fs"
	"gitdrop/internal/testutil"
)

type syncFixture struct {
	vcs     *testutil.FakeVCS
	svc     *drop.SyncService
	repo    string
	source  string
	options drop.SyncOptions
}

func newSyncFixture(t *testing.T, encryptor drop.Encryptor) *syncFixture {
	t.Helper()
	root := t.TempDir()

	f := &syncFixture{
		vcs:    testutil.NewFakeVCS(),
		repo:   filepath.Join(root, "backups"),
		source: filepath.Join(root, "notes-app", "backups"),
	}
	f.svc = drop.NewSyncService(f.vcs, fs.NewOSFilesystemManager(nil), encryptor, &drop.NopLogger{}, testutil.FixedClock())
	f.options = drop.SyncOptions{
		RepoRoot: f.repo,
		Apps:     []drop.SyncApp{{Name: "notes", SourceDir: f.source, Extension: "bak"}},
		Branch:   "main",
	}
	return f
}

func TestSync_CopiesNewAndChangedBackups(t *testing.T) {
	f := newSyncFixture(t, nil)
	testutil.WriteFile(t, filepath.Join(f.source, "2026-03-13.bak"), "monday")
	testutil.WriteFile(t, filepath.Join(f.source, "2026-03-14.BAK"), "tuesday")
	testutil.WriteFile(t, filepath.Join(f.source, "readme.txt"), "ignored")
	testutil.WriteFile(t, filepath.Join(f.repo, "notes", "2026-03-13.bak"), "monday")

	res, err := f.svc.Sync(context.Background(), f.options)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	want := []string{filepath.Join(f.repo, "notes", "2026-03-14.BAK")}
	if !slices.Equal(res.Copied, want) {
		t.Errorf("Copied = %v, want %v", res.Copied, want)
	}
	if res.Unchanged != 1 {
		t.Errorf("Unchanged = %d, want 1", res.Unchanged)
	}
	if !slices.Equal(f.vcs.Added, want) {
		t.Errorf("Added = %v, want %v", f.vcs.Added, want)
	}
	if !slices.Equal(f.vcs.Commits, []string{"Backup for 2026-03-14"}) {
		t.Errorf("Commits = %v", f.vcs.Commits)
	}
	if !slices.Equal(f.vcs.Pushes, []string{"origin/main"}) {
		t.Errorf("Pushes = %v", f.vcs.Pushes)
	}
	if !res.Committed || !res.Pushed {
		t.Errorf("Committed = %v, Pushed = %v", res.Committed, res.Pushed)
	}
	if _, err := os.Stat(filepath.Join(f.repo, "notes", "readme.txt")); !os.IsNotExist(err) {
		t.Errorf("file with wrong extension copied: %v", err)
	}
	if f.vcs.Called("CreateAndCheckout") || f.vcs.Called("Checkout") {
		t.Error("sync must not switch branches")
	}
}

func TestSync_OverwritesChangedBackup(t *testing.T) {
	f := newSyncFixture(t, nil)
	testutil.WriteFile(t, filepath.Join(f.source, "latest.bak"), "new content")
	dst := filepath.Join(f.repo, "notes", "latest.bak")
	testutil.WriteFile(t, dst, "old content")

	res, err := f.svc.Sync(context.Background(), f.options)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(res.Copied) != 1 {
		t.Fatalf("Copied = %v, want one file", res.Copied)
	}
	if got := testutil.ReadFile(t, dst); got != "new content" {
		t.Errorf("destination = %q, want new content", got)
	}
}

func TestSync_NothingNew(t *testing.T) {
	f := newSyncFixture(t, nil)
	testutil.WriteFile(t, filepath.Join(f.source, "a.bak"), "same")
	testutil.WriteFile(t, filepath.Join(f.repo, "notes", "a.bak"), "same")

	res, err := f.svc.Sync(context.Background(), f.options)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.Committed || len(f.vcs.Calls) != 0 {
		t.Errorf("Committed = %v, calls = %v; want no version control activity", res.Committed, f.vcs.Calls)
	}
}

func TestSync_UsesCurrentBranchByDefault(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.vcs.Current = "backups"
	f.vcs.Branches = []string{"backups"}
	f.options.Branch = ""
	testutil.WriteFile(t, filepath.Join(f.source, "a.bak"), "data")

	if _, err := f.svc.Sync(context.Background(), f.options); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !slices.Equal(f.vcs.Pushes, []string{"origin/backups"}) {
		t.Errorf("Pushes = %v", f.vcs.Pushes)
	}
}

func TestSync_Encrypted(t *testing.T) {
	enc := testutil.NewTestEncryptor()
	f := newSyncFixture(t, enc)
	f.options.Encrypt = true
	testutil.WriteFile(t, filepath.Join(f.source, "a.bak"), "secret")

	res, err := f.svc.Sync(context.Background(), f.options)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	encrypted := filepath.Join(f.repo, "notes", "a.bak.age")
	if !slices.Equal(res.Copied, []string{encrypted}) {
		t.Fatalf("Copied = %v, want [%s]", res.Copied, encrypted)
	}
	if got := testutil.ReadFile(t, encrypted); got == "secret" {
		t.Error("backup stored in plaintext")
	}

	again, err := f.svc.Sync(context.Background(), f.options)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if len(again.Copied) != 0 || again.Unchanged != 1 {
		t.Errorf("second run Copied = %v, Unchanged = %d; existing encrypted copy must be kept", again.Copied, again.Unchanged)
	}

	plain, err := f.svc.Decrypt(encrypted, "any")
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if plain != filepath.Join(f.repo, "notes", "a.bak") {
		t.Errorf("Decrypt() = %q", plain)
	}
	if got := testutil.ReadFile(t, plain); got != "secret" {
		t.Errorf("decrypted = %q, want secret", got)
	}
}

func TestSync_EncryptWithoutEncryptor(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.options.Encrypt = true

	if _, err := f.svc.Sync(context.Background(), f.options); err == nil {
		t.Error("Sync() expected error without an encryptor")
	}
}

func TestSync_Failures(t *testing.T) {
	t.Run("missing source directory", func(t *testing.T) {
		f := newSyncFixture(t, nil)

		_, err := f.svc.Sync(context.Background(), f.options)
		if !errors.Is(err, drop.ErrCopyFailed) {
			t.Errorf("Sync() = %v, want ErrCopyFailed", err)
		}
	})

	t.Run("commit", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		f.vcs.Fail["Commit"] = errors.New("no identity")
		testutil.WriteFile(t, filepath.Join(f.source, "a.bak"), "data")

		_, err := f.svc.Sync(context.Background(), f.options)
		if !errors.Is(err, drop.ErrCommitFailed) {
			t.Errorf("Sync() = %v, want ErrCommitFailed", err)
		}
	})

	t.Run("push", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		f.vcs.Fail["Push"] = errors.New("rejected")
		testutil.WriteFile(t, filepath.Join(f.source, "a.bak"), "data")

		_, err := f.svc.Sync(context.Background(), f.options)
		if !errors.Is(err, drop.ErrPushFailed) {
			t.Errorf("Sync() = %v, want ErrPushFailed", err)
		}
		if f.vcs.Called("ResetHard") {
			t.Error("sync must not run recovery")
		}
	})

	t.Run("up to date", func(t *testing.T) {
		f := newSyncFixture(t, nil)
		f.vcs.PushUpToDate = true
		testutil.WriteFile(t, filepath.Join(f.source, "a.bak"), "data")

		res, err := f.svc.Sync(context.Background(), f.options)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if !res.UpToDate || res.Pushed {
			t.Errorf("UpToDate = %v, Pushed = %v", res.UpToDate, res.Pushed)
		}
	})
}
