package staging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gitdrop/internal/config"
)

func TestFileSystemStagingArea_CreateDiscard(t *testing.T) {
	root := filepath.Join(t.TempDir(), "staging")
	area, err := NewFileSystemStagingArea(root)
	if err != nil {
		t.Fatalf("NewFileSystemStagingArea() error = %v", err)
	}

	first, err := area.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	second, err := area.Create()
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first == second {
		t.Errorf("Create() returned %q twice", first)
	}
	if filepath.Dir(first) != root || !strings.HasPrefix(filepath.Base(first), "gitdrop-staging-") {
		t.Errorf("Create() = %q, want gitdrop-staging-* under %s", first, root)
	}

	entries, err := os.ReadDir(first)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("new staging directory not empty: %v", entries)
	}

	if err := area.Discard(first); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Errorf("directory still present after Discard: %v", err)
	}
	if _, err := os.Stat(second); err != nil {
		t.Errorf("Discard removed another run's directory: %v", err)
	}
}

func TestFileSystemStagingArea_DiscardRefusesForeignPaths(t *testing.T) {
	area, err := NewFileSystemStagingArea(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	outside := t.TempDir()

	tests := []string{
		area.Root(),
		outside,
		filepath.Join(area.Root(), "..", "elsewhere"),
		filepath.Join(area.Root(), "a", "b"),
	}
	for _, dir := range tests {
		if err := area.Discard(dir); err == nil {
			t.Errorf("Discard(%q) expected error", dir)
		}
	}
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("foreign directory removed: %v", err)
	}
}

func TestNewStagingAreaFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.StagingConfig
		wantErr bool
	}{
		{"default", config.StagingConfig{}, false},
		{"temp", config.StagingConfig{Type: "temp"}, false},
		{"filesystem", config.StagingConfig{Type: "filesystem", StagingDir: t.TempDir()}, false},
		{"filesystem without dir", config.StagingConfig{Type: "filesystem"}, true},
		{"unknown", config.StagingConfig{Type: "memory"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewStagingAreaFromConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewStagingAreaFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got == nil {
				t.Error("NewStagingAreaFromConfig() returned nil")
			}
		})
	}
}
