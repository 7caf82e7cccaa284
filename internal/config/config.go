package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for gitdrop.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Repo       RepoConfig       `toml:"repo"`
	Publish    PublishConfig    `toml:"publish"`
	Sync       SyncConfig       `toml:"sync"`
	S3         S3Config         `toml:"s3"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Staging    StagingConfig    `toml:"staging"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// RepoConfig points at the local checkout gitdrop works in.
type RepoConfig struct {
	Path string `toml:"path"`
}

// PublishConfig holds defaults for the publish command. Flags override them.
type PublishConfig struct {
	Source       string   `toml:"source,omitempty"` // archive file, directory or s3:// URI
	BaseBranch   string   `toml:"base_branch"`
	Target       string   `toml:"target"` // relative to the repository root
	NestDirs     []string `toml:"nest_dirs"`
	Initials     string   `toml:"initials,omitempty"` // derived from the OS username when empty
	Remote       string   `toml:"remote"`
	BackupRef    string   `toml:"backup_ref"`
	DeleteSource bool     `toml:"delete_source"`
}

// SyncConfig describes the backup sync run.
type SyncConfig struct {
	Remote  string          `toml:"remote"`
	Branch  string          `toml:"branch"`
	Encrypt bool            `toml:"encrypt"`
	Apps    []SyncAppConfig `toml:"apps"`
}

// SyncAppConfig is one application whose backups are mirrored.
type SyncAppConfig struct {
	Name      string `toml:"name"`
	SourceDir string `toml:"source_dir"`
	Extension string `toml:"extension"`
}

// S3Config configures the s3:// archive source. Empty credentials fall back
// to the default AWS credential chain.
type S3Config struct {
	Region          string `toml:"region,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
	UsePathStyle    bool   `toml:"use_path_style,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// DatabaseConfig represents configuration for the run ledger.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// StagingConfig represents configuration for the staging area.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StagingConfig struct {
	Type       string `toml:"type"`                  // "temp" or "filesystem"
	StagingDir string `toml:"staging_dir,omitempty"` // only used for type=filesystem
}

// NewConfig creates a new Config rooted at baseDir with default values.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Publish: PublishConfig{
			BaseBranch: "main",
			Target:     "content",
			NestDirs:   []string{"email", "sms"},
			Remote:     "origin",
			BackupRef:  "temp_backup_branch",
		},
		Sync: SyncConfig{
			Remote: "origin",
			Branch: "main",
		},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "gitdrop.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "gitdrop.key"),
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Staging:  StagingConfig{Type: "temp"},
	}
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if c.Repo.Path == "" {
		return fmt.Errorf("repo.path is not set")
	}
	if !filepath.IsAbs(c.Repo.Path) {
		return fmt.Errorf("repo.path must be absolute: %s", c.Repo.Path)
	}
	if filepath.IsAbs(c.Publish.Target) {
		return fmt.Errorf("publish.target must be relative to the repository: %s", c.Publish.Target)
	}
	for i, app := range c.Sync.Apps {
		if app.Name == "" || app.SourceDir == "" || app.Extension == "" {
			return fmt.Errorf("sync.apps[%d]: name, source_dir and extension are required", i)
		}
	}
	return nil
}

// TargetRoot returns the absolute directory published content lands in.
func (c *Config) TargetRoot() string {
	return filepath.Join(c.Repo.Path, c.Publish.Target)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may carry S3 secrets.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
