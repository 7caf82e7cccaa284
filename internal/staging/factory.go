package staging

import (
	"fmt"
	"os"

	"gitdrop/internal/config"
	"gitdrop/internal/drop"
)

// NewStagingAreaFromConfig creates a StagingArea implementation based on the config type.
func NewStagingAreaFromConfig(cfg config.StagingConfig) (drop.StagingArea, error) {
	switch cfg.Type {
	case "", "temp":
		return NewFileSystemStagingArea(os.TempDir())
	case "filesystem":
		if cfg.StagingDir == "" {
			return nil, fmt.Errorf("filesystem staging area requires staging_dir to be set")
		}
		return NewFileSystemStagingArea(cfg.StagingDir)
	default:
		return nil, fmt.Errorf("unknown staging area type: %s", cfg.Type)
	}
}
