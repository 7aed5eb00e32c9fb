package store

import (
	"fmt"
	"path/filepath"

	"vsched/internal/config"
	"vsched/internal/sched"
)

// NewStoreFromConfig creates a ProjectStore implementation based on the store
// config type. dataDir anchors the default locations when the config leaves
// them unset.
func NewStoreFromConfig(cfg config.StoreConfig, dataDir string) (sched.ProjectStore, error) {
	switch cfg.Type {
	case "filesystem", "":
		dir := cfg.Dir
		if dir == "" {
			dir = filepath.Join(dataDir, "projects")
		}
		return NewFileStore(dir)
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dataDir, "vsched.db")
		}
		return NewSQLiteStore(path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}
