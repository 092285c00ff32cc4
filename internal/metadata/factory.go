package metadata

import (
	"fmt"
	"os"
	"path/filepath"

	"zengallery/internal/config"
	"zengallery/internal/gallery"
)

// DBFileName is the SQLite database file created under the configured data
// directory.
const DBFileName = "gallery.db"

// NewStoreFromConfig creates the appropriate MetadataStore based on the
// provided configuration.
func NewStoreFromConfig(cfg config.MetadataConfig) (gallery.MetadataStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("sqlite metadata store requires data_dir")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating metadata data dir: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, DBFileName))
	case "memory":
		return NewSQLiteStore(":memory:")
	default:
		return nil, fmt.Errorf("unknown metadata store type: %s", cfg.Type)
	}
}
