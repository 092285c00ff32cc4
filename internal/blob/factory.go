package blob

import (
	"context"
	"fmt"

	"zengallery/internal/config"
	"zengallery/internal/gallery"
)

// NewStoreFromConfig creates a BlobStore implementation based on the blob
// config type. The backend is fixed at startup; callers only ever see the
// interface.
func NewStoreFromConfig(ctx context.Context, cfg config.BlobConfig) (gallery.BlobStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 blob store requires s3_bucket to be set")
		}
		return NewS3Store(ctx, cfg)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem blob store requires fs_root to be set")
		}
		return NewFilesystemStore(cfg.FSRoot)
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
}
