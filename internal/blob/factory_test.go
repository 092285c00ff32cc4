package blob

import (
	"context"
	"testing"

	"zengallery/internal/config"
)

func TestNewStoreFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, err := NewStoreFromConfig(ctx, config.BlobConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := s.(*MemoryStore); !ok {
			t.Errorf("store type = %T, want *MemoryStore", s)
		}
	})

	t.Run("filesystem", func(t *testing.T) {
		s, err := NewStoreFromConfig(ctx, config.BlobConfig{Type: "filesystem", FSRoot: t.TempDir()})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := s.(*FilesystemStore); !ok {
			t.Errorf("store type = %T, want *FilesystemStore", s)
		}
	})

	t.Run("filesystem requires root", func(t *testing.T) {
		if _, err := NewStoreFromConfig(ctx, config.BlobConfig{Type: "filesystem"}); err == nil {
			t.Error("expected error for missing fs_root")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := NewStoreFromConfig(ctx, config.BlobConfig{Type: "tape"}); err == nil {
			t.Error("expected error for unknown store type")
		}
	})
}
