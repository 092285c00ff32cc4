package testutil

import (
	"context"

	"zengallery/internal/gallery"
)

// NoRangeStore wraps a BlobStore and reports that it cannot serve ranged
// reads natively, forcing callers onto their fallback path.
type NoRangeStore struct {
	gallery.BlobStore
}

// GetRange fails loudly: callers must check SupportsRange first.
func (s *NoRangeStore) GetRange(ctx context.Context, key string, offset, length int64) (*gallery.Object, error) {
	panic("GetRange called on a store without range support")
}

func (s *NoRangeStore) SupportsRange() bool { return false }
