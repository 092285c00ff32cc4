package testutil

import (
	"testing"

	"zengallery/internal/gallery"
	"zengallery/internal/metadata"
)

// NewTestMetadataStore creates a new in-memory SQLite metadata store with the
// schema applied. The store is automatically closed when the test completes.
func NewTestMetadataStore(t *testing.T) gallery.MetadataStore {
	t.Helper()

	store, err := metadata.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to open metadata store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
