package blob

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"zengallery/internal/gallery"
)

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, func(t *testing.T) gallery.BlobStore {
		return NewMemoryStore()
	})
}

func TestMemoryStore_ETagIsContentMD5(t *testing.T) {
	s := NewMemoryStore()
	content := "etag material"

	put, err := s.Put(context.Background(), "files/e", strings.NewReader(content), int64(len(content)), "")
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	sum := md5.Sum([]byte(content))
	if want := hex.EncodeToString(sum[:]); put.ETag != want {
		t.Errorf("etag = %q, want md5 %q", put.ETag, want)
	}
}

func TestMemoryStore_SupportsRange(t *testing.T) {
	if !NewMemoryStore().SupportsRange() {
		t.Error("SupportsRange() = false")
	}
}
