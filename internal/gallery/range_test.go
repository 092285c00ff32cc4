package gallery_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"zengallery/internal/blob"
	"zengallery/internal/gallery"
	"zengallery/internal/testutil"
)

const sliceBound = 1 << 20

func serveRange(t *testing.T, store gallery.BlobStore, key, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	srv := gallery.NewRangeServer(store, gallery.NewNopLogger(), sliceBound)

	req := httptest.NewRequest(http.MethodGet, "/blob/"+key, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	srv.Serve(w, req, key)
	return w
}

func newRangeStore(t *testing.T, key string, content []byte) *blob.MemoryStore {
	t.Helper()
	store := blob.NewMemoryStore()
	if _, err := store.Put(context.Background(), key, bytes.NewReader(content), int64(len(content)), "application/octet-stream"); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	return store
}

func TestRangeServer_FullObject(t *testing.T) {
	content := []byte("the full object body")
	store := newRangeStore(t, "files/a.bin", content)

	w := serveRange(t, store, "files/a.bin", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Error("body differs from stored object")
	}
	if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q", got)
	}
	if got := w.Header().Get("Content-Length"); got != fmt.Sprint(len(content)) {
		t.Errorf("Content-Length = %q", got)
	}
}

func TestRangeServer_PartialContent(t *testing.T) {
	content := []byte("0123456789abcdefghij") // 20 bytes

	tests := []struct {
		name        string
		rangeHeader string
		wantBody    string
		wantRange   string
	}{
		{"interior", "bytes=5-9", "56789", "bytes 5-9/20"},
		{"open ended", "bytes=15-", "fghij", "bytes 15-19/20"},
		{"suffix", "bytes=-4", "ghij", "bytes 16-19/20"},
		{"clamped end", "bytes=18-99", "ij", "bytes 18-19/20"},
		{"whole object as range", "bytes=0-19", "0123456789abcdefghij", "bytes 0-19/20"},
	}

	stores := map[string]gallery.BlobStore{
		"native":   newRangeStore(t, "files/a.bin", content),
		"fallback": &testutil.NoRangeStore{BlobStore: newRangeStore(t, "files/a.bin", content)},
	}

	for storeName, store := range stores {
		for _, tt := range tests {
			t.Run(storeName+"/"+tt.name, func(t *testing.T) {
				w := serveRange(t, store, "files/a.bin", tt.rangeHeader)
				if w.Code != http.StatusPartialContent {
					t.Fatalf("status = %d, want 206", w.Code)
				}
				if got := w.Body.String(); got != tt.wantBody {
					t.Errorf("body = %q, want %q", got, tt.wantBody)
				}
				if got := w.Header().Get("Content-Range"); got != tt.wantRange {
					t.Errorf("Content-Range = %q, want %q", got, tt.wantRange)
				}
				if got := w.Header().Get("Content-Length"); got != fmt.Sprint(len(tt.wantBody)) {
					t.Errorf("Content-Length = %q", got)
				}
			})
		}
	}
}

func TestRangeServer_Unsatisfiable(t *testing.T) {
	content := []byte("0123456789")

	for _, header := range []string{"bytes=10-", "bytes=100-200", "bytes=8-3"} {
		t.Run(header, func(t *testing.T) {
			store := newRangeStore(t, "files/a.bin", content)
			w := serveRange(t, store, "files/a.bin", header)
			if w.Code != http.StatusRequestedRangeNotSatisfiable {
				t.Fatalf("status = %d, want 416", w.Code)
			}
			if got := w.Header().Get("Content-Range"); got != "bytes */10" {
				t.Errorf("Content-Range = %q, want %q", got, "bytes */10")
			}
			if w.Body.Len() != 0 {
				t.Errorf("416 response carried a body: %q", w.Body.String())
			}
		})
	}
}

func TestRangeServer_MalformedRangeServesFull(t *testing.T) {
	content := []byte("full body on malformed range")
	store := newRangeStore(t, "files/a.bin", content)

	w := serveRange(t, store, "files/a.bin", "bytes=0-10,20-30")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Error("body differs from stored object")
	}
}

func TestRangeServer_NotFound(t *testing.T) {
	store := blob.NewMemoryStore()
	w := serveRange(t, store, "files/missing.bin", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRangeServer_FallbackAboveBoundStreamsFull(t *testing.T) {
	content := bytes.Repeat([]byte("x"), 64)
	store := &testutil.NoRangeStore{BlobStore: newRangeStore(t, "files/big.bin", content)}

	// A server whose slice bound is below the object size must not buffer:
	// it streams the full object with a 200 instead of slicing.
	srv := gallery.NewRangeServer(store, gallery.NewNopLogger(), 32)
	req := httptest.NewRequest(http.MethodGet, "/blob/files/big.bin", nil)
	req.Header.Set("Range", "bytes=0-9")
	w := httptest.NewRecorder()
	srv.Serve(w, req, "files/big.bin")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !bytes.Equal(w.Body.Bytes(), content) {
		t.Error("body differs from stored object")
	}
}
