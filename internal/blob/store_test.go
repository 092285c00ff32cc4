package blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"zengallery/internal/gallery"
)

// testStoreContract exercises the BlobStore behavior every implementation
// must share.
func testStoreContract(t *testing.T, newStore func(t *testing.T) gallery.BlobStore) {
	ctx := context.Background()

	readAll := func(t *testing.T, obj *gallery.Object) []byte {
		t.Helper()
		defer obj.Body.Close()
		data, err := io.ReadAll(obj.Body)
		if err != nil {
			t.Fatalf("reading body: %v", err)
		}
		return data
	}

	t.Run("put and get", func(t *testing.T) {
		s := newStore(t)
		content := []byte("hello blob store")

		put, err := s.Put(ctx, "files/a.txt", bytes.NewReader(content), int64(len(content)), "text/plain")
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if put.Size != int64(len(content)) {
			t.Errorf("put size = %d, want %d", put.Size, len(content))
		}
		if put.ETag == "" {
			t.Error("put returned empty etag")
		}

		obj, err := s.Get(ctx, "files/a.txt")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if obj.ContentType != "text/plain" {
			t.Errorf("content type = %q", obj.ContentType)
		}
		if got := readAll(t, obj); !bytes.Equal(got, content) {
			t.Errorf("body = %q, want %q", got, content)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Put(ctx, "files/a", strings.NewReader("old"), 3, "text/plain"); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if _, err := s.Put(ctx, "files/a", strings.NewReader("newer"), 5, "text/plain"); err != nil {
			t.Fatalf("second Put() error = %v", err)
		}
		obj, err := s.Get(ctx, "files/a")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got := readAll(t, obj); string(got) != "newer" {
			t.Errorf("body = %q, want %q", got, "newer")
		}
	})

	t.Run("size mismatch rejected", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Put(ctx, "files/a", strings.NewReader("short"), 100, "text/plain"); err == nil {
			t.Error("Put with wrong size succeeded")
		}
	})

	t.Run("head", func(t *testing.T) {
		s := newStore(t)
		content := []byte("head me")
		put, err := s.Put(ctx, "files/h", bytes.NewReader(content), int64(len(content)), "application/json")
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		info, err := s.Head(ctx, "files/h")
		if err != nil {
			t.Fatalf("Head() error = %v", err)
		}
		if info.Size != int64(len(content)) {
			t.Errorf("size = %d, want %d", info.Size, len(content))
		}
		if info.ContentType != "application/json" {
			t.Errorf("content type = %q", info.ContentType)
		}
		if info.ETag != put.ETag {
			t.Errorf("etag = %q, want %q", info.ETag, put.ETag)
		}
	})

	t.Run("not found", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Get(ctx, "files/missing"); !gallery.IsNotFound(err) {
			t.Errorf("Get error = %v, want ErrNotFound", err)
		}
		if _, err := s.Head(ctx, "files/missing"); !gallery.IsNotFound(err) {
			t.Errorf("Head error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, "files/missing"); !gallery.IsNotFound(err) {
			t.Errorf("Delete error = %v, want ErrNotFound", err)
		}
		if _, err := s.Copy(ctx, "files/missing", "files/dst"); !gallery.IsNotFound(err) {
			t.Errorf("Copy error = %v, want ErrNotFound", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.Put(ctx, "files/d", strings.NewReader("x"), 1, ""); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := s.Delete(ctx, "files/d"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Get(ctx, "files/d"); !gallery.IsNotFound(err) {
			t.Errorf("Get after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("copy", func(t *testing.T) {
		s := newStore(t)
		content := []byte("promote me")
		if _, err := s.Put(ctx, "tmp/staged", bytes.NewReader(content), int64(len(content)), "image/png"); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		put, err := s.Copy(ctx, "tmp/staged", "files/final")
		if err != nil {
			t.Fatalf("Copy() error = %v", err)
		}
		if put.Size != int64(len(content)) {
			t.Errorf("copy size = %d, want %d", put.Size, len(content))
		}

		obj, err := s.Get(ctx, "files/final")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if obj.ContentType != "image/png" {
			t.Errorf("copy lost content type: %q", obj.ContentType)
		}
		if got := readAll(t, obj); !bytes.Equal(got, content) {
			t.Errorf("copied body = %q, want %q", got, content)
		}

		// Source still exists; promotion deletes it separately.
		if _, err := s.Head(ctx, "tmp/staged"); err != nil {
			t.Errorf("source gone after copy: %v", err)
		}
	})

	t.Run("get range", func(t *testing.T) {
		s := newStore(t)
		content := []byte("0123456789")
		if _, err := s.Put(ctx, "files/r", bytes.NewReader(content), 10, ""); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		obj, err := s.GetRange(ctx, "files/r", 2, 5)
		if err != nil {
			t.Fatalf("GetRange() error = %v", err)
		}
		if obj.TotalSize != 10 {
			t.Errorf("total size = %d, want 10", obj.TotalSize)
		}
		if got := readAll(t, obj); string(got) != "23456" {
			t.Errorf("window = %q, want %q", got, "23456")
		}

		// Length past the end is clamped.
		obj, err = s.GetRange(ctx, "files/r", 8, 100)
		if err != nil {
			t.Fatalf("GetRange() error = %v", err)
		}
		if got := readAll(t, obj); string(got) != "89" {
			t.Errorf("clamped window = %q, want %q", got, "89")
		}
	})

	t.Run("multipart", func(t *testing.T) {
		s := newStore(t)

		sessionID, err := s.CreateMultipart(ctx, "files/mp", "video/mp4")
		if err != nil {
			t.Fatalf("CreateMultipart() error = %v", err)
		}

		// Out-of-order upload; commit order decides assembly.
		etag2, err := s.UploadPart(ctx, "files/mp", sessionID, 2, strings.NewReader("world"), 5)
		if err != nil {
			t.Fatalf("UploadPart(2) error = %v", err)
		}
		etag1, err := s.UploadPart(ctx, "files/mp", sessionID, 1, strings.NewReader("hello "), 6)
		if err != nil {
			t.Fatalf("UploadPart(1) error = %v", err)
		}

		put, err := s.CompleteMultipart(ctx, "files/mp", sessionID, []gallery.CompletedPart{
			{PartNumber: 1, ETag: etag1},
			{PartNumber: 2, ETag: etag2},
		})
		if err != nil {
			t.Fatalf("CompleteMultipart() error = %v", err)
		}
		if put.Size != 11 {
			t.Errorf("assembled size = %d, want 11", put.Size)
		}

		obj, err := s.Get(ctx, "files/mp")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got := readAll(t, obj); string(got) != "hello world" {
			t.Errorf("assembled = %q, want %q", got, "hello world")
		}

		// The finished session is gone.
		if _, err := s.UploadPart(ctx, "files/mp", sessionID, 3, strings.NewReader("x"), 1); err == nil {
			t.Error("UploadPart succeeded on a completed session")
		}
	})

	t.Run("multipart part reupload overwrites", func(t *testing.T) {
		s := newStore(t)
		sessionID, err := s.CreateMultipart(ctx, "files/mp", "")
		if err != nil {
			t.Fatalf("CreateMultipart() error = %v", err)
		}

		if _, err := s.UploadPart(ctx, "files/mp", sessionID, 1, strings.NewReader("bad!!"), 5); err != nil {
			t.Fatalf("UploadPart() error = %v", err)
		}
		etag, err := s.UploadPart(ctx, "files/mp", sessionID, 1, strings.NewReader("good!"), 5)
		if err != nil {
			t.Fatalf("retry UploadPart() error = %v", err)
		}

		if _, err := s.CompleteMultipart(ctx, "files/mp", sessionID, []gallery.CompletedPart{{PartNumber: 1, ETag: etag}}); err != nil {
			t.Fatalf("CompleteMultipart() error = %v", err)
		}

		obj, err := s.Get(ctx, "files/mp")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got := readAll(t, obj); string(got) != "good!" {
			t.Errorf("assembled = %q, want %q", got, "good!")
		}
	})

	t.Run("multipart abort", func(t *testing.T) {
		s := newStore(t)
		sessionID, err := s.CreateMultipart(ctx, "files/ab", "")
		if err != nil {
			t.Fatalf("CreateMultipart() error = %v", err)
		}
		if _, err := s.UploadPart(ctx, "files/ab", sessionID, 1, strings.NewReader("x"), 1); err != nil {
			t.Fatalf("UploadPart() error = %v", err)
		}

		if err := s.AbortMultipart(ctx, "files/ab", sessionID); err != nil {
			t.Fatalf("AbortMultipart() error = %v", err)
		}
		if err := s.AbortMultipart(ctx, "files/ab", sessionID); err != nil {
			t.Fatalf("second AbortMultipart() error = %v", err)
		}

		if _, err := s.Get(ctx, "files/ab"); !gallery.IsNotFound(err) {
			t.Errorf("object exists after abort: err = %v", err)
		}
		if _, err := s.CompleteMultipart(ctx, "files/ab", sessionID, []gallery.CompletedPart{{PartNumber: 1}}); err == nil {
			t.Error("CompleteMultipart succeeded after abort")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		s := newStore(t)
		if _, err := s.UploadPart(ctx, "files/x", "no-such-session", 1, strings.NewReader("x"), 1); err == nil {
			t.Error("UploadPart succeeded with unknown session")
		}
		if _, err := s.CompleteMultipart(ctx, "files/x", "no-such-session", nil); err == nil {
			t.Error("CompleteMultipart succeeded with unknown session")
		}
	})
}
