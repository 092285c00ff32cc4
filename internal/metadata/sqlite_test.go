package metadata

import (
	"context"
	"testing"
	"time"

	"zengallery/internal/gallery"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testRecord(id string, size int64, uploadedAt time.Time) gallery.FileRecord {
	return gallery.FileRecord{
		Identifier: id,
		Title:      "title-" + id,
		MimeType:   "image/jpeg",
		Size:       size,
		UploadedAt: uploadedAt,
	}
}

func TestSQLiteStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := testRecord("abc.jpg", 100, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
	rec.Description = "a description"

	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := s.Get(ctx, "abc.jpg")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Identifier != rec.Identifier || got.Title != rec.Title ||
		got.Description != rec.Description || got.MimeType != rec.MimeType || got.Size != rec.Size {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}
	if !got.UploadedAt.Equal(rec.UploadedAt) {
		t.Errorf("uploaded_at = %v, want %v", got.UploadedAt, rec.UploadedAt)
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !gallery.IsNotFound(err) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_InsertConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first := testRecord("dup.jpg", 100, time.Now().UTC())
	if err := s.Insert(ctx, first); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	second := testRecord("dup.jpg", 999, time.Now().UTC())
	second.Title = "challenger"
	if err := s.Insert(ctx, second); !gallery.IsConflict(err) {
		t.Fatalf("second Insert() error = %v, want ErrConflict", err)
	}

	// First writer wins: the stored row is untouched.
	got, err := s.Get(ctx, "dup.jpg")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != first.Title || got.Size != first.Size {
		t.Errorf("conflict mutated the record: %+v", got)
	}
}

func TestSQLiteStore_UpdateInfo(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := testRecord("u.jpg", 10, time.Now().UTC())
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	title := "renamed"
	got, err := s.UpdateInfo(ctx, "u.jpg", &title, nil)
	if err != nil {
		t.Fatalf("UpdateInfo() error = %v", err)
	}
	if got.Title != "renamed" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Description != "" {
		t.Errorf("description changed: %q", got.Description)
	}

	desc := "described"
	got, err = s.UpdateInfo(ctx, "u.jpg", nil, &desc)
	if err != nil {
		t.Fatalf("UpdateInfo() error = %v", err)
	}
	if got.Title != "renamed" || got.Description != "described" {
		t.Errorf("record = %+v", got)
	}

	if _, err := s.UpdateInfo(ctx, "missing", &title, nil); !gallery.IsNotFound(err) {
		t.Errorf("UpdateInfo(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Insert(ctx, testRecord("d.jpg", 10, time.Now().UTC())); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := s.Delete(ctx, "d.jpg"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "d.jpg"); !gallery.IsNotFound(err) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "d.jpg"); !gallery.IsNotFound(err) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_List(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []gallery.FileRecord{
		{Identifier: "a.jpg", Title: "sunset beach", MimeType: "image/jpeg", Size: 300, UploadedAt: base},
		{Identifier: "b.png", Title: "mountain", Description: "alpine sunset", MimeType: "image/png", Size: 100, UploadedAt: base.Add(1 * time.Hour)},
		{Identifier: "c.mp4", Title: "waves", MimeType: "video/mp4", Size: 200, UploadedAt: base.Add(2 * time.Hour)},
	}
	for _, rec := range seed {
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert(%s) error = %v", rec.Identifier, err)
		}
	}

	ids := func(recs []gallery.FileRecord) []string {
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.Identifier
		}
		return out
	}
	equal := func(a, b []string) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	tests := []struct {
		name string
		opts gallery.ListOptions
		want []string
	}{
		{"default newest first", gallery.ListOptions{}, []string{"c.mp4", "b.png", "a.jpg"}},
		{"oldest first", gallery.ListOptions{Sort: gallery.SortAsc}, []string{"a.jpg", "b.png", "c.mp4"}},
		{"by size descending", gallery.ListOptions{SortBy: gallery.SortBySize}, []string{"a.jpg", "c.mp4", "b.png"}},
		{"by size ascending", gallery.ListOptions{SortBy: gallery.SortBySize, Sort: gallery.SortAsc}, []string{"b.png", "c.mp4", "a.jpg"}},
		{"mime filter", gallery.ListOptions{MimeType: "image"}, []string{"b.png", "a.jpg"}},
		{"exact mime filter", gallery.ListOptions{MimeType: "image/png"}, []string{"b.png"}},
		{"search title", gallery.ListOptions{Search: "waves"}, []string{"c.mp4"}},
		{"search hits description too", gallery.ListOptions{Search: "sunset"}, []string{"b.png", "a.jpg"}},
		{"limit", gallery.ListOptions{Limit: 2}, []string{"c.mp4", "b.png"}},
		{"offset", gallery.ListOptions{Limit: 2, Offset: 1}, []string{"b.png", "a.jpg"}},
		{"no matches", gallery.ListOptions{Search: "nothing here"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.opts)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if !equal(ids(got), tt.want) {
				t.Errorf("List() = %v, want %v", ids(got), tt.want)
			}
		})
	}
}
