package transform

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zengallery/internal/gallery"
)

func TestRemoteTransformer_Compress(t *testing.T) {
	var gotQuery map[string]string
	var gotBody []byte

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"width":   q.Get("width"),
			"height":  q.Get("height"),
			"quality": q.Get("quality"),
		}
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "image/jpeg")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("transcoded-bytes"))
	}))
	defer ts.Close()

	tr := NewRemoteTransformer(ts.URL, 5*time.Second)
	input := []byte("raw-image-bytes")

	result, err := tr.Compress(context.Background(), input, gallery.LevelMid.Spec())
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	if !bytes.Equal(result.Data, []byte("transcoded-bytes")) {
		t.Errorf("data = %q", result.Data)
	}
	if result.MimeType != "image/jpeg" {
		t.Errorf("mime type = %q", result.MimeType)
	}
	if !bytes.Equal(gotBody, input) {
		t.Errorf("service received %q, want %q", gotBody, input)
	}
	want := map[string]string{"width": "1080", "height": "1080", "quality": "42"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestRemoteTransformer_ServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unsupported format", http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	tr := NewRemoteTransformer(ts.URL, 5*time.Second)
	if _, err := tr.Compress(context.Background(), []byte("x"), gallery.LevelLow.Spec()); err == nil {
		t.Error("Compress() succeeded on service error")
	}
}

func TestRemoteTransformer_EmptyResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	tr := NewRemoteTransformer(ts.URL, 5*time.Second)
	if _, err := tr.Compress(context.Background(), []byte("x"), gallery.LevelLow.Spec()); err == nil {
		t.Error("Compress() succeeded on empty body")
	}
}

func TestNoneTransformer(t *testing.T) {
	var tr NoneTransformer
	if _, err := tr.Compress(context.Background(), []byte("x"), gallery.LevelLow.Spec()); err == nil {
		t.Error("disabled transformer returned a result")
	}
}
