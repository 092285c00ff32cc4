package blob

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"zengallery/internal/gallery"
)

// MemoryStore is an in-memory implementation of the BlobStore interface.
// It keeps all objects and multipart sessions in maps, making it useful for
// tests and local development. This implementation is safe for concurrent
// use.
type MemoryStore struct {
	mu       sync.RWMutex
	objects  map[string]*memObject
	sessions map[string]*memSession
}

type memObject struct {
	data        []byte
	contentType string
	etag        string
}

type memSession struct {
	key         string
	contentType string
	parts       map[int][]byte
	partETags   map[int]string
}

// NewMemoryStore creates an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects:  make(map[string]*memObject),
		sessions: make(map[string]*memSession),
	}
}

func contentETag(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Put stores the object under key.
func (m *MemoryStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (gallery.PutResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return gallery.PutResult{}, fmt.Errorf("failed to read content: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return gallery.PutResult{}, fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	obj := &memObject{data: data, contentType: contentType, etag: contentETag(data)}

	m.mu.Lock()
	m.objects[key] = obj
	m.mu.Unlock()

	return gallery.PutResult{ETag: obj.etag, Size: int64(len(data))}, nil
}

// Get returns the full object.
func (m *MemoryStore) Get(_ context.Context, key string) (*gallery.Object, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
	}

	return &gallery.Object{
		ObjectInfo: gallery.ObjectInfo{
			Key:         key,
			Size:        int64(len(obj.data)),
			ContentType: obj.contentType,
			ETag:        obj.etag,
		},
		TotalSize: int64(len(obj.data)),
		Body:      io.NopCloser(bytes.NewReader(obj.data)),
	}, nil
}

// GetRange returns length bytes starting at offset.
func (m *MemoryStore) GetRange(_ context.Context, key string, offset, length int64) (*gallery.Object, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
	}

	total := int64(len(obj.data))
	if offset < 0 || offset >= total {
		return nil, fmt.Errorf("%w: offset %d beyond size %d", gallery.ErrUnsatisfiableRange, offset, total)
	}
	end := offset + length
	if length < 0 || end > total {
		end = total
	}

	window := obj.data[offset:end]
	return &gallery.Object{
		ObjectInfo: gallery.ObjectInfo{
			Key:         key,
			Size:        int64(len(window)),
			ContentType: obj.contentType,
			ETag:        obj.etag,
		},
		TotalSize: total,
		Body:      io.NopCloser(bytes.NewReader(window)),
	}, nil
}

// Head returns object metadata without the body.
func (m *MemoryStore) Head(_ context.Context, key string) (*gallery.ObjectInfo, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
	}

	return &gallery.ObjectInfo{
		Key:         key,
		Size:        int64(len(obj.data)),
		ContentType: obj.contentType,
		ETag:        obj.etag,
	}, nil
}

// Delete removes the object.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
	}
	delete(m.objects, key)
	return nil
}

// Copy duplicates srcKey to dstKey.
func (m *MemoryStore) Copy(_ context.Context, srcKey, dstKey string) (gallery.PutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.objects[srcKey]
	if !ok {
		return gallery.PutResult{}, fmt.Errorf("%w: %s", gallery.ErrNotFound, srcKey)
	}

	dst := &memObject{
		data:        append([]byte(nil), src.data...),
		contentType: src.contentType,
		etag:        src.etag,
	}
	m.objects[dstKey] = dst
	return gallery.PutResult{ETag: dst.etag, Size: int64(len(dst.data))}, nil
}

// CreateMultipart opens a multipart session against key.
func (m *MemoryStore) CreateMultipart(_ context.Context, key, contentType string) (string, error) {
	sessionID := uuid.New().String()

	m.mu.Lock()
	m.sessions[sessionID] = &memSession{
		key:         key,
		contentType: contentType,
		parts:       make(map[int][]byte),
		partETags:   make(map[int]string),
	}
	m.mu.Unlock()

	return sessionID, nil
}

// UploadPart stores one part of an open session. Re-uploading a part number
// overwrites the prior attempt.
func (m *MemoryStore) UploadPart(_ context.Context, key, sessionID string, partNumber int, r io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read part: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok || sess.key != key {
		return "", fmt.Errorf("%w: multipart session %s", gallery.ErrNotFound, sessionID)
	}

	etag := contentETag(data)
	sess.parts[partNumber] = data
	sess.partETags[partNumber] = etag
	return etag, nil
}

// CompleteMultipart assembles the given parts in the order supplied and
// stores the result under the session's key.
func (m *MemoryStore) CompleteMultipart(_ context.Context, key, sessionID string, parts []gallery.CompletedPart) (gallery.PutResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok || sess.key != key {
		return gallery.PutResult{}, fmt.Errorf("%w: multipart session %s", gallery.ErrNotFound, sessionID)
	}

	var assembled []byte
	for _, p := range parts {
		data, ok := sess.parts[p.PartNumber]
		if !ok {
			return gallery.PutResult{}, fmt.Errorf("part %d was never uploaded", p.PartNumber)
		}
		if p.ETag != "" && p.ETag != sess.partETags[p.PartNumber] {
			return gallery.PutResult{}, fmt.Errorf("etag mismatch for part %d", p.PartNumber)
		}
		assembled = append(assembled, data...)
	}

	obj := &memObject{data: assembled, contentType: sess.contentType, etag: contentETag(assembled)}
	m.objects[key] = obj
	delete(m.sessions, sessionID)

	return gallery.PutResult{ETag: obj.etag, Size: int64(len(assembled))}, nil
}

// AbortMultipart discards all staged parts. Aborting an unknown session is
// not an error.
func (m *MemoryStore) AbortMultipart(_ context.Context, key, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, sessionID)
	return nil
}

// SupportsRange reports native range support; the in-memory store slices
// without reading outside the window.
func (m *MemoryStore) SupportsRange() bool { return true }

// Compile-time check that MemoryStore implements the BlobStore interface
var _ gallery.BlobStore = (*MemoryStore)(nil)
