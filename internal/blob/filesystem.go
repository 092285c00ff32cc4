package blob

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"zengallery/internal/gallery"
)

// FilesystemStore is a filesystem-based implementation of the BlobStore
// interface. Objects live under the root with their slash-separated keys
// mapped to directories:
//
//	<root>/
//	  files/<identifier>            (original objects)
//	  cache/<level>/<identifier>    (derived variants)
//	  tmp/<uuid>                    (staged uploads)
//	  .zgmeta/<key>                 (sidecar metadata, mirrors the key tree)
//	  .multipart/<sessionID>/       (open multipart sessions)
//
// Each object has a sidecar under the reserved .zgmeta tree carrying content
// type, etag, and size. Sidecars live outside the key space so no object key
// can collide with another object's metadata. Writes are atomic: temp file
// in the destination directory, then rename.
type FilesystemStore struct {
	root string
}

const (
	metaDir      = ".zgmeta"
	multipartDir = ".multipart"
)

type sidecarMeta struct {
	ContentType string `json:"content_type"`
	ETag        string `json:"etag"`
	Size        int64  `json:"size"`
}

type sessionMeta struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
}

// NewFilesystemStore creates a filesystem store rooted at the given path.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

// cleanKey validates a blob key and returns its path-separated form. Parent
// traversal, absolute paths, and dot-prefixed segments are rejected; the
// store's reserved dot-directories are never reachable through a key.
func (s *FilesystemStore) cleanKey(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: key %q", gallery.ErrInvalidInput, key)
	}
	for _, seg := range strings.Split(clean, string(filepath.Separator)) {
		if strings.HasPrefix(seg, ".") {
			return "", fmt.Errorf("%w: key %q", gallery.ErrInvalidInput, key)
		}
	}
	return clean, nil
}

// objectPath maps a blob key to its on-disk data path.
func (s *FilesystemStore) objectPath(key string) (string, error) {
	clean, err := s.cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, clean), nil
}

// metaPath maps a blob key to its sidecar path under the reserved metadata
// tree.
func (s *FilesystemStore) metaPath(key string) (string, error) {
	clean, err := s.cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, metaDir, clean), nil
}

func (s *FilesystemStore) sessionDir(sessionID string) string {
	return filepath.Join(s.root, multipartDir, sessionID)
}

// Put stores the object under key.
func (s *FilesystemStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (gallery.PutResult, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return gallery.PutResult{}, err
	}

	etag, written, err := s.writeFile(path, r, size)
	if err != nil {
		return gallery.PutResult{}, err
	}

	meta := sidecarMeta{ContentType: contentType, ETag: etag, Size: written}
	if err := s.writeSidecar(key, meta); err != nil {
		os.Remove(path)
		return gallery.PutResult{}, err
	}

	return gallery.PutResult{ETag: etag, Size: written}, nil
}

// Get returns the full object. The caller must close the body.
func (s *FilesystemStore) Get(_ context.Context, key string) (*gallery.Object, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}

	info, err := s.headPath(key, path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}

	return &gallery.Object{ObjectInfo: *info, TotalSize: info.Size, Body: f}, nil
}

// GetRange returns length bytes starting at offset, seeking within the file
// so bytes outside the window are never read.
func (s *FilesystemStore) GetRange(_ context.Context, key string, offset, length int64) (*gallery.Object, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}

	info, err := s.headPath(key, path)
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset >= info.Size {
		return nil, fmt.Errorf("%w: offset %d beyond size %d", gallery.ErrUnsatisfiableRange, offset, info.Size)
	}
	if length < 0 || offset+length > info.Size {
		length = info.Size - offset
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to seek to offset %d: %w", offset, err)
	}

	window := *info
	window.Size = length
	return &gallery.Object{
		ObjectInfo: window,
		TotalSize:  info.Size,
		Body:       &limitedFile{f: f, remaining: length},
	}, nil
}

// Head returns object metadata without the body.
func (s *FilesystemStore) Head(_ context.Context, key string) (*gallery.ObjectInfo, error) {
	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}
	return s.headPath(key, path)
}

func (s *FilesystemStore) headPath(key, path string) (*gallery.ObjectInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	meta, err := s.readSidecar(key)
	if err != nil {
		// Sidecar lost or never written: fall back to what the file knows.
		meta = sidecarMeta{Size: st.Size()}
	}

	return &gallery.ObjectInfo{
		Key:         key,
		Size:        st.Size(),
		ContentType: meta.ContentType,
		ETag:        meta.ETag,
	}, nil
}

// Delete removes the object and its sidecar.
func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	path, err := s.objectPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", gallery.ErrNotFound, key)
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	if metaPath, err := s.metaPath(key); err == nil {
		os.Remove(metaPath)
	}
	return nil
}

// Copy duplicates srcKey to dstKey, preserving the sidecar metadata.
func (s *FilesystemStore) Copy(_ context.Context, srcKey, dstKey string) (gallery.PutResult, error) {
	srcPath, err := s.objectPath(srcKey)
	if err != nil {
		return gallery.PutResult{}, err
	}
	dstPath, err := s.objectPath(dstKey)
	if err != nil {
		return gallery.PutResult{}, err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return gallery.PutResult{}, fmt.Errorf("%w: %s", gallery.ErrNotFound, srcKey)
		}
		return gallery.PutResult{}, fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	etag, written, err := s.writeFile(dstPath, src, -1)
	if err != nil {
		return gallery.PutResult{}, err
	}

	meta, merr := s.readSidecar(srcKey)
	if merr != nil {
		meta = sidecarMeta{}
	}
	meta.ETag = etag
	meta.Size = written
	if err := s.writeSidecar(dstKey, meta); err != nil {
		os.Remove(dstPath)
		return gallery.PutResult{}, err
	}

	return gallery.PutResult{ETag: etag, Size: written}, nil
}

// CreateMultipart opens a multipart session against key.
func (s *FilesystemStore) CreateMultipart(_ context.Context, key, contentType string) (string, error) {
	if _, err := s.objectPath(key); err != nil {
		return "", err
	}

	sessionID := uuid.New().String()
	dir := s.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.Marshal(sessionMeta{Key: key, ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to encode session metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "session.json"), data, 0644); err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("failed to write session metadata: %w", err)
	}

	return sessionID, nil
}

// loadSession reads and validates a session's metadata.
func (s *FilesystemStore) loadSession(key, sessionID string) (*sessionMeta, error) {
	data, err := os.ReadFile(filepath.Join(s.sessionDir(sessionID), "session.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: multipart session %s", gallery.ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to read session metadata: %w", err)
	}

	var meta sessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode session metadata: %w", err)
	}
	if meta.Key != key {
		return nil, fmt.Errorf("%w: session %s is for a different key", gallery.ErrInvalidInput, sessionID)
	}
	return &meta, nil
}

// UploadPart stores one part of an open session. Re-uploading a part number
// overwrites the prior attempt.
func (s *FilesystemStore) UploadPart(_ context.Context, key, sessionID string, partNumber int, r io.Reader, size int64) (string, error) {
	if _, err := s.loadSession(key, sessionID); err != nil {
		return "", err
	}

	partPath := filepath.Join(s.sessionDir(sessionID), strconv.Itoa(partNumber))
	etag, _, err := s.writeFile(partPath, r, size)
	if err != nil {
		return "", fmt.Errorf("failed to store part %d: %w", partNumber, err)
	}
	return etag, nil
}

// CompleteMultipart concatenates the given parts, in the order supplied,
// into the final object under the session's key, then removes the session.
func (s *FilesystemStore) CompleteMultipart(_ context.Context, key, sessionID string, parts []gallery.CompletedPart) (gallery.PutResult, error) {
	meta, err := s.loadSession(key, sessionID)
	if err != nil {
		return gallery.PutResult{}, err
	}

	dstPath, err := s.objectPath(key)
	if err != nil {
		return gallery.PutResult{}, err
	}

	readers := make([]io.Reader, 0, len(parts))
	files := make([]*os.File, 0, len(parts))
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, p := range parts {
		f, err := os.Open(filepath.Join(s.sessionDir(sessionID), strconv.Itoa(p.PartNumber)))
		if err != nil {
			if os.IsNotExist(err) {
				return gallery.PutResult{}, fmt.Errorf("part %d was never uploaded", p.PartNumber)
			}
			return gallery.PutResult{}, fmt.Errorf("failed to open part %d: %w", p.PartNumber, err)
		}
		files = append(files, f)
		readers = append(readers, f)
	}

	etag, written, err := s.writeFile(dstPath, io.MultiReader(readers...), -1)
	if err != nil {
		return gallery.PutResult{}, fmt.Errorf("failed to assemble object: %w", err)
	}

	side := sidecarMeta{ContentType: meta.ContentType, ETag: etag, Size: written}
	if err := s.writeSidecar(key, side); err != nil {
		os.Remove(dstPath)
		return gallery.PutResult{}, err
	}

	os.RemoveAll(s.sessionDir(sessionID))
	return gallery.PutResult{ETag: etag, Size: written}, nil
}

// AbortMultipart removes the session directory and every staged part.
// Aborting an unknown or already-finished session succeeds.
func (s *FilesystemStore) AbortMultipart(_ context.Context, key, sessionID string) error {
	if err := os.RemoveAll(s.sessionDir(sessionID)); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}

// SupportsRange reports native range support via file seeks.
func (s *FilesystemStore) SupportsRange() bool { return true }

// writeFile writes data from r to the destination path using an atomic
// write (temp file + rename), hashing the bytes as they pass through.
// expectedSize of -1 skips the size check.
func (s *FilesystemStore) writeFile(destPath string, r io.Reader, expectedSize int64) (etag string, written int64, err error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	hasher := md5.New()
	written, err = io.Copy(io.MultiWriter(tmpFile, hasher), r)
	if err != nil {
		tmpFile.Close()
		return "", 0, fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close temp file: %w", err)
	}

	if expectedSize >= 0 && written != expectedSize {
		return "", 0, fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return hex.EncodeToString(hasher.Sum(nil)), written, nil
}

func (s *FilesystemStore) writeSidecar(key string, meta sidecarMeta) error {
	path, err := s.metaPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create sidecar directory: %w", err)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write sidecar: %w", err)
	}
	return nil
}

func (s *FilesystemStore) readSidecar(key string) (sidecarMeta, error) {
	var meta sidecarMeta
	path, err := s.metaPath(key)
	if err != nil {
		return meta, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("failed to decode sidecar: %w", err)
	}
	return meta, nil
}

// limitedFile reads at most remaining bytes from the underlying file.
type limitedFile struct {
	f         *os.File
	remaining int64
}

func (l *limitedFile) Read(p []byte) (int, error) {
	if l.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > l.remaining {
		p = p[:l.remaining]
	}
	n, err := l.f.Read(p)
	l.remaining -= int64(n)
	return n, err
}

func (l *limitedFile) Close() error { return l.f.Close() }

// Compile-time check that FilesystemStore implements the BlobStore interface
var _ gallery.BlobStore = (*FilesystemStore)(nil)
