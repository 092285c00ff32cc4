package gallery

import (
	"context"
	"io"
)

// ObjectInfo describes a stored object without its body.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
}

// Object is a stored object with its body stream. The caller must close Body.
// For ranged reads Size is the length of the window being served, and
// TotalSize the full object size.
type Object struct {
	ObjectInfo
	TotalSize int64
	Body      io.ReadCloser
}

// PutResult reports the outcome of a completed write.
type PutResult struct {
	ETag string
	Size int64
}

// BlobStore is the object storage backend. Implementations must be safe for
// concurrent use and must return ErrNotFound (possibly wrapped) for absent
// keys so callers can branch on it.
//
// Keys are slash-separated and namespaced by logical prefix (originals,
// per-level cache, temp staging); implementations treat them as opaque.
type BlobStore interface {
	// Put stores the object under key, reading exactly size bytes from r.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (PutResult, error)

	// Get returns the full object. The caller must close the body.
	Get(ctx context.Context, key string) (*Object, error)

	// GetRange returns length bytes starting at offset. Implementations
	// that report SupportsRange() must not read bytes outside the window.
	GetRange(ctx context.Context, key string, offset, length int64) (*Object, error)

	// Head returns object metadata without the body.
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// Delete removes the object. Deleting an absent key returns ErrNotFound.
	Delete(ctx context.Context, key string) error

	// Copy duplicates srcKey to dstKey inside the store, preserving the
	// content type. Used to promote staged uploads to their final key.
	Copy(ctx context.Context, srcKey, dstKey string) (PutResult, error)

	// CreateMultipart opens a multipart session against key and returns the
	// store-assigned session identifier.
	CreateMultipart(ctx context.Context, key, contentType string) (string, error)

	// UploadPart stores one part of an open session. Parts may arrive out of
	// order and concurrently; re-uploading a part number overwrites it.
	UploadPart(ctx context.Context, key, sessionID string, partNumber int, r io.Reader, size int64) (etag string, err error)

	// CompleteMultipart assembles the given parts, in ascending part number
	// order, into the final object under key.
	CompleteMultipart(ctx context.Context, key, sessionID string, parts []CompletedPart) (PutResult, error)

	// AbortMultipart discards all staged parts. Aborting an unknown or
	// already-finished session is not an error.
	AbortMultipart(ctx context.Context, key, sessionID string) error

	// SupportsRange reports whether GetRange avoids reading the full object.
	// When false, callers fall back to slicing a full read in memory,
	// bounded by their own size limits.
	SupportsRange() bool
}
