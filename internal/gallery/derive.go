package gallery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
)

// Location points at the blob to serve: a namespace ("files" or
// "cache/<level>") plus the identifier within it.
type Location struct {
	Namespace  string
	Identifier string
}

// Key returns the full blob store key for the location.
func (l Location) Key() string {
	return JoinKey(l.Namespace, l.Identifier)
}

// DerivedCache lazily produces and caches transcoded variants of image
// objects, keyed by (level, identifier). Cache entries are immutable: the
// original is content-addressed, so a written variant never changes and
// needs no invalidation, only cascade deletion with the original.
type DerivedCache struct {
	blob      BlobStore
	transform Transformer
	logger    Logger

	// ceiling bounds both derivation eligibility and the in-memory read of
	// the original; larger objects always serve uncompressed.
	ceiling int64
}

// NewDerivedCache creates a DerivedCache. ceiling is the generation ceiling
// in bytes.
func NewDerivedCache(blob BlobStore, transform Transformer, logger Logger, ceiling int64) *DerivedCache {
	return &DerivedCache{
		blob:      blob,
		transform: transform,
		logger:    logger,
		ceiling:   ceiling,
	}
}

// Resolve decides where a read for rec at the requested level should be
// served from. levelParam is the raw client value; anything unrecognized,
// ineligible, or failing degrades to the original, never an error the
// client sees as a failure to fetch.
func (d *DerivedCache) Resolve(ctx context.Context, rec *FileRecord, levelParam string) Location {
	original := Location{Namespace: NamespaceFiles, Identifier: rec.Identifier}

	if levelParam == "" {
		return original
	}
	level, err := ParseLevel(levelParam)
	if err != nil {
		d.logger.Debug("unrecognized compression level, serving original", "level", levelParam, "identifier", rec.Identifier)
		return original
	}
	if !d.eligible(rec) {
		return original
	}

	cacheKey := CacheKey(level, rec.Identifier)
	cached := Location{Namespace: CacheNamespace(level), Identifier: rec.Identifier}

	if _, err := d.blob.Head(ctx, cacheKey); err == nil {
		return cached
	} else if !IsNotFound(err) {
		d.logger.Warn("cache lookup failed, serving original", "identifier", rec.Identifier, "level", level, "error", err)
		return original
	}

	if err := d.generate(ctx, rec, level, cacheKey); err != nil {
		d.logger.Warn("variant generation failed, serving original", "identifier", rec.Identifier, "level", level, "error", err)
		return original
	}
	return cached
}

// eligible reports whether a derived variant may be generated for rec:
// image mime type and size under the generation ceiling.
func (d *DerivedCache) eligible(rec *FileRecord) bool {
	return strings.HasPrefix(rec.MimeType, "image/") && rec.Size <= d.ceiling
}

// generate fetches the original fully into memory, transforms it with the
// level's fixed parameters, and stores the result under the cache key.
func (d *DerivedCache) generate(ctx context.Context, rec *FileRecord, level Level, cacheKey string) error {
	obj, err := d.blob.Get(ctx, FileKey(rec.Identifier))
	if err != nil {
		return fmt.Errorf("fetching original: %w", err)
	}
	defer obj.Body.Close()

	// Bounded read: eligibility already checked the recorded size, but the
	// limit holds even if the blob disagrees with the record.
	data, err := io.ReadAll(io.LimitReader(obj.Body, d.ceiling+1))
	if err != nil {
		return fmt.Errorf("reading original: %w", err)
	}
	if int64(len(data)) > d.ceiling {
		return fmt.Errorf("%w: object larger than generation ceiling %d", ErrOversize, d.ceiling)
	}

	result, err := d.transform.Compress(ctx, data, level.Spec())
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	if _, err := d.blob.Put(ctx, cacheKey, bytes.NewReader(result.Data), int64(len(result.Data)), result.MimeType); err != nil {
		return fmt.Errorf("caching variant: %w", err)
	}

	d.logger.Info("variant cached", "identifier", rec.Identifier, "level", level,
		"original_size", len(data), "variant_size", len(result.Data))
	return nil
}
