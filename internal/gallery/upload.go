package gallery

import (
	"context"
	"fmt"
	"io"
	"sort"
)

// Coordinator orchestrates uploads: it derives identifiers, dedups against
// the metadata store, stages temp objects when the hash is unknown, promotes
// staged data to final keys, and keeps blob and record writes ordered so a
// referenced-but-unrecorded object can never leak.
type Coordinator struct {
	blob            BlobStore
	meta            MetadataStore
	logger          Logger
	clock           Clock
	idgen           IDGenerator
	maxSingleUpload int64
}

// NewCoordinator creates a Coordinator. maxSingleUpload caps single-shot
// uploads; larger objects must use the multipart path.
func NewCoordinator(blob BlobStore, meta MetadataStore, logger Logger, clock Clock, idgen IDGenerator, maxSingleUpload int64) *Coordinator {
	return &Coordinator{
		blob:            blob,
		meta:            meta,
		logger:          logger,
		clock:           clock,
		idgen:           idgen,
		maxSingleUpload: maxSingleUpload,
	}
}

// Upload performs a single-shot upload of size bytes from r.
//
// When hash is non-empty the identifier is derived up front and the data is
// written straight to its final key (Strategy A). The hash is trusted as
// supplied; see DESIGN.md for the trust boundary decision. When hash is
// empty the data is staged under a random temp key and the backend's own
// integrity tag becomes the identifier (Strategy B), since the backend
// already read every byte.
func (c *Coordinator) Upload(ctx context.Context, filename string, r io.Reader, size int64, contentType, hash string) (*UploadResult, error) {
	if size > c.maxSingleUpload {
		return nil, fmt.Errorf("%w: %d bytes exceeds single upload limit of %d, use multipart", ErrOversize, size, c.maxSingleUpload)
	}

	if hash != "" {
		return c.uploadWithKnownHash(ctx, filename, r, size, contentType, hash)
	}
	return c.uploadStaged(ctx, filename, r, size, contentType)
}

// uploadWithKnownHash is Strategy A: the caller supplied the content hash, so
// the final key is known before any byte is written.
func (c *Coordinator) uploadWithKnownHash(ctx context.Context, filename string, r io.Reader, size int64, contentType, hash string) (*UploadResult, error) {
	identifier := Identifier(hash, filename)

	existing, err := c.meta.Get(ctx, identifier)
	if err != nil && !IsNotFound(err) {
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if existing != nil {
		c.logger.Debug("upload deduplicated", "identifier", identifier)
		return &UploadResult{Record: *existing, Existed: true}, nil
	}

	if _, err := c.blob.Put(ctx, FileKey(identifier), r, size, contentType); err != nil {
		return nil, fmt.Errorf("storing object: %w", err)
	}

	return c.recordUpload(ctx, identifier, filename, contentType, size)
}

// uploadStaged is Strategy B: write to a temp key first and adopt the
// backend's integrity tag as the content hash once the write completes.
func (c *Coordinator) uploadStaged(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (*UploadResult, error) {
	tempKey := TempKey(c.idgen.New())

	put, err := c.blob.Put(ctx, tempKey, r, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("staging object: %w", err)
	}

	identifier := Identifier(NormalizeETag(put.ETag), filename)

	existing, err := c.meta.Get(ctx, identifier)
	if err != nil && !IsNotFound(err) {
		c.discardTemp(ctx, tempKey)
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if existing != nil {
		// Duplicate content: the staged copy is redundant.
		c.discardTemp(ctx, tempKey)
		c.logger.Debug("upload deduplicated", "identifier", identifier)
		return &UploadResult{Record: *existing, Existed: true}, nil
	}

	if _, err := c.blob.Copy(ctx, tempKey, FileKey(identifier)); err != nil {
		c.discardTemp(ctx, tempKey)
		return nil, fmt.Errorf("promoting staged object: %w", err)
	}
	c.discardTemp(ctx, tempKey)

	return c.recordUpload(ctx, identifier, filename, contentType, size)
}

// recordUpload writes the file record after the blob exists under its final
// key. An insert conflict means a concurrent upload of identical content won
// the race; the bytes under the key are the same either way, so the loser
// simply returns the winner's record.
func (c *Coordinator) recordUpload(ctx context.Context, identifier, filename, contentType string, size int64) (*UploadResult, error) {
	rec := FileRecord{
		Identifier: identifier,
		Title:      filename,
		MimeType:   contentType,
		Size:       size,
		UploadedAt: c.clock.Now().UTC(),
	}

	err := c.meta.Insert(ctx, rec)
	if err == nil {
		c.logger.Info("file uploaded", "identifier", identifier, "size", size)
		return &UploadResult{Record: rec}, nil
	}
	if !IsConflict(err) {
		// The blob is in place but unrecorded. Surface the failure; the
		// content-addressed key means a retry of the same bytes heals it.
		return nil, fmt.Errorf("recording upload: %w", err)
	}

	winner, getErr := c.meta.Get(ctx, identifier)
	if getErr != nil {
		return nil, fmt.Errorf("fetching winning record after conflict: %w", getErr)
	}
	c.logger.Debug("upload lost dedup race", "identifier", identifier)
	return &UploadResult{Record: *winner, Existed: true}, nil
}

// discardTemp best-effort deletes a staged temp object. A leaked temp object
// is tolerable garbage; the failure is logged and never masks the caller's
// error.
func (c *Coordinator) discardTemp(ctx context.Context, tempKey string) {
	if err := c.blob.Delete(ctx, tempKey); err != nil && !IsNotFound(err) {
		c.logger.Warn("failed to delete staged object", "key", tempKey, "error", err)
	}
}

// CreateMultipart opens a multipart session for the given filename and
// content hash. If a live object with the derived identifier already exists,
// the existing record is returned and no session is opened.
func (c *Coordinator) CreateMultipart(ctx context.Context, filename, hash string) (*MultipartSession, *FileRecord, error) {
	if hash == "" {
		return nil, nil, fmt.Errorf("%w: hash is required for multipart upload", ErrInvalidInput)
	}
	identifier := Identifier(hash, filename)

	existing, err := c.meta.Get(ctx, identifier)
	if err != nil && !IsNotFound(err) {
		return nil, nil, fmt.Errorf("dedup check: %w", err)
	}
	if existing != nil {
		return nil, existing, nil
	}

	sessionID, err := c.blob.CreateMultipart(ctx, FileKey(identifier), "")
	if err != nil {
		return nil, nil, fmt.Errorf("creating multipart upload: %w", err)
	}

	c.logger.Debug("multipart session opened", "identifier", identifier, "session", sessionID)
	return &MultipartSession{SessionID: sessionID, Key: identifier}, nil, nil
}

// UploadPart streams one part of an open session. Parts are idempotent by
// (session, part number): a retry with the same number overwrites the prior
// attempt.
func (c *Coordinator) UploadPart(ctx context.Context, sessionID, key string, partNumber int, r io.Reader, size int64) (*CompletedPart, error) {
	if partNumber < MinPartNumber || partNumber > MaxPartNumber {
		return nil, fmt.Errorf("%w: part number %d outside [%d, %d]", ErrInvalidInput, partNumber, MinPartNumber, MaxPartNumber)
	}

	etag, err := c.blob.UploadPart(ctx, FileKey(key), sessionID, partNumber, r, size)
	if err != nil {
		return nil, fmt.Errorf("uploading part %d: %w", partNumber, err)
	}
	return &CompletedPart{PartNumber: partNumber, ETag: etag}, nil
}

// CompleteRequest carries everything needed to finish a multipart session.
type CompleteRequest struct {
	SessionID string
	Filename  string
	Hash      string
	Parts     []CompletedPart
	MimeType  string
	Size      int64
}

// CompleteMultipart commits the session's parts in ascending part number
// order and writes the file record. A dedup re-check guards the race where
// two clients multipart-upload identical content concurrently: on a hit the
// session is aborted and the existing record returned.
func (c *Coordinator) CompleteMultipart(ctx context.Context, req CompleteRequest) (*UploadResult, error) {
	if req.Hash == "" {
		return nil, fmt.Errorf("%w: hash is required to complete multipart upload", ErrInvalidInput)
	}
	if len(req.Parts) == 0 {
		return nil, fmt.Errorf("%w: no parts supplied", ErrInvalidInput)
	}
	identifier := Identifier(req.Hash, req.Filename)
	key := FileKey(identifier)

	existing, err := c.meta.Get(ctx, identifier)
	if err != nil && !IsNotFound(err) {
		return nil, fmt.Errorf("dedup check: %w", err)
	}
	if existing != nil {
		if err := c.blob.AbortMultipart(ctx, key, req.SessionID); err != nil {
			c.logger.Warn("failed to abort duplicate multipart upload", "identifier", identifier, "error", err)
		}
		c.logger.Debug("multipart upload deduplicated", "identifier", identifier)
		return &UploadResult{Record: *existing, Existed: true}, nil
	}

	parts := make([]CompletedPart, len(req.Parts))
	copy(parts, req.Parts)
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	for i, p := range parts {
		if p.PartNumber < MinPartNumber || p.PartNumber > MaxPartNumber {
			return nil, fmt.Errorf("%w: part number %d outside [%d, %d]", ErrInvalidInput, p.PartNumber, MinPartNumber, MaxPartNumber)
		}
		if i > 0 && p.PartNumber == parts[i-1].PartNumber {
			return nil, fmt.Errorf("%w: part number %d listed more than once", ErrInvalidInput, p.PartNumber)
		}
	}

	if _, err := c.blob.CompleteMultipart(ctx, key, req.SessionID, parts); err != nil {
		// Failure after partial commit is a fatal inconsistency surfaced to
		// the caller, not silently repaired.
		return nil, fmt.Errorf("completing multipart upload: %w", err)
	}

	return c.recordUpload(ctx, identifier, req.Filename, req.MimeType, req.Size)
}

// AbortMultipart discards all staged parts of a session. It is idempotent:
// aborting an already-aborted or completed session reports success.
func (c *Coordinator) AbortMultipart(ctx context.Context, sessionID, key string) error {
	if err := c.blob.AbortMultipart(ctx, FileKey(key), sessionID); err != nil && !IsNotFound(err) {
		return fmt.Errorf("aborting multipart upload: %w", err)
	}
	c.logger.Info("multipart session aborted", "key", key, "session", sessionID)
	return nil
}

// UpdateInfo edits the title and/or description of an existing record.
func (c *Coordinator) UpdateInfo(ctx context.Context, identifier string, title, description *string) (*FileRecord, error) {
	rec, err := c.meta.UpdateInfo(ctx, identifier, title, description)
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("updating file info: %w", err)
	}
	return rec, nil
}

// Delete removes a file: the metadata record first, then every cached
// derived variant, then the original blob. Record delete precedes blob
// delete so a record never points at missing bytes; blob cleanup failures
// are logged, not fatal.
func (c *Coordinator) Delete(ctx context.Context, identifier string) error {
	if _, err := c.meta.Get(ctx, identifier); err != nil {
		if IsNotFound(err) {
			return err
		}
		return fmt.Errorf("looking up file: %w", err)
	}

	if err := c.meta.Delete(ctx, identifier); err != nil {
		return fmt.Errorf("deleting file record: %w", err)
	}

	for _, level := range Levels() {
		if err := c.blob.Delete(ctx, CacheKey(level, identifier)); err != nil && !IsNotFound(err) {
			c.logger.Warn("failed to delete cached variant", "identifier", identifier, "level", level, "error", err)
		}
	}

	if err := c.blob.Delete(ctx, FileKey(identifier)); err != nil && !IsNotFound(err) {
		c.logger.Warn("failed to delete original blob", "identifier", identifier, "error", err)
	}

	c.logger.Info("file deleted", "identifier", identifier)
	return nil
}
