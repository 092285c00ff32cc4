package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"zengallery/internal/gallery"

	"github.com/go-chi/chi/v5"
)

// multipartFormMemory bounds how much of a form upload is buffered in memory
// before spilling to a temp file.
const multipartFormMemory = 10 << 20

// Handler holds HTTP handlers for the gallery API.
type Handler struct {
	coordinator *gallery.Coordinator
	cache       *gallery.DerivedCache
	ranges      *gallery.RangeServer
	meta        gallery.MetadataStore
	logger      gallery.Logger

	maxUploadBytes int64
}

// NewHandler creates a Handler over the assembled service graph.
func NewHandler(coordinator *gallery.Coordinator, cache *gallery.DerivedCache, ranges *gallery.RangeServer, meta gallery.MetadataStore, logger gallery.Logger, maxUploadBytes int64) *Handler {
	return &Handler{
		coordinator:    coordinator,
		cache:          cache,
		ranges:         ranges,
		meta:           meta,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// ListFiles returns file records matching the query filters.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := gallery.ListOptions{
		SortBy:   gallery.SortField(q.Get("sort_by")),
		Sort:     gallery.SortOrder(q.Get("sort")),
		MimeType: q.Get("mime_type"),
		Search:   q.Get("search"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fail(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fail(w, http.StatusBadRequest, "invalid offset")
			return
		}
		opts.Offset = n
	}

	records, err := h.meta.List(r.Context(), opts)
	if err != nil {
		h.logger.Error("list files failed", "error", err)
		failFromError(w, err)
		return
	}
	if records == nil {
		records = []gallery.FileRecord{}
	}

	ok(w, map[string]any{"files": records, "count": len(records)})
}

// uploadResponse is the payload returned by upload endpoints.
type uploadResponse struct {
	File    gallery.FileRecord `json:"file"`
	Existed bool               `json:"existed"`
}

// UploadFile accepts a single-shot upload as a multipart form with a "file"
// field and an optional "hash" field carrying the client-computed content
// hash.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	// Cap the request body: the declared limit plus form framing overhead.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartFormMemory)

	if err := r.ParseMultipartForm(multipartFormMemory); err != nil {
		fail(w, http.StatusBadRequest, "malformed multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		fail(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hash := r.FormValue("hash")

	result, err := h.coordinator.Upload(r.Context(), header.Filename, file, header.Size, contentType, hash)
	if err != nil {
		if isOversize(err) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{
				"success":       false,
				"error":         "file exceeds single upload limit",
				"use_multipart": true,
			})
			return
		}
		h.logger.Error("upload failed", "filename", header.Filename, "error", err)
		failFromError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Existed {
		status = http.StatusOK
	}
	writeJSON(w, status, Envelope{Success: true, Data: uploadResponse{File: result.Record, Existed: result.Existed}})
}

// createMultipartRequest is the body of POST /api/files/multipart/create.
type createMultipartRequest struct {
	Filename string `json:"filename"`
	Hash     string `json:"hash"`
}

// CreateMultipart opens a multipart upload session, or short-circuits with
// the existing record when the content is already stored.
func (h *Handler) CreateMultipart(w http.ResponseWriter, r *http.Request) {
	var req createMultipartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	session, existing, err := h.coordinator.CreateMultipart(r.Context(), req.Filename, req.Hash)
	if err != nil {
		h.logger.Error("multipart create failed", "filename", req.Filename, "error", err)
		failFromError(w, err)
		return
	}
	if existing != nil {
		ok(w, uploadResponse{File: *existing, Existed: true})
		return
	}

	created(w, session)
}

// UploadPart stores one part of an open multipart session. The part bytes
// are the request body; session, key, and part number ride in the query.
func (h *Handler) UploadPart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("upload_id")
	key := q.Get("key")
	if sessionID == "" || key == "" {
		fail(w, http.StatusBadRequest, "upload_id and key are required")
		return
	}
	partNumber, err := strconv.Atoi(q.Get("part_number"))
	if err != nil {
		fail(w, http.StatusBadRequest, "invalid part_number")
		return
	}

	part, err := h.coordinator.UploadPart(r.Context(), sessionID, key, partNumber, r.Body, r.ContentLength)
	if err != nil {
		if isInvalidInput(err) {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("part upload failed", "key", key, "part", partNumber, "error", err)
		failFromError(w, err)
		return
	}

	ok(w, part)
}

// completeMultipartRequest is the body of POST /api/files/multipart/complete.
type completeMultipartRequest struct {
	UploadID string                  `json:"upload_id"`
	Filename string                  `json:"filename"`
	Hash     string                  `json:"hash"`
	Parts    []gallery.CompletedPart `json:"parts"`
	MimeType string                  `json:"mime_type"`
	Size     int64                   `json:"size"`
}

// CompleteMultipart commits a multipart session into a stored file.
func (h *Handler) CompleteMultipart(w http.ResponseWriter, r *http.Request) {
	var req completeMultipartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := h.coordinator.CompleteMultipart(r.Context(), gallery.CompleteRequest{
		SessionID: req.UploadID,
		Filename:  req.Filename,
		Hash:      req.Hash,
		Parts:     req.Parts,
		MimeType:  req.MimeType,
		Size:      req.Size,
	})
	if err != nil {
		if isInvalidInput(err) {
			fail(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("multipart complete failed", "upload_id", req.UploadID, "error", err)
		failFromError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Existed {
		status = http.StatusOK
	}
	writeJSON(w, status, Envelope{Success: true, Data: uploadResponse{File: result.Record, Existed: result.Existed}})
}

// AbortMultipart discards a multipart session. Aborting twice is fine.
func (h *Handler) AbortMultipart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("upload_id")
	key := q.Get("key")
	if sessionID == "" || key == "" {
		fail(w, http.StatusBadRequest, "upload_id and key are required")
		return
	}

	if err := h.coordinator.AbortMultipart(r.Context(), sessionID, key); err != nil {
		h.logger.Error("multipart abort failed", "upload_id", sessionID, "error", err)
		failFromError(w, err)
		return
	}

	ok(w, map[string]any{"aborted": true})
}

// GetFile resolves a file at the requested compression level and redirects
// to the blob endpoint that serves the chosen bytes.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	rec, err := h.meta.Get(r.Context(), identifier)
	if err != nil {
		if gallery.IsNotFound(err) {
			fail(w, http.StatusNotFound, "file not found")
			return
		}
		h.logger.Error("file lookup failed", "identifier", identifier, "error", err)
		failFromError(w, err)
		return
	}

	loc := h.cache.Resolve(r.Context(), rec, r.URL.Query().Get("level"))
	http.Redirect(w, r, "/blob/"+loc.Key(), http.StatusFound)
}

// ServeOriginal streams an original object with range support.
func (h *Handler) ServeOriginal(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	h.ranges.Serve(w, r, gallery.FileKey(identifier))
}

// ServeVariant streams a cached derived variant with range support.
func (h *Handler) ServeVariant(w http.ResponseWriter, r *http.Request) {
	level, err := gallery.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		fail(w, http.StatusBadRequest, "unknown compression level")
		return
	}
	identifier := chi.URLParam(r, "identifier")
	h.ranges.Serve(w, r, gallery.CacheKey(level, identifier))
}

// updateFileRequest is the body of PUT /api/files/{identifier}. Absent
// fields are left unchanged.
type updateFileRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// UpdateFile edits the title and/or description of a stored file.
func (h *Handler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	var req updateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Title == nil && req.Description == nil {
		fail(w, http.StatusBadRequest, "nothing to update")
		return
	}

	rec, err := h.coordinator.UpdateInfo(r.Context(), identifier, req.Title, req.Description)
	if err != nil {
		if gallery.IsNotFound(err) {
			fail(w, http.StatusNotFound, "file not found")
			return
		}
		h.logger.Error("file update failed", "identifier", identifier, "error", err)
		failFromError(w, err)
		return
	}

	ok(w, rec)
}

// DeleteFile removes a file, its cached variants, and its record.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	if err := h.coordinator.Delete(r.Context(), identifier); err != nil {
		if gallery.IsNotFound(err) {
			fail(w, http.StatusNotFound, "file not found")
			return
		}
		h.logger.Error("file delete failed", "identifier", identifier, "error", err)
		failFromError(w, err)
		return
	}

	ok(w, map[string]any{"deleted": true, "identifier": identifier})
}
