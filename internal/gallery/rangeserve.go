package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// RangeServer streams objects over HTTP with partial-content semantics.
// It prefers the store's native ranged reads; when the store cannot serve a
// window directly it falls back to reading the full object and slicing in
// memory, but only below maxSliceSize; larger originals are never buffered,
// they stream whole instead.
type RangeServer struct {
	blob         BlobStore
	logger       Logger
	maxSliceSize int64
}

// NewRangeServer creates a RangeServer. maxSliceSize bounds the in-memory
// fallback for stores without native range support.
func NewRangeServer(blob BlobStore, logger Logger, maxSliceSize int64) *RangeServer {
	return &RangeServer{
		blob:         blob,
		logger:       logger,
		maxSliceSize: maxSliceSize,
	}
}

// ParseRangeHeader parses a single-range header of the forms "bytes=A-B",
// "bytes=A-" and "bytes=-N" (last N bytes) against an object of the given
// size, returning the inclusive byte window to serve.
//
// Malformed headers return ErrInvalidInput. A window that starts at or past
// the end of the object, or is inverted, returns ErrUnsatisfiableRange so
// the caller can report the true size.
func ParseRangeHeader(header string, size int64) (start, end int64, err error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return 0, 0, fmt.Errorf("%w: range header %q", ErrInvalidInput, header)
	}
	first, last, ok := strings.Cut(spec, "-")
	if !ok || strings.Contains(last, "-") {
		return 0, 0, fmt.Errorf("%w: range header %q", ErrInvalidInput, header)
	}

	if first == "" {
		// Suffix form: last N bytes.
		n, perr := strconv.ParseInt(last, 10, 64)
		if perr != nil {
			return 0, 0, fmt.Errorf("%w: range header %q", ErrInvalidInput, header)
		}
		if n <= 0 {
			return 0, 0, fmt.Errorf("%w: empty suffix range", ErrUnsatisfiableRange)
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, nil
	}

	start, perr := strconv.ParseInt(first, 10, 64)
	if perr != nil || start < 0 {
		return 0, 0, fmt.Errorf("%w: range header %q", ErrInvalidInput, header)
	}

	if last == "" {
		end = size - 1
	} else {
		end, perr = strconv.ParseInt(last, 10, 64)
		if perr != nil {
			return 0, 0, fmt.Errorf("%w: range header %q", ErrInvalidInput, header)
		}
		if start > end {
			return 0, 0, fmt.Errorf("%w: inverted range %d-%d", ErrUnsatisfiableRange, start, end)
		}
		if end > size-1 {
			end = size - 1
		}
	}

	if start >= size {
		return 0, 0, fmt.Errorf("%w: start %d beyond size %d", ErrUnsatisfiableRange, start, size)
	}
	return start, end, nil
}

// Serve streams the object at key, honoring a single-range Range header.
// Requests without a Range header, or with a malformed one, get the full
// object with Accept-Ranges advertised for subsequent requests.
func (s *RangeServer) Serve(w http.ResponseWriter, r *http.Request, key string) {
	ctx := r.Context()

	info, err := s.blob.Head(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "object not found")
			return
		}
		s.logger.Error("head failed", "key", key, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to retrieve object")
		return
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		s.serveFull(w, r, key, info)
		return
	}

	start, end, err := ParseRangeHeader(rangeHeader, info.Size)
	if err != nil {
		if errors.Is(err, ErrUnsatisfiableRange) {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", info.Size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		// Malformed range: ignore the header and serve the full object.
		s.serveFull(w, r, key, info)
		return
	}

	length := end - start + 1

	if s.blob.SupportsRange() {
		obj, err := s.blob.GetRange(ctx, key, start, length)
		if err != nil {
			if IsNotFound(err) {
				writeJSONError(w, http.StatusNotFound, "object not found")
				return
			}
			s.logger.Error("range read failed", "key", key, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "failed to retrieve object")
			return
		}
		defer obj.Body.Close()

		s.writePartialHeaders(w, info, start, end)
		if _, err := io.Copy(w, obj.Body); err != nil {
			s.logger.Debug("client aborted range read", "key", key, "error", err)
		}
		return
	}

	// No native range support: slice in memory only for bounded objects,
	// otherwise stream the whole thing.
	if info.Size > s.maxSliceSize {
		s.serveFull(w, r, key, info)
		return
	}

	obj, err := s.blob.Get(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "object not found")
			return
		}
		s.logger.Error("read failed", "key", key, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to retrieve object")
		return
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		s.logger.Error("buffering object failed", "key", key, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to retrieve object")
		return
	}

	s.writePartialHeaders(w, info, start, end)
	if _, err := w.Write(data[start : end+1]); err != nil {
		s.logger.Debug("client aborted range read", "key", key, "error", err)
	}
}

// serveFull streams the complete object with a 200.
func (s *RangeServer) serveFull(w http.ResponseWriter, r *http.Request, key string, info *ObjectInfo) {
	obj, err := s.blob.Get(r.Context(), key)
	if err != nil {
		if IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "object not found")
			return
		}
		s.logger.Error("read failed", "key", key, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to retrieve object")
		return
	}
	defer obj.Body.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.ETag != "" {
		w.Header().Set("ETag", info.ETag)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Accept-Ranges", "bytes")

	if _, err := io.Copy(w, obj.Body); err != nil {
		s.logger.Debug("client aborted read", "key", key, "error", err)
	}
}

// writePartialHeaders writes the 206 headers for an inclusive [start, end]
// window of the object.
func (s *RangeServer) writePartialHeaders(w http.ResponseWriter, info *ObjectInfo, start, end int64) {
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.ETag != "" {
		w.Header().Set("ETag", info.ETag)
	}
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, info.Size))
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.Header().Set("Accept-Ranges", "bytes")
	w.WriteHeader(http.StatusPartialContent)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
