package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"zengallery/internal/gallery"
)

func isInvalidInput(err error) bool { return errors.Is(err, gallery.ErrInvalidInput) }
func isOversize(err error) bool     { return errors.Is(err, gallery.ErrOversize) }

// Envelope is the standard API response envelope.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON writes a JSON-encoded payload with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ok writes a 200 response with data.
func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// created writes a 201 response with data.
func created(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

// fail writes an error response with the given status and message.
func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Envelope{Success: false, Error: message})
}

// failFromError maps domain errors onto HTTP statuses. Unrecognized errors
// become a generic 500; the caller is expected to have logged the cause.
func failFromError(w http.ResponseWriter, err error) {
	switch {
	case gallery.IsNotFound(err):
		fail(w, http.StatusNotFound, "not found")
	case gallery.IsConflict(err):
		fail(w, http.StatusConflict, "already exists")
	case isInvalidInput(err):
		fail(w, http.StatusBadRequest, err.Error())
	case isOversize(err):
		fail(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		fail(w, http.StatusInternalServerError, "internal server error")
	}
}
