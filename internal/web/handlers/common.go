// Package handlers implements the JSON HTTP API of the attendance service.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// okResponse is the body of student and admin endpoints.
type okResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// respondOK sends {"ok": true} with an optional message.
func respondOK(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, okResponse{OK: true, Message: message})
}

// respondError sends {"ok": false, "message": message}.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, okResponse{OK: false, Message: message})
}

// decodeJSON decodes a JSON body of at most limit bytes. An empty body
// decodes to the zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
