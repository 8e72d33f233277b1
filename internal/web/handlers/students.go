package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
)

// StudentsHandler serves the roster.
type StudentsHandler struct {
	svc *attendance.Service
}

// NewStudentsHandler creates a new students handler
func NewStudentsHandler(svc *attendance.Service) *StudentsHandler {
	return &StudentsHandler{svc: svc}
}

// List returns the roster, filtered by the optional q parameter.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Students(r.Context(), r.URL.Query().Get("q")))
}

// Register enrolls a student from a multipart form with the fields name,
// reg_no, dept and photo.
func (h *StudentsHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := attendance.RegisterRequest{
		Name:  r.FormValue("name"),
		RegNo: r.FormValue("reg_no"),
		Dept:  r.FormValue("dept"),
	}
	if file, header, err := r.FormFile("photo"); err == nil {
		req.Filename = header.Filename
		req.Photo, err = io.ReadAll(file)
		file.Close()
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to read photo")
			return
		}
	}

	student, err := h.svc.Register(r.Context(), req)
	switch {
	case err == nil:
		respondOK(w, fmt.Sprintf("%s registered", student.Name))
	case errors.Is(err, attendance.ErrMissingFields):
		respondError(w, http.StatusBadRequest, "All fields required")
	case errors.Is(err, attendance.ErrInvalidRegNo):
		respondError(w, http.StatusBadRequest, "Invalid registration number")
	case errors.Is(err, attendance.ErrNoFaceInPhoto):
		respondError(w, http.StatusBadRequest, "No face detected in uploaded photo")
	case errors.Is(err, attendance.ErrAlreadyRegistered):
		respondError(w, http.StatusConflict, "Student already registered")
	default:
		log.Printf("error: registering %s: %v", sanitizeForLog(req.RegNo), err)
		respondError(w, http.StatusInternalServerError, "registration failed")
	}
}

type deleteRequest struct {
	RegNo string `json:"reg_no"`
}

// Delete removes a student, their photos and their index entries. Admin only.
func (h *StudentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := decodeJSON(w, r, constants.MaxJSONBodySize, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	res, err := h.svc.Delete(r.Context(), req.RegNo)
	switch {
	case errors.Is(err, attendance.ErrMissingRegNo):
		respondError(w, http.StatusBadRequest, "reg_no required")
		return
	case err != nil:
		log.Printf("error: deleting %s: %v", sanitizeForLog(req.RegNo), err)
		respondError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	log.Printf("deleted student %s: %d roster, %d photos, %d index entries",
		sanitizeForLog(req.RegNo), res.Students, res.Photos, res.Entries)
	respondOK(w, "")
}

// Photo serves a stored student photo.
func (h *StudentsHandler) Photo(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	data, err := h.svc.Photo(r.Context(), filename)
	if errors.Is(err, attendance.ErrPhotoNotFound) {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	if err != nil {
		log.Printf("error: reading photo %s: %v", sanitizeForLog(filename), err)
		respondError(w, http.StatusInternalServerError, "failed to read photo")
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
