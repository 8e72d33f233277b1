package handlers

import (
	"bytes"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// AttendanceHandler serves marking, the ledger and its reports.
type AttendanceHandler struct {
	svc *attendance.Service
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *attendance.Service) *AttendanceHandler {
	return &AttendanceHandler{svc: svc}
}

type markRequest struct {
	Image string `json:"image"`
}

// MarkResponse is the body of a mark request.
type MarkResponse struct {
	Status  string `json:"status"`
	Name    string `json:"name,omitempty"`
	RegNo   string `json:"reg_no,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondMarkError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, MarkResponse{Status: "error", Message: message})
}

// Mark identifies the faces in a camera frame and records attendance.
func (h *AttendanceHandler) Mark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if err := decodeJSON(w, r, constants.MaxMarkBodySize, &req); err != nil {
		respondMarkError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondMarkError(w, http.StatusBadRequest, "No image")
		return
	}

	res, err := h.svc.Mark(r.Context(), req.Image)
	switch {
	case errors.Is(err, attendance.ErrInvalidImage):
		respondMarkError(w, http.StatusBadRequest, "Failed to decode image")
		return
	case errors.Is(err, attendance.ErrDetection):
		log.Printf("warning: mark: %v", err)
		respondMarkError(w, http.StatusInternalServerError, "Face detection error")
		return
	case err != nil:
		log.Printf("error: mark: %v", err)
		respondMarkError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := MarkResponse{Status: string(res.Status)}
	switch res.Status {
	case attendance.StatusMarked:
		resp.Name = res.Name
		resp.RegNo = res.RegNo
	case attendance.StatusAlreadyMarked:
		resp.Name = res.Name
		resp.RegNo = res.RegNo
		resp.Message = "Attendance already marked today"
	case attendance.StatusNoFace:
		resp.Message = "No face detected"
	case attendance.StatusUnrecognized:
		resp.Message = "Face not recognized"
	case attendance.StatusEncodingFailed:
		respondMarkError(w, http.StatusUnprocessableEntity, "Encoding failed")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// List returns every ledger record.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Attendance(r.Context()))
}

// Analytics returns the ledger summary.
func (h *AttendanceHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.svc.Analytics(r.Context()))
}

// Export streams the ledger as a CSV attachment.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(r.Context(), &buf); err != nil {
		log.Printf("error: exporting attendance: %v", err)
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ledger.ExportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Reset clears the ledger. Admin only.
func (h *AttendanceHandler) Reset(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ResetAttendance(r.Context())
	if err != nil {
		log.Printf("error: resetting attendance: %v", err)
		respondError(w, http.StatusInternalServerError, "reset failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": n})
}
