package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attendance/internal/admin"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
)

// AuthHandler handles admin authentication endpoints
type AuthHandler struct {
	credentials    *admin.Credentials
	sessionManager *middleware.SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(creds *admin.Credentials, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		credentials:    creds,
		sessionManager: sm,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	OK        bool   `json:"ok"`
	SessionID string `json:"session_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Login checks the posted credentials and opens an admin session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, constants.MaxJSONBodySize, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	if !h.credentials.Verify(r.Context(), req.Username, req.Password) {
		log.Printf("warning: failed admin login for %q", sanitizeForLog(req.Username))
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Message: "Invalid credentials"})
		return
	}

	session, err := h.sessionManager.CreateSession(r.Context(), req.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessionManager.SetSessionCookie(w, r, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		OK:        true,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout ends the current session, if any.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(r.Context(), session.ID)
	}
	h.sessionManager.ClearSessionCookie(w)
	respondOK(w, "")
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	LoggedIn  bool   `json:"logged_in"`
	Username  string `json:"username,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Status reports whether the request carries a valid admin session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, StatusResponse{LoggedIn: false})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		LoggedIn:  true,
		Username:  session.Username,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
