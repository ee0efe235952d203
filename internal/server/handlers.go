package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mediaops/adpipe/internal/store"
)

// defaultSessionLimit bounds GET /sessions when no limit is given.
const defaultSessionLimit = 50

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// SessionsResponse is the response for GET /api/v1/sessions
type SessionsResponse struct {
	Sessions []store.Session `json:"sessions"`
}

// SessionFilesResponse is the response for GET /api/v1/sessions/{id}/files
type SessionFilesResponse struct {
	SessionID int64                `json:"session_id"`
	Files     []store.UploadedFile `json:"files"`
}

// ErrorResponse is the error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

// handleSessions handles GET /api/v1/sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.sendError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	sessions, err := s.store.ListSessions(limit)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []store.Session{}
	}
	s.sendJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions})
}

// handleSession handles GET /api/v1/sessions/{id}
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := s.store.GetSession(id)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "session not found")
		return
	}
	s.sendJSON(w, http.StatusOK, session)
}

// handleSessionFiles handles GET /api/v1/sessions/{id}/files
func (s *Server) handleSessionFiles(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.sendError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if _, err := s.store.GetSession(id); err != nil {
		s.sendError(w, http.StatusNotFound, "session not found")
		return
	}

	files, err := s.store.ListSessionFiles(id)
	if err != nil {
		s.logger.Error("failed to list session files", "session", id, "error", err)
		s.sendError(w, http.StatusInternalServerError, "failed to list session files")
		return
	}
	if files == nil {
		files = []store.UploadedFile{}
	}
	s.sendJSON(w, http.StatusOK, SessionFilesResponse{SessionID: id, Files: files})
}

// handleFile handles GET /api/v1/files/{videoID}
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")

	file, err := s.store.GetFileByVideoID(videoID)
	if err != nil {
		s.sendError(w, http.StatusNotFound, "file not found")
		return
	}
	s.sendJSON(w, http.StatusOK, file)
}

// sendJSON writes a JSON response
func (s *Server) sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}
