package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/formlead/survey-engine/internal/models"
	"github.com/formlead/survey-engine/internal/questionnaire"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// respondServiceError maps service sentinels to HTTP statuses. Anything
// unmapped is logged and reported as a generic 500 so internals don't leak.
func respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, questionnaire.ErrValidation):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, questionnaire.ErrQuestionnaireNotFound):
		respondError(w, http.StatusNotFound, "not_found", "questionnaire not found")
	case errors.Is(err, questionnaire.ErrSectionNotFound):
		respondError(w, http.StatusNotFound, "not_found", "section not found")
	case errors.Is(err, questionnaire.ErrResponseNotFound):
		respondError(w, http.StatusNotFound, "not_found", "response not found")
	case errors.Is(err, questionnaire.ErrLinkNotFound):
		respondError(w, http.StatusNotFound, "not_found", "link not found")
	case errors.Is(err, questionnaire.ErrLinkExpired):
		respondError(w, http.StatusGone, "link_expired", "this link has expired")
	case errors.Is(err, questionnaire.ErrSlugConflict):
		respondError(w, http.StatusConflict, "slug_conflict", "could not allocate a unique slug, try again")
	case errors.Is(err, questionnaire.ErrAlreadyConverted):
		respondError(w, http.StatusConflict, "already_converted", "response has already been converted to a lead")
	default:
		slog.Error("request failed", "action", action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

func clientName(r *http.Request) string {
	if client := ClientFromContext(r.Context()); client != nil {
		return client.Name
	}
	return ""
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Questionnaire handlers

func (s *Server) handleCreateQuestionnaire(w http.ResponseWriter, r *http.Request) {
	var req models.Questionnaire
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	q, err := s.manager.CreateQuestionnaire(r.Context(), &req, clientName(r))
	if err != nil {
		respondServiceError(w, err, "create questionnaire")
		return
	}

	respondJSON(w, http.StatusCreated, q)
}

func (s *Server) handleGetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	q, err := s.manager.GetQuestionnaire(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "get questionnaire")
		return
	}

	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleListQuestionnaires(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	questionnaires, err := s.manager.ListQuestionnaires(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err, "list questionnaires")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"questionnaires": questionnaires,
		"total":          len(questionnaires),
	})
}

func (s *Server) handleUpdateQuestionnaire(w http.ResponseWriter, r *http.Request) {
	var req models.Questionnaire
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	q, err := s.manager.UpdateQuestionnaire(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondServiceError(w, err, "update questionnaire")
		return
	}

	respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleDeactivateQuestionnaire(w http.ResponseWriter, r *http.Request) {
	if err := s.manager.DeactivateQuestionnaire(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondServiceError(w, err, "deactivate questionnaire")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "questionnaire deactivated",
	})
}

// Definition handlers

func (s *Server) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs := s.defLoader.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"definitions": defs,
		"total":       len(defs),
	})
}

func (s *Server) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	def := s.defLoader.Get(chi.URLParam(r, "id"))
	if def == nil {
		respondError(w, http.StatusNotFound, "not_found", "definition not found")
		return
	}

	respondJSON(w, http.StatusOK, def)
}

func (s *Server) handleImportDefinition(w http.ResponseWriter, r *http.Request) {
	def := s.defLoader.Get(chi.URLParam(r, "id"))
	if def == nil {
		respondError(w, http.StatusNotFound, "not_found", "definition not found")
		return
	}

	q, err := s.manager.ImportDefinition(r.Context(), def, clientName(r))
	if err != nil {
		respondServiceError(w, err, "import definition")
		return
	}

	respondJSON(w, http.StatusCreated, q)
}

// queryInt parses an integer query parameter, falling back on absence or garbage
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
		return v
	}
	return fallback
}
