package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formlead/survey-engine/internal/models"
)

// Public respondent-facing handlers. Everything here is keyed by a link
// slug; the slug gate (active, unexpired) runs on every request.

// handleResolveLink opens a questionnaire through a share link. This is the
// only public route that counts toward the link's access counter.
func (s *Server) handleResolveLink(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.manager.ResolveLink(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondServiceError(w, err, "resolve link")
		return
	}

	q, err := s.manager.GetQuestionnaire(r.Context(), resolved.Questionnaire.ID)
	if err != nil {
		respondServiceError(w, err, "resolve link")
		return
	}

	respondJSON(w, http.StatusOK, q)
}

type logicRequest struct {
	CurrentSectionID string         `json:"current_section_id"`
	Answers          map[string]any `json:"answers"`
}

func (s *Server) handleEvaluateLogic(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.manager.CheckLink(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondServiceError(w, err, "evaluate logic")
		return
	}

	var req logicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	result, err := s.manager.EvaluateStep(r.Context(), resolved.Questionnaire.ID, req.CurrentSectionID, req.Answers)
	if err != nil {
		respondServiceError(w, err, "evaluate logic")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type publicSubmitRequest struct {
	RespondentName   string                  `json:"respondent_name"`
	RespondentEmail  string                  `json:"respondent_email"`
	Answers          map[string]any          `json:"answers"`
	CompletionStatus models.CompletionStatus `json:"completion_status"`
}

func (s *Server) handleSubmitViaLink(w http.ResponseWriter, r *http.Request) {
	resolved, err := s.manager.CheckLink(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondServiceError(w, err, "submit response")
		return
	}

	var req publicSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Questionnaire and link attribution come from the slug, never the body.
	resp, err := s.manager.SubmitResponse(r.Context(), models.SubmitRequest{
		QuestionnaireID:  resolved.Questionnaire.ID,
		RespondentName:   req.RespondentName,
		RespondentEmail:  req.RespondentEmail,
		Answers:          req.Answers,
		CompletionStatus: req.CompletionStatus,
		LinkID:           resolved.LinkID,
	})
	if err != nil {
		respondServiceError(w, err, "submit response")
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}
