package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/formlead/survey-engine/internal/models"
)

// Response handlers (admin surface)

func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	resp, err := s.manager.SubmitResponse(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "submit response")
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	resp, err := s.manager.GetResponse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "get response")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListResponses(w http.ResponseWriter, r *http.Request) {
	filters := models.ResponseFilters{
		QuestionnaireID: r.URL.Query().Get("questionnaire_id"),
		Limit:           queryInt(r, "limit", 10),
		Offset:          queryInt(r, "offset", 0),
	}

	page, err := s.manager.ListResponses(r.Context(), filters)
	if err != nil {
		respondServiceError(w, err, "list responses")
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleConvertLead(w http.ResponseWriter, r *http.Request) {
	var req models.ConvertLeadRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}
	req.ResponseID = chi.URLParam(r, "id")

	result, err := s.manager.ConvertLead(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "convert lead")
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
