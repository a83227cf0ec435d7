package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/formlead/survey-engine/internal/models"
)

// Link handlers (admin surface)

// linkView decorates a link with its share URL.
type linkView struct {
	*models.Link
	URL string `json:"url"`
}

func (s *Server) linkView(l *models.Link) linkView {
	base := strings.TrimSuffix(s.config.PublicBaseURL, "/")
	return linkView{Link: l, URL: base + "/public/q/" + l.Slug}
}

func (s *Server) handleCreateLink(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	link, err := s.manager.CreateLink(r.Context(), req, clientName(r))
	if err != nil {
		respondServiceError(w, err, "create link")
		return
	}

	respondJSON(w, http.StatusCreated, s.linkView(link))
}

func (s *Server) handleListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := s.manager.ListLinks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err, "list links")
		return
	}

	views := make([]linkView, 0, len(links))
	for _, l := range links {
		views = append(views, s.linkView(l))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"links": views,
		"total": len(views),
	})
}

func (s *Server) handleUpdateLink(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	link, err := s.manager.UpdateLink(r.Context(), chi.URLParam(r, "slug"), req)
	if err != nil {
		respondServiceError(w, err, "update link")
		return
	}

	respondJSON(w, http.StatusOK, s.linkView(link))
}
