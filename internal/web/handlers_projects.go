package web

import (
	"net/http"

	"github.com/JonMunkholm/planbook/internal/core"
	"github.com/go-chi/chi/v5"
)

// projectRequest is the body of a project create request.
type projectRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// handleListProjects returns every project.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.service.ListProjects(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, projects)
}

// handleCreateProject registers a project.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var body projectRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	p, err := s.service.CreateProject(r.Context(), core.Project{ID: body.ID, Name: body.Name})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, p)
}

// handleGetProject returns one project.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, p)
}

// handleDeleteProject removes a project with its rows, entries and audit log.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	purge, err := s.service.DeleteProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, purge)
}
