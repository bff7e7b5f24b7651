package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/planbook/internal/core"
	"github.com/go-chi/chi/v5"
)

// entryRequest is the upsert body of a single entry.
type entryRequest struct {
	Field     string  `json:"field_name"`
	Content   string  `json:"content"`
	ImageData *string `json:"image_data"`
}

// handleListEntries returns every saved single entry of a project.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.ListEntries(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.SingleEntry{}
	}
	writeJSON(w, entries)
}

// handleGetEntry returns one single entry. Unsaved fields come back empty.
func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.service.GetEntry(r.Context(), chi.URLParam(r, "projectID"), chi.URLParam(r, "field"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, entry)
}

// handleSaveEntry upserts a single entry.
func (s *Server) handleSaveEntry(w http.ResponseWriter, r *http.Request) {
	var body entryRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	body.Field = strings.TrimSpace(body.Field)
	if body.Field == "" {
		s.fail(w, r, core.ValidationError{Field: "field_name", Message: "field_name is required"})
		return
	}

	saved, err := s.service.SaveEntry(r.Context(), core.SingleEntry{
		ProjectID: chi.URLParam(r, "projectID"),
		Field:     body.Field,
		Content:   body.Content,
		ImageData: body.ImageData,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, saved)
}
