package web

import (
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/planbook/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// handleSearch runs a project-wide search. ?all=true returns the grouped
// result set, otherwise the preview. HTMX requests get an HTML fragment.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	all := parseBoolParam(r, "all")

	result, err := s.service.Search(r.Context(), projectID, r.URL.Query().Get("q"), all)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if !isHTMX(r) {
		writeJSON(w, result)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	component := templates.SearchPreview(result)
	if all {
		component = templates.SearchGrouped(result)
	}
	if err := component.Render(r.Context(), w); err != nil {
		slog.Error("render search results", "error", err)
	}
}
