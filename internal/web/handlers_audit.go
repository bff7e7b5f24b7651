package web

import (
	"net/http"

	"github.com/JonMunkholm/planbook/internal/core"
	"github.com/go-chi/chi/v5"
)

// maxAuditLimit bounds ?limit= on the audit endpoint.
const maxAuditLimit = 1000

// handleAuditLog returns the most recent audit entries of a project.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := min(parseIntParam(r, "limit", core.DefaultAuditLimit), maxAuditLimit)

	entries, err := s.service.GetAuditLog(r.Context(), chi.URLParam(r, "projectID"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	writeJSON(w, entries)
}
