package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/planbook/internal/core"
	"github.com/JonMunkholm/planbook/internal/logging"
	"github.com/go-chi/chi/v5"
)

// handleListSections returns the catalog grouped by section.
func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.ListSections())
}

// handleTableSchema returns column metadata for one table.
func (s *Server) handleTableSchema(w http.ResponseWriter, r *http.Request) {
	def, err := s.service.Definition(chi.URLParam(r, "section"), chi.URLParam(r, "table"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, buildSchema(def))
}

// handleListRows returns a table's rows, optionally filtered with ?q= and
// sorted with ?sort=&dir=.
func (s *Server) handleListRows(w http.ResponseWriter, r *http.Request) {
	ref := tableRef(r)
	rows, err := s.service.QueryRows(r.Context(), ref, r.URL.Query().Get("q"), parseSort(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.Row{}
	}
	writeJSON(w, rows)
}

// handleGetRow returns one row.
func (s *Server) handleGetRow(w http.ResponseWriter, r *http.Request) {
	row, err := s.service.GetRow(r.Context(), tableRef(r), chi.URLParam(r, "rowID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, row)
}

// handleNextID returns the next value of each sequential column.
func (s *Server) handleNextID(w http.ResponseWriter, r *http.Request) {
	next, err := s.service.NextIDs(r.Context(), tableRef(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, next)
}

// handleCreateRow adds a row from a {"data": {...}} body.
func (s *Server) handleCreateRow(w http.ResponseWriter, r *http.Request) {
	var body rowPayload
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := body.record()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ref := tableRef(r)
	row, err := s.service.CreateRow(r.Context(), ref, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("row created",
		"table", ref.String(),
		"row_id", row.ID,
	)
	writeJSONStatus(w, http.StatusCreated, row)
}

// handleUpdateRow replaces a row's data from a {"data": {...}} body.
func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	var body rowPayload
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := body.record()
	if err != nil {
		s.fail(w, r, err)
		return
	}

	row, err := s.service.UpdateRow(r.Context(), tableRef(r), chi.URLParam(r, "rowID"), data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, row)
}

// handleDeleteRow removes a row. The API call is the confirmation.
func (s *Server) handleDeleteRow(w http.ResponseWriter, r *http.Request) {
	ref := tableRef(r)
	rowID := chi.URLParam(r, "rowID")
	if err := s.service.DeleteRow(r.Context(), ref, rowID); err != nil {
		s.fail(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("row deleted",
		"table", ref.String(),
		"row_id", rowID,
	)
	w.WriteHeader(http.StatusNoContent)
}

// batchRequest is the body of a batch edit.
type batchRequest struct {
	Rows []struct {
		ID   string      `json:"id"`
		Data core.Record `json:"data"`
	} `json:"rows"`
}

// batchRowResult is the outcome of one row of a batch edit.
type batchRowResult struct {
	ID    string    `json:"id"`
	OK    bool      `json:"ok"`
	Row   *core.Row `json:"row,omitempty"`
	Error string    `json:"error,omitempty"`
	Code  string    `json:"code,omitempty"`
}

// batchResponse summarizes a batch edit.
type batchResponse struct {
	Results   []batchRowResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// handleBatchEdit applies several row edits, best-effort. The response is
// 200 when every row saved and 207 when some failed.
func (s *Server) handleBatchEdit(w http.ResponseWriter, r *http.Request) {
	var body batchRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(body.Rows) == 0 {
		s.fail(w, r, errors.Join(errBadRequest, errors.New("no rows")))
		return
	}

	edits := make([]core.BatchEdit, len(body.Rows))
	for i, row := range body.Rows {
		data, err := rowPayload{Data: row.Data}.record()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		edits[i] = core.BatchEdit{RowID: row.ID, Data: data}
	}

	ref := tableRef(r)
	results, err := s.service.BatchEditRows(r.Context(), ref, edits)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := batchResponse{Results: make([]batchRowResult, len(results))}
	for i, res := range results {
		out := batchRowResult{ID: res.RowID, OK: res.Err == nil}
		if res.Err != nil {
			msg := core.MapError(res.Err)
			out.Error = res.Err.Error()
			out.Code = msg.Code
			resp.Failed++
		} else {
			row := res.Row
			out.Row = &row
			resp.Succeeded++
		}
		resp.Results[i] = out
	}

	logging.WithFields(r.Context(), "table", ref.String()).Info("batch edit",
		"succeeded", resp.Succeeded,
		"failed", resp.Failed,
	)

	status := http.StatusOK
	if resp.Failed > 0 {
		status = http.StatusMultiStatus
	}
	writeJSONStatus(w, status, resp)
}
