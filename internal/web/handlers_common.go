package web

// handlers_common.go holds request parsing helpers shared by the handlers.

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/planbook/internal/core"
	"github.com/go-chi/chi/v5"
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolParam reports whether a query flag is set to a true value.
func parseBoolParam(r *http.Request, name string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && b
}

// parseSort reads ?sort=<column>&dir=asc|desc.
func parseSort(r *http.Request) core.SortState {
	key := strings.TrimSpace(r.URL.Query().Get("sort"))
	if key == "" {
		return core.SortState{}
	}
	return core.SortState{
		Key:  key,
		Desc: strings.EqualFold(r.URL.Query().Get("dir"), "desc"),
	}
}

// tableRef builds the table address from the URL.
func tableRef(r *http.Request) core.TableRef {
	return core.TableRef{
		ProjectID: chi.URLParam(r, "projectID"),
		Section:   chi.URLParam(r, "section"),
		Table:     chi.URLParam(r, "table"),
	}
}

// decodeJSON reads the request body into v. Oversized bodies keep their
// *http.MaxBytesError so they map to 413.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

// rowPayload is the body of row create and update requests.
type rowPayload struct {
	Data core.Record `json:"data"`
}

// record converts json.Number values to their literal text, the form the
// sanitizer and duplicate guard compare on.
func (p rowPayload) record() (core.Record, error) {
	if p.Data == nil {
		return nil, fmt.Errorf("%w: missing data", errBadRequest)
	}
	out := make(core.Record, len(p.Data))
	for k, v := range p.Data {
		if n, ok := v.(json.Number); ok {
			out[k] = n.String()
			continue
		}
		switch v.(type) {
		case nil, string, bool:
			out[k] = v
		default:
			return nil, fmt.Errorf("%w: field %s must be a scalar", errBadRequest, k)
		}
	}
	return out, nil
}

// columnMeta describes one column in a schema response.
type columnMeta struct {
	Key      string        `json:"key"`
	Label    string        `json:"label"`
	Kind     string        `json:"kind"`
	Options  []core.Option `json:"options,omitempty"`
	Date     bool          `json:"date,omitempty"`
	Derived  bool          `json:"derived,omitempty"`
	Editable bool          `json:"editable"`
}

// tableSchema is the schema response of one table.
type tableSchema struct {
	core.TableInfo
	Columns    []columnMeta `json:"columns"`
	Sequential []string     `json:"sequential,omitempty"`
}

func buildSchema(def core.TableDefinition) tableSchema {
	cols := make([]columnMeta, len(def.Columns))
	for i, c := range def.Columns {
		cols[i] = columnMeta{
			Key:      c.Key,
			Label:    c.Label,
			Kind:     c.Kind.String(),
			Options:  c.Options,
			Date:     c.IsDate(),
			Derived:  c.IsDerived(),
			Editable: c.Editable(),
		}
	}
	return tableSchema{
		TableInfo:  def.Info,
		Columns:    cols,
		Sequential: core.SequentialColumns(def),
	}
}
