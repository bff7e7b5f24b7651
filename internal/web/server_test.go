package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/planbook/internal/config"
	"github.com/JonMunkholm/planbook/internal/core"
	_ "github.com/JonMunkholm/planbook/internal/core/tables"
	"github.com/JonMunkholm/planbook/internal/store"
)

const riskPath = "/api/projects/apollo/sections/M9/tables/risk_mitigation_and_contingency"

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		Writes:  config.WriteConfig{MaxConcurrent: 4, MaxWaitTime: time.Second, BatchParallelism: 2, MaxImageBytes: 64},
		Rate:    config.RateLimitConfig{Enabled: false},
		Search:  config.SearchConfig{PreviewSize: 10},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "plan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.CreateProject(context.Background(), core.Project{ID: "apollo", Name: "Apollo"})
	require.NoError(t, err)

	svc := core.NewService(st, core.ServiceConfig{
		MaxConcurrentWrites: cfg.Writes.MaxConcurrent,
		WriteWait:           cfg.Writes.MaxWaitTime,
		BatchParallelism:    cfg.Writes.BatchParallelism,
		MaxImageBytes:       cfg.Writes.MaxImageBytes,
		SearchPreviewSize:   cfg.Search.PreviewSize,
	})
	srv := NewServer(svc, cfg)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, testConfig())
	rec := do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Catalog(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, http.MethodGet, "/api/sections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sections := decode[[]core.SectionTables](t, rec)
	require.NotEmpty(t, sections)
	assert.Equal(t, "M4", sections[0].ID)

	rec = do(t, srv, http.MethodGet, "/api/sections/M9/tables/risk_mitigation_and_contingency/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	schema := decode[tableSchema](t, rec)
	assert.Equal(t, "Risk Register", schema.Label)
	assert.Equal(t, []string{"risk_id"}, schema.Sequential)

	var exposure columnMeta
	for _, c := range schema.Columns {
		if c.Key == "risk_exposure" {
			exposure = c
		}
	}
	assert.True(t, exposure.Derived)
	assert.False(t, exposure.Editable)

	rec = do(t, srv, http.MethodGet, "/api/sections/M9/tables/nope/schema", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "TBL002", decode[ErrorResponse](t, rec).Code)
}

func TestServer_RowLifecycle(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, http.MethodGet, riskPath+"/next-id", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", decode[core.Record](t, rec)["risk_id"])

	rec = do(t, srv, http.MethodPost, riskPath, map[string]any{"data": map[string]any{
		"risk_id":          1,
		"risk_description": "Supplier delay",
		"probability":      0.5,
		"impact":           "4",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[core.Row](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "2", created.Data["risk_exposure"])

	// Duplicate key after sanitizing
	rec = do(t, srv, http.MethodPost, riskPath, map[string]any{"data": map[string]any{"risk_id": "01 "}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "VAL001", errResp.Code)
	assert.Equal(t, []string{"risk_id"}, errResp.Fields)
	assert.Contains(t, errResp.Error, "Risk ID")

	// Enum outside its options
	rec = do(t, srv, http.MethodPost, riskPath, map[string]any{"data": map[string]any{"risk_id": "2", "status": "Maybe"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, []string{"status"}, decode[ErrorResponse](t, rec).Fields)

	rec = do(t, srv, http.MethodPut, riskPath+"/"+created.ID, map[string]any{"data": map[string]any{
		"risk_id": "1", "probability": "0.5", "impact": "10",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "5", decode[core.Row](t, rec).Data["risk_exposure"])

	rec = do(t, srv, http.MethodGet, riskPath+"/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", decode[core.Row](t, rec).Data["impact"])

	rec = do(t, srv, http.MethodGet, riskPath+"?q=supplier", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Row](t, rec), 0, "description was replaced by the update")

	rec = do(t, srv, http.MethodDelete, riskPath+"/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, srv, http.MethodDelete, riskPath+"/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, riskPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/projects/apollo/audit?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	audit := decode[[]core.AuditEntry](t, rec)
	require.Len(t, audit, 2)
	assert.Equal(t, core.ActionRowDelete, audit[0].Action)
}

func TestServer_BadRequests(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, riskPath, strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VAL003", decode[ErrorResponse](t, rec).Code)

	rec = do(t, srv, http.MethodPost, riskPath, map[string]any{"data": map[string]any{"risk_id": []int{1}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, riskPath, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_RowLimit(t *testing.T) {
	srv := newTestServer(t, testConfig())
	path := "/api/projects/apollo/sections/M13/tables/sam_status_reporting_and_communication_plan"

	rec := do(t, srv, http.MethodPost, path, map[string]any{"data": map[string]any{}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodPost, path, map[string]any{"data": map[string]any{}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "TBL003", decode[ErrorResponse](t, rec).Code)

	rec = do(t, srv, http.MethodGet, path+"/next-id", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_BatchEdit(t *testing.T) {
	srv := newTestServer(t, testConfig())

	var ids []string
	for _, id := range []string{"1", "2"} {
		rec := do(t, srv, http.MethodPost, riskPath, map[string]any{"data": map[string]any{"risk_id": id}})
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decode[core.Row](t, rec).ID)
	}

	rec := do(t, srv, http.MethodPost, riskPath+"/batch", map[string]any{"rows": []map[string]any{
		{"id": ids[0], "data": map[string]any{"risk_id": "1", "probability": "0.5", "impact": "2"}},
		{"id": ids[1], "data": map[string]any{"risk_id": "1"}},
		{"id": "missing", "data": map[string]any{"risk_id": "9"}},
	}})
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

	resp := decode[batchResponse](t, rec)
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 2, resp.Failed)
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].OK)
	assert.Equal(t, "1", resp.Results[0].Row.Data["risk_exposure"])
	assert.Equal(t, "VAL001", resp.Results[1].Code)
	assert.Equal(t, "TBL001", resp.Results[2].Code)

	rec = do(t, srv, http.MethodPost, riskPath+"/batch", map[string]any{"rows": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_BatchEditCollision(t *testing.T) {
	srv := newTestServer(t, testConfig())

	var ids []string
	for _, id := range []string{"1", "2"} {
		rec := do(t, srv, http.MethodPost, riskPath, map[string]any{"data": map[string]any{"risk_id": id}})
		require.Equal(t, http.StatusCreated, rec.Code)
		ids = append(ids, decode[core.Row](t, rec).ID)
	}

	rec := do(t, srv, http.MethodPost, riskPath+"/batch", map[string]any{"rows": []map[string]any{
		{"id": ids[0], "data": map[string]any{"risk_id": "7"}},
		{"id": ids[1], "data": map[string]any{"risk_id": "7"}},
	}})
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
	resp := decode[batchResponse](t, rec)
	assert.True(t, resp.Results[0].OK)
	assert.Equal(t, "VAL001", resp.Results[1].Code)

	rec = do(t, srv, http.MethodGet, riskPath, nil)
	rows := decode[[]core.Row](t, rec)
	require.Len(t, rows, 2)
	assert.NotEqual(t, rows[0].Data["risk_id"], rows[1].Data["risk_id"])
}

func TestServer_Projects(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, http.MethodPost, "/api/projects", map[string]any{"id": "gemini", "name": "Gemini"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Gemini", decode[core.Project](t, rec).Name)

	rec = do(t, srv, http.MethodPost, "/api/projects", map[string]any{"id": "gemini"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "PRJ002", decode[ErrorResponse](t, rec).Code)

	rec = do(t, srv, http.MethodPost, "/api/projects", map[string]any{"id": "no spaces"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.Project](t, rec), 2)

	rec = do(t, srv, http.MethodGet, "/api/projects/gemini", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	geminiRows := "/api/projects/gemini/sections/M9/tables/risk_mitigation_and_contingency"
	rec = do(t, srv, http.MethodPost, geminiRows, map[string]any{"data": map[string]any{"risk_id": "1"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/projects/gemini", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[core.ProjectPurge](t, rec).Rows)

	for _, path := range []string{"/api/projects/gemini", geminiRows, "/api/projects/gemini/single-entry", "/api/projects/gemini/audit"} {
		rec = do(t, srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "PRJ001", decode[ErrorResponse](t, rec).Code, path)
	}

	rec = do(t, srv, http.MethodGet, riskPath, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "other projects are untouched")
}

func TestServer_SingleEntries(t *testing.T) {
	srv := newTestServer(t, testConfig())
	base := "/api/projects/apollo/single-entry"

	rec := do(t, srv, http.MethodGet, base+"/project_scope", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[core.SingleEntry](t, rec)
	assert.Equal(t, "project_scope", empty.Field)
	assert.Empty(t, empty.Content)
	assert.Nil(t, empty.ImageData)

	rec = do(t, srv, http.MethodPost, base, map[string]any{
		"field_name": "project_scope",
		"content":    "Deliver the lunar lander",
		"image_data": nil,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, srv, http.MethodGet, base+"/project_scope", nil)
	assert.Equal(t, "Deliver the lunar lander", decode[core.SingleEntry](t, rec).Content)

	rec = do(t, srv, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]core.SingleEntry](t, rec), 1)

	rec = do(t, srv, http.MethodPost, base, map[string]any{"content": "orphan"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	big := "data:image/png;base64," + strings.Repeat("A", 400)
	rec = do(t, srv, http.MethodPost, base, map[string]any{"field_name": "diagram", "image_data": big})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "VAL004", decode[ErrorResponse](t, rec).Code)
}

func TestServer_Search(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := do(t, srv, http.MethodPost, riskPath, map[string]any{"data": map[string]any{"risk_id": "1", "risk_description": "Supplier delay"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, srv, http.MethodPost, "/api/projects/apollo/single-entry", map[string]any{"field_name": "assumptions", "content": "Supplier stays solvent"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/projects/apollo/search?q=supplier", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[core.SearchResult](t, rec)
	assert.Equal(t, 2, result.Total)
	assert.Len(t, result.Preview, 2)

	rec = do(t, srv, http.MethodGet, "/api/projects/apollo/search?q=supplier&all=true", nil)
	grouped := decode[core.SearchResult](t, rec)
	count := 0
	for _, sec := range grouped.Sections {
		count += sec.Count()
	}
	assert.Equal(t, grouped.Total, count)

	rec = do(t, srv, http.MethodGet, "/api/projects/apollo/search?q=supplier", nil, "HX-Request", "true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `class="search-preview"`)

	rec = do(t, srv, http.MethodGet, "/api/projects/other/search?q=supplier", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_HTMXErrorFragment(t *testing.T) {
	srv := newTestServer(t, testConfig())
	rec := do(t, srv, http.MethodGet, "/api/projects/apollo/sections/M9/tables/nope", nil, "HX-Request", "true")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="alert alert-error"`)
}

func TestServer_APIKeyAndRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 3, WriteLimit: 1}
	srv := newTestServer(t, cfg)

	rec := do(t, srv, http.MethodGet, "/api/sections", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health is not behind the API key")

	rec = do(t, srv, http.MethodGet, "/api/sections", nil, "X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/sections", nil, "X-API-Key", "secret")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.DuplicateError{Message: "dup"}, http.StatusConflict},
		{core.ValidationError{Field: "x"}, http.StatusUnprocessableEntity},
		{core.ErrNotFound, http.StatusNotFound},
		{core.ErrUnknownTable, http.StatusNotFound},
		{core.ErrUnknownProject, http.StatusNotFound},
		{core.ErrProjectExists, http.StatusConflict},
		{&core.RowLimitError{MaxRows: 1}, http.StatusConflict},
		{core.ErrEditInProgress, http.StatusConflict},
		{core.ErrTooManyWrites, http.StatusServiceUnavailable},
		{core.ErrImageTooLarge, http.StatusRequestEntityTooLarge},
		{errBadRequest, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), "statusFor(%v)", tt.err)
	}
}
