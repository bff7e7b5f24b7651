package client

import (
	"context"
	"errors"
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
	"github.com/JonMunkholm/planbook/internal/web"
)

var riskRef = core.TableRef{ProjectID: "apollo", Section: "M9", Table: "risk_mitigation_and_contingency"}

// newBackend starts a real server over a temp SQLite store. wrap, if set,
// decorates the router.
func newBackend(t *testing.T, sec config.SecurityConfig, wrap func(http.Handler) http.Handler) *httptest.Server {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "plan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	_, err = st.CreateProject(context.Background(), core.Project{ID: "apollo", Name: "Apollo"})
	require.NoError(t, err)

	cfg := &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 20},
		Security: sec,
	}
	svc := core.NewService(st, core.ServiceConfig{WriteWait: time.Second})
	var h http.Handler = web.NewServer(svc, cfg).Router()
	if wrap != nil {
		h = wrap(h)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T, ts *httptest.Server, opts ...Option) *Client {
	t.Helper()
	c, err := New(ts.URL, append([]Option{WithHTTPClient(ts.Client())}, opts...)...)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	c, err := New("http://localhost:8080/", WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/projects/a%20b/search?q=x",
		c.endpoint(map[string][]string{"q": {"x"}}, "projects", "a b", "search"))
	assert.Equal(t, time.Second, c.http.Timeout)
}

func TestClient_TableControllerOverREST(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, newBackend(t, config.SecurityConfig{}, nil))

	ctrl, err := c.Table(riskRef).Controller(ctx)
	require.NoError(t, err)

	draft, err := ctrl.OpenAdd()
	require.NoError(t, err)
	assert.Equal(t, "1", draft["risk_id"])

	row, err := ctrl.Add(ctx, core.Record{"risk_id": "1", "risk_description": "Supplier delay", "probability": ".5", "impact": "4"})
	require.NoError(t, err)
	assert.Equal(t, "2", row.Data["risk_exposure"])
	assert.Equal(t, 1, ctrl.RowCount())

	// The guard rejects locally before any request.
	_, err = ctrl.Add(ctx, core.Record{"risk_id": "01"})
	var dup *core.DuplicateError
	assert.ErrorAs(t, err, &dup)

	// The server enforces the same rule for callers that skip the controller.
	_, err = c.CreateRow(ctx, riskRef, core.Record{"risk_id": "01"})
	assert.ErrorIs(t, err, core.ErrDuplicate)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, []string{"risk_id"}, apiErr.Fields)

	edited, err := ctrl.Edit(ctx, row.ID, core.Record{"risk_id": "1", "probability": "0.5", "impact": "6"})
	require.NoError(t, err)
	assert.Equal(t, "3", edited.Data["risk_exposure"])

	got, err := c.GetRow(ctx, riskRef, row.ID)
	require.NoError(t, err)
	assert.Equal(t, "6", got.Data["impact"])

	next, err := c.NextIDs(ctx, riskRef)
	require.NoError(t, err)
	assert.Equal(t, "2", next["risk_id"])

	require.NoError(t, ctrl.Delete(ctx, row.ID))
	_, err = c.GetRow(ctx, riskRef, row.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	rows, err := c.ListRows(ctx, riskRef, ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	audit, err := c.Audit(ctx, "apollo", 10)
	require.NoError(t, err)
	require.Len(t, audit, 3)
	assert.Equal(t, "planctl", audit[0].UserAgent)
}

func TestClient_Projects(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, newBackend(t, config.SecurityConfig{}, nil))

	p, err := c.CreateProject(ctx, core.Project{ID: "gemini", Name: "Gemini"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.ID)

	_, err = c.CreateProject(ctx, core.Project{ID: "gemini"})
	assert.ErrorIs(t, err, core.ErrProjectExists)

	all, err := c.Projects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ref := core.TableRef{ProjectID: "gemini", Section: riskRef.Section, Table: riskRef.Table}
	_, err = c.CreateRow(ctx, ref, core.Record{"risk_id": "1"})
	require.NoError(t, err)

	purge, err := c.DeleteProject(ctx, "gemini")
	require.NoError(t, err)
	assert.Equal(t, int64(1), purge.Rows)

	_, err = c.GetProject(ctx, "gemini")
	assert.ErrorIs(t, err, core.ErrUnknownProject)
	_, err = c.ListRows(ctx, ref, ListOptions{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.ErrorIs(t, err, core.ErrUnknownProject)
}

func TestClient_ListOptions(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, newBackend(t, config.SecurityConfig{}, nil))

	for _, rec := range []core.Record{
		{"risk_id": "1", "risk_description": "Budget overrun"},
		{"risk_id": "2", "risk_description": "Budget freeze"},
		{"risk_id": "3", "risk_description": "Staff turnover"},
	} {
		_, err := c.CreateRow(ctx, riskRef, rec)
		require.NoError(t, err)
	}

	rows, err := c.ListRows(ctx, riskRef, ListOptions{Term: "budget", Sort: core.SortState{Key: "risk_id", Desc: true}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2", rows[0].Data["risk_id"])
}

func TestClient_BatchEdit(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, newBackend(t, config.SecurityConfig{}, nil))

	row, err := c.CreateRow(ctx, riskRef, core.Record{"risk_id": "1"})
	require.NoError(t, err)

	resp, err := c.BatchEdit(ctx, riskRef, []core.BatchEdit{
		{RowID: row.ID, Data: core.Record{"risk_id": "1", "status": "Closed"}},
		{RowID: "ghost", Data: core.Record{"risk_id": "2"}},
	})
	require.NoError(t, err, "partial failure is reported per row")
	assert.Equal(t, 1, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, "TBL001", resp.Results[1].Code)
}

func TestClient_SingleEntryController(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, newBackend(t, config.SecurityConfig{}, nil))

	ctrl := core.NewSingleEntryController(c.Entries("apollo"))
	require.NoError(t, ctrl.Load(ctx, "project_scope"))
	assert.False(t, ctrl.HasUnsavedChanges())

	ctrl.UpdateContent("project_scope", "Land on the moon")
	require.NoError(t, ctrl.UpdateImage(ctx, "project_scope", strings.NewReader("GIF89a-tiny")))
	assert.True(t, ctrl.IsDirty("project_scope"))

	_, err := ctrl.Save(ctx, "project_scope")
	require.NoError(t, err)
	assert.False(t, ctrl.HasUnsavedChanges())

	entry, err := c.GetEntry(ctx, "apollo", "project_scope")
	require.NoError(t, err)
	assert.Equal(t, "Land on the moon", entry.Content)
	require.NotNil(t, entry.ImageData)
	assert.True(t, strings.HasPrefix(*entry.ImageData, "data:image/gif;base64,"))

	entries, err := c.ListEntries(ctx, "apollo")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClient_SearchRegistryIsolatesFailingTables(t *testing.T) {
	ctx := context.Background()
	broken := "/tables/opportunity_register"
	ts := newBackend(t, config.SecurityConfig{}, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, broken) {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	c := newClient(t, ts)

	_, err := c.CreateRow(ctx, riskRef, core.Record{"risk_id": "1", "risk_description": "Launch window slips"})
	require.NoError(t, err)
	_, err = c.SaveEntry(ctx, "apollo", core.SingleEntry{Field: "assumptions", Content: "Launch pad available"})
	require.NoError(t, err)

	reg := c.SearchRegistry(ctx, "apollo")
	matches := reg.Recompute("launch")
	assert.Len(t, matches, 2)

	total := 0
	for _, sec := range reg.Grouped() {
		total += sec.Count()
	}
	assert.Equal(t, len(matches), total)

	server, err := c.Search(ctx, "apollo", "launch", false)
	require.NoError(t, err)
	assert.Equal(t, 2, server.Total)
}

func TestClient_APIKey(t *testing.T) {
	ctx := context.Background()
	ts := newBackend(t, config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}, nil)

	_, err := newClient(t, ts).Sections(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	sections, err := newClient(t, ts, WithAPIKey("k1")).Sections(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sections)

	assert.NoError(t, newClient(t, ts).Healthy(ctx))
}

func TestDecodeAPIError_PlainBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	t.Cleanup(ts.Close)

	_, err := newClient(t, ts).Sections(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream unavailable", apiErr.Message)
	assert.False(t, errors.Is(err, core.ErrNotFound))
}
