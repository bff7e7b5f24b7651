// Package client is a REST client for the planbook API.
//
// Client.Table and Client.Entries return adapters that satisfy
// core.TableAdapter and core.SingleEntryAdapter, so table and single-entry
// controllers can run against a remote server exactly as against a local
// store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/planbook/internal/core"
)

// DefaultTimeout bounds each request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// Client talks to one planbook server.
type Client struct {
	base      *url.URL
	http      *http.Client
	apiKey    string
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithAPIKey sends key as X-API-Key on every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header recorded in the audit log.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:      u,
		http:      &http.Client{Timeout: DefaultTimeout},
		userAgent: "planctl",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// APIError is a non-2xx response. It unwraps to the matching core sentinel
// so callers can use errors.Is(err, core.ErrNotFound) and friends.
type APIError struct {
	Status  int      `json:"-"`
	Message string   `json:"error"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Fields  []string `json:"fields,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (HTTP %d, code %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// codeSentinels maps server error codes back to core errors.
var codeSentinels = map[string]error{
	"PRJ001":  core.ErrUnknownProject,
	"PRJ002":  core.ErrProjectExists,
	"TBL001":  core.ErrNotFound,
	"TBL002":  core.ErrUnknownTable,
	"TBL003":  core.ErrRowLimit,
	"TBL004":  core.ErrEditInProgress,
	"VAL001":  core.ErrDuplicate,
	"VAL004":  core.ErrImageTooLarge,
	"RATE002": core.ErrTooManyWrites,
}

func (e *APIError) Unwrap() error {
	if err, ok := codeSentinels[e.Code]; ok {
		return err
	}
	if e.Status == http.StatusNotFound {
		return core.ErrNotFound
	}
	return nil
}

// endpoint joins escaped path segments onto the base URL.
func (c *Client) endpoint(query url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := *c.base
	prefix := strings.TrimRight(u.Path, "/") + "/api/"
	u.Path = prefix + strings.Join(segments, "/")
	u.RawPath = prefix + strings.Join(escaped, "/")
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends a JSON request and decodes a JSON response into out.
// Responses with a status in accept besides 2xx are decoded too.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any, accept ...int) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	for _, s := range accept {
		ok = ok || resp.StatusCode == s
	}
	if !ok {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

// Sections returns the server's table catalog.
func (c *Client) Sections(ctx context.Context) ([]core.SectionTables, error) {
	var out []core.SectionTables
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "sections"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Projects lists every project on the server.
func (c *Client) Projects(ctx context.Context) ([]core.Project, error) {
	var out []core.Project
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "projects"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject registers a project.
func (c *Client) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	body := struct {
		ID   string `json:"id"`
		Name string `json:"name,omitempty"`
	}{p.ID, p.Name}

	var out core.Project
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, "projects"), body, &out)
	return out, err
}

// GetProject fetches one project.
func (c *Client) GetProject(ctx context.Context, id string) (core.Project, error) {
	var out core.Project
	err := c.do(ctx, http.MethodGet, c.endpoint(nil, "projects", id), nil, &out)
	return out, err
}

// DeleteProject removes a project and everything stored under it.
func (c *Client) DeleteProject(ctx context.Context, id string) (core.ProjectPurge, error) {
	var out core.ProjectPurge
	err := c.do(ctx, http.MethodDelete, c.endpoint(nil, "projects", id), nil, &out)
	return out, err
}

// ListOptions narrows a row listing.
type ListOptions struct {
	Term string
	Sort core.SortState
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Term != "" {
		q.Set("q", o.Term)
	}
	if o.Sort.Key != "" {
		q.Set("sort", o.Sort.Key)
		if o.Sort.Desc {
			q.Set("dir", "desc")
		}
	}
	return q
}

func tableSegments(ref core.TableRef, rest ...string) []string {
	return append([]string{"projects", ref.ProjectID, "sections", ref.Section, "tables", ref.Table}, rest...)
}

// ListRows fetches a table's rows.
func (c *Client) ListRows(ctx context.Context, ref core.TableRef, opts ListOptions) ([]core.Row, error) {
	var rows []core.Row
	if err := c.do(ctx, http.MethodGet, c.endpoint(opts.query(), tableSegments(ref)...), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetRow fetches one row.
func (c *Client) GetRow(ctx context.Context, ref core.TableRef, rowID string) (core.Row, error) {
	var row core.Row
	err := c.do(ctx, http.MethodGet, c.endpoint(nil, tableSegments(ref, rowID)...), nil, &row)
	return row, err
}

// NextIDs returns the server's next value for each sequential column.
func (c *Client) NextIDs(ctx context.Context, ref core.TableRef) (core.Record, error) {
	var next core.Record
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, tableSegments(ref, "next-id")...), nil, &next); err != nil {
		return nil, err
	}
	return next, nil
}

type rowBody struct {
	Data core.Record `json:"data"`
}

// CreateRow posts a new row.
func (c *Client) CreateRow(ctx context.Context, ref core.TableRef, data core.Record) (core.Row, error) {
	var row core.Row
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, tableSegments(ref)...), rowBody{Data: data}, &row)
	return row, err
}

// UpdateRow replaces a row's data.
func (c *Client) UpdateRow(ctx context.Context, ref core.TableRef, rowID string, data core.Record) (core.Row, error) {
	var row core.Row
	err := c.do(ctx, http.MethodPut, c.endpoint(nil, tableSegments(ref, rowID)...), rowBody{Data: data}, &row)
	return row, err
}

// DeleteRow removes a row.
func (c *Client) DeleteRow(ctx context.Context, ref core.TableRef, rowID string) error {
	return c.do(ctx, http.MethodDelete, c.endpoint(nil, tableSegments(ref, rowID)...), nil, nil)
}

// BatchRowResult is the server's outcome for one row of a batch edit.
type BatchRowResult struct {
	ID    string    `json:"id"`
	OK    bool      `json:"ok"`
	Row   *core.Row `json:"row,omitempty"`
	Error string    `json:"error,omitempty"`
	Code  string    `json:"code,omitempty"`
}

// BatchResponse summarizes a batch edit.
type BatchResponse struct {
	Results   []BatchRowResult `json:"results"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
}

// BatchEdit sends several row edits in one request. Partial failure is
// not an error; inspect the per-row results.
func (c *Client) BatchEdit(ctx context.Context, ref core.TableRef, edits []core.BatchEdit) (BatchResponse, error) {
	body := struct {
		Rows []core.BatchEdit `json:"rows"`
	}{Rows: edits}

	var out BatchResponse
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, tableSegments(ref, "batch")...), body, &out, http.StatusMultiStatus)
	return out, err
}

// GetEntry fetches one single entry. Unsaved fields come back empty.
func (c *Client) GetEntry(ctx context.Context, projectID, field string) (core.SingleEntry, error) {
	var entry core.SingleEntry
	err := c.do(ctx, http.MethodGet, c.endpoint(nil, "projects", projectID, "single-entry", field), nil, &entry)
	return entry, err
}

// ListEntries fetches every saved single entry of a project.
func (c *Client) ListEntries(ctx context.Context, projectID string) ([]core.SingleEntry, error) {
	var entries []core.SingleEntry
	if err := c.do(ctx, http.MethodGet, c.endpoint(nil, "projects", projectID, "single-entry"), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SaveEntry upserts a single entry.
func (c *Client) SaveEntry(ctx context.Context, projectID string, entry core.SingleEntry) (core.SingleEntry, error) {
	body := struct {
		Field     string  `json:"field_name"`
		Content   string  `json:"content"`
		ImageData *string `json:"image_data"`
	}{entry.Field, entry.Content, entry.ImageData}

	var saved core.SingleEntry
	err := c.do(ctx, http.MethodPost, c.endpoint(nil, "projects", projectID, "single-entry"), body, &saved)
	return saved, err
}

// Search runs the server-side project search.
func (c *Client) Search(ctx context.Context, projectID, term string, all bool) (core.SearchResult, error) {
	q := url.Values{"q": {term}}
	if all {
		q.Set("all", "true")
	}
	var out core.SearchResult
	err := c.do(ctx, http.MethodGet, c.endpoint(q, "projects", projectID, "search"), nil, &out)
	return out, err
}

// Audit returns the most recent audit entries of a project.
func (c *Client) Audit(ctx context.Context, projectID string, limit int) ([]core.AuditEntry, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []core.AuditEntry
	if err := c.do(ctx, http.MethodGet, c.endpoint(q, "projects", projectID, "audit"), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Healthy reports whether the server answers its health check.
func (c *Client) Healthy(ctx context.Context) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/healthz"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.New("health check: " + resp.Status)
	}
	return nil
}
