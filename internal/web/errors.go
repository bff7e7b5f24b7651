package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.fail(w, r, err), which picks the status with statusFor
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered as JSON, or as an HTML fragment for HTMX

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/planbook/internal/core"
	"github.com/JonMunkholm/planbook/internal/web/templates"
	"github.com/go-chi/chi/v5/middleware"
)

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("invalid request body")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Fields  []string `json:"fields,omitempty"`
}

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	var dup *core.DuplicateError
	var ve core.ValidationError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &dup):
		return http.StatusConflict
	case errors.As(err, &mbe), errors.Is(err, core.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrUnknownTable), errors.Is(err, core.ErrUnknownProject):
		return http.StatusNotFound
	case errors.Is(err, core.ErrRowLimit), errors.Is(err, core.ErrEditInProgress), errors.Is(err, core.ErrProjectExists):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyWrites):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail responds to err with the status statusFor picks.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns a JSON body,
// or an HTML alert fragment for HTMX requests.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}

	if isHTMX(r) {
		renderErrorPartial(w, r, userMsg, statusCode)
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var dup *core.DuplicateError
	var ve core.ValidationError
	switch {
	case errors.As(err, &dup):
		// Duplicate messages name the offending labels
		resp.Error = dup.Message
		resp.Fields = dup.Fields
	case errors.As(err, &ve):
		if ve.Field != "" {
			resp.Fields = []string{ve.Field}
		}
	}
	writeJSONStatus(w, statusCode, resp)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
