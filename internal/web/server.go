// Package web provides the HTTP server and REST handlers for plan tables,
// single entries and project search.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/planbook/internal/config"
	"github.com/JonMunkholm/planbook/internal/core"
	webmw "github.com/JonMunkholm/planbook/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP server for the plan editor backend.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	limiter      *webmw.RateLimiter
	writeLimiter *webmw.RateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.limiter = webmw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute)
		s.writeLimiter = webmw.NewRateLimiter(s.cfg.Rate.WriteLimit)
		s.router.Use(s.limiter.Middleware)
	}

	s.router.Use(clientInfo)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(webmw.APIKeyAuth(&s.cfg.Security))
		r.Use(middleware.RequestSize(s.cfg.Server.MaxBodyBytes))

		// Catalog
		r.Get("/sections", s.handleListSections)
		r.Get("/sections/{section}/tables/{table}/schema", s.handleTableSchema)

		// Projects
		r.Get("/projects", s.handleListProjects)
		r.With(s.writeMiddleware()...).Post("/projects", s.handleCreateProject)

		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.With(s.writeMiddleware()...).Delete("/", s.handleDeleteProject)

			// Table rows
			r.Route("/sections/{section}/tables/{table}", func(r chi.Router) {
				r.Get("/", s.handleListRows)
				r.Get("/next-id", s.handleNextID)
				r.Get("/{rowID}", s.handleGetRow)

				r.Group(func(r chi.Router) {
					if s.writeLimiter != nil {
						r.Use(s.writeLimiter.Middleware)
					}
					r.Post("/", s.handleCreateRow)
					r.Post("/batch", s.handleBatchEdit)
					r.Put("/{rowID}", s.handleUpdateRow)
					r.Delete("/{rowID}", s.handleDeleteRow)
				})
			})

			// Single entries
			r.Get("/single-entry", s.handleListEntries)
			r.Get("/single-entry/{field}", s.handleGetEntry)
			r.With(s.writeMiddleware()...).Post("/single-entry", s.handleSaveEntry)

			// Search and audit
			r.Get("/search", s.handleSearch)
			r.Get("/audit", s.handleAuditLog)
		})
	})
}

func (s *Server) writeMiddleware() []func(http.Handler) http.Handler {
	if s.writeLimiter == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{s.writeLimiter.Middleware}
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiters.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.writeLimiter != nil {
		s.writeLimiter.Close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// handleHealth reports liveness plus write limiter occupancy.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"tables": core.TableCount(),
		"writes": s.service.Limiter().Status(),
	})
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Single-entry images are served inline as data URLs
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'")
		}

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
