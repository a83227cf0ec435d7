package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/formlead/survey-engine/internal/config"
	"github.com/formlead/survey-engine/internal/definitions"
	"github.com/formlead/survey-engine/internal/questionnaire"
	"github.com/formlead/survey-engine/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config         config.ServerConfig
	router         *chi.Mux
	manager        questionnaire.Manager
	defLoader      *definitions.Loader
	authMiddleware *AuthMiddleware
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	manager questionnaire.Manager,
	loader *definitions.Loader,
	repo storage.Repository,
) *Server {
	s := &Server{
		config:         cfg,
		manager:        manager,
		defLoader:      loader,
		authMiddleware: NewAuthMiddleware(repo),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (outside versioned API - public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// Public respondent-facing routes. These are reached through a link
	// slug, never an API key.
	r.Route("/public/q/{slug}", func(r chi.Router) {
		r.Get("/", s.handleResolveLink)
		r.Post("/logic", s.handleEvaluateLogic)
		r.Post("/responses", s.handleSubmitViaLink)
	})

	// API v1 routes (protected by authentication)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware.Authenticate)

		// Questionnaires
		r.Route("/questionnaires", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("questionnaires:read")).Get("/", s.handleListQuestionnaires)
			r.With(s.authMiddleware.RequirePermission("questionnaires:write")).Post("/", s.handleCreateQuestionnaire)

			r.Route("/{id}", func(r chi.Router) {
				r.With(s.authMiddleware.RequirePermission("questionnaires:read")).Get("/", s.handleGetQuestionnaire)
				r.With(s.authMiddleware.RequirePermission("questionnaires:write")).Put("/", s.handleUpdateQuestionnaire)
				r.With(s.authMiddleware.RequirePermission("questionnaires:write")).Delete("/", s.handleDeactivateQuestionnaire)
				r.With(s.authMiddleware.RequirePermission("links:read")).Get("/links", s.handleListLinks)
			})
		})

		// Responses
		r.Route("/responses", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("responses:read")).Get("/", s.handleListResponses)
			r.With(s.authMiddleware.RequirePermission("responses:write")).Post("/", s.handleSubmitResponse)

			r.Route("/{id}", func(r chi.Router) {
				r.With(s.authMiddleware.RequirePermission("responses:read")).Get("/", s.handleGetResponse)
				r.With(s.authMiddleware.RequirePermission("leads:write")).Post("/convert", s.handleConvertLead)
			})
		})

		// Links
		r.Route("/links", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("links:write")).Post("/", s.handleCreateLink)
			r.With(s.authMiddleware.RequirePermission("links:write")).Put("/{slug}", s.handleUpdateLink)
		})

		// Definitions (on-disk questionnaire sources)
		r.Route("/definitions", func(r chi.Router) {
			r.With(s.authMiddleware.RequirePermission("questionnaires:read")).Get("/", s.handleListDefinitions)
			r.With(s.authMiddleware.RequirePermission("questionnaires:read")).Get("/{id}", s.handleGetDefinition)
			r.With(s.authMiddleware.RequirePermission("questionnaires:write")).Post("/{id}/import", s.handleImportDefinition)
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
