package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/terra-clan/certificate-studio/internal/app"
	"github.com/terra-clan/certificate-studio/internal/config"
	"github.com/terra-clan/certificate-studio/internal/health"
	"github.com/terra-clan/certificate-studio/internal/sessions"
)

// DataStore is the loaded documents plus the ability to reload them
type DataStore interface {
	app.DataSource
	Reload(ctx context.Context) error
	LoadedAt() time.Time
}

// Deps are the components the server routes to
type Deps struct {
	Data            DataStore
	Sessions        *sessions.Manager
	Health          *health.Registry
	DefaultLanguage string
}

// Server represents the HTTP API server
type Server struct {
	config      config.ServerConfig
	router      *chi.Mux
	data        DataStore
	sessions    *sessions.Manager
	health      *health.Registry
	defaultLang string
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	if deps.Health == nil {
		deps.Health = health.NewRegistry()
	}
	if deps.DefaultLanguage == "" {
		deps.DefaultLanguage = app.DefaultLanguage
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		config:      cfg,
		data:        deps.Data,
		sessions:    deps.Sessions,
		health:      deps.Health,
		defaultLang: deps.DefaultLanguage,
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

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID", ProfileHeader},
		ExposedHeaders:   []string{"X-Request-ID", ProfileHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		// the live channel outlives the request timeout
		r.With(s.profileMiddleware, s.sessionMiddleware).Get("/live", s.handleLive)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.config.RequestTimeout))

			r.Get("/languages", s.handleListLanguages)
			r.Get("/translations/{lang}", s.handleGetTranslations)
			r.Get("/courses", s.handleListCourses)
			r.Get("/courses/{courseId}/levels", s.handleListLevels)

			r.Post("/admin/reload", s.handleReload)

			r.Group(func(r chi.Router) {
				r.Use(s.profileMiddleware, s.sessionMiddleware)

				r.Route("/state", func(r chi.Router) {
					r.Get("/", s.handleGetState)
					r.Delete("/", s.handleResetState)
					r.Post("/message/dismiss", s.handleDismissMessage)
					r.Post("/{event}", s.handleEvent)
				})
				r.Get("/preview.png", s.handlePreview)
				r.Post("/export", s.handleExport)
			})
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
