package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/certificate-studio/internal/catalog"
	"github.com/terra-clan/certificate-studio/internal/health"
	"github.com/terra-clan/certificate-studio/internal/models"
	"github.com/terra-clan/certificate-studio/internal/selection"
)

// Response helpers

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := s.health.HealthCheckAll(r.Context())
	if !health.Healthy(results) {
		var failing []string
		for name, err := range results {
			if err != nil {
				slog.Warn("readiness check failed", "check", name, "error", err)
				failing = append(failing, name)
			}
		}
		sort.Strings(failing)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready: "+strings.Join(failing, ", "))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Catalog handlers

// documents returns the loaded documents or answers 503 with the startup message
func (s *Server) documents(w http.ResponseWriter) (*models.Catalog, models.Translations, bool) {
	cat, tr, err := s.data.Documents()
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", catalog.StartupMessage(err))
		return nil, nil, false
	}
	return cat, tr, true
}

func (s *Server) queryLanguage(r *http.Request) string {
	if lang := strings.TrimSpace(r.URL.Query().Get("lang")); lang != "" {
		return lang
	}
	return s.defaultLang
}

func (s *Server) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	_, tr, ok := s.documents(w)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"languages": tr.Languages(),
		"default":   s.defaultLang,
	})
}

func (s *Server) handleGetTranslations(w http.ResponseWriter, r *http.Request) {
	_, tr, ok := s.documents(w)
	if !ok {
		return
	}

	lang := chi.URLParam(r, "lang")
	if !tr.Has(lang) {
		respondError(w, http.StatusNotFound, "not_found", "language not found")
		return
	}
	respondJSON(w, http.StatusOK, tr.Table(lang))
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	cat, _, ok := s.documents(w)
	if !ok {
		return
	}

	courses := selection.ListCourses(cat, s.queryLanguage(r))
	if courses == nil {
		courses = []models.Option{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"courses": courses,
		"total":   len(courses),
	})
}

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	cat, _, ok := s.documents(w)
	if !ok {
		return
	}

	edition := cat.Edition(chi.URLParam(r, "courseId"), s.queryLanguage(r))
	if edition == nil {
		respondError(w, http.StatusNotFound, "not_found", "course not found")
		return
	}

	levels := edition.Levels
	if levels == nil {
		levels = []models.Level{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"title":  edition.Title,
		"levels": levels,
		"total":  len(levels),
	})
}

// Admin handlers

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.data.Reload(r.Context()); err != nil {
		var le *catalog.LoadError
		if errors.As(err, &le) {
			respondError(w, http.StatusBadGateway, "reload_failed", catalog.StartupMessage(err))
			return
		}
		slog.Error("failed to reload data documents", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to reload data")
		return
	}

	s.sessions.RefreshAll(r.Context())

	respondJSON(w, http.StatusOK, map[string]any{
		"loaded_at": s.data.LoadedAt().UTC().Format(time.RFC3339),
		"sessions":  s.sessions.Len(),
	})
}
