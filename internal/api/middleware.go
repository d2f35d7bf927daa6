package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Profile identification
const (
	ProfileHeader = "X-Profile-ID"
	ProfileCookie = "cs_profile"

	profileCookieMaxAge = 365 * 24 * 60 * 60
)

// profileMiddleware resolves the profile id from the X-Profile-ID header or
// the cs_profile cookie. Missing or malformed ids are replaced by a fresh one.
func (s *Server) profileMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID, ok := extractProfileID(r)
		if !ok {
			profileID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ProfileCookie,
				Value:    profileID,
				Path:     "/",
				MaxAge:   profileCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
			slog.Debug("new profile assigned", "profile", profileID)
		}
		w.Header().Set(ProfileHeader, profileID)

		next.ServeHTTP(w, r.WithContext(ContextWithProfile(r.Context(), profileID)))
	})
}

// sessionMiddleware attaches the profile session. An initialization failure
// still attaches the session so handlers can report its message.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID := ProfileFromContext(r.Context())

		sess, err := s.sessions.Get(r.Context(), profileID)
		if sess == nil {
			slog.Error("failed to open session", "error", err, "profile", profileID)
			respondError(w, http.StatusBadRequest, "invalid_request", "profile is required")
			return
		}
		if err != nil {
			slog.Warn("session not initialized", "error", err, "profile", profileID)
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), sess)))
	})
}

// extractProfileID returns a well-formed profile id from the request, if any
func extractProfileID(r *http.Request) (string, bool) {
	if v := r.Header.Get(ProfileHeader); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			return id.String(), true
		}
	}
	if c, err := r.Cookie(ProfileCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String(), true
		}
	}
	return "", false
}
