package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/certificate-studio/internal/app"
	"github.com/terra-clan/certificate-studio/internal/export"
	"github.com/terra-clan/certificate-studio/internal/sessions"
)

const maxEventBody = 64 << 10

// stateResponse is the full picture of one profile
type stateResponse struct {
	Profile string        `json:"profile"`
	State   app.State     `json:"state"`
	View    app.ViewModel `json:"view"`
}

func newStateResponse(sess *sessions.Session) stateResponse {
	return stateResponse{
		Profile: sess.ProfileID,
		State:   sess.Controller.State(),
		View:    sess.View.Model(),
	}
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newStateResponse(SessionFromContext(r.Context())))
}

func (s *Server) handleResetState(w http.ResponseWriter, r *http.Request) {
	profileID := ProfileFromContext(r.Context())
	if err := s.sessions.Reset(r.Context(), profileID); err != nil {
		slog.Error("failed to reset profile", "error", err, "profile", profileID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to reset profile")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "profile reset",
	})
}

func (s *Server) handleDismissMessage(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())
	sess.Controller.DismissMessage()
	respondJSON(w, http.StatusOK, newStateResponse(sess))
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	var ev Event
	if err := json.NewDecoder(io.LimitReader(r.Body, maxEventBody)).Decode(&ev); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	// the path names the event, not the body
	ev.Type = chi.URLParam(r, "event")

	if err := apply(r.Context(), sess, ev); err != nil {
		s.respondActionError(w, sess, err)
		return
	}
	respondJSON(w, http.StatusOK, newStateResponse(sess))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	var buf bytes.Buffer
	if err := sess.Controller.Preview(r.Context(), &buf); err != nil {
		s.respondActionError(w, sess, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("failed to write preview", "error", err)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	var buf bytes.Buffer
	if err := sess.Controller.Export(r.Context(), &buf); err != nil {
		s.respondActionError(w, sess, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("failed to write certificate", "error", err)
	}
}

// actionError maps a controller error onto a status, code and message
func actionError(sess *sessions.Session, err error) (int, apiError) {
	message := err.Error()
	if m := sess.View.Model(); m.MessageVisible && m.Message != "" {
		message = m.Message
	}

	var ve *validationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, apiError{Code: "validation_error", Message: ve.Error()}
	case errors.Is(err, app.ErrNotInitialized):
		return http.StatusServiceUnavailable, apiError{Code: "not_ready", Message: message}
	case errors.Is(err, app.ErrUnknownLanguage),
		errors.Is(err, app.ErrUnknownCourse),
		errors.Is(err, app.ErrUnknownLevel):
		return http.StatusNotFound, apiError{Code: "not_found", Message: err.Error()}
	case errors.Is(err, app.ErrInvalidDate):
		return http.StatusBadRequest, apiError{Code: "validation_error", Message: err.Error()}
	case errors.Is(err, export.ErrNameRequired):
		return http.StatusUnprocessableEntity, apiError{Code: "validation_error", Message: message}
	default:
		slog.Error("request failed", "error", err, "profile", sess.ProfileID)
		return http.StatusInternalServerError, apiError{Code: "internal_error", Message: message}
	}
}

func (s *Server) respondActionError(w http.ResponseWriter, sess *sessions.Session, err error) {
	status, apiErr := actionError(sess, err)
	respondError(w, status, apiErr.Code, apiErr.Message)
}
