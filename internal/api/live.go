package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/certificate-studio/internal/sessions"
)

const (
	liveReadLimit   = 64 << 10
	liveWriteWait   = 10 * time.Second
	liveIdleTimeout = 10 * time.Minute
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Live message types sent to the client
const (
	LiveView  = "view"
	LiveError = "error"
)

// liveMessage is one frame sent on the live channel
type liveMessage struct {
	Type  string         `json:"type"`
	Data  *stateResponse `json:"data,omitempty"`
	Error *apiError      `json:"error,omitempty"`
}

// handleLive accepts events as JSON frames and answers each with the new
// view, or an error frame. The first frame is the current view.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	sess := SessionFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(liveReadLimit)
	slog.Info("live channel connected", "profile", sess.ProfileID)

	if err := s.sendView(conn, sess); err != nil {
		return
	}

	ctx := r.Context()
	for {
		_ = conn.SetReadDeadline(time.Now().Add(liveIdleTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		sess.Touch(time.Now())

		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil {
			slog.Debug("invalid message format", "error", err)
			if err := s.sendLive(conn, liveMessage{
				Type:  LiveError,
				Error: &apiError{Code: "invalid_request", Message: "invalid JSON message"},
			}); err != nil {
				break
			}
			continue
		}

		if err := apply(ctx, sess, ev); err != nil {
			_, apiErr := actionError(sess, err)
			if err := s.sendLive(conn, liveMessage{Type: LiveError, Error: &apiErr}); err != nil {
				break
			}
			continue
		}

		if err := s.sendView(conn, sess); err != nil {
			break
		}
	}

	slog.Info("live channel disconnected", "profile", sess.ProfileID)
}

func (s *Server) sendView(conn *websocket.Conn, sess *sessions.Session) error {
	state := newStateResponse(sess)
	return s.sendLive(conn, liveMessage{Type: LiveView, Data: &state})
}

func (s *Server) sendLive(conn *websocket.Conn, msg liveMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal live message", "error", err)
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send live message", "error", err)
		return err
	}
	return nil
}
