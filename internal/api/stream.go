package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origin checks are handled by the CORS layer for the REST endpoints;
	// the stream accepts the same local and configured frontends.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type streamRequest struct {
	Action string `json:"action"`
}

// handleStream serves the websocket playback channel for one story. The
// client drives: each {"action":"step"} message advances the story by one
// action and gets the step result back; {"action":"state"} returns the
// current state without advancing. The story is saved after every step,
// same as the REST path.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, name string) {
	ctrl, err := s.Registry.Get(name)
	if err != nil {
		s.storyError(w, name, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "story", name, "error", err)
		return
	}
	defer conn.Close()

	slog.Info("stream opened", "story", name, "remote", r.RemoteAddr)

	for {
		var req streamRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("stream read failed", "story", name, "error", err)
			}
			return
		}

		switch req.Action {
		case "step":
			result := ctrl.SimulateStep()
			if err := s.DB.SaveStory(name, ctrl.Record()); err != nil {
				slog.Error("save after step failed", "story", name, "error", err)
			}
			if err := conn.WriteJSON(map[string]any{"type": "step", "data": result}); err != nil {
				return
			}
		case "state":
			if err := conn.WriteJSON(map[string]any{"type": "state", "data": ctrl.GetCurrentState()}); err != nil {
				return
			}
		default:
			if err := conn.WriteJSON(map[string]any{"type": "error", "error": "unknown action"}); err != nil {
				return
			}
		}
	}
}
