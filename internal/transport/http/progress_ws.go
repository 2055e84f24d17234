package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"cartie-training-service/internal/app"
	"cartie-training-service/internal/logging"
)

// ProgressWSHandler accepts a websocket per player session and folds the
// stream of watch-position ticks into the progress tracker, acking each
// tick with the resulting completion state.
type ProgressWSHandler struct {
	progress *app.ProgressService
	log      *logging.Logger
	upgrader websocket.Upgrader
}

func NewProgressWSHandler(progress *app.ProgressService, log *logging.Logger) *ProgressWSHandler {
	return &ProgressWSHandler{
		progress: progress,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundTick struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type tickPayload struct {
	SectionID      string `json:"sectionId"`
	VideoID        string `json:"videoId"`
	WatchedSeconds int    `json:"watchedSeconds"`
}

type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type wsError struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the tick loop. Reads and writes
// stay on this goroutine, so no write-synchronization is needed.
func (h *ProgressWSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	locationID := r.URL.Query().Get("locationId")
	if userID == "" || locationID == "" {
		http.Error(w, "missing userId or locationId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var inbound inboundTick
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}
		switch inbound.Type {
		case "progress":
			var tick tickPayload
			if err := json.Unmarshal(inbound.Payload, &tick); err != nil {
				_ = conn.WriteJSON(outbound{Type: "error", Payload: wsError{Message: "invalid progress payload"}})
				continue
			}
			ack, err := h.progress.UpdateVideoProgress(r.Context(), userID, locationID, tick.SectionID, tick.VideoID, tick.WatchedSeconds)
			if err != nil {
				_ = conn.WriteJSON(outbound{Type: "error", Payload: wsError{Message: err.Error()}})
				continue
			}
			if err := conn.WriteJSON(outbound{Type: "progressAck", Payload: ack}); err != nil {
				return
			}
		default:
			_ = conn.WriteJSON(outbound{Type: "error", Payload: wsError{Message: "unsupported message type"}})
		}
	}
}
