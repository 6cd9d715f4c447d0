package http

import (
	"log"
	"net/http"

	"sketch-guess-service/internal/app"
	"github.com/gorilla/websocket"
)

// WSHandler streams live per-drawing leaderboard updates to clients watching
// a replay, so the guess screen can show positions shifting as other players
// answer.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string                `json:"type"`
	Payload app.LeaderboardUpdate `json:"payload"`
}

// ServeWS upgrades the request and pushes leaderboard updates until the
// client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	drawingID := r.URL.Query().Get("drawingId")
	if drawingID == "" {
		http.Error(w, "missing drawingId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Subscribe(drawingID)
	defer cancel()

	// initial snapshot so the client doesn't wait for the next submission
	if top, err := h.service.TopScores(r.Context(), drawingID, 5); err == nil {
		initial := app.LeaderboardUpdate{DrawingID: drawingID, Scores: top}
		if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: initial}); err != nil {
			return
		}
	}

	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-readerDone:
			return
		}
	}
}
