package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/bp-tabulation/brackets"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub      *brackets.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebSocketHandler returns the live leaderboard endpoint. An empty
// allowedOrigins or one containing "*" accepts any origin.
func NewWebSocketHandler(hub *brackets.Hub, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowAll := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || allowed[origin]
			},
		},
	}
}

// ServeWs обрабатывает GET /ws/competitions/{competitionID}.
// Клиент получает публичные события турнира: таблицу и завершённые матчи.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	competitionID, err := getIDFromURL(r, "competitionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отправляет HTTP ошибку клиенту.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.Int("competition_id", competitionID), slog.Any("error", err))
		return
	}

	client := h.hub.NewClient(conn, brackets.CompetitionRoom(competitionID))
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
