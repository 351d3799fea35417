package services

import (
	"github.com/Dosada05/bp-tabulation/brackets"
)

// Notifier pushes events to websocket rooms. *brackets.Hub implements it.
type Notifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

func notifyCompetition(n Notifier, competitionID int, messageType string, payload interface{}) {
	if n == nil {
		return
	}
	room := brackets.CompetitionRoom(competitionID)
	n.BroadcastToRoom(room, brackets.WebSocketMessage{
		Type:    messageType,
		Payload: payload,
		RoomID:  room,
	})
}
