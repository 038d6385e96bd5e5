package services

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
)

// NewUpgrader accepts browser connections from the given origins. A "*"
// entry allows any origin.
func NewUpgrader(origins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(origins, "*") {
				return true
			}
			return slices.Contains(origins, origin)
		},
	}
}

// Connect upgrades the request and attaches the connection to the event.
// The event must exist; the caller checks that before upgrading.
func (s *Session) Connect(ctx context.Context, up *websocket.Upgrader, w http.ResponseWriter, r *http.Request, p Participant, eventID uint) error {
	info, err := s.Snapshot(ctx, eventID)
	if err != nil {
		return err
	}

	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("[WS] upgrade error: %v", err)
		return nil
	}

	client := &Client{
		p:       p,
		eventID: eventID,
		conn:    conn,
		sub:     s.hub.Subscribe(eventID, p.UserID),
		session: s,
	}
	log.Infof("[WS] New client: userID=%d, event=%d, staff=%t", p.UserID, eventID, p.Staff)

	client.sub.Send(Message{Type: MsgEventInfo, Data: info})
	client.sendCards(ctx)

	go client.writePump()
	go client.readPump()
	return nil
}
