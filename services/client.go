package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	actionTimeout  = 10 * time.Second
)

// Inbound is a message sent by a websocket client.
type Inbound struct {
	Type    string `json:"type"`
	Number  int    `json:"number,omitempty"`
	CardID  uint   `json:"card_id,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Message string `json:"message,omitempty"`
}

// Client is one websocket connection to an event.
type Client struct {
	p       Participant
	eventID uint
	conn    *websocket.Conn
	sub     *Subscription
	session *Session
}

// --------------------
// Client read/write pumps
// --------------------
func (c *Client) readPump() {
	defer func() {
		c.sub.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debugf("[Client %d] disconnected normally from event %d", c.p.UserID, c.eventID)
			} else {
				log.Debugf("[Client %d] read error: %v", c.p.UserID, err)
			}
			return
		}
		c.handle(message)
	}
}

func (c *Client) handle(raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[Client %d] recovered from panic: %v", c.p.UserID, r)
		}
	}()

	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		c.sendError(in.Type, validationf("invalid message: %v", err))
		return
	}

	// a disconnect must not abort a call or claim halfway
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	var err error
	switch in.Type {
	case "call_number":
		_, err = c.session.CallNumber(ctx, c.p, c.eventID, in.Number)
	case "draw_number":
		_, err = c.session.DrawNumber(ctx, c.p, c.eventID)
	case "claim_win":
		_, err = c.session.ClaimWin(ctx, c.p, c.eventID, in.CardID, in.Pattern)
	case "join_game":
		err = c.session.Join(ctx, c.p, c.eventID)
		if err == nil {
			c.sendCards(ctx)
		}
	case "chat_message":
		err = c.session.Chat(ctx, c.p, c.eventID, in.Message)
	default:
		err = validationf("unknown message type %q", in.Type)
	}
	if err != nil {
		c.sendError(in.Type, err)
	}
}

func (c *Client) sendError(action string, err error) {
	if !errors.Is(err, ErrValidation) && !errors.Is(err, ErrConflict) && !errors.Is(err, ErrNoWin) &&
		!errors.Is(err, ErrForbidden) && !errors.Is(err, ErrUnauthenticated) && !errors.Is(err, ErrNotFound) {
		log.Errorw("websocket action failed", "user_id", c.p.UserID, "event_id", c.eventID, "action", action, "error", err)
	}
	c.sub.Send(Message{Type: MsgError, Data: map[string]string{
		"action":  action,
		"message": err.Error(),
	}})
}

func (c *Client) sendCards(ctx context.Context) {
	if !c.p.Authenticated {
		return
	}
	cards, err := c.session.UserCards(ctx, c.p, c.eventID)
	if err != nil {
		log.Warnw("load user cards", "user_id", c.p.UserID, "error", err)
		return
	}
	c.sub.Send(Message{Type: MsgUserCards, Data: cards})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sub.C():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debugf("[Client %d] write error: %v", c.p.UserID, err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
