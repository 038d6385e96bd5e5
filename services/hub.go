package services

import (
	"encoding/json"
	"sync"
)

// Message is the envelope of every websocket frame sent to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub fans messages out to the subscribers of an event. Delivery never
// blocks: a subscriber whose buffer is full misses the message.
type Hub struct {
	mu     sync.RWMutex
	topics map[uint]map[*Subscription]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 32
	}
	return &Hub{topics: make(map[uint]map[*Subscription]struct{}), buffer: buffer}
}

// Subscription is one connection's view of an event topic.
type Subscription struct {
	EventID uint
	UserID  uint
	hub     *Hub
	send    chan []byte
	closed  bool // guarded by hub.mu
	dropped int  // guarded by hub.mu
}

// C yields marshalled messages until the subscription is closed.
func (s *Subscription) C() <-chan []byte { return s.send }

// Close unsubscribes and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if subs, ok := h.topics[s.EventID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.topics, s.EventID)
		}
	}
	close(s.send)
}

// Send delivers msg to this subscriber only.
func (s *Subscription) Send(msg Message) bool {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Errorw("marshal message", "type", msg.Type, "error", err)
		return false
	}
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.deliver(b)
}

// deliver must be called with hub.mu held.
func (s *Subscription) deliver(b []byte) bool {
	if s.closed {
		return false
	}
	select {
	case s.send <- b:
		return true
	default:
		s.dropped++
		log.Warnw("dropping message", "event_id", s.EventID, "user_id", s.UserID, "dropped", s.dropped)
		return false
	}
}

func (h *Hub) Subscribe(eventID, userID uint) *Subscription {
	s := &Subscription{
		EventID: eventID,
		UserID:  userID,
		hub:     h,
		send:    make(chan []byte, h.buffer),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.topics[eventID] == nil {
		h.topics[eventID] = make(map[*Subscription]struct{})
	}
	h.topics[eventID][s] = struct{}{}
	return s
}

// Publish sends msg to every subscriber of the event and returns how many
// received it.
func (h *Hub) Publish(eventID uint, msg Message) int {
	b, err := json.Marshal(msg)
	if err != nil {
		log.Errorw("marshal message", "type", msg.Type, "error", err)
		return 0
	}
	// the write lock orders deliveries with Close and counts drops safely
	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := 0
	for s := range h.topics[eventID] {
		if s.deliver(b) {
			delivered++
		}
	}
	return delivered
}

// Count returns the number of open subscriptions for the event.
func (h *Hub) Count(eventID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[eventID])
}
