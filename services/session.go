package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
)

const maxChatRunes = 200

// Outgoing message types.
const (
	MsgEventInfo          = "event_info"
	MsgUserCards          = "user_cards"
	MsgNumberCalled       = "number_called"
	MsgNumberUndone       = "number_undone"
	MsgNumbersReset       = "numbers_reset"
	MsgWinnerAnnouncement = "winner_announcement"
	MsgPlayerJoined       = "player_joined"
	MsgChat               = "chat_message"
	MsgError              = "error"
)

// Participant is whoever is acting in a session. Anonymous viewers have a
// zero UserID and Authenticated false.
type Participant struct {
	UserID        uint
	Name          string
	Staff         bool
	Authenticated bool
}

// Session runs live events: staff call numbers, players claim wins, and
// every change is broadcast to the event's subscribers.
type Session struct {
	db       *gorm.DB
	hub      *Hub
	numbers  *NumberLedger
	cards    *CardService
	patterns game.PatternSource
	draws    *game.Generator
	clock    func() time.Time
}

// NewSession builds a session. draws supplies the order of server-side draws.
func NewSession(db *gorm.DB, hub *Hub, numbers *NumberLedger, cards *CardService, patterns game.PatternSource, draws *game.Generator) *Session {
	if draws == nil {
		draws = game.NewRandomGenerator()
	}
	return &Session{db: db, hub: hub, numbers: numbers, cards: cards, patterns: patterns, draws: draws, clock: time.Now}
}

type NumberCalled struct {
	Number      int       `json:"number"`
	Label       string    `json:"label"`
	Seq         int       `json:"seq"`
	CalledAt    time.Time `json:"called_at"`
	TotalCalled int       `json:"total_called"`
}

// CallNumber records a call and announces it to the event.
func (s *Session) CallNumber(ctx context.Context, p Participant, eventID uint, value int) (*models.CalledNumber, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	cn, err := s.numbers.Call(ctx, eventID, value)
	if err != nil {
		return nil, err
	}
	s.announceCall(ctx, cn)
	return cn, nil
}

// DrawNumber lets the server pick the next number and announces it like a
// manual call.
func (s *Session) DrawNumber(ctx context.Context, p Participant, eventID uint) (*models.CalledNumber, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	cn, err := s.numbers.Draw(ctx, eventID, s.draws)
	if err != nil {
		return nil, err
	}
	s.announceCall(ctx, cn)
	return cn, nil
}

func (s *Session) announceCall(ctx context.Context, cn *models.CalledNumber) {
	eventID := cn.EventID
	total, err := s.countCalled(ctx, eventID)
	if err != nil {
		log.Warnw("count called numbers", "event_id", eventID, "error", err)
	}
	s.hub.Publish(eventID, Message{Type: MsgNumberCalled, Data: NumberCalled{
		Number:      cn.Value,
		Label:       game.Label(cn.Value),
		Seq:         cn.Seq,
		CalledAt:    cn.CalledAt,
		TotalCalled: total,
	}})
}

// UndoLast removes the latest call and announces it.
func (s *Session) UndoLast(ctx context.Context, p Participant, eventID uint) (*models.CalledNumber, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	cn, err := s.numbers.UndoLast(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(eventID, Message{Type: MsgNumberUndone, Data: map[string]any{
		"number": cn.Value,
		"label":  game.Label(cn.Value),
		"seq":    cn.Seq,
	}})
	return cn, nil
}

// Reset clears the event's calls and announces it.
func (s *Session) Reset(ctx context.Context, p Participant, eventID uint) (int64, error) {
	if err := requireStaff(p); err != nil {
		return 0, err
	}
	removed, err := s.numbers.Reset(ctx, eventID)
	if err != nil {
		return 0, err
	}
	s.hub.Publish(eventID, Message{Type: MsgNumbersReset, Data: map[string]any{"removed": removed}})
	return removed, nil
}

type WinnerAnnouncement struct {
	UserID        uint             `json:"user_id"`
	UserName      string           `json:"user_name"`
	CardID        uint             `json:"card_id"`
	CorrelativeID string           `json:"correlative_id,omitempty"`
	Pattern       string           `json:"pattern"`
	DisplayName   string           `json:"display_name"`
	Match         game.MatchDetail `json:"match"`
	FirstWin      bool             `json:"first_win"`
}

// ClaimWin checks the player's card and announces the win to the event.
func (s *Session) ClaimWin(ctx context.Context, p Participant, eventID, cardID uint, pattern string) (*ClaimResult, error) {
	if !p.Authenticated {
		return nil, ErrUnauthenticated
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		pattern = game.AnyLine
	}
	res, err := s.cards.Claim(ctx, p.UserID, eventID, cardID, pattern)
	if err != nil {
		return nil, err
	}
	s.hub.Publish(eventID, Message{Type: MsgWinnerAnnouncement, Data: WinnerAnnouncement{
		UserID:        p.UserID,
		UserName:      p.Name,
		CardID:        res.Card.ID,
		CorrelativeID: res.Card.CorrelativeID,
		Pattern:       res.Match.PatternName,
		DisplayName:   res.Match.DisplayName,
		Match:         res.Match,
		FirstWin:      res.FirstWin,
	}})
	return res, nil
}

// Join announces a player to the event.
func (s *Session) Join(ctx context.Context, p Participant, eventID uint) error {
	if !p.Authenticated {
		return ErrUnauthenticated
	}
	if _, err := s.event(ctx, eventID); err != nil {
		return err
	}
	s.hub.Publish(eventID, Message{Type: MsgPlayerJoined, Data: map[string]any{
		"user_id": p.UserID,
		"name":    p.Name,
		"viewers": s.hub.Count(eventID),
	}})
	return nil
}

// Chat relays a short message to the event.
func (s *Session) Chat(_ context.Context, p Participant, eventID uint, text string) error {
	if !p.Authenticated {
		return ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return validationf("message is empty")
	}
	if utf8.RuneCountInString(text) > maxChatRunes {
		return validationf("message is longer than %d characters", maxChatRunes)
	}
	s.hub.Publish(eventID, Message{Type: MsgChat, Data: map[string]any{
		"user_id": p.UserID,
		"name":    p.Name,
		"message": text,
		"sent_at": s.clock().UTC(),
	}})
	return nil
}

type EventInfo struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Prize         string    `json:"prize"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	IsLive        bool      `json:"is_live"`
	CalledNumbers []int     `json:"called_numbers"`
	LastCalled    *int      `json:"last_called,omitempty"`
	Patterns      []string  `json:"patterns"`
	Viewers       int       `json:"viewers"`
}

// Snapshot is the state a client needs when it connects.
func (s *Session) Snapshot(ctx context.Context, eventID uint) (*EventInfo, error) {
	ev, err := s.event(ctx, eventID)
	if err != nil {
		return nil, err
	}
	seq, err := s.numbers.Sequence(ctx, eventID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.patterns.PatternsFor(ctx, eventID)
	if err != nil {
		return nil, err
	}
	info := &EventInfo{
		ID:            ev.ID,
		Name:          ev.Name,
		Prize:         ev.Prize,
		StartsAt:      ev.StartsAt,
		EndsAt:        ev.EndsAt,
		IsLive:        ev.IsLive(s.clock()),
		CalledNumbers: append([]int{}, seq...),
		Patterns:      catalog.Names(),
		Viewers:       s.hub.Count(eventID),
	}
	if n := len(seq); n > 0 {
		last := seq[n-1]
		info.LastCalled = &last
	}
	return info, nil
}

// UserCards lists the participant's cards in the event.
func (s *Session) UserCards(ctx context.Context, p Participant, eventID uint) ([]CardView, error) {
	if !p.Authenticated {
		return nil, ErrUnauthenticated
	}
	return s.cards.ListForUser(ctx, p.UserID, eventID)
}

func (s *Session) event(ctx context.Context, eventID uint) (*models.Event, error) {
	var ev models.Event
	if err := s.db.WithContext(ctx).First(&ev, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("event")
		}
		return nil, err
	}
	return &ev, nil
}

func (s *Session) countCalled(ctx context.Context, eventID uint) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.CalledNumber{}).Where("event_id = ?", eventID).Count(&n).Error
	return int(n), err
}

func requireStaff(p Participant) error {
	if !p.Authenticated {
		return ErrUnauthenticated
	}
	if !p.Staff {
		return fmt.Errorf("%w: staff only", ErrForbidden)
	}
	return nil
}
