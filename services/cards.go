package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
)

// CardService checks cards against the numbers called in their event.
type CardService struct {
	db       *gorm.DB
	numbers  *NumberLedger
	patterns game.PatternSource
}

func NewCardService(db *gorm.DB, numbers *NumberLedger, patterns game.PatternSource) *CardService {
	return &CardService{db: db, numbers: numbers, patterns: patterns}
}

// CardView is a card laid out for clients.
type CardView struct {
	ID            uint               `json:"id"`
	EventID       uint               `json:"event_id"`
	UserID        *uint              `json:"user_id,omitempty"`
	CorrelativeID string             `json:"correlative_id,omitempty"`
	Grid          []int              `json:"grid"`
	Columns       map[string][]int   `json:"columns"`
	IsWinner      bool               `json:"is_winner"`
	Warnings      []game.CellWarning `json:"warnings,omitempty"`
}

// ClaimResult is a successful win claim.
type ClaimResult struct {
	Card     CardView         `json:"card"`
	Match    game.MatchDetail `json:"match"`
	FirstWin bool             `json:"first_win"`
}

// Claim checks that the user's card wins pattern with the numbers called so
// far and marks it as a winner. Claiming again after a win succeeds with
// FirstWin false.
func (s *CardService) Claim(ctx context.Context, userID, eventID, cardID uint, pattern string) (*ClaimResult, error) {
	ctx, span := tracer.Start(ctx, "cards.Claim", trace.WithAttributes(
		attribute.Int64("card.id", int64(cardID)),
		attribute.String("pattern", pattern),
	))
	defer span.End()

	card, err := s.Get(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.EventID != eventID {
		return nil, validationf("card %d belongs to another event", cardID)
	}
	if card.UserID == nil || *card.UserID != userID {
		return nil, fmt.Errorf("%w: card belongs to another player", ErrForbidden)
	}

	won, detail, view, err := s.evaluate(ctx, card, pattern)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, fmt.Errorf("%w: %s", ErrNoWin, pattern)
	}

	res := s.db.WithContext(ctx).Model(&models.Card{}).
		Where("id = ? AND is_winner = ?", card.ID, false).
		Update("is_winner", true)
	if res.Error != nil {
		return nil, res.Error
	}
	view.IsWinner = true

	out := &ClaimResult{Card: view, Match: *detail, FirstWin: res.RowsAffected == 1}
	log.Infow("win claimed", "card_id", cardID, "user_id", userID, "event_id", eventID, "pattern", detail.PatternName, "first_win", out.FirstWin)
	return out, nil
}

// Verification is the outcome of checking any card without claiming it.
type Verification struct {
	Card  CardView          `json:"card"`
	Won   bool              `json:"won"`
	Match *game.MatchDetail `json:"match,omitempty"`
}

// Verify evaluates a card for staff. Nothing is written.
func (s *CardService) Verify(ctx context.Context, cardID uint, pattern string) (*Verification, error) {
	card, err := s.Get(ctx, cardID)
	if err != nil {
		return nil, err
	}
	won, detail, view, err := s.evaluate(ctx, card, pattern)
	if errors.Is(err, ErrMalformedCard) && view.ID != 0 {
		// readable enough to show, never a winner
		return &Verification{Card: view}, nil
	}
	if err != nil {
		return nil, err
	}
	return &Verification{Card: view, Won: won, Match: detail}, nil
}

// CardStatus is a card with its progress towards every claimable pattern.
type CardStatus struct {
	Card     CardView               `json:"card"`
	Called   []int                  `json:"called_on_card"`
	Progress []game.PatternProgress `json:"progress"`
}

func (s *CardService) Status(ctx context.Context, cardID uint) (*CardStatus, error) {
	card, err := s.Get(ctx, cardID)
	if err != nil {
		return nil, err
	}
	view, err := s.View(card)
	if err != nil {
		return nil, err
	}
	called, err := s.numbers.CalledSet(ctx, card.EventID)
	if err != nil {
		return nil, err
	}
	catalog, err := s.patterns.PatternsFor(ctx, card.EventID)
	if err != nil {
		return nil, err
	}

	var grid game.Grid
	copy(grid[:], view.Grid)
	onCard := []int{}
	for _, v := range grid {
		if called.Has(v) {
			onCard = append(onCard, v)
		}
	}
	return &CardStatus{
		Card:     view,
		Called:   onCard,
		Progress: game.ProgressAll(grid, called, catalog),
	}, nil
}

func (s *CardService) Get(ctx context.Context, cardID uint) (*models.Card, error) {
	var card models.Card
	if err := s.db.WithContext(ctx).First(&card, cardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("card")
		}
		return nil, err
	}
	return &card, nil
}

// ListForUser returns the user's cards, optionally for one event (eventID 0
// means all events).
func (s *CardService) ListForUser(ctx context.Context, userID, eventID uint) ([]CardView, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if eventID != 0 {
		q = q.Where("event_id = ?", eventID)
	}
	var cards []models.Card
	if err := q.Order("id ASC").Find(&cards).Error; err != nil {
		return nil, err
	}
	out := make([]CardView, 0, len(cards))
	for i := range cards {
		v, err := s.View(&cards[i])
		if err != nil {
			log.Warnw("skipping unreadable card", "card_id", cards[i].ID, "error", err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// View normalizes the stored numbers of a card. Cells that could not be read
// are listed in Warnings.
func (s *CardService) View(card *models.Card) (CardView, error) {
	grid, warnings, err := cardGrid(card)
	if err != nil {
		return CardView{}, err
	}
	v := CardView{
		ID:       card.ID,
		EventID:  card.EventID,
		UserID:   card.UserID,
		Grid:     grid[:],
		Columns:  grid.ColumnMap(),
		IsWinner: card.IsWinner,
		Warnings: warnings,
	}
	if card.CorrelativeID != nil {
		v.CorrelativeID = *card.CorrelativeID
	}
	return v, nil
}

func (s *CardService) evaluate(ctx context.Context, card *models.Card, pattern string) (bool, *game.MatchDetail, CardView, error) {
	view, err := s.View(card)
	if err != nil {
		return false, nil, CardView{}, err
	}
	var grid game.Grid
	copy(grid[:], view.Grid)
	if err := playable(grid, view.Warnings); err != nil {
		return false, nil, view, err
	}
	catalog, err := s.patterns.PatternsFor(ctx, card.EventID)
	if err != nil {
		return false, nil, view, err
	}
	if pattern != game.AnyLine {
		if _, ok := catalog[pattern]; !ok {
			return false, nil, view, fmt.Errorf("%w: %s", ErrPatternUnavailable, pattern)
		}
	}
	called, err := s.numbers.CalledSet(ctx, card.EventID)
	if err != nil {
		return false, nil, view, err
	}

	won, detail := game.Evaluate(grid, called, pattern, catalog)
	return won, detail, view, nil
}

// cardGrid decodes a stored card. An unsupported shape is a malformed card.
func cardGrid(card *models.Card) (game.Grid, []game.CellWarning, error) {
	grid, warnings, err := game.Normalize(card.Numbers)
	if err != nil {
		return game.Grid{}, nil, fmt.Errorf("%w: card %d: %v", ErrMalformedCard, card.ID, err)
	}
	return grid, warnings, nil
}

// playable refuses cards with unreadable cells or an impossible layout, such
// as several cells that read as free.
func playable(grid game.Grid, warnings []game.CellWarning) error {
	if len(warnings) > 0 {
		return fmt.Errorf("%w: %s", ErrMalformedCard, warnings[0])
	}
	if err := grid.CheckPlayable(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCard, err)
	}
	return nil
}
