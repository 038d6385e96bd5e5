package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
)

const (
	SourcePurchase = "purchase"
	SourceSeller   = "seller"
	SourceHouse    = "house"
	SourceImport   = "import"

	maxLayoutAttempts = 50
)

type PurchaseConfig struct {
	CardPrice decimal.Decimal
	MaxCards  int
	LockTTL   time.Duration
}

// PurchaseService sells and issues cards. A purchase debits the buyer, bumps
// their purchase counter and inserts the cards in one transaction, under a
// per-user advisory lock that rejects concurrent attempts.
type PurchaseService struct {
	db     *gorm.DB
	locker Locker
	gen    *game.Generator
	cfg    PurchaseConfig
	clock  func() time.Time
}

func NewPurchaseService(db *gorm.DB, locker Locker, gen *game.Generator, cfg PurchaseConfig) *PurchaseService {
	if gen == nil {
		gen = game.NewRandomGenerator()
	}
	if cfg.MaxCards < 1 {
		cfg.MaxCards = 100
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	return &PurchaseService{db: db, locker: locker, gen: gen, cfg: cfg, clock: time.Now}
}

func (s *PurchaseService) CardPrice() decimal.Decimal { return s.cfg.CardPrice }

type PurchaseResult struct {
	TransactionID string          `json:"transaction_id"`
	Cards         []models.Card   `json:"cards"`
	Total         decimal.Decimal `json:"total"`
	Balance       decimal.Decimal `json:"balance"`
	CardsOwned    int             `json:"cards_owned"`
}

// PurchaseCards buys quantity fresh cards for the user in the event.
func (s *PurchaseService) PurchaseCards(ctx context.Context, userID, eventID uint, quantity int) (*PurchaseResult, error) {
	ctx, span := tracer.Start(ctx, "purchase.PurchaseCards", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("event.id", int64(eventID)),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if err := s.checkQuantity(quantity); err != nil {
		return nil, err
	}
	if err := s.eventExists(ctx, eventID); err != nil {
		return nil, err
	}

	release, err := s.locker.TryLock(ctx, "purchase:"+strconv.FormatUint(uint64(userID), 10), s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &PurchaseResult{
		TransactionID: uuid.NewString(),
		Total:         s.cfg.CardPrice.Mul(decimal.NewFromInt(int64(quantity))).Truncate(2),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bal, err := debit(tx, userID, res.Total, models.PurchaseTransaction, res.TransactionID)
		if err != nil {
			return err
		}
		res.Balance = bal

		owned, err := bumpPurchase(tx, userID, eventID, quantity, s.clock())
		if err != nil {
			return err
		}
		res.CardsOwned = owned

		cards, err := s.issue(tx, eventID, &userID, quantity, SourcePurchase, res.TransactionID)
		if err != nil {
			return err
		}
		res.Cards = cards
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientFunds) {
			log.Errorw("purchase failed", "user_id", userID, "event_id", eventID, "quantity", quantity, "error", err)
		}
		return nil, err
	}
	log.Infow("cards purchased", "user_id", userID, "event_id", eventID, "quantity", quantity, "transaction_id", res.TransactionID)
	return res, nil
}

// GenerateBulk issues cards to a seller without charging them.
func (s *PurchaseService) GenerateBulk(ctx context.Context, sellerID, eventID uint, quantity int) (*PurchaseResult, error) {
	if err := s.checkQuantity(quantity); err != nil {
		return nil, err
	}
	if err := s.requireSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	if err := s.eventExists(ctx, eventID); err != nil {
		return nil, err
	}

	release, err := s.locker.TryLock(ctx, "seller_generate:"+strconv.FormatUint(uint64(sellerID), 10), s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	res := &PurchaseResult{TransactionID: uuid.NewString(), Total: decimal.Zero}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned, err := bumpPurchase(tx, sellerID, eventID, quantity, s.clock())
		if err != nil {
			return err
		}
		res.CardsOwned = owned
		res.Cards, err = s.issue(tx, eventID, &sellerID, quantity, SourceSeller, res.TransactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Infow("seller cards generated", "seller_id", sellerID, "event_id", eventID, "quantity", quantity)
	return res, nil
}

// GenerateHouse issues ownerless cards, e.g. for sale at the venue.
func (s *PurchaseService) GenerateHouse(ctx context.Context, eventID uint, quantity int) (*PurchaseResult, error) {
	if err := s.checkQuantity(quantity); err != nil {
		return nil, err
	}
	res := &PurchaseResult{TransactionID: uuid.NewString(), Total: decimal.Zero}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res.Cards, err = s.issue(tx, eventID, nil, quantity, SourceHouse, res.TransactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Infow("house cards generated", "event_id", eventID, "quantity", quantity)
	return res, nil
}

// ListPurchases returns the user's per-event card counters, most recently
// bought first. eventID 0 lists every event.
func (s *PurchaseService) ListPurchases(ctx context.Context, userID, eventID uint) ([]models.Purchase, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if eventID != 0 {
		q = q.Where("event_id = ?", eventID)
	}
	out := []models.Purchase{}
	err := q.Order("updated_at DESC").Order("id DESC").Find(&out).Error
	return out, err
}

// Batch is one GenerateBulk run as the seller sees it.
type Batch struct {
	TransactionID string    `json:"transaction_id"`
	EventID       uint      `json:"event_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	Count         int       `json:"count"`
	CardIDs       []uint    `json:"card_ids"`
}

// ListBatches groups the seller's generated cards by batch, newest first.
// Cards the seller bought are not part of any batch.
func (s *PurchaseService) ListBatches(ctx context.Context, sellerID uint) ([]Batch, error) {
	if err := s.requireSeller(ctx, sellerID); err != nil {
		return nil, err
	}
	var cards []models.Card
	err := s.db.WithContext(ctx).
		Select("id", "event_id", "metadata").
		Where("user_id = ?", sellerID).
		Order("id ASC").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}

	batches := []Batch{}
	index := map[string]int{}
	for _, c := range cards {
		var meta models.CardMetadata
		if len(c.Metadata) == 0 || json.Unmarshal(c.Metadata, &meta) != nil || meta.Source != SourceSeller {
			continue
		}
		i, ok := index[meta.TransactionID]
		if !ok {
			i = len(batches)
			index[meta.TransactionID] = i
			batches = append(batches, Batch{TransactionID: meta.TransactionID, EventID: c.EventID, GeneratedAt: meta.GeneratedAt})
		}
		batches[i].Count++
		batches[i].CardIDs = append(batches[i].CardIDs, c.ID)
	}
	slices.Reverse(batches)
	return batches, nil
}

func (s *PurchaseService) requireSeller(ctx context.Context, userID uint) error {
	var seller models.User
	if err := s.db.WithContext(ctx).First(&seller, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("user")
		}
		return err
	}
	if !seller.IsSeller {
		return fmt.Errorf("%w: seller role required", ErrForbidden)
	}
	return nil
}

func (s *PurchaseService) checkQuantity(quantity int) error {
	if quantity < 1 || quantity > s.cfg.MaxCards {
		return validationf("quantity must be between 1 and %d", s.cfg.MaxCards)
	}
	return nil
}

func (s *PurchaseService) eventExists(ctx context.Context, eventID uint) error {
	if err := s.db.WithContext(ctx).Select("id").First(&models.Event{}, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("event")
		}
		return err
	}
	return nil
}

// issue deals n new layouts that no card of the event already uses.
func (s *PurchaseService) issue(tx *gorm.DB, eventID uint, owner *uint, n int, source, batch string) ([]models.Card, error) {
	used, err := usedLayouts(tx, eventID)
	if err != nil {
		return nil, err
	}
	drafts := make([]cardDraft, 0, n)
	for i := 0; i < n; i++ {
		grid, ok := s.freshLayout(used)
		if !ok {
			return nil, fmt.Errorf("%w: could not find an unused card layout", ErrConflict)
		}
		used[grid.Key()] = true
		raw, err := game.Encode(grid)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, cardDraft{grid: grid, numbers: raw})
	}
	return insertCards(tx, eventID, owner, drafts, source, batch, s.clock())
}

func (s *PurchaseService) freshLayout(used map[string]bool) (game.Grid, bool) {
	for attempt := 0; attempt < maxLayoutAttempts; attempt++ {
		g := s.gen.Card()
		if !used[g.Key()] {
			return g, true
		}
	}
	return game.Grid{}, false
}

// -------------------- Transaction helpers --------------------

type cardDraft struct {
	grid    game.Grid
	numbers []byte
}

func usedLayouts(tx *gorm.DB, eventID uint) (map[string]bool, error) {
	var keys []string
	err := tx.Model(&models.Card{}).
		Where("event_id = ? AND grid_key IS NOT NULL", eventID).
		Pluck("grid_key", &keys).Error
	if err != nil {
		return nil, err
	}
	used := make(map[string]bool, len(keys))
	for _, k := range keys {
		used[k] = true
	}
	return used, nil
}

// insertCards stores drafts with correlative ids taken from the event's card
// counter, which is advanced under the event row lock.
func insertCards(tx *gorm.DB, eventID uint, owner *uint, drafts []cardDraft, source, batch string, now time.Time) ([]models.Card, error) {
	ev, err := lockEvent(tx, eventID)
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(models.CardMetadata{
		TransactionID: batch,
		GeneratedAt:   now.UTC(),
		BatchSize:     len(drafts),
		Source:        source,
	})
	if err != nil {
		return nil, err
	}
	ownerKey := "house"
	if owner != nil {
		ownerKey = strconv.FormatUint(uint64(*owner), 10)
	}

	cards := make([]models.Card, len(drafts))
	for i, d := range drafts {
		key := d.grid.Key()
		corr := fmt.Sprintf("%d-%05d", eventID, ev.CardSeq+i+1)
		cards[i] = models.Card{
			EventID:       eventID,
			UserID:        owner,
			Numbers:       datatypes.JSON(d.numbers),
			Hash:          game.Hash(ownerKey, eventID, d.grid, uuid.NewString()),
			GridKey:       &key,
			CorrelativeID: &corr,
			Metadata:      datatypes.JSON(meta),
		}
	}
	if err := tx.CreateInBatches(&cards, 100).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: card layout already issued in this event", ErrConflict)
		}
		return nil, fmt.Errorf("insert cards: %w", err)
	}
	if err := tx.Model(ev).UpdateColumn("card_seq", ev.CardSeq+len(drafts)).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

// bumpPurchase adds quantity to the user's card count for the event.
func bumpPurchase(tx *gorm.DB, userID, eventID uint, quantity int, now time.Time) (int, error) {
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "event_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"cards_owned": gorm.Expr("purchases.cards_owned + ?", quantity),
			"updated_at":  now,
		}),
	}).Create(&models.Purchase{UserID: userID, EventID: eventID, CardsOwned: quantity}).Error
	if err != nil {
		return 0, fmt.Errorf("update purchase: %w", err)
	}
	var p models.Purchase
	if err := tx.Where("user_id = ? AND event_id = ?", userID, eventID).First(&p).Error; err != nil {
		return 0, err
	}
	return p.CardsOwned, nil
}
