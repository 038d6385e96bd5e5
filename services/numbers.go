package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
)

// NumberLedger is the append-only record of numbers called per event. Calls,
// undos and resets of one event are serialised by the event row lock; the
// (event_id, value) unique index is the final word on duplicates.
type NumberLedger struct {
	db       *gorm.DB
	patterns game.PatternSource
	clock    func() time.Time
}

func NewNumberLedger(db *gorm.DB, patterns game.PatternSource) *NumberLedger {
	return &NumberLedger{db: db, patterns: patterns, clock: time.Now}
}

// Call records value for the event and assigns it the next sequence number.
func (l *NumberLedger) Call(ctx context.Context, eventID uint, value int) (*models.CalledNumber, error) {
	ctx, span := tracer.Start(ctx, "numbers.Call", trace.WithAttributes(
		attribute.Int64("event.id", int64(eventID)),
		attribute.Int("number.value", value),
	))
	defer span.End()

	if value < game.MinNumber || value > game.MaxNumber {
		return nil, validationf("number must be between %d and %d, got %d", game.MinNumber, game.MaxNumber, value)
	}

	var cn models.CalledNumber
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		var exists int64
		if err := tx.Model(&models.CalledNumber{}).Where("event_id = ? AND value = ?", eventID, value).Count(&exists).Error; err != nil {
			return err
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", ErrAlreadyCalled, game.Label(value))
		}

		cn = models.CalledNumber{
			EventID:  eventID,
			Value:    value,
			Seq:      ev.NumberSeq + 1,
			CalledAt: l.clock(),
		}
		if err := tx.Create(&cn).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: %s", ErrAlreadyCalled, game.Label(value))
			}
			return fmt.Errorf("insert called number: %w", err)
		}
		return tx.Model(ev).UpdateColumn("number_seq", cn.Seq).Error
	})
	if err != nil {
		return nil, err
	}
	log.Infow("number called", "event_id", eventID, "value", value, "seq", cn.Seq)
	return &cn, nil
}

// Draw calls the first value of a fresh shuffle that the event has not had
// yet. A value taken by a concurrent call is passed over.
func (l *NumberLedger) Draw(ctx context.Context, eventID uint, gen *game.Generator) (*models.CalledNumber, error) {
	called, err := l.CalledSet(ctx, eventID)
	if err != nil {
		return nil, err
	}
	for _, v := range gen.Draw() {
		if called.Has(v) {
			continue
		}
		cn, err := l.Call(ctx, eventID, v)
		if errors.Is(err, ErrAlreadyCalled) {
			continue
		}
		return cn, err
	}
	return nil, ErrAllCalled
}

// UndoLast removes the most recent call of the event.
func (l *NumberLedger) UndoLast(ctx context.Context, eventID uint) (*models.CalledNumber, error) {
	var last models.CalledNumber
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockEvent(tx, eventID); err != nil {
			return err
		}
		if err := tx.Where("event_id = ?", eventID).Order("seq DESC").First(&last).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("no numbers called yet")
			}
			return err
		}
		return tx.Delete(&last).Error
	})
	if err != nil {
		return nil, err
	}
	log.Infow("number undone", "event_id", eventID, "value", last.Value, "seq", last.Seq)
	return &last, nil
}

// Reset removes every call of the event. Other events are untouched.
func (l *NumberLedger) Reset(ctx context.Context, eventID uint) (int64, error) {
	var removed int64
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockEvent(tx, eventID); err != nil {
			return err
		}
		res := tx.Where("event_id = ?", eventID).Delete(&models.CalledNumber{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	log.Infow("numbers reset", "event_id", eventID, "removed", removed)
	return removed, nil
}

// List returns the event's calls in call order.
func (l *NumberLedger) List(ctx context.Context, eventID uint) ([]models.CalledNumber, error) {
	var out []models.CalledNumber
	err := l.db.WithContext(ctx).Where("event_id = ?", eventID).Order("seq ASC").Find(&out).Error
	return out, err
}

// Sequence returns the called values in call order.
func (l *NumberLedger) Sequence(ctx context.Context, eventID uint) ([]int, error) {
	var out []int
	err := l.db.WithContext(ctx).Model(&models.CalledNumber{}).
		Where("event_id = ?", eventID).
		Order("seq ASC").
		Pluck("value", &out).Error
	return out, err
}

func (l *NumberLedger) CalledSet(ctx context.Context, eventID uint) (game.CalledSet, error) {
	seq, err := l.Sequence(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return game.NewCalledSet(seq...), nil
}

// CompletedBy reports which of the event's patterns the call of value
// completed on the card.
func (l *NumberLedger) CompletedBy(ctx context.Context, cardID uint, value int) ([]game.MatchDetail, game.Grid, error) {
	var card models.Card
	if err := l.db.WithContext(ctx).First(&card, cardID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, game.Grid{}, notFound("card")
		}
		return nil, game.Grid{}, err
	}
	grid, warnings, err := cardGrid(&card)
	if err != nil {
		return nil, game.Grid{}, err
	}
	if err := playable(grid, warnings); err != nil {
		return nil, grid, err
	}
	seq, err := l.Sequence(ctx, card.EventID)
	if err != nil {
		return nil, game.Grid{}, err
	}
	catalog, err := l.patterns.PatternsFor(ctx, card.EventID)
	if err != nil {
		return nil, game.Grid{}, err
	}
	details, err := game.CompletedBy(grid, seq, value, catalog)
	if errors.Is(err, game.ErrNotCalled) {
		return nil, grid, validationf("%s was not called in event %d", game.Label(value), card.EventID)
	}
	return details, grid, err
}

// lockEvent loads the event holding its row lock for the rest of tx.
func lockEvent(tx *gorm.DB, eventID uint) (*models.Event, error) {
	var ev models.Event
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ev, eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("event")
		}
		return nil, err
	}
	return &ev, nil
}
