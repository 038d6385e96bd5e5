package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
)

// ImportReport lists what an import did with each entry of the file.
type ImportReport struct {
	TransactionID string        `json:"transaction_id"`
	Imported      []models.Card `json:"imported"`
	Skipped       []string      `json:"skipped"`
}

// LoadCards imports a JSON file of pre-printed cards as house cards.
func (s *PurchaseService) LoadCards(ctx context.Context, eventID uint, path string) (*ImportReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	rep, err := s.ImportCards(ctx, eventID, data)
	if err != nil {
		return nil, err
	}
	log.Infof("[Init] Loaded %d bingo cards from %s (%d skipped)", len(rep.Imported), path, len(rep.Skipped))
	return rep, nil
}

// ImportCards stores a JSON array of cards in any supported shape. The
// raw JSON of each card is kept; entries with unreadable cells or a
// layout the event already has are skipped.
func (s *PurchaseService) ImportCards(ctx context.Context, eventID uint, data []byte) (*ImportReport, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, validationf("cards file must be a JSON array: %v", err)
	}
	if len(entries) == 0 {
		return nil, validationf("cards file is empty")
	}
	if err := s.eventExists(ctx, eventID); err != nil {
		return nil, err
	}

	rep := &ImportReport{TransactionID: uuid.NewString(), Skipped: []string{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		used, err := usedLayouts(tx, eventID)
		if err != nil {
			return err
		}
		drafts := make([]cardDraft, 0, len(entries))
		for i, raw := range entries {
			grid, warnings, err := game.Normalize(raw)
			if err == nil {
				err = playable(grid, warnings)
			}
			switch {
			case err != nil:
				rep.Skipped = append(rep.Skipped, fmt.Sprintf("entry %d: %v", i, err))
				continue
			case used[grid.Key()]:
				rep.Skipped = append(rep.Skipped, fmt.Sprintf("entry %d: duplicate layout", i))
				continue
			}
			used[grid.Key()] = true
			drafts = append(drafts, cardDraft{grid: grid, numbers: raw})
		}
		if len(drafts) == 0 {
			return nil
		}
		cards, err := insertCards(tx, eventID, nil, drafts, SourceImport, rep.TransactionID, s.clock())
		rep.Imported = cards
		return err
	})
	if err != nil {
		return nil, err
	}
	return rep, nil
}
