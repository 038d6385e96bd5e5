package models

import (
	"time"

	"gorm.io/datatypes"
)

// Card is a bingo card issued for an event. Numbers keeps whatever JSON shape
// the card was stored in; the game package normalizes it on read. UserID is
// nil for house cards.
type Card struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	EventID       uint           `gorm:"not null;index;uniqueIndex:idx_event_grid;uniqueIndex:idx_event_correlative" json:"event_id"`
	UserID        *uint          `gorm:"index" json:"user_id"`
	Numbers       datatypes.JSON `json:"numbers"`
	Hash          string         `gorm:"size:64;uniqueIndex;not null" json:"hash"`
	GridKey       *string        `gorm:"size:128;uniqueIndex:idx_event_grid" json:"-"`
	CorrelativeID *string        `gorm:"size:32;uniqueIndex:idx_event_correlative" json:"correlative_id,omitempty"`
	IsWinner      bool           `json:"is_winner"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CardMetadata is stored in Card.Metadata for generated cards.
type CardMetadata struct {
	TransactionID string    `json:"transaction_id"`
	GeneratedAt   time.Time `json:"generated_at"`
	BatchSize     int       `json:"batch_size"`
	Source        string    `json:"source"` // purchase, seller, house
}
