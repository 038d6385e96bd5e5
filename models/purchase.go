package models

import "time"

// Purchase counts the cards a user owns in an event.
type Purchase struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_event" json:"user_id"`
	EventID    uint      `gorm:"not null;uniqueIndex:idx_user_event" json:"event_id"`
	CardsOwned int       `gorm:"not null;default:0" json:"cards_owned"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
