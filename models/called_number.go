package models

import "time"

// CalledNumber is one drawn value of an event. (EventID, Value) is unique and
// Seq grows strictly within an event.
type CalledNumber struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	EventID  uint      `gorm:"not null;uniqueIndex:idx_event_value" json:"event_id"`
	Value    int       `gorm:"not null;uniqueIndex:idx_event_value" json:"value"`
	Seq      int       `gorm:"not null;index" json:"seq"`
	CalledAt time.Time `gorm:"not null" json:"called_at"`
}
