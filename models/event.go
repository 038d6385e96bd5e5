package models

import "time"

// Event is one live bingo session. NumberSeq and CardSeq are counters bumped
// under a row lock when numbers are called and cards are issued.
type Event struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Name             string     `gorm:"size:200;not null" json:"name"`
	Prize            string     `gorm:"size:200" json:"prize"`
	StartsAt         time.Time  `json:"starts_at"`
	EndsAt           time.Time  `json:"ends_at"`
	NumberSeq        int        `gorm:"not null;default:0" json:"-"`
	CardSeq          int        `gorm:"not null;default:0" json:"-"`
	AllowedPatterns  []*Pattern `gorm:"many2many:event_allowed_patterns" json:"allowed_patterns,omitempty"`
	DisabledPatterns []*Pattern `gorm:"many2many:event_disabled_patterns" json:"disabled_patterns,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsLive reports whether now falls in [StartsAt, EndsAt).
func (e *Event) IsLive(now time.Time) bool {
	return !now.Before(e.StartsAt) && now.Before(e.EndsAt)
}
