package models

import "time"

// AdvisoryLock is a short lived named lock shared by every server instance.
type AdvisoryLock struct {
	Name      string    `gorm:"primaryKey;size:128" json:"name"`
	Owner     string    `gorm:"size:64;not null" json:"owner"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}
