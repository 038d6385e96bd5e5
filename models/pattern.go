package models

import (
	"time"

	"gorm.io/datatypes"
)

// Pattern is a stored winning shape. Patterns are deactivated, never deleted.
type Pattern struct {
	ID          uint                     `gorm:"primaryKey" json:"id"`
	Name        string                   `gorm:"size:50;uniqueIndex;not null" json:"name"`
	DisplayName string                   `gorm:"size:100" json:"display_name"`
	Positions   datatypes.JSONSlice[int] `json:"positions"`
	IsActive    bool                     `gorm:"index" json:"is_active"`
	CreatedByID *uint                    `json:"created_by,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}
