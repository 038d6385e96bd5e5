package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentMethod is a way to pay for a deposit, shown to players with the
// details they pay into.
type PaymentMethod struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:50;uniqueIndex;not null" json:"payment_method"`
	Details   string    `json:"details"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatesConfig is the single row of exchange rates, keyed by currency code.
type RatesConfig struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Rates       datatypes.JSON `json:"rates"`
	Description string         `gorm:"size:255" json:"description"`
	UpdatedAt   time.Time      `json:"last_updated"`
}
