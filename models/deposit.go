package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DepositStatus string

const (
	DepositPending  DepositStatus = "pending"
	DepositApproved DepositStatus = "approved"
	DepositRejected DepositStatus = "rejected"
)

type Deposit struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"userId"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	UniqueCode    string          `gorm:"size:8;uniqueIndex;not null" json:"uniqueCode"`
	Reference     *string         `gorm:"size:100" json:"reference,omitempty"`
	PaymentMethod string          `gorm:"size:50" json:"paymentMethod"`
	Status        DepositStatus   `gorm:"size:20;index;not null" json:"status"`
	AdminNotes    string          `json:"adminNotes,omitempty"`
	ProcessedByID *uint           `json:"processedBy,omitempty"`
	ProcessedAt   *time.Time      `json:"processedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}
