package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	DepositTransaction    TransactionType = "deposit"
	PurchaseTransaction   TransactionType = "purchase"
	WithdrawTransaction   TransactionType = "withdraw"
	AdjustmentTransaction TransactionType = "adjustment"
)

// Transaction is the audit row written for every balance change.
type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	UserID       uint            `gorm:"index;not null" json:"user_id"`
	Type         TransactionType `gorm:"size:20;not null" json:"type"`
	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"balance_after"`
	Reference    string          `gorm:"size:64" json:"reference,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}
