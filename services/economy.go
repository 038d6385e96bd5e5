package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bellapacxx/bingo-live/models"
)

// EconomyLedger moves virtual currency. Every change runs in one database
// transaction holding the user's balance row lock and writes an audit row.
type EconomyLedger struct {
	db *gorm.DB
}

func NewEconomyLedger(db *gorm.DB) *EconomyLedger {
	return &EconomyLedger{db: db}
}

// NormalizeAmount keeps two decimals, rounding down, and rejects amounts
// that end up zero or negative.
func NormalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	a := amount.Truncate(2)
	if !a.IsPositive() {
		return decimal.Zero, validationf("amount must be at least 0.01, got %s", amount.String())
	}
	return a, nil
}

// Balance returns the user's current balance, creating the row if needed.
func (l *EconomyLedger) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := ensureBalance(tx, userID)
		if err != nil {
			return err
		}
		out = b.Amount
		return nil
	})
	return out, err
}

// Debit subtracts amount and returns the new balance. A balance lower than
// amount yields ErrInsufficientFunds and changes nothing.
func (l *EconomyLedger) Debit(ctx context.Context, userID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	return l.apply(ctx, "economy.Debit", userID, func(tx *gorm.DB) (decimal.Decimal, error) {
		return debit(tx, userID, amount, models.PurchaseTransaction, "")
	})
}

// Credit adds amount as a manual adjustment and returns the new balance.
func (l *EconomyLedger) Credit(ctx context.Context, userID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	return l.apply(ctx, "economy.Credit", userID, func(tx *gorm.DB) (decimal.Decimal, error) {
		return credit(tx, userID, amount, models.AdjustmentTransaction, "")
	})
}

// Withdraw takes money out of the system, e.g. a cash payout.
func (l *EconomyLedger) Withdraw(ctx context.Context, userID uint, amount decimal.Decimal, reference string) (decimal.Decimal, error) {
	return l.apply(ctx, "economy.Withdraw", userID, func(tx *gorm.DB) (decimal.Decimal, error) {
		return debit(tx, userID, amount, models.WithdrawTransaction, reference)
	})
}

// Transactions lists the user's audit rows, newest first.
func (l *EconomyLedger) Transactions(ctx context.Context, userID uint, limit int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.Transaction
	err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (l *EconomyLedger) apply(ctx context.Context, op string, userID uint, fn func(tx *gorm.DB) (decimal.Decimal, error)) (decimal.Decimal, error) {
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("user.id", int64(userID))))
	defer span.End()

	var out decimal.Decimal
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := fn(tx)
		out = b
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientFunds) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return decimal.Zero, err
	}
	return out, nil
}

// -------------------- Transaction helpers --------------------

// ensureBalance locks the user's balance row, inserting it first when missing.
func ensureBalance(tx *gorm.DB, userID uint) (*models.Balance, error) {
	if err := tx.Select("id").First(&models.User{}, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, err
	}
	err := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&models.Balance{UserID: userID, Amount: decimal.Zero}).Error
	if err != nil {
		return nil, fmt.Errorf("create balance: %w", err)
	}
	var b models.Balance
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&b).Error
	if err != nil {
		return nil, fmt.Errorf("lock balance: %w", err)
	}
	return &b, nil
}

func debit(tx *gorm.DB, userID uint, amount decimal.Decimal, typ models.TransactionType, ref string) (decimal.Decimal, error) {
	amount, err := NormalizeAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}
	b, err := ensureBalance(tx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if b.Amount.LessThan(amount) {
		return b.Amount, fmt.Errorf("%w: balance %s, need %s", ErrInsufficientFunds, b.Amount.StringFixed(2), amount.StringFixed(2))
	}
	return setBalance(tx, b, b.Amount.Sub(amount), amount.Neg(), typ, ref)
}

func credit(tx *gorm.DB, userID uint, amount decimal.Decimal, typ models.TransactionType, ref string) (decimal.Decimal, error) {
	amount, err := NormalizeAmount(amount)
	if err != nil {
		return decimal.Zero, err
	}
	b, err := ensureBalance(tx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return setBalance(tx, b, b.Amount.Add(amount), amount, typ, ref)
}

func setBalance(tx *gorm.DB, b *models.Balance, next, delta decimal.Decimal, typ models.TransactionType, ref string) (decimal.Decimal, error) {
	if err := tx.Model(b).Update("amount", next).Error; err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}
	audit := models.Transaction{
		UserID:       b.UserID,
		Type:         typ,
		Amount:       delta,
		BalanceAfter: next,
		Reference:    ref,
	}
	if err := tx.Create(&audit).Error; err != nil {
		return decimal.Zero, fmt.Errorf("write transaction: %w", err)
	}
	return next, nil
}
