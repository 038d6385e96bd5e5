package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bellapacxx/bingo-live/models"
)

func TestBalance_CreatedLazily(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "ana")
	l := NewEconomyLedger(db)

	requireBalance(t, l, u.ID, "0")

	var rows int64
	require.NoError(t, db.Model(&models.Balance{}).Where("user_id = ?", u.ID).Count(&rows).Error)
	require.Equal(t, int64(1), rows)
}

func TestDebit_Basic(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "ana")
	l := NewEconomyLedger(db)
	ctx := context.Background()
	fund(t, l, u.ID, "10.00")

	bal, err := l.Debit(ctx, u.ID, decimal.RequireFromString("3.999"))
	require.NoError(t, err)
	require.Equal(t, "6.01", bal.StringFixed(2))

	_, err = l.Debit(ctx, u.ID, decimal.RequireFromString("6.02"))
	require.ErrorIs(t, err, ErrInsufficientFunds)
	requireBalance(t, l, u.ID, "6.01")

	_, err = l.Debit(ctx, u.ID, decimal.RequireFromString("0.004"))
	require.ErrorIs(t, err, ErrValidation)
	_, err = l.Debit(ctx, u.ID, decimal.RequireFromString("-1"))
	require.ErrorIs(t, err, ErrValidation)
}

func TestDebit_UnknownUser(t *testing.T) {
	l := NewEconomyLedger(newTestDB(t))
	_, err := l.Debit(context.Background(), 999, decimal.NewFromInt(1))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDebit_ConcurrentOnlyOneWins(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "ana")
	l := NewEconomyLedger(db)
	fund(t, l, u.ID, "10.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.Debit(context.Background(), u.ID, decimal.RequireFromString("6.00"))
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientFunds):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, short)
	requireBalance(t, l, u.ID, "4.00")
}

func TestLedger_WritesAuditRows(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "ana")
	l := NewEconomyLedger(db)
	ctx := context.Background()

	fund(t, l, u.ID, "20")
	_, err := l.Withdraw(ctx, u.ID, decimal.RequireFromString("5.5"), "cash desk")
	require.NoError(t, err)
	_, err = l.Withdraw(ctx, u.ID, decimal.RequireFromString("50"), "too much")
	require.ErrorIs(t, err, ErrInsufficientFunds)

	txs, err := l.Transactions(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	require.Equal(t, models.WithdrawTransaction, txs[0].Type)
	require.Equal(t, "-5.50", txs[0].Amount.StringFixed(2))
	require.Equal(t, "14.50", txs[0].BalanceAfter.StringFixed(2))
	require.Equal(t, "cash desk", txs[0].Reference)
	require.Equal(t, models.AdjustmentTransaction, txs[1].Type)
}

func TestNormalizeAmount(t *testing.T) {
	a, err := NormalizeAmount(decimal.RequireFromString("1.239"))
	require.NoError(t, err)
	require.Equal(t, "1.23", a.StringFixed(2))

	_, err = NormalizeAmount(decimal.Zero)
	require.ErrorIs(t, err, ErrValidation)
}
