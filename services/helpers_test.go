package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bellapacxx/bingo-live/config"
	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a per-test in-memory database to avoid cross-test interference
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := config.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string, roles ...string) models.User {
	t.Helper()
	u := models.User{TelegramID: time.Now().UnixNano(), Name: name}
	for _, r := range roles {
		switch r {
		case "staff":
			u.IsStaff = true
		case "seller":
			u.IsSeller = true
		}
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func createEvent(t *testing.T, db *gorm.DB, name string) models.Event {
	t.Helper()
	now := time.Now()
	ev := models.Event{Name: name, Prize: "100", StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Hour)}
	require.NoError(t, db.Create(&ev).Error)
	return ev
}

// createCard stores numbers as given, in whatever shape the caller chose.
func createCard(t *testing.T, db *gorm.DB, eventID uint, owner *uint, numbers string) models.Card {
	t.Helper()
	c := models.Card{
		EventID: eventID,
		UserID:  owner,
		Numbers: []byte(numbers),
		Hash:    fmt.Sprintf("hash-%d-%d", eventID, time.Now().UnixNano()),
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func fund(t *testing.T, l *EconomyLedger, userID uint, amount string) {
	t.Helper()
	_, err := l.Credit(context.Background(), userID, decimal.RequireFromString(amount))
	require.NoError(t, err)
}

func requireBalance(t *testing.T, l *EconomyLedger, userID uint, want string) {
	t.Helper()
	got, err := l.Balance(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString(want).Equal(got), "balance %s, want %s", got, want)
}

// testGrid is a valid card whose top row is 5 18 33 50 61.
var testGrid = game.Grid{
	5, 18, 33, 50, 61,
	2, 20, 41, 47, 75,
	9, 16, 0, 59, 70,
	14, 29, 38, 52, 64,
	1, 25, 45, 60, 68,
}

func tokenJSON(g game.Grid) string {
	b, _ := game.Encode(g)
	return string(b)
}

func uintPtr(v uint) *uint { return &v }
