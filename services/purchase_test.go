package services

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bellapacxx/bingo-live/game"
	"github.com/bellapacxx/bingo-live/models"
)

func newPurchases(t *testing.T, locker Locker) (*PurchaseService, *EconomyLedger, models.User, models.Event) {
	db := newTestDB(t)
	u := createUser(t, db, "ana")
	ev := createEvent(t, db, "Saturday")
	if locker == nil {
		locker = NewMemoryLocker()
	}
	svc := NewPurchaseService(db, locker, game.NewGenerator(99), PurchaseConfig{
		CardPrice: decimal.RequireFromString("1.50"),
		MaxCards:  10,
		LockTTL:   time.Minute,
	})
	return svc, NewEconomyLedger(db), u, ev
}

func TestPurchaseCards(t *testing.T) {
	svc, ledger, u, ev := newPurchases(t, nil)
	ctx := context.Background()
	fund(t, ledger, u.ID, "10")

	res, err := svc.PurchaseCards(ctx, u.ID, ev.ID, 3)
	require.NoError(t, err)
	require.Len(t, res.Cards, 3)
	require.Equal(t, "4.50", res.Total.StringFixed(2))
	require.Equal(t, "5.50", res.Balance.StringFixed(2))
	require.Equal(t, 3, res.CardsOwned)
	require.NotEmpty(t, res.TransactionID)

	keys := map[string]bool{}
	for i, c := range res.Cards {
		require.Equal(t, u.ID, *c.UserID)
		require.Equal(t, ev.ID, c.EventID)
		require.Len(t, c.Hash, 64)
		require.Equal(t, strconv.Itoa(int(ev.ID))+"-0000"+strconv.Itoa(i+1), *c.CorrelativeID)

		g, warnings, err := game.Normalize(c.Numbers)
		require.NoError(t, err)
		require.Empty(t, warnings)
		require.NoError(t, g.Validate())
		require.False(t, keys[g.Key()])
		keys[g.Key()] = true

		var meta models.CardMetadata
		require.NoError(t, json.Unmarshal(c.Metadata, &meta))
		require.Equal(t, res.TransactionID, meta.TransactionID)
		require.Equal(t, 3, meta.BatchSize)
		require.Equal(t, SourcePurchase, meta.Source)
	}

	// a second purchase continues the counter and the correlative ids
	res, err = svc.PurchaseCards(ctx, u.ID, ev.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 5, res.CardsOwned)
	require.Equal(t, strconv.Itoa(int(ev.ID))+"-00005", *res.Cards[1].CorrelativeID)
	requireBalance(t, ledger, u.ID, "2.50")
}

func TestPurchaseCards_InsufficientRollsBack(t *testing.T) {
	svc, ledger, u, ev := newPurchases(t, nil)
	ctx := context.Background()
	fund(t, ledger, u.ID, "2")

	_, err := svc.PurchaseCards(ctx, u.ID, ev.ID, 2)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	var cards, purchases int64
	require.NoError(t, svc.db.Model(&models.Card{}).Count(&cards).Error)
	require.NoError(t, svc.db.Model(&models.Purchase{}).Count(&purchases).Error)
	require.Zero(t, cards)
	require.Zero(t, purchases)
	requireBalance(t, ledger, u.ID, "2")

	// the lock was released on the failure path
	_, err = svc.PurchaseCards(ctx, u.ID, ev.ID, 1)
	require.NoError(t, err)
}

func TestPurchaseCards_BusyWhileLocked(t *testing.T) {
	locker := NewMemoryLocker()
	svc, ledger, u, ev := newPurchases(t, locker)
	ctx := context.Background()
	fund(t, ledger, u.ID, "10")

	release, err := locker.TryLock(ctx, "purchase:"+strconv.Itoa(int(u.ID)), time.Minute)
	require.NoError(t, err)

	_, err = svc.PurchaseCards(ctx, u.ID, ev.ID, 1)
	require.ErrorIs(t, err, ErrBusy)
	requireBalance(t, ledger, u.ID, "10")

	release()
	_, err = svc.PurchaseCards(ctx, u.ID, ev.ID, 1)
	require.NoError(t, err)
}

func TestPurchaseCards_Validation(t *testing.T) {
	svc, _, u, ev := newPurchases(t, nil)
	ctx := context.Background()

	for _, q := range []int{0, -1, 11} {
		_, err := svc.PurchaseCards(ctx, u.ID, ev.ID, q)
		require.ErrorIs(t, err, ErrValidation, "quantity %d", q)
	}
	_, err := svc.PurchaseCards(ctx, u.ID, ev.ID+10, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateBulk_RequiresSeller(t *testing.T) {
	svc, _, u, ev := newPurchases(t, nil)
	ctx := context.Background()

	_, err := svc.GenerateBulk(ctx, u.ID, ev.ID, 2)
	require.ErrorIs(t, err, ErrForbidden)

	seller := createUser(t, svc.db, "sam", "seller")
	res, err := svc.GenerateBulk(ctx, seller.ID, ev.ID, 4)
	require.NoError(t, err)
	require.Len(t, res.Cards, 4)
	require.Equal(t, 4, res.CardsOwned)
	requireBalance(t, NewEconomyLedger(svc.db), seller.ID, "0")
}

func TestListPurchases(t *testing.T) {
	svc, ledger, u, ev := newPurchases(t, nil)
	ctx := context.Background()
	other := createEvent(t, svc.db, "Sunday")
	fund(t, ledger, u.ID, "10")

	_, err := svc.PurchaseCards(ctx, u.ID, ev.ID, 1)
	require.NoError(t, err)
	_, err = svc.PurchaseCards(ctx, u.ID, other.ID, 2)
	require.NoError(t, err)

	all, err := svc.ListPurchases(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	one, err := svc.ListPurchases(ctx, u.ID, other.ID)
	require.NoError(t, err)
	require.Len(t, one, 1)
	require.Equal(t, 2, one[0].CardsOwned)

	none, err := svc.ListPurchases(ctx, u.ID+100, 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestListBatches(t *testing.T) {
	svc, ledger, u, ev := newPurchases(t, nil)
	ctx := context.Background()

	_, err := svc.ListBatches(ctx, u.ID)
	require.ErrorIs(t, err, ErrForbidden)

	seller := createUser(t, svc.db, "sam", "seller")
	first, err := svc.GenerateBulk(ctx, seller.ID, ev.ID, 2)
	require.NoError(t, err)
	second, err := svc.GenerateBulk(ctx, seller.ID, ev.ID, 3)
	require.NoError(t, err)
	// bought cards are not a batch
	fund(t, ledger, seller.ID, "5")
	_, err = svc.PurchaseCards(ctx, seller.ID, ev.ID, 1)
	require.NoError(t, err)

	batches, err := svc.ListBatches(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Equal(t, second.TransactionID, batches[0].TransactionID)
	require.Equal(t, 3, batches[0].Count)
	require.Equal(t, first.TransactionID, batches[1].TransactionID)
	require.Equal(t, []uint{first.Cards[0].ID, first.Cards[1].ID}, batches[1].CardIDs)
	require.Equal(t, ev.ID, batches[1].EventID)
	require.False(t, batches[1].GeneratedAt.IsZero())
}

func TestGenerateHouse(t *testing.T) {
	svc, _, _, ev := newPurchases(t, nil)
	res, err := svc.GenerateHouse(context.Background(), ev.ID, 3)
	require.NoError(t, err)
	require.Len(t, res.Cards, 3)
	for _, c := range res.Cards {
		require.Nil(t, c.UserID)
	}

	_, err = svc.GenerateHouse(context.Background(), ev.ID+1, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestImportCards_MixedShapes(t *testing.T) {
	svc, _, _, ev := newPurchases(t, nil)
	g := testGrid

	columns := `{"B":[5,2,9,14,1],"I":[18,20,16,29,25],"N":[33,41,38,45],"G":[50,47,59,52,60],"O":[61,75,70,64,68],"card_id":7}`
	other := g
	other[0], other[5] = 2, 5
	flat, _ := json.Marshal(other[:])
	data := `[` + columns + `,` + string(flat) + `,` + tokenJSON(g) + `,["B1","oops"],42]`

	rep, err := svc.ImportCards(context.Background(), ev.ID, []byte(data))
	require.NoError(t, err)
	require.Len(t, rep.Imported, 2)
	require.Len(t, rep.Skipped, 3)
	require.Nil(t, rep.Imported[0].UserID)

	// the submitted shape is kept
	require.JSONEq(t, columns, string(rep.Imported[0].Numbers))

	_, err = svc.ImportCards(context.Background(), ev.ID, []byte(`{}`))
	require.ErrorIs(t, err, ErrValidation)
}

func TestImportCards_SkipsUnplayableLayouts(t *testing.T) {
	svc, _, _, ev := newPurchases(t, nil)
	g := testGrid
	copy(g[0:5], []int{0, 0, 0, 0, 0})
	repeated := testGrid
	repeated[5] = 5
	data := `[[0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0],` + tokenJSON(g) + `,` + tokenJSON(repeated) + `,` + tokenJSON(testGrid) + `]`

	rep, err := svc.ImportCards(context.Background(), ev.ID, []byte(data))
	require.NoError(t, err)
	require.Len(t, rep.Imported, 1)
	require.Len(t, rep.Skipped, 3)
	for _, reason := range rep.Skipped {
		require.Contains(t, reason, "cannot be played")
	}
}
